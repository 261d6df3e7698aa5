package publish

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	perrors "github.com/jmgilman/go/errors"
	fsbilly "github.com/jmgilman/go/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func newTestUploader(t *testing.T, prefix string, client PutObjectAPI) (*Uploader, *fsbilly.MemoryFS) {
	t.Helper()
	mem := fsbilly.NewMemory()
	u, err := New(context.Background(), Options{
		Bucket: "books",
		Prefix: prefix,
		Source: mem,
		Client: client,
	})
	require.NoError(t, err)
	return u, mem
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Options{Client: &fakeS3{}})
	require.Error(t, err)
	assert.Equal(t, perrors.CodeInvalidConfig, perrors.GetCode(err))
}

func TestNew_WithAWSConfig(t *testing.T) {
	u, err := New(context.Background(), Options{
		Bucket:    "books",
		AWSConfig: &aws.Config{Region: "us-east-2"},
	})
	require.NoError(t, err)
	assert.NotNil(t, u.client)
}

func TestKey(t *testing.T) {
	tests := []struct {
		prefix string
		name   string
		want   string
	}{
		{"", "out/book.epub", "book.epub"},
		{"releases", "book.epub", "releases/book.epub"},
		{"/releases/2024/", "/tmp/out/book.epub", "releases/2024/book.epub"},
	}
	for _, tt := range tests {
		u, _ := newTestUploader(t, tt.prefix, &fakeS3{})
		assert.Equal(t, tt.want, u.Key(tt.name))
	}
}

func TestUpload(t *testing.T) {
	fake := &fakeS3{}
	u, mem := newTestUploader(t, "releases", fake)
	require.NoError(t, mem.WriteFile("out/book.epub", []byte("PK\x03\x04book"), 0o644))

	key, err := u.Upload(context.Background(), "out/book.epub")
	require.NoError(t, err)

	assert.Equal(t, "releases/book.epub", key)
	require.NotNil(t, fake.in)
	assert.Equal(t, "books", aws.ToString(fake.in.Bucket))
	assert.Equal(t, "releases/book.epub", aws.ToString(fake.in.Key))
	assert.Equal(t, "application/epub+zip", aws.ToString(fake.in.ContentType))
	assert.Equal(t, int64(8), aws.ToInt64(fake.in.ContentLength))
	assert.Equal(t, "PK\x03\x04book", string(fake.body))
}

func TestUpload_MissingFile(t *testing.T) {
	u, _ := newTestUploader(t, "", &fakeS3{})

	_, err := u.Upload(context.Background(), "missing.epub")
	require.Error(t, err)
	assert.Equal(t, perrors.CodePublishFailed, perrors.GetCode(err))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestUpload_ClientError(t *testing.T) {
	denied := errors.New("access denied")
	u, mem := newTestUploader(t, "", &fakeS3{err: denied})
	require.NoError(t, mem.WriteFile("book.epub", []byte("data"), 0o644))

	_, err := u.Upload(context.Background(), "book.epub")
	require.Error(t, err)
	assert.Equal(t, perrors.CodePublishFailed, perrors.GetCode(err))
	assert.ErrorIs(t, err, denied)
}
