// Package publish uploads finished books to S3.
package publish

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmgilman/go/errors"
	fsbilly "github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/fs/core"

	"github.com/tsawler/epubpack/internal/log"
	"github.com/tsawler/epubpack/manifest"
)

// PutObjectAPI is the part of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Options struct {
	Logger *slog.Logger

	// S3 location for books: s3://{bucket}/{prefix}/{file name}
	Bucket string
	Prefix string
	Region string

	// Filesystem books are read from (local disk if nil)
	Source core.ReadFS

	// AWS config (uses default if nil)
	AWSConfig *aws.Config

	// Client overrides the S3 client built from the AWS config
	Client PutObjectAPI
}

type Uploader struct {
	opts   Options
	client PutObjectAPI
	logger *slog.Logger
}

// New creates an Uploader with the given options
func New(ctx context.Context, opts Options) (*Uploader, error) {
	if opts.Bucket == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "bucket is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Source == nil {
		opts.Source = fsbilly.NewLocal()
	}

	client := opts.Client
	if client == nil {
		var awsCfg aws.Config
		if opts.AWSConfig != nil {
			awsCfg = *opts.AWSConfig
		} else {
			var loadOpts []func(*config.LoadOptions) error
			if opts.Region != "" {
				loadOpts = append(loadOpts, config.WithRegion(opts.Region))
			}
			var err error
			awsCfg, err = config.LoadDefaultConfig(ctx, loadOpts...)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeInvalidConfig, "load AWS config")
			}
		}
		client = s3.NewFromConfig(awsCfg)
	}

	return &Uploader{
		opts:   opts,
		client: client,
		logger: opts.Logger,
	}, nil
}

// Key returns the object key a file is uploaded to.
func (u *Uploader) Key(name string) string {
	base := filepath.Base(name)
	prefix := strings.Trim(u.opts.Prefix, "/")
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

// Upload copies the named book to S3 and returns its object key.
func (u *Uploader) Upload(ctx context.Context, name string) (string, error) {
	key := u.Key(name)
	errCtx := map[string]interface{}{
		"bucket": u.opts.Bucket,
		"key":    key,
		"file":   name,
	}

	f, err := u.opts.Source.Open(name)
	if err != nil {
		return "", errors.WrapWithContext(err, errors.CodePublishFailed, "open book", errCtx)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.WrapWithContext(err, errors.CodePublishFailed, "stat book", errCtx)
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.opts.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(manifest.MimetypeContent),
	})
	if err != nil {
		return "", errors.WrapWithContext(err, errors.CodePublishFailed, "upload book", errCtx)
	}

	u.logger.InfoContext(ctx, "book published",
		slog.String("bucket", u.opts.Bucket),
		slog.String("key", key),
		slog.Int64("bytes", info.Size()),
	)
	return key, nil
}
