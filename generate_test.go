package epubpack

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/util"
	perrors "github.com/jmgilman/go/errors"
	fsbilly "github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/fs/core"
	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/epubpack/epubdoc"
	"github.com/tsawler/epubpack/format"
)

const chapterOne = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Chapter One</title></head>
<body><h1>Chapter One</h1><p>It was a dark and stormy night.</p></body>
</html>`

const chapterTwo = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Chapter Two</title></head>
<body><h1>Chapter Two</h1><p>The storm passed.</p></body>
</html>`

// newMemoryBook returns a book reading from and writing to one in-memory
// filesystem seeded with files.
func newMemoryBook(t *testing.T, meta Metadata, files map[string]string, opts ...Option) (*Book, *fsbilly.MemoryFS) {
	t.Helper()

	mem := fsbilly.NewMemory()
	for name, content := range files {
		require.NoError(t, util.WriteFile(mem.Unwrap(), name, []byte(content), 0o644))
	}

	opts = append([]Option{
		WithSource(mem),
		WithDestination(mem),
		WithClock(fixedClock),
		WithIDGenerator(FixedID("urn:uuid:test")),
	}, opts...)

	return New(meta, opts...), mem
}

func zipNames(t *testing.T, data []byte) []string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestGenerate_LocalFilesystem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chap1.xhtml"), []byte(chapterOne), 0o644))

	b := New(Metadata{Title: "T"}, WithClock(fixedClock))
	b.AddEntry(filepath.Join(dir, "chap1.xhtml"), EntryOptions{})

	out := filepath.Join(dir, "book.epub")
	require.NoError(t, b.Generate(context.Background(), out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"mimetype",
		"META-INF/container.xml",
		"OPS/epb.opf",
		"OPS/epb.ncx",
		"OPS/chap1.xhtml",
	}, zipNames(t, data))
	assert.Equal(t, format.EPUB, format.DetectFromMagic(data))
}

func TestGenerate_RelativePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chap1.xhtml"), []byte(chapterOne), 0o644))
	t.Chdir(dir)

	b := New(Metadata{Title: "T"})
	b.AddEntry("chap1.xhtml", EntryOptions{})
	require.NoError(t, b.Generate(context.Background(), "book.epub"))

	_, err := os.Stat(filepath.Join(dir, "book.epub"))
	assert.NoError(t, err)
}

func TestBuild_MimetypeLayout(t *testing.T) {
	b, _ := newMemoryBook(t, Metadata{}, nil)

	var buf bytes.Buffer
	n := Must(b.Build(context.Background(), &buf))
	data := buf.Bytes()

	assert.Equal(t, int64(len(data)), n)
	require.Greater(t, len(data), 58)
	assert.Equal(t, "PK\x03\x04", string(data[:4]))
	assert.Equal(t, "mimetype", string(data[30:38]))
	assert.Equal(t, "application/epub+zip", string(data[38:58]))

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, zip.Store, zr.File[0].Method)
	for _, f := range zr.File[1:] {
		assert.Equal(t, zip.Deflate, f.Method, f.Name)
	}
}

func TestBuild_NoEntries(t *testing.T) {
	b, _ := newMemoryBook(t, Metadata{Title: "Empty"}, nil)

	var buf bytes.Buffer
	_, err := b.Build(context.Background(), &buf)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"mimetype",
		"META-INF/container.xml",
		"OPS/epb.opf",
		"OPS/epb.ncx",
	}, zipNames(t, buf.Bytes()))

	r, err := epubdoc.OpenReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, 0, r.ChapterCount())
	assert.Empty(t, r.Package().Spine)
}

func TestBuild_EntryOrder(t *testing.T) {
	b, _ := newMemoryBook(t, Metadata{}, map[string]string{
		"text/b.xhtml": chapterTwo,
		"text/a.xhtml": chapterOne,
		"style.css":    "body { margin: 0 }",
		"cover.png":    "\x89PNG\r\n\x1a\n",
	})
	b.AddEntry("text/b.xhtml", EntryOptions{})
	b.AddEntry("style.css", EntryOptions{})
	b.AddEntry("cover.png", EntryOptions{Cover: true})
	b.AddEntry("text/a.xhtml", EntryOptions{})

	var buf bytes.Buffer
	_, err := b.Build(context.Background(), &buf)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"mimetype",
		"META-INF/container.xml",
		"OPS/epb.opf",
		"OPS/epb.ncx",
		"OPS/b.xhtml",
		"OPS/style.css",
		"OPS/cover.png",
		"OPS/a.xhtml",
	}, zipNames(t, buf.Bytes()))
}

func TestBuild_EPUB3AddsNav(t *testing.T) {
	b, _ := newMemoryBook(t, Metadata{Title: "Nav Book"}, map[string]string{"chap1.xhtml": chapterOne}, WithVersion(EPUB3))
	b.AddEntry("chap1.xhtml", EntryOptions{Title: "Opening"})

	var buf bytes.Buffer
	_, err := b.Build(context.Background(), &buf)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"mimetype",
		"META-INF/container.xml",
		"OPS/epb.opf",
		"OPS/epb.ncx",
		"OPS/toc.xhtml",
		"OPS/chap1.xhtml",
	}, zipNames(t, buf.Bytes()))

	r, err := epubdoc.OpenReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, "3.0", r.Package().Version)
	assert.Equal(t, testTime, r.Metadata().Modified.UTC())

	toc := r.TableOfContents()
	assert.Equal(t, "Nav Book", toc.Title)
	require.Len(t, toc.Entries, 1)
	assert.Equal(t, "Opening", toc.Entries[0].Title)
	assert.Equal(t, "chap1.xhtml", toc.Entries[0].Href)
}

func TestBuild_ReadBack(t *testing.T) {
	b, _ := newMemoryBook(t, Metadata{
		Title:     "Stormy Nights",
		Author:    "A. Writer",
		Publisher: "Night Press",
		Genre:     "Fiction",
	}, map[string]string{
		"chap1.xhtml":   chapterOne,
		"chap 2.xhtml":  chapterTwo,
		"img/cover.png": "\x89PNG\r\n\x1a\n",
	})
	b.AddEntry("chap1.xhtml", EntryOptions{Title: "One"})
	b.AddEntry("img/cover.png", EntryOptions{Cover: true})
	b.AddEntry("chap 2.xhtml", EntryOptions{Title: "Two"})

	var buf bytes.Buffer
	_, err := b.Build(context.Background(), &buf)
	require.NoError(t, err)

	r, err := epubdoc.OpenReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	defer r.Close()

	assert.NoError(t, r.MimetypeError())
	assert.Equal(t, "OPS/epb.opf", r.PackagePath())

	meta := r.Metadata()
	assert.Equal(t, "Stormy Nights", meta.Title)
	assert.Equal(t, []string{"A. Writer"}, meta.Creator)
	assert.Equal(t, DefaultLanguage, meta.Language)
	assert.Equal(t, "urn:uuid:test", meta.Identifier)
	assert.Equal(t, "Night Press", meta.Publisher)
	assert.Equal(t, []string{"Fiction"}, meta.Subjects)
	assert.Equal(t, "2024-03-01T10:30:00Z", meta.Date)
	assert.Equal(t, testTime, meta.Modified.UTC())
	assert.Equal(t, "item-2", meta.CoverID)

	pkg := r.Package()
	assert.Equal(t, "2.0", pkg.Version)
	assert.Equal(t, "ncx", pkg.TocID)
	require.Len(t, pkg.Manifest, 4)
	assert.Equal(t, "ncx", pkg.Manifest[0].ID)
	assert.Equal(t, "image/png", pkg.Manifest[2].MediaType)

	chapters := r.Chapters()
	require.Len(t, chapters, 2)
	assert.Equal(t, "OPS/chap1.xhtml", chapters[0].Href)
	assert.Equal(t, "Chapter One", chapters[0].Title)
	assert.Equal(t, "OPS/chap 2.xhtml", chapters[1].Href)
	assert.Equal(t, chapterTwo, string(chapters[1].Content))

	toc := r.TableOfContents()
	assert.Equal(t, "Stormy Nights", toc.Title)
	require.Len(t, toc.Entries, 2)
	assert.Equal(t, "One", toc.Entries[0].Title)
	assert.Equal(t, "Two", toc.Entries[1].Title)
	assert.Equal(t, "chap%202.xhtml", toc.Entries[1].Href)

	cover, err := r.ReadFile("OPS/cover.png")
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG\r\n\x1a\n", string(cover))
}

func TestBuild_Deterministic(t *testing.T) {
	build := func() []byte {
		b, _ := newMemoryBook(t, Metadata{Title: "Same"}, map[string]string{"chap1.xhtml": chapterOne})
		b.AddEntry("chap1.xhtml", EntryOptions{})
		var buf bytes.Buffer
		Must(b.Build(context.Background(), &buf))
		return buf.Bytes()
	}

	assert.Equal(t, build(), build())
}

func TestBuild_CompressionLevel(t *testing.T) {
	content := bytes.Repeat([]byte("<p>repeated paragraph</p>\n"), 500)
	size := func(level int) int {
		b, _ := newMemoryBook(t, Metadata{}, map[string]string{"chap1.xhtml": string(content)}, WithCompression(level))
		b.AddEntry("chap1.xhtml", EntryOptions{})
		var buf bytes.Buffer
		Must(b.Build(context.Background(), &buf))
		return buf.Len()
	}

	assert.Less(t, size(flate.BestCompression), size(flate.NoCompression))
}

func TestGenerate_MemoryDestination(t *testing.T) {
	b, mem := newMemoryBook(t, Metadata{Title: "Mem"}, map[string]string{"chap1.xhtml": chapterOne})
	b.AddEntry("chap1.xhtml", EntryOptions{})
	require.NoError(t, mem.MkdirAll("out", 0o755))

	require.NoError(t, b.Generate(context.Background(), "out/book.epub"))

	data, err := mem.ReadFile("out/book.epub")
	require.NoError(t, err)
	assert.Equal(t, format.EPUB, format.DetectFromMagic(data))
	assert.Contains(t, zipNames(t, data), "OPS/chap1.xhtml")
}

func TestGenerate_MissingDestinationDir(t *testing.T) {
	t.Run("local", func(t *testing.T) {
		dir := t.TempDir()
		out := filepath.Join(dir, "no", "such", "dir", "book.epub")

		err := New(Metadata{Title: "T"}, WithClock(fixedClock)).Generate(context.Background(), out)
		require.Error(t, err)
		assert.Equal(t, CodeWrite, perrors.GetCode(err))
		assert.ErrorIs(t, err, fs.ErrNotExist)

		_, statErr := os.Stat(filepath.Join(dir, "no"))
		assert.ErrorIs(t, statErr, fs.ErrNotExist)
	})

	t.Run("memory", func(t *testing.T) {
		b, mem := newMemoryBook(t, Metadata{Title: "Mem"}, map[string]string{"chap1.xhtml": chapterOne})
		b.AddEntry("chap1.xhtml", EntryOptions{})

		err := b.Generate(context.Background(), "out/book.epub")
		require.Error(t, err)
		assert.Equal(t, CodeWrite, perrors.GetCode(err))
		assert.ErrorIs(t, err, fs.ErrNotExist)

		exists, err := mem.Exists("out")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("parent is a file", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

		err := New(Metadata{Title: "T"}, WithClock(fixedClock)).Generate(context.Background(), filepath.Join(blocker, "book.epub"))
		require.Error(t, err)
		assert.Equal(t, CodeWrite, perrors.GetCode(err))
	})
}

func TestGenerate_MissingSource(t *testing.T) {
	b, mem := newMemoryBook(t, Metadata{}, map[string]string{"chap1.xhtml": chapterOne})
	b.AddEntry("chap1.xhtml", EntryOptions{})
	b.AddEntry("missing.xhtml", EntryOptions{})

	err := b.Generate(context.Background(), "book.epub")
	require.Error(t, err)
	assert.Equal(t, CodeSourceMissing, perrors.GetCode(err))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "missing.xhtml")

	// The partially written file stays behind.
	exists, err := mem.Exists("book.epub")
	require.NoError(t, err)
	assert.True(t, exists)
}

type brokenFS struct {
	core.ReadFS
}

func (b brokenFS) Open(name string) (fs.File, error) {
	f, err := b.ReadFS.Open(name)
	if err != nil {
		return nil, err
	}
	return brokenFile{f}, nil
}

type brokenFile struct {
	fs.File
}

var errDisk = errors.New("disk read error")

func (brokenFile) Read([]byte) (int, error) { return 0, errDisk }

func TestBuild_SourceReadError(t *testing.T) {
	mem := fsbilly.NewMemory()
	require.NoError(t, mem.WriteFile("chap1.xhtml", []byte(chapterOne), 0o644))

	b := New(Metadata{}, WithSource(brokenFS{mem}))
	b.AddEntry("chap1.xhtml", EntryOptions{})

	_, err := b.Build(context.Background(), io.Discard)
	require.Error(t, err)
	assert.Equal(t, CodeSourceRead, perrors.GetCode(err))
	assert.ErrorIs(t, err, errDisk)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("device full") }

func TestBuild_WriteError(t *testing.T) {
	b, _ := newMemoryBook(t, Metadata{}, map[string]string{"chap1.xhtml": chapterOne})
	b.AddEntry("chap1.xhtml", EntryOptions{})

	_, err := b.Build(context.Background(), failingWriter{})
	require.Error(t, err)
	assert.Equal(t, CodeWrite, perrors.GetCode(err))
}

func TestBuild_Canceled(t *testing.T) {
	b, _ := newMemoryBook(t, Metadata{}, map[string]string{"chap1.xhtml": chapterOne})
	b.AddEntry("chap1.xhtml", EntryOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Build(ctx, io.Discard)
	require.Error(t, err)
	assert.Equal(t, CodeCanceled, perrors.GetCode(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_DuplicateNames(t *testing.T) {
	files := map[string]string{"a/chap.xhtml": chapterOne, "b/chap.xhtml": chapterTwo}

	t.Run("lenient", func(t *testing.T) {
		b, mem := newMemoryBook(t, Metadata{}, files)
		b.AddEntry("a/chap.xhtml", EntryOptions{})
		b.AddEntry("b/chap.xhtml", EntryOptions{})

		require.NoError(t, b.Generate(context.Background(), "book.epub"))

		data, err := mem.ReadFile("book.epub")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"mimetype",
			"META-INF/container.xml",
			"OPS/epb.opf",
			"OPS/epb.ncx",
			"OPS/chap.xhtml",
			"OPS/chap.xhtml",
		}, zipNames(t, data))
	})

	t.Run("strict", func(t *testing.T) {
		b, mem := newMemoryBook(t, Metadata{}, files, WithStrict())
		b.AddEntry("a/chap.xhtml", EntryOptions{})
		b.AddEntry("b/chap.xhtml", EntryOptions{})

		err := b.Generate(context.Background(), "book.epub")
		require.Error(t, err)
		assert.Equal(t, CodeDuplicateName, perrors.GetCode(err))

		exists, err := mem.Exists("book.epub")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestBuild_Logging(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	b, _ := newMemoryBook(t, Metadata{Language: "??"}, map[string]string{"chap1.xhtml": chapterOne}, WithLogger(logger))
	b.AddEntry("chap1.xhtml", EntryOptions{})

	require.NoError(t, b.Generate(context.Background(), "book.epub"))

	out := logs.String()
	assert.Contains(t, out, "kind=invalid-language")
	assert.Contains(t, out, "entry written")
	assert.Contains(t, out, "entry=chap1.xhtml")
	assert.Contains(t, out, "epub ready")
}
