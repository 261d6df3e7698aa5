package epubpack

import (
	"archive/zip"
	"context"
	"hash/crc32"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
	"github.com/klauspost/compress/flate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tsawler/epubpack/manifest"
)

var tracer = otel.Tracer("github.com/tsawler/epubpack")

// document is a generated file written ahead of the content entries.
type document struct {
	name string
	data []byte
}

// Generate writes the container to destination on the book's destination
// filesystem.
//
// Any failure to read an entry or to write the archive stops the build
// immediately. The partially written destination file is left in place.
func (b *Book) Generate(ctx context.Context, destination string) error {
	if err := b.checkStrict(); err != nil {
		return err
	}

	name := destination
	if b.opts.localDest && !filepath.IsAbs(name) {
		if abs, err := filepath.Abs(name); err == nil {
			name = abs
		}
	}

	if err := b.checkDestinationDir(name); err != nil {
		return errors.WithContext(err, "destination", destination)
	}

	f, err := b.opts.dest.Create(name)
	if err != nil {
		return errors.WithContext(errors.Wrap(err, CodeWrite, "create destination"), "destination", destination)
	}

	n, err := b.Build(ctx, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.WithContext(errors.Wrap(cerr, CodeWrite, "close destination"), "destination", destination)
	}
	if err != nil {
		return err
	}

	b.opts.logger.InfoContext(ctx, "epub ready",
		slog.String("destination", destination),
		slog.Int64("bytes", n),
	)
	return nil
}

// checkDestinationDir fails when the parent directory of name does not
// exist. Create on the billy filesystems makes missing parents, and the
// build must not.
func (b *Book) checkDestinationDir(name string) error {
	dir := filepath.Dir(name)
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	fsys, ok := b.opts.dest.(core.ReadFS)
	if !ok {
		return nil
	}

	info, err := fsys.Stat(dir)
	if err != nil {
		return errors.Wrap(err, CodeWrite, "create destination")
	}
	if !info.IsDir() {
		return errors.Newf(CodeWrite, "create destination: %s is not a directory", dir)
	}
	return nil
}

// Build writes the container to w and returns the number of bytes written.
// Entries are written strictly in order: mimetype, container.xml, the
// package document, the navigation documents, then content in insertion
// order. The context is checked before each content entry.
func (b *Book) Build(ctx context.Context, w io.Writer) (n int64, err error) {
	ctx, span := tracer.Start(ctx, "epubpack.Build", trace.WithAttributes(
		attribute.String("epub.identifier", b.meta.Identifier),
		attribute.Int("epub.entries", len(b.entries)),
		attribute.String("epub.version", b.opts.version.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, "build failed")
		}
		span.End()
	}()

	if err := b.checkStrict(); err != nil {
		return 0, err
	}
	for _, warn := range b.Check() {
		b.opts.logger.WarnContext(ctx, warn.Message,
			slog.String("kind", warn.Kind.String()),
			slog.String("entry", warn.Entry),
		)
	}

	docs, err := b.documents()
	if err != nil {
		return 0, err
	}

	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	level := b.opts.level
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	if err := writeMimetype(zw); err != nil {
		return cw.n, err
	}

	for _, d := range docs {
		if err := b.writeDocument(zw, d); err != nil {
			return cw.n, err
		}
	}

	for _, e := range b.entries {
		if err := ctx.Err(); err != nil {
			return cw.n, errors.Wrap(err, CodeCanceled, "build canceled")
		}
		if err := b.copyEntry(zw, e); err != nil {
			return cw.n, err
		}
		span.AddEvent("entry written", trace.WithAttributes(attribute.String("epub.entry", e.name)))
		b.opts.logger.DebugContext(ctx, "entry written",
			slog.String("entry", e.name),
			slog.String("media_type", e.mediaType.String()),
		)
	}

	if err := zw.Close(); err != nil {
		return cw.n, errors.Wrap(err, CodeWrite, "finalize archive")
	}

	return cw.n, nil
}

// documents renders the generated files in container order.
func (b *Book) documents() ([]document, error) {
	mb := b.manifestBook()

	container, err := manifest.Container()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "render container.xml")
	}
	opf, err := manifest.Package(mb)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "render package document")
	}
	ncx, err := manifest.NCX(mb)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "render navigation map")
	}

	docs := []document{
		{name: manifest.ContainerPath, data: container},
		{name: manifest.PackagePath, data: opf},
		{name: manifest.NCXPath, data: ncx},
	}

	if b.opts.version == EPUB3 {
		nav, err := manifest.Nav(mb)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "render navigation document")
		}
		docs = append(docs, document{name: manifest.NavPath, data: nav})
	}

	return docs, nil
}

// writeMimetype writes the stored mimetype entry. The header carries the
// sizes and CRC up front and has no extra field or data descriptor, so the
// content sits at byte offset 38 of the file.
func writeMimetype(zw *zip.Writer) error {
	data := []byte(manifest.MimetypeContent)
	fw, err := zw.CreateRaw(&zip.FileHeader{
		Name:               manifest.MimetypeName,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   uint64(len(data)),
		UncompressedSize64: uint64(len(data)),
	})
	if err != nil {
		return writeError(err, manifest.MimetypeName)
	}
	if _, err := fw.Write(data); err != nil {
		return writeError(err, manifest.MimetypeName)
	}
	return nil
}

func (b *Book) writeDocument(zw *zip.Writer, d document) error {
	fw, err := zw.CreateHeader(b.header(d.name))
	if err != nil {
		return writeError(err, d.name)
	}
	if _, err := fw.Write(d.data); err != nil {
		return writeError(err, d.name)
	}
	return nil
}

// copyEntry streams one content file into the archive. The source is opened
// before the archive entry is created.
func (b *Book) copyEntry(zw *zip.Writer, e *Entry) error {
	src, err := b.opts.source.Open(e.path)
	if err != nil {
		return readError(err, e)
	}
	defer src.Close()

	name := manifest.ContentDir + "/" + e.name
	fw, err := zw.CreateHeader(b.header(name))
	if err != nil {
		return writeError(err, name)
	}

	rt := &readTracker{r: src}
	if _, err := io.Copy(fw, rt); err != nil {
		if rt.err != nil {
			return readError(rt.err, e)
		}
		return writeError(err, name)
	}
	return nil
}

// readTracker remembers the last non-EOF error returned by its reader.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}

func (b *Book) header(name string) *zip.FileHeader {
	return &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: b.modified.UTC().Truncate(time.Second),
	}
}

// countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
