package epubdoc

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// Reader-related errors.
var (
	ErrInvalidArchive  = errors.New("epub: invalid or corrupted archive")
	ErrInvalidMimetype = errors.New("epub: invalid mimetype (not an EPUB)")
	ErrMissingContent  = errors.New("epub: referenced content file not found")
)

// Reader provides access to EPUB content.
type Reader struct {
	zr          *zip.ReadCloser
	zrReader    *zip.Reader // For when opened from io.ReaderAt
	pkg         *Package
	opfPath     string
	baseDir     string // Directory containing OPF (for resolving relative paths)
	mimetypeErr error
	chapters    []*Chapter
	toc         *TableOfContents
}

// Open opens an EPUB file from a path.
func Open(filePath string) (*Reader, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, ErrInvalidArchive
	}

	r := &Reader{zr: zr}
	if err := r.init(&zr.Reader); err != nil {
		zr.Close()
		return nil, err
	}

	return r, nil
}

// OpenReader opens an EPUB from an io.ReaderAt.
func OpenReader(ra io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, ErrInvalidArchive
	}

	r := &Reader{zrReader: zr}
	if err := r.init(zr); err != nil {
		return nil, err
	}

	return r, nil
}

// init initializes the reader by parsing the EPUB structure.
func (r *Reader) init(zr *zip.Reader) error {
	// Some EPUBs don't have a mimetype file; remember the problem and continue.
	r.mimetypeErr = validateMimetype(zr)

	opfPath, err := parseContainer(zr)
	if err != nil {
		return err
	}

	pkg, baseDir, err := parseOPF(zr, opfPath)
	if err != nil {
		return err
	}

	r.pkg = pkg
	r.opfPath = opfPath
	r.baseDir = baseDir

	return r.loadChapters(zr)
}

// validateMimetype checks that the mimetype file is correct.
func validateMimetype(zr *zip.Reader) error {
	data, err := readZipFile(zr, "mimetype")
	if err != nil {
		return ErrInvalidMimetype
	}
	if strings.TrimSpace(string(data)) != "application/epub+zip" {
		return ErrInvalidMimetype
	}
	return nil
}

// loadChapters loads all spine items as chapters.
func (r *Reader) loadChapters(zr *zip.Reader) error {
	r.chapters = make([]*Chapter, 0, len(r.pkg.Spine))

	for i, spineItem := range r.pkg.Spine {
		item, ok := r.pkg.Item(spineItem.IDRef)
		if !ok {
			continue // Skip missing items
		}

		href := r.resolveHref(item.Href)

		content, err := readZipFile(zr, href)
		if err != nil {
			// Skip missing files but continue
			continue
		}

		r.chapters = append(r.chapters, &Chapter{
			ID:      item.ID,
			Index:   i,
			Href:    href,
			Content: content,
			Title:   extractChapterTitle(content),
		})
	}

	return nil
}

// resolveHref resolves a relative href against the OPF base directory.
func (r *Reader) resolveHref(href string) string {
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}

	if r.baseDir == "" {
		return href
	}
	return path.Join(r.baseDir, href)
}

// readZipFile reads a file from the ZIP archive.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, ErrMissingContent
}

// extractChapterTitle returns the document <title>, or the first heading
// when the title is empty.
func extractChapterTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}

	var title, heading string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" {
					title = extractText(n)
				}
			case "h1", "h2", "h3", "h4", "h5", "h6":
				if heading == "" {
					heading = extractText(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if title != "" {
		return title
	}
	return heading
}

// Close closes the reader and releases resources.
func (r *Reader) Close() error {
	if r.zr != nil {
		return r.zr.Close()
	}
	return nil
}

// MimetypeError returns ErrInvalidMimetype when the mimetype entry was
// missing or wrong, nil otherwise.
func (r *Reader) MimetypeError() error {
	return r.mimetypeErr
}

// PackagePath returns the archive path of the OPF document.
func (r *Reader) PackagePath() string {
	return r.opfPath
}

// Package returns the parsed package document.
func (r *Reader) Package() *Package {
	return r.pkg
}

// Metadata returns the EPUB metadata.
func (r *Reader) Metadata() Metadata {
	return r.pkg.Metadata
}

// Files returns the archive entry names in archive order.
func (r *Reader) Files() []string {
	zr := r.getZipReader()
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

// ReadFile returns the content of the archive entry with the given name.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	return readZipFile(r.getZipReader(), name)
}

// ChapterCount returns the number of chapters.
func (r *Reader) ChapterCount() int {
	return len(r.chapters)
}

// Chapters returns all chapters.
func (r *Reader) Chapters() []*Chapter {
	return r.chapters
}

// getZipReader returns the appropriate zip.Reader.
func (r *Reader) getZipReader() *zip.Reader {
	if r.zr != nil {
		return &r.zr.Reader
	}
	return r.zrReader
}
