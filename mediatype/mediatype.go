// Package mediatype maps EPUB content file names to their media types.
package mediatype

import (
	"path"
	"strings"
)

// MediaType is a media type string as recorded in the package manifest.
type MediaType string

const (
	// XHTML is the media type of chapter documents.
	XHTML MediaType = "application/xhtml+xml"
	// CSS is the media type of style sheets.
	CSS MediaType = "text/css"
	// PNG is the media type of PNG images.
	PNG MediaType = "image/png"
	// JPEG is the media type of JPEG images.
	JPEG MediaType = "image/jpeg"
	// GIF is the media type of GIF images.
	GIF MediaType = "image/gif"
	// SVG is the media type of SVG images.
	SVG MediaType = "image/svg+xml"
	// OPF is the media type of the package document.
	OPF MediaType = "application/oebps-package+xml"
	// NCX is the media type of the EPUB 2 navigation map.
	NCX MediaType = "application/x-dtbncx+xml"
	// EPUB is the media type of the container itself.
	EPUB MediaType = "application/epub+zip"
	// PlainText is returned for any extension that is not recognized.
	PlainText MediaType = "text/plain"
)

// String returns the media type string.
func (m MediaType) String() string {
	return string(m)
}

// IsChapter reports whether entries of this type belong in the reading order.
func (m MediaType) IsChapter() bool {
	return m == XHTML
}

// IsImage reports whether m is one of the supported image types.
func (m MediaType) IsImage() bool {
	switch m {
	case PNG, JPEG, GIF, SVG:
		return true
	default:
		return false
	}
}

// Classify determines the media type from the file name extension.
// Matching is case-insensitive. Unknown or missing extensions map to PlainText.
func Classify(name string) MediaType {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	switch ext {
	// chapter documents
	case ".xhtml", ".html", ".htm":
		return XHTML
	case ".css":
		return CSS
	case ".png":
		return PNG
	case ".jpg", ".jpeg":
		return JPEG
	case ".gif":
		return GIF
	case ".svg":
		return SVG
	// packaging documents
	case ".opf":
		return OPF
	case ".ncx":
		return NCX
	case ".ocf":
		return EPUB
	default:
		return PlainText
	}
}
