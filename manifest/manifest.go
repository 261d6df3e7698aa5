// Package manifest renders the generated documents of an EPUB container:
// META-INF/container.xml, the OPF package document, the NCX navigation map
// and, for EPUB 3, the XHTML navigation document.
package manifest

import (
	"bytes"
	"encoding/xml"
	"net/url"
	"time"

	"github.com/tsawler/epubpack/mediatype"
)

// Fixed names inside the container.
const (
	MimetypeName    = "mimetype"
	ContainerPath   = "META-INF/container.xml"
	ContentDir      = "OPS"
	PackageName     = "epb.opf"
	NCXName         = "epb.ncx"
	NavName         = "toc.xhtml"
	PackagePath     = ContentDir + "/" + PackageName
	NCXPath         = ContentDir + "/" + NCXName
	NavPath         = ContentDir + "/" + NavName
	MimetypeContent = "application/epub+zip"
)

// Version selects the EPUB revision the package document targets.
type Version int

const (
	// EPUB2 writes an OPF 2.0 package navigated by the NCX.
	EPUB2 Version = iota
	// EPUB3 writes an OPF 3.0 package with an additional XHTML nav document.
	EPUB3
)

// String returns the version attribute value of the package element.
func (v Version) String() string {
	if v == EPUB3 {
		return "3.0"
	}
	return "2.0"
}

// Item is one content file listed in the manifest.
type Item struct {
	ID        string
	Href      string // relative to ContentDir
	Title     string
	MediaType mediatype.MediaType
	Cover     bool
}

// Book is the read-only view of a book the documents are rendered from.
type Book struct {
	Version     Version
	Title       string
	Language    string
	Identifier  string
	Author      string
	Publisher   string
	Genre       string
	Description string
	Created     time.Time
	Modified    time.Time
	Items       []Item
}

// Chapters returns the items that belong in the reading order.
func (b *Book) Chapters() []Item {
	var chapters []Item
	for _, it := range b.Items {
		if it.MediaType.IsChapter() {
			chapters = append(chapters, it)
		}
	}
	return chapters
}

// hrefFor escapes a content file name for use in an href attribute.
func hrefFor(name string) string {
	return (&url.URL{Path: name}).String()
}

// marshal encodes v as an indented XML document with the standard header and
// an optional doctype line.
func marshal(v any, doctype string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if doctype != "" {
		buf.WriteString(doctype)
		buf.WriteByte('\n')
	}

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}
