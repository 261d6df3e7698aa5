// Package epubdoc reads EPUB containers: the container descriptor, the OPF
// package document, the navigation documents and the chapter content.
package epubdoc

import (
	"time"
)

// Package represents the parsed OPF document.
type Package struct {
	Metadata Metadata
	Manifest []ManifestItem // document order
	Spine    []SpineItem
	Version  string // "2.0" or "3.0"
	TocID    string // spine toc attribute (EPUB 2 NCX item id)
}

// Item returns the manifest item with the given id.
func (p *Package) Item(id string) (ManifestItem, bool) {
	for _, it := range p.Manifest {
		if it.ID == id {
			return it, true
		}
	}
	return ManifestItem{}, false
}

// Metadata contains EPUB metadata (Dublin Core).
type Metadata struct {
	Title       string
	Creator     []string // Multiple authors possible
	Language    string
	Identifier  string // ISBN, UUID, etc.
	Publisher   string
	Date        string
	Description string
	Subjects    []string
	Rights      string
	Modified    time.Time
	CoverID     string // manifest id named by <meta name="cover">
}

// ManifestItem represents a file in the EPUB.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string // "nav", "cover-image", etc.
}

// HasProperty reports whether the item carries the given property.
func (m ManifestItem) HasProperty(prop string) bool {
	for _, p := range m.Properties {
		if p == prop {
			return true
		}
	}
	return false
}

// SpineItem represents a content document in reading order.
type SpineItem struct {
	IDRef  string
	Linear bool // true if part of main reading order
}

// Chapter represents extracted content from one spine item.
type Chapter struct {
	ID      string
	Title   string
	Index   int
	Href    string
	Content []byte // Raw XHTML content
}

// TableOfContents represents the navigation structure.
type TableOfContents struct {
	Title   string
	Entries []TOCEntry
}

// TOCEntry represents a single navigation entry.
type TOCEntry struct {
	Title     string
	Href      string // as written in the navigation document
	Path      string // archive path of the target, without fragment
	PlayOrder int
	Children  []TOCEntry
}

// Flatten returns every entry in reading order, parents before children.
func (t *TableOfContents) Flatten() []TOCEntry {
	var out []TOCEntry
	var walk func([]TOCEntry)
	walk = func(entries []TOCEntry) {
		for _, e := range entries {
			out = append(out, e)
			walk(e.Children)
		}
	}
	walk(t.Entries)
	return out
}
