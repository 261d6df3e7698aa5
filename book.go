package epubpack

import (
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/tsawler/epubpack/manifest"
	"github.com/tsawler/epubpack/mediatype"
)

// Metadata holds the bibliographic fields of a book. Every field is optional.
type Metadata struct {
	Title       string
	Language    string // defaults to DefaultLanguage
	Identifier  string // generated when empty
	Author      string
	Publisher   string
	Genre       string
	Description string
	Created     time.Time // defaults to the construction instant
}

// Book accumulates metadata and content files before they are written out
// as a single EPUB container.
//
// A Book is not safe for concurrent use.
type Book struct {
	meta     Metadata
	modified time.Time
	entries  []*Entry
	opts     options
}

// New creates a Book. A missing identifier is taken from the configured
// IDGenerator, a missing language defaults to DefaultLanguage, and the
// creation and last-modified timestamps default to the construction instant.
//
// The last-modified timestamp is fixed here and does not change when entries
// are added later.
func New(meta Metadata, opts ...Option) *Book {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	now := o.clock()
	if meta.Language == "" {
		meta.Language = DefaultLanguage
	}
	if meta.Identifier == "" {
		meta.Identifier = o.ids.NewID()
	}
	if meta.Created.IsZero() {
		meta.Created = now
	}

	return &Book{
		meta:     meta,
		modified: now,
		opts:     o,
	}
}

// Title returns the book title.
func (b *Book) Title() string { return b.meta.Title }

// Language returns the language tag.
func (b *Book) Language() string { return b.meta.Language }

// Identifier returns the unique identifier.
func (b *Book) Identifier() string { return b.meta.Identifier }

// Author returns the author.
func (b *Book) Author() string { return b.meta.Author }

// Publisher returns the publisher.
func (b *Book) Publisher() string { return b.meta.Publisher }

// Genre returns the genre.
func (b *Book) Genre() string { return b.meta.Genre }

// Description returns the free-text description.
func (b *Book) Description() string { return b.meta.Description }

// Created returns the creation timestamp.
func (b *Book) Created() time.Time { return b.meta.Created }

// Modified returns the last-modified timestamp.
func (b *Book) Modified() time.Time { return b.modified }

// Version returns the EPUB revision the book is written as.
func (b *Book) Version() Version { return b.opts.version }

// AddEntry appends a content file. The file is not opened here: a missing or
// unreadable source only surfaces when the container is written. Destination
// names are not checked for uniqueness; see Check.
func (b *Book) AddEntry(source string, opts EntryOptions) *Entry {
	name := opts.Name
	if name == "" {
		name = path.Base(filepath.ToSlash(source))
	}
	title := opts.Title
	if title == "" {
		title = name
	}

	p := source
	if b.opts.localSource && !filepath.IsAbs(p) {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
	}

	e := &Entry{
		id:        fmt.Sprintf("item-%d", len(b.entries)+1),
		source:    source,
		path:      p,
		name:      name,
		title:     title,
		mediaType: mediatype.Classify(name),
		cover:     opts.Cover,
	}
	b.entries = append(b.entries, e)

	return e
}

// Entries returns all entries in insertion order.
func (b *Book) Entries() []*Entry {
	return append([]*Entry(nil), b.entries...)
}

// Chapters returns the entries classified as XHTML documents, in insertion
// order.
func (b *Book) Chapters() []*Entry {
	var chapters []*Entry
	for _, e := range b.entries {
		if e.IsChapter() {
			chapters = append(chapters, e)
		}
	}
	return chapters
}

// manifestBook builds the view the generated documents are rendered from.
func (b *Book) manifestBook() *manifest.Book {
	mb := &manifest.Book{
		Version:     b.opts.version,
		Title:       b.meta.Title,
		Language:    b.meta.Language,
		Identifier:  b.meta.Identifier,
		Author:      b.meta.Author,
		Publisher:   b.meta.Publisher,
		Genre:       b.meta.Genre,
		Description: b.meta.Description,
		Created:     b.meta.Created,
		Modified:    b.modified,
		Items:       make([]manifest.Item, 0, len(b.entries)),
	}

	for _, e := range b.entries {
		mb.Items = append(mb.Items, manifest.Item{
			ID:        e.id,
			Href:      e.name,
			Title:     e.title,
			MediaType: e.mediaType,
			Cover:     e.cover,
		})
	}

	return mb
}
