package epubpack

import (
	"github.com/tsawler/epubpack/mediatype"
)

// EntryOptions configures a file added with AddEntry.
type EntryOptions struct {
	// Name is the destination name under OPS/. Defaults to the final
	// segment of the source path.
	Name string

	// Title is the display title used in the navigation documents.
	// Defaults to the destination name.
	Title string

	// Cover marks an image entry as the book cover.
	Cover bool
}

// Entry is one content file of a Book. It records where the content lives;
// the bytes are only read when the container is written.
type Entry struct {
	id        string
	source    string // as passed to AddEntry
	path      string // path opened on the source filesystem
	name      string
	title     string
	mediaType mediatype.MediaType
	cover     bool
}

// ID returns the manifest item id.
func (e *Entry) ID() string { return e.id }

// Source returns the source path as given to AddEntry.
func (e *Entry) Source() string { return e.source }

// Name returns the destination name under OPS/.
func (e *Entry) Name() string { return e.name }

// Title returns the display title.
func (e *Entry) Title() string { return e.title }

// MediaType returns the media type classified from the destination name.
func (e *Entry) MediaType() mediatype.MediaType { return e.mediaType }

// Cover reports whether the entry is the cover image.
func (e *Entry) Cover() bool { return e.cover }

// IsChapter reports whether the entry is part of the reading order.
func (e *Entry) IsChapter() bool { return e.mediaType.IsChapter() }
