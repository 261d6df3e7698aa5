// Package epubpack assembles content files and bibliographic metadata into
// an EPUB container.
//
// Basic usage:
//
//	book := epubpack.New(epubpack.Metadata{
//	    Title:  "Collected Stories",
//	    Author: "A. Writer",
//	})
//	book.AddEntry("chapters/chap1.xhtml", epubpack.EntryOptions{Title: "Chapter 1"})
//	book.AddEntry("chapters/style.css", epubpack.EntryOptions{})
//	if err := book.Generate(ctx, "stories.epub"); err != nil {
//	    // handle error
//	}
//
// The container always starts with an uncompressed mimetype entry, followed by
// META-INF/container.xml, the package document (OPS/epb.opf), the navigation
// map (OPS/epb.ncx) and then every added file under OPS/ in insertion order.
//
// Content is read lazily: AddEntry only records a path, and files are opened
// through the book's source filesystem when the container is written.
//
// Problems that do not stop a build, such as two entries sharing the same
// destination name, are reported by Check:
//
//	if warnings := book.Check(); len(warnings) > 0 {
//	    log.Println("Warnings:", epubpack.FormatWarnings(warnings))
//	}
package epubpack

import (
	"github.com/tsawler/epubpack/manifest"
)

// DefaultLanguage is the language tag used when none is supplied.
const DefaultLanguage = "en-us"

// Version selects the EPUB revision of the generated package.
type Version = manifest.Version

// Supported package versions.
const (
	EPUB2 = manifest.EPUB2
	EPUB3 = manifest.EPUB3
)

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
