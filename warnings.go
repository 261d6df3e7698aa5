package epubpack

import (
	"fmt"
	"strings"

	"github.com/jmgilman/go/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// WarningKind identifies a non-fatal problem found by Check.
type WarningKind int

const (
	// WarnDuplicateName means two entries share a destination name. Both are
	// written, and readers usually pick only one of them.
	WarnDuplicateName WarningKind = iota + 1
	// WarnInvalidLanguage means the language is not a well-formed BCP 47 tag.
	WarnInvalidLanguage
	// WarnNonNFCName means a destination name is not in Unicode NFC form.
	WarnNonNFCName
	// WarnNoChapters means no entry is an XHTML document, so the spine is empty.
	WarnNoChapters
	// WarnMultipleCovers means more than one entry is marked as the cover.
	WarnMultipleCovers
	// WarnCoverNotImage means the cover entry is not a supported image type.
	WarnCoverNotImage
)

// String returns a short name for the kind.
func (k WarningKind) String() string {
	switch k {
	case WarnDuplicateName:
		return "duplicate-name"
	case WarnInvalidLanguage:
		return "invalid-language"
	case WarnNonNFCName:
		return "non-nfc-name"
	case WarnNoChapters:
		return "no-chapters"
	case WarnMultipleCovers:
		return "multiple-covers"
	case WarnCoverNotImage:
		return "cover-not-image"
	default:
		return "unknown"
	}
}

// Warning is a problem that does not stop a build but may produce a
// surprising container.
type Warning struct {
	Kind    WarningKind
	Entry   string // destination name, empty for book-level warnings
	Message string
}

// String formats the warning for display.
func (w Warning) String() string {
	if w.Entry == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Kind, w.Entry, w.Message)
}

// FormatWarnings joins warnings into a multi-line string.
func FormatWarnings(warnings []Warning) string {
	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		lines = append(lines, w.String())
	}
	return strings.Join(lines, "\n")
}

// Check inspects the book for problems that the build itself accepts
// silently. It does not touch the filesystem.
func (b *Book) Check() []Warning {
	var warnings []Warning

	if _, err := language.Parse(b.meta.Language); err != nil {
		warnings = append(warnings, Warning{
			Kind:    WarnInvalidLanguage,
			Message: fmt.Sprintf("language %q is not a valid BCP 47 tag", b.meta.Language),
		})
	}

	seen := make(map[string]int, len(b.entries))
	covers := 0
	for _, e := range b.entries {
		seen[e.name]++
		if seen[e.name] == 2 {
			warnings = append(warnings, Warning{
				Kind:    WarnDuplicateName,
				Entry:   e.name,
				Message: "destination name used by more than one entry",
			})
		}

		if !norm.NFC.IsNormalString(e.name) {
			warnings = append(warnings, Warning{
				Kind:    WarnNonNFCName,
				Entry:   e.name,
				Message: "destination name is not NFC normalized",
			})
		}

		if e.cover {
			covers++
			if !e.mediaType.IsImage() {
				warnings = append(warnings, Warning{
					Kind:    WarnCoverNotImage,
					Entry:   e.name,
					Message: fmt.Sprintf("cover has media type %s", e.mediaType),
				})
			}
		}
	}

	if covers > 1 {
		warnings = append(warnings, Warning{
			Kind:    WarnMultipleCovers,
			Message: fmt.Sprintf("%d entries are marked as cover; the first is used", covers),
		})
	}

	if len(b.Chapters()) == 0 {
		warnings = append(warnings, Warning{
			Kind:    WarnNoChapters,
			Message: "no XHTML entries; the spine is empty",
		})
	}

	return warnings
}

// checkStrict fails on the first duplicate destination name when strict
// mode is enabled.
func (b *Book) checkStrict() error {
	if !b.opts.strict {
		return nil
	}
	for _, w := range b.Check() {
		if w.Kind == WarnDuplicateName {
			return errors.WithContext(
				errors.Newf(CodeDuplicateName, "duplicate destination name %q", w.Entry),
				"entry", w.Entry,
			)
		}
	}
	return nil
}
