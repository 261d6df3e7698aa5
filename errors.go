package epubpack

import (
	stderrors "errors"
	"io/fs"

	"github.com/jmgilman/go/errors"
)

// Error codes returned by Generate and Build. Errors keep their cause, so
// errors.Is works against fs.ErrNotExist, context.Canceled and so on.
const (
	// CodeSourceMissing is returned when an entry's source file does not exist.
	CodeSourceMissing = errors.CodeNotFound
	// CodeSourceRead is returned when an entry's source cannot be read.
	CodeSourceRead = errors.CodeInternal
	// CodeWrite is returned when the container cannot be written or finalized.
	CodeWrite = errors.CodeBuildFailed
	// CodeDuplicateName is returned in strict mode when destination names collide.
	CodeDuplicateName = errors.CodeConflict
	// CodeCanceled is returned when the context ends before the build completes.
	CodeCanceled = errors.CodeTimeout
)

func readError(err error, e *Entry) error {
	code := CodeSourceRead
	if stderrors.Is(err, fs.ErrNotExist) {
		code = CodeSourceMissing
	}
	return errors.WrapWithContext(err, code, "read entry "+e.name, map[string]interface{}{
		"entry":  e.name,
		"source": e.source,
	})
}

func writeError(err error, name string) error {
	return errors.WithContext(errors.Wrap(err, CodeWrite, "write "+name), "entry", name)
}
