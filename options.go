package epubpack

import (
	"log/slog"
	"time"

	fsbilly "github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/fs/core"
	"github.com/klauspost/compress/flate"
)

// Option configures the collaborators of a Book.
type Option func(*options)

// options holds the collaborators and build settings of a Book.
type options struct {
	ids    IDGenerator
	clock  func() time.Time
	logger *slog.Logger

	// Content and output filesystems. The local flags record whether the
	// default local filesystem is in use, in which case relative paths are
	// resolved against the working directory.
	source      core.ReadFS
	localSource bool
	dest        core.WriteFS
	localDest   bool

	level   int
	version Version
	strict  bool
}

// defaultOptions returns the default build options.
func defaultOptions() options {
	local := fsbilly.NewLocal()
	return options{
		ids:         UUIDGenerator{},
		clock:       time.Now,
		logger:      slog.New(slog.DiscardHandler),
		source:      local,
		localSource: true,
		dest:        local,
		localDest:   true,
		level:       flate.DefaultCompression,
		version:     EPUB2,
	}
}

// WithIDGenerator sets the collaborator that supplies the unique identifier
// when the metadata does not carry one.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithClock sets the source of the construction instant.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithLogger sets the logger used during generation.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSource sets the filesystem entry content is read from. Source paths
// are used as given.
func WithSource(fsys core.ReadFS) Option {
	return func(o *options) {
		if fsys != nil {
			o.source = fsys
			o.localSource = false
		}
	}
}

// WithDestination sets the filesystem Generate writes the container to.
func WithDestination(fsys core.WriteFS) Option {
	return func(o *options) {
		if fsys != nil {
			o.dest = fsys
			o.localDest = false
		}
	}
}

// WithCompression sets the deflate level used for every entry except
// mimetype, which is always stored. Levels outside
// flate.HuffmanOnly..flate.BestCompression are ignored.
func WithCompression(level int) Option {
	return func(o *options) {
		if level >= flate.HuffmanOnly && level <= flate.BestCompression {
			o.level = level
		}
	}
}

// WithVersion selects the EPUB revision. EPUB3 adds an XHTML navigation
// document after the NCX.
func WithVersion(v Version) Option {
	return func(o *options) {
		o.version = v
	}
}

// WithStrict makes Generate and Build refuse to write a container whose
// entries share a destination name.
func WithStrict() Option {
	return func(o *options) {
		o.strict = true
	}
}
