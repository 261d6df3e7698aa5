// Package cfg holds the command-line configuration of the epubpack command.
package cfg

import (
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jmgilman/go/errors"
	"github.com/klauspost/compress/flate"

	"github.com/tsawler/epubpack/format"
	"github.com/tsawler/epubpack/internal/log"
)

type App struct {
	Title       string
	Author      string
	Language    string
	Identifier  string
	Publisher   string
	Genre       string
	Description string
	Cover       string

	Out         string
	EPUBVersion int
	Strict      bool
	Compression int

	LogJSON  bool
	LogLevel string

	S3Bucket string
	S3Prefix string
	S3Region string
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.StringVar(&c.Title, "title", "", "book title")
	fs.StringVar(&c.Author, "author", "", "book author")
	fs.StringVar(&c.Language, "lang", "en-us", "BCP 47 language tag")
	fs.StringVar(&c.Identifier, "id", "", "unique identifier (a UUID is generated when empty)")
	fs.StringVar(&c.Publisher, "publisher", "", "publisher")
	fs.StringVar(&c.Genre, "genre", "", "genre (written as dc:subject)")
	fs.StringVar(&c.Description, "description", "", "free-text description")
	fs.StringVar(&c.Cover, "cover", "", "image file to add and mark as the cover")
	fs.StringVar(&c.Out, "out", "book.epub", "output file (.epub)")
	fs.IntVar(&c.EPUBVersion, "epub-version", 2, "EPUB revision to write (2|3)")
	fs.BoolVar(&c.Strict, "strict", false, "fail when two entries share a destination name")
	fs.IntVar(&c.Compression, "compression", flate.DefaultCompression, "deflate level (-2..9)")
	fs.BoolVar(&c.LogJSON, "log-json", false, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.S3Bucket, "s3-bucket", "", "upload the finished book to this S3 bucket")
	fs.StringVar(&c.S3Prefix, "s3-prefix", "", "s3 key prefix for the uploaded book")
	fs.StringVar(&c.S3Region, "s3-region", "", "AWS region override for the upload")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	if c.Out == "" {
		errs = append(errs, fmt.Errorf("OUT is required"))
	} else if format.Detect(c.Out) != format.EPUB {
		errs = append(errs, fmt.Errorf("OUT must end in .epub (got %q)", c.Out))
	}

	if c.EPUBVersion != 2 && c.EPUBVersion != 3 {
		errs = append(errs, fmt.Errorf("invalid EPUB_VERSION %d (must be 2 or 3)", c.EPUBVersion))
	}

	if c.Compression < flate.HuffmanOnly || c.Compression > flate.BestCompression {
		errs = append(errs, fmt.Errorf("invalid COMPRESSION %d (must be %d..%d)",
			c.Compression, flate.HuffmanOnly, flate.BestCompression))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}

	// Upload settings only make sense with a bucket
	if c.S3Bucket == "" && (c.S3Prefix != "" || c.S3Region != "") {
		errs = append(errs, fmt.Errorf("S3_BUCKET required when S3_PREFIX or S3_REGION is set"))
	}

	if len(errs) > 0 {
		return errors.Wrap(stderrors.Join(errs...), errors.CodeInvalidConfig, "invalid configuration")
	}
	return nil
}
