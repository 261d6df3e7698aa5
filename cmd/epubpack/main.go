// Command epubpack packages XHTML chapters, stylesheets and images into an
// EPUB file.
//
//	epubpack -title "Stormy Nights" -author "A. Writer" -out stormy.epub chap1.xhtml chap2.xhtml style.css
//
// Every flag can also be set through an EPUBPACK_* environment variable
// (flag "epub-version" maps to EPUBPACK_EPUB_VERSION) or a .env file in the
// working directory. Command-line flags win over the environment.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jmgilman/go/errors"
	"github.com/joho/godotenv"

	"github.com/tsawler/epubpack"
	"github.com/tsawler/epubpack/internal/cfg"
	"github.com/tsawler/epubpack/internal/log"
	"github.com/tsawler/epubpack/internal/publish"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

const envPrefix = "EPUBPACK_"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "epubpack:", err)
		}
		os.Exit(1)
	}
}

// s3Client replaces the S3 client built from the AWS config when set.
var s3Client publish.PutObjectAPI

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("epubpack", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: epubpack [flags] file...\n\nflags:\n")
		fs.PrintDefaults()
	}

	var conf cfg.App
	var showVersion bool
	cfg.Register(fs, &conf)
	fs.BoolVar(&showVersion, "V", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showVersion {
		fmt.Fprintf(stderr, "epubpack %s\n", version)
		return nil
	}

	cfg.FillFromEnv(fs, envPrefix, func(format string, args ...any) {
		fmt.Fprintf(stderr, format+"\n", args...)
	})
	if err := cfg.Validate(conf); err != nil {
		return err
	}

	// Validate has already checked the level
	lvl, _ := log.ParseLevel(conf.LogLevel)
	lg := log.New(log.Options{
		App:        "epubpack",
		Version:    version,
		Level:      lvl,
		JSONFormat: conf.LogJSON,
		Writer:     stderr,
	})
	ctx = log.WithContext(ctx, lg)

	book := newBook(conf, fs.Args(), lg)
	lg.InfoContext(ctx, "building epub",
		"title", book.Title(),
		"identifier", book.Identifier(),
		"version", book.Version().String(),
		"entries", len(book.Entries()),
		"chapters", len(book.Chapters()),
	)

	if err := book.Generate(ctx, conf.Out); err != nil {
		lg.ErrorContext(ctx, "build failed", log.ErrorAttrs(err)...)
		return err
	}

	if conf.S3Bucket == "" {
		return nil
	}
	return upload(ctx, conf)
}

// newBook assembles the book from the configuration. The cover, when set,
// is added ahead of the positional files.
func newBook(conf cfg.App, files []string, lg *slog.Logger) *epubpack.Book {
	v := epubpack.EPUB2
	if conf.EPUBVersion == 3 {
		v = epubpack.EPUB3
	}
	opts := []epubpack.Option{
		epubpack.WithLogger(lg),
		epubpack.WithCompression(conf.Compression),
		epubpack.WithVersion(v),
	}
	if conf.Strict {
		opts = append(opts, epubpack.WithStrict())
	}

	book := epubpack.New(epubpack.Metadata{
		Title:       conf.Title,
		Language:    conf.Language,
		Identifier:  conf.Identifier,
		Author:      conf.Author,
		Publisher:   conf.Publisher,
		Genre:       conf.Genre,
		Description: conf.Description,
	}, opts...)

	if conf.Cover != "" {
		book.AddEntry(conf.Cover, epubpack.EntryOptions{Cover: true})
	}
	for _, f := range files {
		book.AddEntry(f, epubpack.EntryOptions{})
	}
	return book
}

func upload(ctx context.Context, conf cfg.App) error {
	lg := log.FromContext(ctx)

	out, err := filepath.Abs(conf.Out)
	if err != nil {
		return errors.Wrap(err, errors.CodePublishFailed, "resolve output path")
	}

	u, err := publish.New(ctx, publish.Options{
		Logger: lg,
		Bucket: conf.S3Bucket,
		Prefix: conf.S3Prefix,
		Region: conf.S3Region,
		Client: s3Client,
	})
	if err != nil {
		return err
	}

	if _, err := u.Upload(ctx, out); err != nil {
		lg.ErrorContext(ctx, "upload failed", log.ErrorAttrs(err)...)
		return err
	}
	return nil
}
