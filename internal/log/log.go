// Package log builds the structured loggers used by the epubpack command.
package log

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jmgilman/go/errors"
)

type Options struct {
	App        string
	Version    string
	Level      slog.Level
	JSONFormat bool
	AddSource  bool
	Writer     io.Writer
}

// New returns a logger writing logfmt or JSON records to opts.Writer
// (stderr when nil). Records logged with a span in the context carry
// trace_id and span_id.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	ho := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource}

	// json or logfmt
	var h slog.Handler
	if opts.JSONFormat {
		h = slog.NewJSONHandler(w, ho)
	} else {
		h = slog.NewTextHandler(w, ho)
	}

	// enrich with otel data
	h = otelHandler{next: h}

	l := slog.New(h)
	if opts.App != "" {
		l = l.With(slog.String("app", opts.App))
	}
	if opts.Version != "" {
		l = l.With(slog.String("version", opts.Version))
	}
	return l
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func ParseLevel(s string) (slog.Level, error) {
	x := strings.ToLower(strings.TrimSpace(s))
	switch x {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %s (valid levels are debug|info|warn|error)", s)
	}
}

// ErrorAttrs returns the attributes logged alongside err: the error itself,
// its code, any context attached with errors.WithContext, and the chain of
// wrapped messages.
func ErrorAttrs(err error) []any {
	if err == nil {
		return nil
	}

	kv := []any{
		"err", err.Error(),
		"error_code", string(errors.GetCode(err)),
	}

	var pe errors.PlatformError
	if errors.As(err, &pe) {
		if ctx := pe.Context(); len(ctx) > 0 {
			kv = append(kv, "error_context", ctx)
		}
	}

	if chain := errorChain(err); len(chain) > 1 {
		kv = append(kv, "error_chain", chain)
	}
	return kv
}

func errorChain(err error) []string {
	out := make([]string, 0, 8)
	var prev string
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		msg := e.Error()
		if msg != prev {
			out = append(out, msg)
			prev = msg
		}
	}

	// handle errors.Join(...)
	type multi interface{ Unwrap() []error }
	if m, ok := any(err).(multi); ok {
		for _, e := range m.Unwrap() {
			if s := e.Error(); s != prev {
				out = append(out, s)
				prev = s
			}
		}
	}
	return out
}
