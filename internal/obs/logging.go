// Package obs carries the ambient observability stack: structured logging,
// trace-enriched per-request loggers, and request metrics.
package obs

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// InitLogger configures the global zerolog logger. When logDir is non-empty,
// output also goes to a file under logDir named after the current date
// (YYYY-MM-DD.log), in addition to stdout. The file is chosen once, when
// InitLogger runs; a process that keeps running past midnight goes on writing
// to that first day's file.
func InitLogger(logDir string, level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	var w io.Writer = os.Stdout
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err == nil {
			name := filepath.Join(logDir, time.Now().Format("2006-01-02")+".log")
			if f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				w = io.MultiWriter(os.Stdout, f)
			} else {
				_, _ = fmt.Fprintf(os.Stderr, "failed to open log file %q: %v\n", name, err)
			}
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "failed to create log dir %q: %v\n", logDir, err)
		}
	}
	log.Logger = log.Output(w).With().Timestamp().Logger()

	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		if l, err := zerolog.ParseLevel(level); err == nil {
			lvl = l
		}
	}
	zerolog.SetGlobalLevel(lvl)
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

// LoggerWithTrace returns a zerolog.Logger enriched with trace_id/span_id from
// ctx, if a sampled span is present.
func LoggerWithTrace(ctx context.Context) *zerolog.Logger {
	l := log.Logger
	if ctx == nil {
		return &l
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With().Str("trace_id", sc.TraceID().String()).Logger()
		if sc.HasSpanID() {
			l = l.With().Str("span_id", sc.SpanID().String()).Logger()
		}
		if sc.IsSampled() {
			l = l.With().Bool("trace_sampled", true).Logger()
		}
	}
	return &l
}
