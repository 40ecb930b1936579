// Package logger prints per-key sync activity in the style of "aws s3 sync"
// on top of log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Logger receives one call per planned or executed operation. Extra args are
// slog key/value pairs.
type Logger interface {
	Upload(localPath, target string, args ...any)
	Delete(target string, args ...any)
	Keep(target string, args ...any)
	Error(operation, path string, err error)
	Debug(message string, args ...any)
}

// SyncLogger is the CLI logger. The zero value writes to stderr.
type SyncLogger struct {
	IsDryRun bool
	IsQuiet  bool
	Verbose  bool

	once sync.Once
	log  *slog.Logger
}

// New builds a SyncLogger writing through a tint handler. Colour is enabled
// only when w is a terminal.
func New(w io.Writer, dryRun, quiet, verbose bool) *SyncLogger {
	l := &SyncLogger{IsDryRun: dryRun, IsQuiet: quiet, Verbose: verbose}
	l.log = slog.New(tint.NewHandler(w, &tint.Options{
		Level:      l.level(),
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(w),
	}))
	return l
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func (l *SyncLogger) level() slog.Level {
	switch {
	case l.IsQuiet:
		return slog.LevelWarn
	case l.Verbose:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func (l *SyncLogger) logger() *slog.Logger {
	l.once.Do(func() {
		if l.log == nil {
			l.log = New(os.Stderr, l.IsDryRun, l.IsQuiet, l.Verbose).log
		}
	})
	return l.log
}

func (l *SyncLogger) prefix() string {
	if l.IsDryRun {
		return "(dryrun) "
	}
	return ""
}

func (l *SyncLogger) Upload(localPath, target string, args ...any) {
	l.logger().Info(l.prefix()+"upload: "+localPath+" to "+target, args...)
}

func (l *SyncLogger) Delete(target string, args ...any) {
	l.logger().Info(l.prefix()+"delete: "+target, args...)
}

func (l *SyncLogger) Keep(target string, args ...any) {
	l.logger().Info(l.prefix()+"keep: "+target, args...)
}

func (l *SyncLogger) Error(operation, path string, err error) {
	l.logger().Error(operation+" failed: "+path, "error", err)
}

func (l *SyncLogger) Debug(message string, args ...any) {
	l.logger().Debug(message, args...)
}

func (l *SyncLogger) Info(message string, args ...any) {
	l.logger().Info(message, args...)
}

// Summary totals a finished run.
type Summary struct {
	Added         int
	Updated       int
	Deleted       int
	Kept          int
	Failed        int
	BytesUploaded int64
	Duration      time.Duration
}

// Summary logs totals. In quiet mode it is only printed when something failed.
func (l *SyncLogger) Summary(s Summary) {
	args := []any{
		"added", s.Added,
		"updated", s.Updated,
		"deleted", s.Deleted,
		"kept", s.Kept,
		"uploaded", humanize.Bytes(uint64(s.BytesUploaded)),
		"duration", s.Duration.Round(time.Millisecond),
	}
	if s.Failed > 0 {
		l.logger().Warn(l.prefix()+"sync finished with errors", append(args, "failed", s.Failed)...)
		return
	}
	l.logger().Info(l.prefix()+"sync finished", args...)
}

// Size renders a byte count for log attributes.
func Size(n int64) string {
	return humanize.Bytes(uint64(n))
}

// Nop discards everything.
type Nop struct{}

func (Nop) Upload(string, string, ...any) {}
func (Nop) Delete(string, ...any) {}
func (Nop) Keep(string, ...any) {}
func (Nop) Error(string, string, error) {}
func (Nop) Debug(string, ...any) {}
