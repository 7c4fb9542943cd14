package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Logs go to stderr; stdout carries only match lines and "Done".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix:     appName,
		TimeFormat: "15:04:05.00",
		Level:      level,
	})
	applyLevel(l, level)
	return l
}

// applyLevel sets level and turns on timestamps and caller info in debug mode.
func applyLevel(l *log.Logger, level log.Level) {
	l.SetLevel(level)
	debug := level <= log.DebugLevel
	l.SetReportTimestamp(debug)
	l.SetReportCaller(debug)
}

// progress measures one operation for a closing log line.
type progress struct {
	logger  *log.Logger
	started time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, started: time.Now()}
}

// done logs msg with keyvals and a "took" field.
func (p *progress) done(msg string, keyvals ...any) {
	took := time.Since(p.started).Round(time.Millisecond)
	p.logger.Info(msg, append(keyvals, "took", took)...)
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext falls back to log.Default() when ctx carries no logger.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok && l != nil {
		return l
	}
	return log.Default()
}
