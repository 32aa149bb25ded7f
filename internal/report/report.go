// Package report delivers workflow failures to operators.
package report

import (
	"context"
	"log/slog"
)

// Reporter receives errors that operators should see.
type Reporter interface {
	Capture(ctx context.Context, err error, attrs ...any)
}

// Logger writes captured errors to the structured log.
type Logger struct {
	log *slog.Logger
}

func NewLogger(log *slog.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Capture(ctx context.Context, err error, attrs ...any) {
	if err == nil {
		return
	}
	l.log.ErrorContext(ctx, "workflow failure", append([]any{"err", err}, attrs...)...)
}

// Multi fans a captured error out to every reporter.
type Multi []Reporter

func (m Multi) Capture(ctx context.Context, err error, attrs ...any) {
	for _, r := range m {
		r.Capture(ctx, err, attrs...)
	}
}
