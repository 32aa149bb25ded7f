package report

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Sentry forwards captured errors to a Sentry project. Attribute pairs become event tags.
type Sentry struct {
	hub *sentry.Hub
}

func NewSentry(dsn, environment string) (*Sentry, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry client: %w", err)
	}
	return newSentry(client), nil
}

func newSentry(client *sentry.Client) *Sentry {
	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}
}

func (s *Sentry) Capture(ctx context.Context, err error, attrs ...any) {
	if err == nil {
		return
	}
	hub := s.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for i := 0; i+1 < len(attrs); i += 2 {
			scope.SetTag(fmt.Sprint(attrs[i]), fmt.Sprint(attrs[i+1]))
		}
	})
	hub.CaptureException(err)
}

// Flush waits for queued events to be delivered.
func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}
