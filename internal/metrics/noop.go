package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncActionStarted(action string) {}

func (n *NoopRecorder) IncActionFailed(action, stage string) {}

func (n *NoopRecorder) ObserveActionDuration(action, outcome string, duration time.Duration) {}

func (n *NoopRecorder) AddCreditsRefunded(action string, amount int) {}
