// Package metrics records workflow events for the paid generation actions.
package metrics

import "time"

// Recorder captures metric events for the application.
type Recorder interface {
	IncActionStarted(action string)
	// stage is the last state the workflow reached before failing.
	IncActionFailed(action, stage string)
	ObserveActionDuration(action, outcome string, duration time.Duration)
	AddCreditsRefunded(action string, amount int)
}
