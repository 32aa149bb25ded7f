package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "promoshot"

// PrometheusRecorder exports workflow metrics through client_golang collectors.
type PrometheusRecorder struct {
	actionsStarted  *prometheus.CounterVec
	actionsFailed   *prometheus.CounterVec
	actionDuration  *prometheus.HistogramVec
	creditsRefunded *prometheus.CounterVec
}

// NewPrometheus registers the collectors with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		actionsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_started_total",
				Help:      "Paid generation actions that passed validation.",
			},
			[]string{"action"},
		),
		actionsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_failed_total",
				Help:      "Paid generation actions that failed, by the last state reached.",
			},
			[]string{"action", "stage"},
		),
		actionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Duration of paid generation actions from reservation to outcome.",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 40, 60, 120, 300},
			},
			[]string{"action", "outcome"},
		),
		creditsRefunded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credits_refunded_total",
				Help:      "Credits returned to users by compensation.",
			},
			[]string{"action"},
		),
	}
}

func (p *PrometheusRecorder) IncActionStarted(action string) {
	p.actionsStarted.WithLabelValues(action).Inc()
}

func (p *PrometheusRecorder) IncActionFailed(action, stage string) {
	p.actionsFailed.WithLabelValues(action, stage).Inc()
}

func (p *PrometheusRecorder) ObserveActionDuration(action, outcome string, duration time.Duration) {
	p.actionDuration.WithLabelValues(action, outcome).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) AddCreditsRefunded(action string, amount int) {
	p.creditsRefunded.WithLabelValues(action).Add(float64(amount))
}
