package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	Previews           prometheus.Counter
	Commits            prometheus.Counter
	ResultsSaved       prometheus.Counter
	PlayersAssigned    prometheus.Counter
	BoundaryTies       prometheus.Counter
	EvaluationDuration prometheus.Histogram
	SlackNotifSent     prometheus.Counter
	SlackNotifFailed   prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}

// Persisted wraps a Metrics implementation and mirrors every counter into a
// MetricsStore. Durations and gauges are not persisted.
type Persisted struct {
	Metrics
	store MetricsStore
}

// Counter keys written by Persisted.
const (
	KeyPreviews         = "previews_served"
	KeyCommits          = "runs_committed"
	KeyResultsSaved     = "results_saved"
	KeyPlayersAssigned  = "players_auto_assigned"
	KeyBoundaryTies     = "boundary_ties"
	KeySlackNotifSent   = "slack_notifications_sent"
	KeySlackNotifFailed = "slack_notifications_failed"
)
