package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncPreviews()
	IncCommits()
	AddResultsSaved(n int)
	AddPlayersAutoAssigned(n int)
	AddBoundaryTies(n int)
	ObserveEvaluationDuration(duration float64)
	IncSlackNotifSent()
	IncSlackNotifFailed()
	SetStartupTime(duration float64)
}

// MetricsStore keeps lifetime counters in the database so they survive restarts.
type MetricsStore interface {
	Increment(key string)
	Add(key string, n int)
	GetAll() (map[string]int, error)
}
