package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		Previews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phasekeeper_previews_total",
			Help: "The total number of progression previews evaluated.",
		}),
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phasekeeper_commits_total",
			Help: "The total number of progression runs committed.",
		}),
		ResultsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phasekeeper_results_saved_total",
			Help: "The total number of progression result rows persisted.",
		}),
		PlayersAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phasekeeper_players_auto_assigned_total",
			Help: "The total number of players placed into target matches.",
		}),
		BoundaryTies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phasekeeper_boundary_ties_total",
			Help: "The total number of unresolved boundary ties reported by evaluations.",
		}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "phasekeeper_evaluation_duration_seconds",
			Help:    "The duration of loading, ranking and evaluating one progression request.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SlackNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phasekeeper_slack_notifications_sent_total",
			Help: "The total number of Slack notifications successfully sent.",
		}),
		SlackNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phasekeeper_slack_notifications_failed_total",
			Help: "The total number of Slack notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "phasekeeper_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.Previews,
		s.Commits,
		s.ResultsSaved,
		s.PlayersAssigned,
		s.BoundaryTies,
		s.EvaluationDuration,
		s.SlackNotifSent,
		s.SlackNotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncPreviews() {
	s.Previews.Inc()
}

func (s *Service) IncCommits() {
	s.Commits.Inc()
}

func (s *Service) AddResultsSaved(n int) {
	s.ResultsSaved.Add(float64(n))
}

func (s *Service) AddPlayersAutoAssigned(n int) {
	s.PlayersAssigned.Add(float64(n))
}

func (s *Service) AddBoundaryTies(n int) {
	s.BoundaryTies.Add(float64(n))
}

func (s *Service) ObserveEvaluationDuration(duration float64) {
	s.EvaluationDuration.Observe(duration)
}

func (s *Service) IncSlackNotifSent() {
	s.SlackNotifSent.Inc()
}

func (s *Service) IncSlackNotifFailed() {
	s.SlackNotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}

var _ Metrics = (*Persisted)(nil)

// NewPersisted mirrors the counters of m into store.
func NewPersisted(m Metrics, store MetricsStore) *Persisted {
	return &Persisted{Metrics: m, store: store}
}

func (p *Persisted) IncPreviews() {
	p.Metrics.IncPreviews()
	p.store.Increment(KeyPreviews)
}

func (p *Persisted) IncCommits() {
	p.Metrics.IncCommits()
	p.store.Increment(KeyCommits)
}

func (p *Persisted) AddResultsSaved(n int) {
	p.Metrics.AddResultsSaved(n)
	p.store.Add(KeyResultsSaved, n)
}

func (p *Persisted) AddPlayersAutoAssigned(n int) {
	p.Metrics.AddPlayersAutoAssigned(n)
	p.store.Add(KeyPlayersAssigned, n)
}

func (p *Persisted) AddBoundaryTies(n int) {
	p.Metrics.AddBoundaryTies(n)
	p.store.Add(KeyBoundaryTies, n)
}

func (p *Persisted) IncSlackNotifSent() {
	p.Metrics.IncSlackNotifSent()
	p.store.Increment(KeySlackNotifSent)
}

func (p *Persisted) IncSlackNotifFailed() {
	p.Metrics.IncSlackNotifFailed()
	p.store.Increment(KeySlackNotifFailed)
}
