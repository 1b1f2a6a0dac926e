package http

import (
	"net/http"

	"github.com/mauv0809/phasekeeper/internal/config"
	"github.com/mauv0809/phasekeeper/internal/http/handlers"
	"github.com/mauv0809/phasekeeper/internal/metrics"
	"github.com/mauv0809/phasekeeper/internal/progression"
	"github.com/mauv0809/phasekeeper/internal/pubsub"
	"github.com/mauv0809/phasekeeper/internal/tournament"
)

func NewServer(store tournament.TournamentStore, progressionSvc *progression.Service, metricsSvc metrics.Metrics, metricsHandler http.Handler, metricsStore metrics.MetricsStore, cfg config.Config, pubsub pubsub.PubSubClient) *Server {
	server := &Server{
		Store:          store,
		Progression:    progressionSvc,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		MetricsStore:   metricsStore,
		Cfg:            cfg,
		Router:         http.NewServeMux(),
		pubsub:         pubsub,
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// e.g. Chain(s.MyHandler(), requestIDMiddleware, paramsMiddleware, authMiddleware)
	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("GET /health", Chain(handlers.HealthCheckHandler(), paramsMiddleware))
	s.Router.Handle("GET /stats", Chain(handlers.StatsHandler(s.MetricsStore), requestIDMiddleware, paramsMiddleware))

	s.Router.Handle("POST /rulesets", Chain(handlers.CreateRulesetHandler(s.Store), requestIDMiddleware, paramsMiddleware))
	s.Router.Handle("GET /rulesets", Chain(handlers.ListRulesetsHandler(s.Store), requestIDMiddleware, paramsMiddleware))
	s.Router.Handle("GET /rulesets/{id}", Chain(handlers.GetRulesetHandler(s.Store), requestIDMiddleware, paramsMiddleware))
	s.Router.Handle("PATCH /rulesets/{id}", Chain(handlers.UpdateRulesetHandler(s.Store), requestIDMiddleware, paramsMiddleware))
	s.Router.Handle("DELETE /rulesets/{id}", Chain(handlers.DeleteRulesetHandler(s.Store), requestIDMiddleware, paramsMiddleware))
	s.Router.Handle("PUT /phases/{id}/ruleset", Chain(handlers.SetPhaseRulesetHandler(s.Store), requestIDMiddleware, paramsMiddleware))

	s.Router.Handle("POST /phases/{id}/progression/preview", Chain(s.PreviewPhaseHandler(), requestIDMiddleware, paramsMiddleware))
	s.Router.Handle("POST /phases/{id}/progression/commit", Chain(s.CommitPhaseHandler(), requestIDMiddleware, paramsMiddleware))
	s.Router.Handle("POST /matches/{id}/progression/preview", Chain(s.PreviewMatchHandler(), requestIDMiddleware, paramsMiddleware))
	s.Router.Handle("POST /matches/{id}/progression/commit", Chain(s.CommitMatchHandler(), requestIDMiddleware, paramsMiddleware))
	s.Router.Handle("GET /progression/runs/{runId}", Chain(s.RunHandler(), requestIDMiddleware, paramsMiddleware))

	s.Router.Handle("POST /pubsub/progression-committed", Chain(handlers.RunCommittedPushHandler(s.Progression, s.pubsub), paramsMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
