package http

import (
	"net/http"

	"github.com/mauv0809/phasekeeper/internal/config"
	"github.com/mauv0809/phasekeeper/internal/metrics"
	"github.com/mauv0809/phasekeeper/internal/progression"
	"github.com/mauv0809/phasekeeper/internal/pubsub"
	"github.com/mauv0809/phasekeeper/internal/tournament"
)

type Server struct {
	Store          tournament.TournamentStore
	Progression    *progression.Service
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	MetricsStore   metrics.MetricsStore
	Cfg            config.Config
	Router         *http.ServeMux
	pubsub         pubsub.PubSubClient
}

// progressionRequest is the body accepted by every preview and commit endpoint.
type progressionRequest struct {
	StepIndex  *int  `json:"stepIndex"`
	AutoAssign *bool `json:"autoAssignPlayersToTargetMatches"`
}
