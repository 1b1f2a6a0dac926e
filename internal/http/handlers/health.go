package handlers

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/phasekeeper/internal/metrics"
)

func HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

// StatsHandler returns the lifetime counters kept in the database.
func StatsHandler(store metrics.MetricsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.GetAll()
		if err != nil {
			WriteError(w, r, fmt.Errorf("failed to load stats: %w", err))
			return
		}
		WriteJSON(w, http.StatusOK, stats)
	}
}
