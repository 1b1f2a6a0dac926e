package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/phasekeeper/internal/pubsub"
	"github.com/mauv0809/phasekeeper/internal/tournament"
)

// RunLookup reads back the persisted rows of a run.
type RunLookup interface {
	Run(ctx context.Context, runID string) ([]tournament.ProgressionResult, error)
}

// RunCommittedPushHandler receives push deliveries of committed-run events
// and checks that the announced run was persisted in full. Delivery is always
// acknowledged once the envelope decodes, so a mismatch is logged rather than
// retried.
func RunCommittedPushHandler(runs RunLookup, pubsubClient pubsub.PubSubClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		log.Debug("Received run committed message", "body", string(bodyBytes))

		var pubsubMsg struct {
			Subscription string `json:"subscription"`
			Message      struct {
				Data string `json:"data"`
			} `json:"message"`
		}

		if err := json.Unmarshal(bodyBytes, &pubsubMsg); err != nil {
			log.Error("Failed to unmarshal wrapper JSON", "error", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		rawData, err := base64.StdEncoding.DecodeString(pubsubMsg.Message.Data)
		if err != nil {
			log.Error("Failed to decode base64 data", "error", err)
			http.Error(w, "Invalid base64 data", http.StatusBadRequest)
			return
		}

		event := pubsub.RunCommittedEvent{}
		if err := pubsubClient.ProcessMessage(rawData, &event); err != nil {
			log.Error("Failed to decode run committed event", "error", err)
			http.Error(w, "Invalid event payload", http.StatusBadRequest)
			return
		}

		rows, err := runs.Run(r.Context(), event.RunID)
		switch {
		case err != nil:
			log.Error("Failed to load announced run", "runID", event.RunID, "error", err)
		case len(rows) != event.Saved:
			log.Warn("Announced run does not match persisted rows", "runID", event.RunID, "announced", event.Saved, "persisted", len(rows))
		default:
			log.Info("Verified committed run", "runID", event.RunID, "rows", len(rows), "subscription", pubsubMsg.Subscription)
		}
		w.Write([]byte("OK"))
	}
}
