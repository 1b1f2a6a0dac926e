package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/phasekeeper/internal/http/handlers"
	"github.com/mauv0809/phasekeeper/internal/progression"
)

// decodeProgressionRequest reads the optional preview/commit body.
func decodeProgressionRequest(r *http.Request) (progressionRequest, error) {
	var req progressionRequest
	if err := handlers.DecodeBody(r, &req); err != nil {
		return req, err
	}
	if req.StepIndex != nil && *req.StepIndex < 0 {
		return req, fmt.Errorf("%w: stepIndex must not be negative", handlers.ErrBadRequest)
	}
	return req, nil
}

// autoAssign defaults to true when the caller leaves it out.
func (req progressionRequest) autoAssign() bool {
	return req.AutoAssign == nil || *req.AutoAssign
}

type previewFunc func(ctx context.Context, id int64, stepIndex *int) (*progression.PreviewResponse, error)

type commitFunc func(ctx context.Context, id int64, autoAssign bool, stepIndex *int) (*progression.CommitResponse, error)

func previewHandler(preview previewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := handlers.PathID(r, "id")
		if err != nil {
			handlers.WriteError(w, r, err)
			return
		}
		req, err := decodeProgressionRequest(r)
		if err != nil {
			handlers.WriteError(w, r, err)
			return
		}
		resp, err := preview(r.Context(), id, req.StepIndex)
		if err != nil {
			handlers.WriteError(w, r, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, resp)
	}
}

// commitHandler commits a run, or only previews it when dry_run is set.
func commitHandler(preview previewFunc, commit commitFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := handlers.PathID(r, "id")
		if err != nil {
			handlers.WriteError(w, r, err)
			return
		}
		req, err := decodeProgressionRequest(r)
		if err != nil {
			handlers.WriteError(w, r, err)
			return
		}

		if isDryRunFromContext(r) {
			log.Info("[Dry Run] Skipping commit, returning preview", "path", r.URL.Path)
			resp, err := preview(r.Context(), id, req.StepIndex)
			if err != nil {
				handlers.WriteError(w, r, err)
				return
			}
			handlers.WriteJSON(w, http.StatusOK, resp)
			return
		}

		resp, err := commit(r.Context(), id, req.autoAssign(), req.StepIndex)
		if err != nil {
			handlers.WriteError(w, r, err)
			return
		}
		handlers.WriteJSON(w, http.StatusCreated, resp)
	}
}

func (s *Server) PreviewPhaseHandler() http.HandlerFunc {
	return previewHandler(s.Progression.PreviewPhase)
}

func (s *Server) CommitPhaseHandler() http.HandlerFunc {
	return commitHandler(s.Progression.PreviewPhase, s.Progression.CommitPhase)
}

func (s *Server) PreviewMatchHandler() http.HandlerFunc {
	return previewHandler(s.Progression.PreviewMatch)
}

func (s *Server) CommitMatchHandler() http.HandlerFunc {
	return commitHandler(s.Progression.PreviewMatch, s.Progression.CommitMatch)
}

// RunHandler returns the audit rows of one committed run.
func (s *Server) RunHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := r.PathValue("runId")
		results, err := s.Progression.Run(r.Context(), runID)
		if err != nil {
			handlers.WriteError(w, r, err)
			return
		}
		if len(results) == 0 {
			handlers.WriteError(w, r, fmt.Errorf("progression run %s %w", runID, progression.ErrNotFound))
			return
		}
		handlers.WriteJSON(w, http.StatusOK, results)
	}
}
