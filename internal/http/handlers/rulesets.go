package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/phasekeeper/internal/progression"
	"github.com/mauv0809/phasekeeper/internal/tournament"
)

// RulesetStore is the slice of the tournament store the ruleset endpoints need.
type RulesetStore interface {
	CreateRuleset(ctx context.Context, ruleset *tournament.Ruleset) (*tournament.Ruleset, error)
	ListRulesets(ctx context.Context) ([]tournament.Ruleset, error)
	GetRuleset(ctx context.Context, id int64) (*tournament.Ruleset, error)
	UpdateRuleset(ctx context.Context, id int64, update tournament.RulesetUpdate) (*tournament.Ruleset, error)
	DeleteRuleset(ctx context.Context, id int64) error
	SetPhaseRuleset(ctx context.Context, phaseID int64, rulesetID *int64) error
}

type createRulesetRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	IsActive    *bool           `json:"isActive"`
	Config      json.RawMessage `json:"config"`
}

type phaseRulesetRequest struct {
	RulesetID *int64 `json:"rulesetId"`
}

// validateConfig rejects configs the progression engine could not evaluate.
func validateConfig(raw json.RawMessage) error {
	_, err := progression.ParseConfig(raw)
	return err
}

func CreateRulesetHandler(store RulesetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRulesetRequest
		if err := DecodeBody(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			WriteError(w, r, fmt.Errorf("%w: name is required", ErrBadRequest))
			return
		}
		if err := validateConfig(req.Config); err != nil {
			WriteError(w, r, err)
			return
		}

		ruleset := &tournament.Ruleset{
			Name:        req.Name,
			Description: req.Description,
			IsActive:    req.IsActive == nil || *req.IsActive,
			Config:      req.Config,
		}
		created, err := store.CreateRuleset(r.Context(), ruleset)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, created)
	}
}

func ListRulesetsHandler(store RulesetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rulesets, err := store.ListRulesets(r.Context())
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, rulesets)
	}
}

func GetRulesetHandler(store RulesetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := PathID(r, "id")
		if err != nil {
			WriteError(w, r, err)
			return
		}
		ruleset, err := store.GetRuleset(r.Context(), id)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, ruleset)
	}
}

// UpdateRulesetHandler applies a partial update; absent fields are kept.
func UpdateRulesetHandler(store RulesetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := PathID(r, "id")
		if err != nil {
			WriteError(w, r, err)
			return
		}
		var update tournament.RulesetUpdate
		if err := DecodeBody(r, &update); err != nil {
			WriteError(w, r, err)
			return
		}
		if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
			WriteError(w, r, fmt.Errorf("%w: name cannot be empty", ErrBadRequest))
			return
		}
		if len(update.Config) > 0 {
			if err := validateConfig(update.Config); err != nil {
				WriteError(w, r, err)
				return
			}
		}

		updated, err := store.UpdateRuleset(r.Context(), id, update)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, updated)
	}
}

func DeleteRulesetHandler(store RulesetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := PathID(r, "id")
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if err := store.DeleteRuleset(r.Context(), id); err != nil {
			WriteError(w, r, err)
			return
		}
		log.Info("Deleted ruleset", "id", id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// SetPhaseRulesetHandler points a phase at a ruleset, or clears it when
// rulesetId is null.
func SetPhaseRulesetHandler(store RulesetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phaseID, err := PathID(r, "id")
		if err != nil {
			WriteError(w, r, err)
			return
		}
		var req phaseRulesetRequest
		if err := DecodeBody(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}
		if req.RulesetID != nil {
			if _, err := store.GetRuleset(r.Context(), *req.RulesetID); err != nil {
				WriteError(w, r, err)
				return
			}
		}
		if err := store.SetPhaseRuleset(r.Context(), phaseID, req.RulesetID); err != nil {
			WriteError(w, r, err)
			return
		}
		if req.RulesetID == nil {
			log.Info("Cleared phase ruleset", "phaseID", phaseID)
		} else {
			log.Info("Set phase ruleset", "phaseID", phaseID, "rulesetID", *req.RulesetID)
		}
		WriteJSON(w, http.StatusOK, map[string]any{"phaseId": phaseID, "rulesetId": req.RulesetID})
	}
}
