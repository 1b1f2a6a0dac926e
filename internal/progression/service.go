package progression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/phasekeeper/internal/metrics"
	"github.com/mauv0809/phasekeeper/internal/notifier"
	"github.com/mauv0809/phasekeeper/internal/pubsub"
	"github.com/mauv0809/phasekeeper/internal/tournament"
)

// New creates a new progression Service.
func New(store Store, notifier Notifier, metrics metrics.Metrics, pubsub pubsub.PubSubClient) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		pubsub:   pubsub,
		now:      time.Now,
	}
}

// PreviewPhase evaluates the phase's ruleset over the ranking of all its
// matches. It changes no domain state; repeated calls over unchanged data return
// identical results.
func (s *Service) PreviewPhase(ctx context.Context, phaseID int64, stepIndex *int) (*PreviewResponse, error) {
	preview, err := s.previewPhase(ctx, phaseID, stepIndex)
	if err != nil {
		return nil, err
	}
	s.metrics.IncPreviews()
	return preview, nil
}

// PreviewMatch evaluates the ruleset of the match's phase over the ranking of
// that match alone.
func (s *Service) PreviewMatch(ctx context.Context, matchID int64, stepIndex *int) (*PreviewResponse, error) {
	preview, err := s.previewMatch(ctx, matchID, stepIndex)
	if err != nil {
		return nil, err
	}
	s.metrics.IncPreviews()
	return preview, nil
}

// CommitPhase persists the decisions of a phase preview as a new run and,
// when autoAssign is set, places advancing players into their target matches.
// Every call creates a new run.
func (s *Service) CommitPhase(ctx context.Context, phaseID int64, autoAssign bool, stepIndex *int) (*CommitResponse, error) {
	preview, err := s.previewPhase(ctx, phaseID, stepIndex)
	if err != nil {
		return nil, err
	}
	runID := fmt.Sprintf("phase-%d-%d", phaseID, s.nextRunRef())
	return s.commit(ctx, runID, preview, autoAssign)
}

// CommitMatch is CommitPhase for a single match's ranking.
func (s *Service) CommitMatch(ctx context.Context, matchID int64, autoAssign bool, stepIndex *int) (*CommitResponse, error) {
	preview, err := s.previewMatch(ctx, matchID, stepIndex)
	if err != nil {
		return nil, err
	}
	runID := fmt.Sprintf("match-%d-%d", matchID, s.nextRunRef())
	return s.commit(ctx, runID, preview, autoAssign)
}

// nextRunRef returns the current unix millisecond, bumped past the last one
// issued so two commits in the same millisecond never share a run id.
func (s *Service) nextRunRef() int64 {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	ref := max(s.now().UnixMilli(), s.lastRunRef+1)
	s.lastRunRef = ref
	return ref
}

// Run returns the persisted rows of one committed run.
func (s *Service) Run(ctx context.Context, runID string) ([]tournament.ProgressionResult, error) {
	return s.store.ResultsByRun(ctx, runID)
}

func (s *Service) previewPhase(ctx context.Context, phaseID int64, stepIndex *int) (*PreviewResponse, error) {
	phase, err := s.store.GetPhase(ctx, phaseID)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, phase, nil, stepIndex)
}

func (s *Service) previewMatch(ctx context.Context, matchID int64, stepIndex *int) (*PreviewResponse, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.PhaseID == 0 {
		return nil, fmt.Errorf("%w: match %d has no phase", ErrInvalidConfig, matchID)
	}
	phase, err := s.store.GetPhase(ctx, match.PhaseID)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, phase, match, stepIndex)
}

// evaluate resolves the phase's ruleset, builds the ranking the resolved
// rules apply to and runs them. match is the match the request was made for,
// if any.
func (s *Service) evaluate(ctx context.Context, phase *tournament.Phase, match *tournament.Match, stepIndex *int) (*PreviewResponse, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveEvaluationDuration(time.Since(start).Seconds())
	}()

	if phase.RulesetID == nil {
		return nil, fmt.Errorf("%w: phase %d has no ruleset assigned", ErrInvalidConfig, phase.ID)
	}
	ruleset, err := s.store.GetRuleset(ctx, *phase.RulesetID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: phase %d points at missing ruleset %d", ErrInvalidConfig, phase.ID, *phase.RulesetID)
	}
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(ruleset.Config)
	if err != nil {
		return nil, err
	}

	var callerMatchID *int64
	if match != nil {
		id := match.ID
		callerMatchID = &id
	}
	res, err := cfg.Resolve(stepIndex, callerMatchID)
	if err != nil {
		return nil, err
	}

	source, err := s.rankingSource(ctx, phase, match, res)
	if err != nil {
		return nil, err
	}
	ranking := BuildRanking(source)
	actions, ties := Evaluate(ranking, res.Rules)
	if len(ties) > 0 {
		s.metrics.AddBoundaryTies(len(ties))
	}

	log.Debug("Evaluated progression",
		"phase_id", phase.ID,
		"ruleset_id", ruleset.ID,
		"step_index", res.StepIndex,
		"ranked", len(ranking),
		"decided", len(actions),
		"ties", len(ties),
	)

	return &PreviewResponse{
		PhaseID:        phase.ID,
		MatchID:        res.MatchID,
		StepIndex:      res.StepIndex,
		StepName:       res.StepName,
		RulesetID:      ruleset.ID,
		TiePolicy:      res.TiePolicy,
		Ranking:        ranking,
		Actions:        actions,
		UnresolvedTies: ties,
	}, nil
}

func (s *Service) rankingSource(ctx context.Context, phase *tournament.Phase, match *tournament.Match, res *Resolution) ([]tournament.Match, error) {
	switch {
	case res.FromStep:
		sourceID := *res.MatchID
		if !phase.HasMatch(sourceID) {
			return nil, fmt.Errorf("source match %d of phase %d %w", sourceID, phase.ID, ErrNotFound)
		}
		if match != nil && match.ID == sourceID {
			return []tournament.Match{*match}, nil
		}
		source, err := s.store.GetMatch(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		return []tournament.Match{*source}, nil
	case match != nil:
		return []tournament.Match{*match}, nil
	default:
		return s.store.PhaseMatches(ctx, phase.ID)
	}
}

func (s *Service) commit(ctx context.Context, runID string, preview *PreviewResponse, autoAssign bool) (*CommitResponse, error) {
	committedAt := s.now().UTC()
	results := make([]tournament.ProgressionResult, 0, len(preview.Actions))
	for _, action := range preview.Actions {
		results = append(results, tournament.ProgressionResult{
			RunID:           runID,
			PhaseID:         preview.PhaseID,
			PlayerID:        action.Player.ID,
			PlayerName:      action.Player.Name,
			Action:          action.Action,
			TargetPhaseID:   action.TargetPhaseID,
			TargetMatchID:   action.TargetMatchID,
			RankingPosition: action.Rank,
			TiedAtBoundary:  action.TiedAtBoundary,
			Reason:          action.Reason,
			CreatedAt:       committedAt,
		})
	}

	if len(results) > 0 {
		if err := s.store.SaveMany(ctx, results); err != nil {
			return nil, fmt.Errorf("failed to save progression results for run %s: %w", runID, err)
		}
	}

	// Results are already persisted; placement problems only lower the count.
	assigned := 0
	if autoAssign {
		assigned = newPlacer(s.store).place(ctx, preview.Actions)
	}

	resp := &CommitResponse{
		RunID:               runID,
		Saved:               len(results),
		AutoAssignedPlayers: assigned,
		Preview:             preview,
	}

	s.metrics.IncCommits()
	s.metrics.AddResultsSaved(resp.Saved)
	s.metrics.AddPlayersAutoAssigned(assigned)
	log.Info("Committed progression run", "run_id", runID, "saved", resp.Saved, "auto_assigned", assigned, "unresolved_ties", len(preview.UnresolvedTies))

	s.announce(resp, committedAt)
	return resp, nil
}

// announce publishes the run event and posts the operator summary. Both are
// best effort.
func (s *Service) announce(resp *CommitResponse, committedAt time.Time) {
	preview := resp.Preview

	event := pubsub.RunCommittedEvent{
		RunID:               resp.RunID,
		PhaseID:             preview.PhaseID,
		MatchID:             preview.MatchID,
		StepIndex:           preview.StepIndex,
		Saved:               resp.Saved,
		AutoAssignedPlayers: resp.AutoAssignedPlayers,
		Decisions:           make([]pubsub.RunDecision, 0, len(preview.Actions)),
		CommittedAt:         committedAt,
	}
	summary := notifier.RunSummary{
		RunID:               resp.RunID,
		PhaseID:             preview.PhaseID,
		MatchID:             preview.MatchID,
		StepName:            preview.StepName,
		Saved:               resp.Saved,
		AutoAssignedPlayers: resp.AutoAssignedPlayers,
		Decisions:           make([]notifier.Decision, 0, len(preview.Actions)),
		UnresolvedTies:      len(preview.UnresolvedTies),
	}
	for _, a := range preview.Actions {
		event.Decisions = append(event.Decisions, pubsub.RunDecision{
			PlayerID:      a.Player.ID,
			Action:        string(a.Action),
			TargetPhaseID: a.TargetPhaseID,
			TargetMatchID: a.TargetMatchID,
			Rank:          a.Rank,
		})
		summary.Decisions = append(summary.Decisions, notifier.Decision{
			PlayerName:     a.Player.Name,
			Action:         string(a.Action),
			Rank:           a.Rank,
			TargetPhaseID:  a.TargetPhaseID,
			TargetMatchID:  a.TargetMatchID,
			TiedAtBoundary: a.TiedAtBoundary,
		})
	}

	if err := s.pubsub.SendMessage(pubsub.EventProgressionCommitted, event); err != nil {
		log.Error("Failed to publish progression event", "error", err, "run_id", resp.RunID)
	}
	if _, err := s.notifier.SendRunCommitted(summary); err != nil {
		log.Error("Failed to send commit summary", "error", err, "run_id", resp.RunID)
	}
}
