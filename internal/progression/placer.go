package progression

import (
	"context"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/phasekeeper/internal/tournament"
)

type placement struct {
	playerID int64
	matchID  int64
}

// placer moves advancing players into their target matches. Occupancy is
// tracked across the whole pass so several placements into one match add up.
type placer struct {
	store     Store
	occupancy map[int64]int
	assigned  map[placement]bool
}

func newPlacer(store Store) *placer {
	return &placer{
		store:     store,
		occupancy: make(map[int64]int),
		assigned:  make(map[placement]bool),
	}
}

// place runs one placement pass and returns the number of distinct
// (player, match) placements made. Ineligible or failing placements are
// skipped and the pass continues with the next action.
func (p *placer) place(ctx context.Context, actions []PlannedAction) int {
	for _, action := range actions {
		if action.Action != tournament.ActionAdvance && action.Action != tournament.ActionSendToLosers {
			continue
		}
		if action.TargetMatchID == nil && action.TargetPhaseID == nil {
			continue
		}
		logger := log.With("player_id", action.Player.ID)

		player, err := p.store.GetPlayer(ctx, action.Player.ID)
		if err != nil {
			logger.Warn("Skipping placement, player not loaded", "error", err)
			continue
		}

		if action.TargetMatchID != nil {
			if err := p.placeInMatch(ctx, player, *action.TargetMatchID); err != nil {
				logger.Warn("Skipping placement into target match", "match_id", *action.TargetMatchID, "error", err)
			}
			continue
		}
		if err := p.placeInPhase(ctx, player, *action.TargetPhaseID); err != nil {
			logger.Warn("Skipping placement into target phase", "phase_id", *action.TargetPhaseID, "error", err)
		}
	}
	return len(p.assigned)
}

func (p *placer) placeInMatch(ctx context.Context, player *tournament.Player, matchID int64) error {
	match, err := p.store.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if limit, ok := capacity(match); ok && p.count(match) >= limit {
		log.Debug("Target match is full", "match_id", match.ID, "capacity", limit)
		return nil
	}
	if match.HasPlayer(player.ID) {
		return nil
	}
	return p.add(ctx, match, player)
}

func (p *placer) placeInPhase(ctx context.Context, player *tournament.Player, phaseID int64) error {
	phase, err := p.store.GetPhase(ctx, phaseID)
	if err != nil {
		return err
	}
	matches := make([]*tournament.Match, 0, len(phase.MatchIDs))
	for _, id := range phase.MatchIDs {
		match, err := p.store.GetMatch(ctx, id)
		if err != nil {
			log.Warn("Ignoring unreadable match of target phase", "phase_id", phaseID, "match_id", id, "error", err)
			continue
		}
		matches = append(matches, match)
	}

	match := p.pickTargetMatch(matches, player.ID)
	if match == nil {
		log.Debug("No eligible match in target phase", "phase_id", phaseID, "player_id", player.ID)
		return nil
	}
	return p.add(ctx, match, player)
}

// pickTargetMatch returns the least occupied match that still has room and
// does not already hold the player. Ties go to the lowest match id.
func (p *placer) pickTargetMatch(matches []*tournament.Match, playerID int64) *tournament.Match {
	candidates := make([]*tournament.Match, 0, len(matches))
	for _, match := range matches {
		if match.HasPlayer(playerID) {
			continue
		}
		if limit, ok := capacity(match); ok && p.count(match) >= limit {
			continue
		}
		candidates = append(candidates, match)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := p.count(candidates[i]), p.count(candidates[j])
		if a != b {
			return a < b
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0]
}

func (p *placer) add(ctx context.Context, match *tournament.Match, player *tournament.Player) error {
	current := p.count(match)
	match.Players = append(match.Players, *player)
	if err := p.store.SaveMatch(ctx, match); err != nil {
		return err
	}
	p.occupancy[match.ID] = current + 1
	p.assigned[placement{playerID: player.ID, matchID: match.ID}] = true
	log.Debug("Placed player", "player_id", player.ID, "match_id", match.ID, "occupancy", current+1)
	return nil
}

func (p *placer) count(match *tournament.Match) int {
	if n, ok := p.occupancy[match.ID]; ok {
		return n
	}
	p.occupancy[match.ID] = len(match.Players)
	return len(match.Players)
}

// capacity is the number of distinct setups a match's rounds are played on.
// A match without setup assignments has no limit.
func capacity(match *tournament.Match) (int, bool) {
	setups := make(map[int64]struct{})
	for _, round := range match.Rounds {
		for _, a := range round.Assignments {
			if a.SetupID != 0 {
				setups[a.SetupID] = struct{}{}
			}
		}
	}
	if len(setups) == 0 {
		return 0, false
	}
	return len(setups), true
}
