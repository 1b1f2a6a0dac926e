package progression

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/mauv0809/phasekeeper/internal/tournament"
)

// evaluation is the accumulator threaded through the rule list. A player
// enters decided at most once; later rules only ever see the undecided rest.
type evaluation struct {
	ranking []RankingEntry
	decided map[int64]PlannedAction
	order   []int64
	ties    []UnresolvedTie
}

// playerSet is an insertion-ordered set of player ids.
type playerSet struct {
	ids  []int64
	seen map[int64]bool
}

func newPlayerSet() *playerSet {
	return &playerSet{seen: make(map[int64]bool)}
}

func (s *playerSet) add(id int64) {
	if !s.seen[id] {
		s.seen[id] = true
		s.ids = append(s.ids, id)
	}
}

func (s *playerSet) has(id int64) bool { return s.seen[id] }

func (s *playerSet) empty() bool { return len(s.ids) == 0 }

// Evaluate runs the rules in order over the ranking. It returns the decided
// actions ordered by rank and one unresolved tie per boundary event.
func Evaluate(ranking []RankingEntry, rules []Rule) ([]PlannedAction, []UnresolvedTie) {
	ev := &evaluation{
		ranking: ranking,
		decided: make(map[int64]PlannedAction),
		ties:    []UnresolvedTie{},
	}
	for _, rule := range rules {
		ev.apply(rule)
	}

	actions := make([]PlannedAction, 0, len(ev.order))
	for _, id := range ev.order {
		actions = append(actions, ev.decided[id])
	}
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Rank < actions[j].Rank })
	return actions, ev.ties
}

func (ev *evaluation) undecided() []RankingEntry {
	out := make([]RankingEntry, 0, len(ev.ranking))
	for _, entry := range ev.ranking {
		if _, ok := ev.decided[entry.Player.ID]; !ok {
			out = append(out, entry)
		}
	}
	return out
}

func (ev *evaluation) decide(action PlannedAction) {
	if _, ok := ev.decided[action.Player.ID]; ok {
		return
	}
	ev.decided[action.Player.ID] = action
	ev.order = append(ev.order, action.Player.ID)
}

func (ev *evaluation) apply(rule Rule) {
	undecided := ev.undecided()
	if len(undecided) == 0 {
		return
	}

	switch r := rule.(type) {
	case AdvanceTopN:
		ev.advanceTop(undecided, clampCount(r.Count, len(undecided)), r.TargetPhaseID, r.TargetMatchID,
			fmt.Sprintf("%s(%d)", r.Type(), r.Count))
	case AdvanceTopPercent:
		ev.advanceTop(undecided, countFromPercent(len(undecided), r.Percent, r.Rounding, RoundUp), r.TargetPhaseID, r.TargetMatchID,
			fmt.Sprintf("%s(%s%%)", r.Type(), formatPercent(r.Percent)))
	case EliminateBottomN:
		ev.eliminateBottom(undecided, clampCount(r.Count, len(undecided)),
			fmt.Sprintf("%s(%d)", r.Type(), r.Count))
	case EliminateBottomPercent:
		ev.eliminateBottom(undecided, countFromPercent(len(undecided), r.Percent, r.Rounding, RoundDown),
			fmt.Sprintf("%s(%s%%)", r.Type(), formatPercent(r.Percent)))
	case SendRankRangeToPhase:
		ev.sendRange(r)
	case SendRemainingToPhase:
		for _, entry := range undecided {
			ev.decide(PlannedAction{
				Player:        entry.Player,
				Action:        laneAction(r.Lane),
				TargetPhaseID: optionalID(r.TargetPhaseID),
				TargetMatchID: r.TargetMatchID,
				Rank:          entry.Rank,
				Reason:        fmt.Sprintf("Moved by rule %s", r.Type()),
			})
		}
	default:
		panic(fmt.Sprintf("progression: unhandled rule type %T", rule))
	}
}

func (ev *evaluation) advanceTop(undecided []RankingEntry, count int, targetPhaseID int64, targetMatchID *int64, label string) {
	tied := topBoundaryTie(undecided, count)
	ev.hold(tied, fmt.Sprintf("Tie at advancement boundary top %d", count))

	for _, entry := range undecided[:count] {
		if tied.has(entry.Player.ID) {
			continue
		}
		ev.decide(PlannedAction{
			Player:        entry.Player,
			Action:        tournament.ActionAdvance,
			TargetPhaseID: optionalID(targetPhaseID),
			TargetMatchID: targetMatchID,
			Rank:          entry.Rank,
			Reason:        "Advanced by rule " + label,
		})
	}
}

func (ev *evaluation) eliminateBottom(undecided []RankingEntry, count int, label string) {
	tied := bottomBoundaryTie(undecided, count)
	ev.hold(tied, fmt.Sprintf("Tie at elimination boundary bottom %d", count))

	bottom := undecided[len(undecided)-count:]
	for i := len(bottom) - 1; i >= 0; i-- {
		entry := bottom[i]
		if tied.has(entry.Player.ID) {
			continue
		}
		ev.decide(PlannedAction{
			Player: entry.Player,
			Action: tournament.ActionEliminate,
			Rank:   entry.Rank,
			Reason: "Eliminated by rule " + label,
		})
	}
}

func (ev *evaluation) sendRange(r SendRankRangeToPhase) {
	// Ranks may be any int; clamp before converting to indexes.
	fromRank := max(1, r.FromRank)
	toRank := max(fromRank, r.ToRank)
	fromIndex, end := fromRank-1, toRank

	crossing := newPlayerSet()
	crossingBoundary(ev.ranking, fromIndex, crossing)
	crossingBoundary(ev.ranking, end, crossing)

	var selected []RankingEntry
	if fromIndex < len(ev.ranking) {
		selected = ev.ranking[fromIndex:min(end, len(ev.ranking))]
	}

	ev.hold(crossing, fmt.Sprintf("Tie at rank range boundary %d-%d", r.FromRank, r.ToRank))

	for _, entry := range selected {
		if crossing.has(entry.Player.ID) {
			continue
		}
		ev.decide(PlannedAction{
			Player:        entry.Player,
			Action:        laneAction(r.Lane),
			TargetPhaseID: optionalID(r.TargetPhaseID),
			TargetMatchID: r.TargetMatchID,
			Rank:          entry.Rank,
			Reason:        fmt.Sprintf("Moved by rule %s(%d-%d)", r.Type(), r.FromRank, r.ToRank),
		})
	}
}

// hold records one unresolved tie for the set and holds every member that no
// earlier rule decided.
func (ev *evaluation) hold(tied *playerSet, reason string) {
	if tied.empty() {
		return
	}
	ev.ties = append(ev.ties, UnresolvedTie{
		PlayerIDs: append([]int64(nil), tied.ids...),
		Reason:    reason,
	})

	for _, id := range tied.ids {
		entry, ok := ev.entry(id)
		if !ok {
			continue
		}
		ev.decide(PlannedAction{
			Player:         entry.Player,
			Action:         tournament.ActionHoldForTiebreaker,
			Rank:           entry.Rank,
			TiedAtBoundary: true,
			Reason:         reason,
		})
	}
}

func (ev *evaluation) entry(playerID int64) (RankingEntry, bool) {
	for _, entry := range ev.ranking {
		if entry.Player.ID == playerID {
			return entry, true
		}
	}
	return RankingEntry{}, false
}

// topBoundaryTie returns every entry that shares metrics with the last one
// inside the top count, when the first one outside ties with it.
func topBoundaryTie(entries []RankingEntry, count int) *playerSet {
	tied := newPlayerSet()
	if count <= 0 || count >= len(entries) {
		return tied
	}
	inside, outside := entries[count-1], entries[count]
	if !sameMetrics(inside, outside) {
		return tied
	}
	for _, entry := range entries {
		if sameMetrics(entry, inside) {
			tied.add(entry.Player.ID)
		}
	}
	return tied
}

func bottomBoundaryTie(entries []RankingEntry, count int) *playerSet {
	tied := newPlayerSet()
	if count <= 0 || count >= len(entries) {
		return tied
	}
	inside, outside := entries[len(entries)-count], entries[len(entries)-count-1]
	if !sameMetrics(inside, outside) {
		return tied
	}
	for _, entry := range entries {
		if sameMetrics(entry, inside) {
			tied.add(entry.Player.ID)
		}
	}
	return tied
}

// crossingBoundary adds the players tied across the cut between
// ranking[index-1] and ranking[index].
func crossingBoundary(ranking []RankingEntry, index int, into *playerSet) {
	if index <= 0 || index >= len(ranking) {
		return
	}
	before, after := ranking[index-1], ranking[index]
	if !sameMetrics(before, after) {
		return
	}
	for _, entry := range ranking {
		if sameMetrics(entry, before) {
			into.add(entry.Player.ID)
		}
	}
}

func clampCount(count, total int) int {
	return max(0, min(count, total))
}

func countFromPercent(total int, percent float64, rounding, fallback Rounding) int {
	if rounding == "" {
		rounding = fallback
	}
	raw := float64(total) * math.Max(0, math.Min(100, percent)) / 100

	var count float64
	switch rounding {
	case RoundDown:
		count = math.Floor(raw)
	case RoundNearest:
		count = math.Round(raw)
	default:
		count = math.Ceil(raw)
	}
	return clampCount(int(count), total)
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func laneAction(lane Lane) tournament.ProgressionAction {
	if lane == LaneLosers {
		return tournament.ActionSendToLosers
	}
	return tournament.ActionAdvance
}

func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
