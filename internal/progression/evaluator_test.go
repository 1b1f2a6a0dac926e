package progression

import (
	"math"
	"testing"

	"github.com/mauv0809/phasekeeper/internal/tournament"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type metricsSpec struct {
	name   string
	points int
	pct    float64
	fails  int
}

// rankingOf builds an already sorted ranking; ids are assigned 1..n in order.
func rankingOf(specs ...metricsSpec) []RankingEntry {
	ranking := make([]RankingEntry, len(specs))
	for i, s := range specs {
		ranking[i] = RankingEntry{
			Player:            tournament.Player{ID: int64(i + 1), Name: s.name},
			TotalPoints:       s.points,
			AveragePercentage: s.pct,
			FailCount:         s.fails,
		}
	}
	assignRanks(ranking)
	return ranking
}

func actionFor(t *testing.T, actions []PlannedAction, playerID int64) *PlannedAction {
	t.Helper()
	for i := range actions {
		if actions[i].Player.ID == playerID {
			return &actions[i]
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestEvaluate_AdvanceTopNTieAtBoundary(t *testing.T) {
	ranking := rankingOf(
		metricsSpec{"A", 10, 90, 0},
		metricsSpec{"B", 10, 90, 0},
		metricsSpec{"C", 10, 90, 0},
		metricsSpec{"D", 8, 90, 0},
	)

	actions, ties := Evaluate(ranking, []Rule{AdvanceTopN{Count: 2, TargetPhaseID: 5}})

	require.Len(t, actions, 3)
	for _, a := range actions {
		assert.Equal(t, tournament.ActionHoldForTiebreaker, a.Action)
		assert.True(t, a.TiedAtBoundary)
		assert.Nil(t, a.TargetPhaseID)
		assert.Equal(t, "Tie at advancement boundary top 2", a.Reason)
	}
	assert.Nil(t, actionFor(t, actions, 4), "D is not claimed by any rule")

	require.Len(t, ties, 1)
	assert.Equal(t, []int64{1, 2, 3}, ties[0].PlayerIDs)
}

func TestEvaluate_AdvanceTopNSkipsTiedWithoutReachingPastCount(t *testing.T) {
	ranking := rankingOf(
		metricsSpec{"A", 12, 90, 0},
		metricsSpec{"B", 10, 90, 0},
		metricsSpec{"C", 10, 90, 0},
		metricsSpec{"D", 8, 90, 0},
	)

	actions, ties := Evaluate(ranking, []Rule{AdvanceTopN{Count: 2, TargetPhaseID: 5}})

	require.Len(t, actions, 3)
	assert.Equal(t, tournament.ActionAdvance, actionFor(t, actions, 1).Action)
	assert.Equal(t, "Advanced by rule ADVANCE_TOP_N(2)", actionFor(t, actions, 1).Reason)
	assert.Equal(t, int64(5), *actionFor(t, actions, 1).TargetPhaseID)
	assert.Equal(t, tournament.ActionHoldForTiebreaker, actionFor(t, actions, 2).Action)
	assert.Equal(t, tournament.ActionHoldForTiebreaker, actionFor(t, actions, 3).Action)
	assert.Nil(t, actionFor(t, actions, 4))
	require.Len(t, ties, 1)
}

func TestEvaluate_AdvanceTopPercentRounding(t *testing.T) {
	ranking := rankingOf(
		metricsSpec{"A", 5, 90, 0},
		metricsSpec{"B", 4, 90, 0},
		metricsSpec{"C", 3, 90, 0},
		metricsSpec{"D", 2, 90, 0},
		metricsSpec{"E", 1, 90, 0},
	)

	tests := []struct {
		name     string
		rule     AdvanceTopPercent
		advanced int
	}{
		{"up by default", AdvanceTopPercent{Percent: 50, TargetPhaseID: 2}, 3},
		{"explicit up", AdvanceTopPercent{Percent: 50, TargetPhaseID: 2, Rounding: RoundUp}, 3},
		{"down", AdvanceTopPercent{Percent: 50, TargetPhaseID: 2, Rounding: RoundDown}, 2},
		{"nearest", AdvanceTopPercent{Percent: 50, TargetPhaseID: 2, Rounding: RoundNearest}, 3},
		{"clamped above 100", AdvanceTopPercent{Percent: 250, TargetPhaseID: 2}, 5},
		{"clamped below 0", AdvanceTopPercent{Percent: -10, TargetPhaseID: 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions, ties := Evaluate(ranking, []Rule{tt.rule})
			assert.Len(t, actions, tt.advanced)
			assert.Empty(t, ties)
			for i, a := range actions {
				assert.Equal(t, tournament.ActionAdvance, a.Action)
				assert.Equal(t, i+1, a.Rank)
			}
		})
	}

	actions, _ := Evaluate(ranking, []Rule{AdvanceTopPercent{Percent: 12.5, TargetPhaseID: 2}})
	require.Len(t, actions, 1)
	assert.Equal(t, "Advanced by rule ADVANCE_TOP_PERCENT(12.5%)", actions[0].Reason)
}

func TestEvaluate_EliminateBottom(t *testing.T) {
	ranking := rankingOf(
		metricsSpec{"A", 5, 90, 0},
		metricsSpec{"B", 4, 90, 0},
		metricsSpec{"C", 3, 90, 0},
		metricsSpec{"D", 2, 90, 0},
		metricsSpec{"E", 1, 90, 0},
	)

	t.Run("count", func(t *testing.T) {
		actions, ties := Evaluate(ranking, []Rule{EliminateBottomN{Count: 2}})
		require.Len(t, actions, 2)
		assert.Empty(t, ties)
		assert.Equal(t, int64(4), actions[0].Player.ID, "actions are ordered by rank")
		assert.Equal(t, int64(5), actions[1].Player.ID)
		for _, a := range actions {
			assert.Equal(t, tournament.ActionEliminate, a.Action)
			assert.Nil(t, a.TargetPhaseID)
			assert.Nil(t, a.TargetMatchID)
			assert.Equal(t, "Eliminated by rule ELIMINATE_BOTTOM_N(2)", a.Reason)
		}
	})

	t.Run("percent rounds down by default", func(t *testing.T) {
		actions, _ := Evaluate(ranking, []Rule{EliminateBottomPercent{Percent: 50}})
		require.Len(t, actions, 2)
		assert.Equal(t, "Eliminated by rule ELIMINATE_BOTTOM_PERCENT(50%)", actions[0].Reason)
	})

	t.Run("percent rounding up", func(t *testing.T) {
		actions, _ := Evaluate(ranking, []Rule{EliminateBottomPercent{Percent: 50, Rounding: RoundUp}})
		assert.Len(t, actions, 3)
	})
}

func TestEvaluate_EliminateBottomTieAtBoundary(t *testing.T) {
	ranking := rankingOf(
		metricsSpec{"A", 9, 90, 0},
		metricsSpec{"B", 5, 90, 0},
		metricsSpec{"C", 3, 90, 1},
		metricsSpec{"D", 3, 90, 1},
		metricsSpec{"E", 1, 90, 0},
	)

	actions, ties := Evaluate(ranking, []Rule{EliminateBottomN{Count: 2}})

	require.Len(t, ties, 1)
	assert.Equal(t, []int64{3, 4}, ties[0].PlayerIDs)
	assert.Equal(t, "Tie at elimination boundary bottom 2", ties[0].Reason)

	require.Len(t, actions, 3)
	assert.Equal(t, tournament.ActionHoldForTiebreaker, actionFor(t, actions, 3).Action)
	assert.Equal(t, tournament.ActionHoldForTiebreaker, actionFor(t, actions, 4).Action)
	assert.Equal(t, tournament.ActionEliminate, actionFor(t, actions, 5).Action)
	assert.Nil(t, actionFor(t, actions, 2), "B sits outside the bottom two")
}

func TestEvaluate_SendRankRange(t *testing.T) {
	ranking := rankingOf(
		metricsSpec{"A", 9, 90, 0},
		metricsSpec{"B", 8, 90, 0},
		metricsSpec{"C", 7, 90, 0},
		metricsSpec{"D", 6, 90, 0},
		metricsSpec{"E", 5, 90, 0},
	)

	t.Run("winners lane advances", func(t *testing.T) {
		actions, ties := Evaluate(ranking, []Rule{SendRankRangeToPhase{FromRank: 2, ToRank: 3, TargetPhaseID: 7, TargetMatchID: ptr(int64(70))}})
		assert.Empty(t, ties)
		require.Len(t, actions, 2)
		assert.Equal(t, []int64{2, 3}, []int64{actions[0].Player.ID, actions[1].Player.ID})
		assert.Equal(t, tournament.ActionAdvance, actions[0].Action)
		assert.Equal(t, int64(70), *actions[0].TargetMatchID)
		assert.Equal(t, "Moved by rule SEND_RANK_RANGE_TO_PHASE(2-3)", actions[0].Reason)
	})

	t.Run("losers lane", func(t *testing.T) {
		actions, _ := Evaluate(ranking, []Rule{SendRankRangeToPhase{FromRank: 4, ToRank: 9, TargetPhaseID: 8, Lane: LaneLosers}})
		require.Len(t, actions, 2, "range is clamped to the ranking")
		for _, a := range actions {
			assert.Equal(t, tournament.ActionSendToLosers, a.Action)
		}
	})

	t.Run("inverted range selects one rank", func(t *testing.T) {
		actions, _ := Evaluate(ranking, []Rule{SendRankRangeToPhase{FromRank: 3, ToRank: 1, TargetPhaseID: 8}})
		require.Len(t, actions, 1)
		assert.Equal(t, int64(3), actions[0].Player.ID)
	})

	t.Run("past the end is a no-op", func(t *testing.T) {
		actions, ties := Evaluate(ranking, []Rule{SendRankRangeToPhase{FromRank: 8, ToRank: 9, TargetPhaseID: 8}})
		assert.Empty(t, actions)
		assert.Empty(t, ties)
	})

	t.Run("extreme ranks do not overflow", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`{"rules":[{"type":"SEND_RANK_RANGE_TO_PHASE","fromRank":1,"toRank":-9223372036854775808,"targetPhaseId":2}]}`))
		require.NoError(t, err)

		var actions []PlannedAction
		require.NotPanics(t, func() { actions, _ = Evaluate(ranking, cfg.Rules) })
		require.Len(t, actions, 1)
		assert.Equal(t, int64(1), actions[0].Player.ID)

		require.NotPanics(t, func() {
			actions, _ = Evaluate(ranking, []Rule{SendRankRangeToPhase{FromRank: math.MinInt, ToRank: math.MaxInt, TargetPhaseID: 2}})
		})
		assert.Len(t, actions, 5)

		require.NotPanics(t, func() {
			actions, _ = Evaluate(ranking, []Rule{SendRankRangeToPhase{FromRank: math.MaxInt, ToRank: math.MinInt, TargetPhaseID: 2}})
		})
		assert.Empty(t, actions)
	})
}

func TestEvaluate_SendRankRangeHoldsBothEdges(t *testing.T) {
	ranking := rankingOf(
		metricsSpec{"A", 9, 90, 0},
		metricsSpec{"B", 9, 90, 0},
		metricsSpec{"C", 7, 90, 0},
		metricsSpec{"D", 5, 90, 0},
		metricsSpec{"E", 5, 90, 0},
		metricsSpec{"F", 1, 90, 0},
	)

	actions, ties := Evaluate(ranking, []Rule{SendRankRangeToPhase{FromRank: 2, ToRank: 4, TargetPhaseID: 3}})

	require.Len(t, ties, 1, "both edges are reported as one boundary event")
	assert.Equal(t, []int64{1, 2, 4, 5}, ties[0].PlayerIDs)
	assert.Equal(t, "Tie at rank range boundary 2-4", ties[0].Reason)

	assert.Equal(t, tournament.ActionAdvance, actionFor(t, actions, 3).Action)
	for _, id := range []int64{1, 2, 4, 5} {
		a := actionFor(t, actions, id)
		require.NotNil(t, a)
		assert.Equal(t, tournament.ActionHoldForTiebreaker, a.Action)
	}
	assert.Nil(t, actionFor(t, actions, 6))
}

func TestEvaluate_SendRemaining(t *testing.T) {
	ranking := rankingOf(
		metricsSpec{"A", 9, 90, 0},
		metricsSpec{"B", 5, 90, 0},
		metricsSpec{"C", 5, 90, 0},
	)

	actions, ties := Evaluate(ranking, []Rule{
		AdvanceTopN{Count: 1, TargetPhaseID: 2},
		SendRemainingToPhase{TargetPhaseID: 3, Lane: LaneLosers},
	})

	assert.Empty(t, ties, "the catch-all rule never checks ties")
	require.Len(t, actions, 3)
	assert.Equal(t, tournament.ActionAdvance, actions[0].Action)
	assert.Equal(t, tournament.ActionSendToLosers, actions[1].Action)
	assert.Equal(t, tournament.ActionSendToLosers, actions[2].Action)
	assert.Equal(t, "Moved by rule SEND_REMAINING_TO_PHASE", actions[2].Reason)
	assert.Equal(t, int64(3), *actions[2].TargetPhaseID)
}

func TestEvaluate_AtMostOneDecisionPerPlayer(t *testing.T) {
	ranking := rankingOf(
		metricsSpec{"A", 9, 90, 0},
		metricsSpec{"B", 8, 90, 0},
		metricsSpec{"C", 8, 90, 0},
		metricsSpec{"D", 4, 90, 0},
		metricsSpec{"E", 2, 90, 0},
	)
	rules := []Rule{
		AdvanceTopN{Count: 2, TargetPhaseID: 2},
		SendRankRangeToPhase{FromRank: 2, ToRank: 2, TargetPhaseID: 4},
		EliminateBottomN{Count: 1},
		SendRemainingToPhase{TargetPhaseID: 9},
	}

	actions, ties := Evaluate(ranking, rules)

	seen := map[int64]bool{}
	for _, a := range actions {
		assert.False(t, seen[a.Player.ID], "player %d decided twice", a.Player.ID)
		seen[a.Player.ID] = true
	}
	assert.Len(t, actions, 5)

	assert.Equal(t, tournament.ActionAdvance, actionFor(t, actions, 1).Action)
	assert.Equal(t, tournament.ActionHoldForTiebreaker, actionFor(t, actions, 2).Action)
	assert.Equal(t, "Tie at advancement boundary top 2", actionFor(t, actions, 2).Reason, "later boundary holds do not overwrite")
	assert.Equal(t, tournament.ActionEliminate, actionFor(t, actions, 5).Action)
	assert.Equal(t, tournament.ActionAdvance, actionFor(t, actions, 4).Action)
	assert.Equal(t, int64(9), *actionFor(t, actions, 4).TargetPhaseID)

	require.Len(t, ties, 2, "one entry per boundary event, even for the same players")
	assert.Equal(t, ties[0].PlayerIDs, ties[1].PlayerIDs)
}

func TestEvaluate_NoRulesOrNoPlayers(t *testing.T) {
	actions, ties := Evaluate(rankingOf(metricsSpec{"A", 1, 1, 0}), nil)
	assert.Empty(t, actions)
	assert.NotNil(t, actions)
	assert.NotNil(t, ties)

	actions, ties = Evaluate(nil, []Rule{AdvanceTopN{Count: 3, TargetPhaseID: 1}, EliminateBottomN{Count: 1}})
	assert.Empty(t, actions)
	assert.Empty(t, ties)
}

func TestEvaluate_EndToEndScenario(t *testing.T) {
	x, y, z := player(1, "X"), player(2, "Y"), player(3, "Z")
	matches := []tournament.Match{{
		ID:      1,
		Players: []tournament.Player{*x, *y, *z},
		Rounds: []tournament.Round{{Standings: []tournament.Standing{
			standing(x, 15, 90, false),
			standing(y, 10, 80, false),
			standing(z, 5, 70, true),
		}}},
	}}
	cfg, err := ParseConfig([]byte(`{"rules":[{"type":"ADVANCE_TOP_N","count":1,"targetPhaseId":2},{"type":"ELIMINATE_BOTTOM_N","count":1}]}`))
	require.NoError(t, err)

	actions, ties := Evaluate(BuildRanking(matches), cfg.Rules)

	require.Len(t, actions, 2)
	assert.Equal(t, "X", actions[0].Player.Name)
	assert.Equal(t, tournament.ActionAdvance, actions[0].Action)
	assert.Equal(t, 1, actions[0].Rank)
	assert.Equal(t, int64(2), *actions[0].TargetPhaseID)
	assert.Equal(t, "Z", actions[1].Player.Name)
	assert.Equal(t, tournament.ActionEliminate, actions[1].Action)
	assert.Equal(t, 3, actions[1].Rank)
	assert.Empty(t, ties)
}
