package tournament_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/mauv0809/phasekeeper/internal/database"
	"github.com/mauv0809/phasekeeper/internal/tournament"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (tournament.TournamentStore, *sql.DB, func()) {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)

	return tournament.New(db), db, teardown
}

func TestPlayersAndPhases(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	p, err := store.CreatePlayer(ctx, "Alice")
	require.NoError(t, err)

	got, err := store.GetPlayer(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)

	_, err = store.GetPlayer(ctx, 999)
	assert.ErrorIs(t, err, tournament.ErrNotFound)

	phase, err := store.CreatePhase(ctx, "Round 1", nil)
	require.NoError(t, err)
	_, err = store.CreateMatch(ctx, phase.ID, "Pool B", nil)
	require.NoError(t, err)
	_, err = store.CreateMatch(ctx, phase.ID, "Pool A", nil)
	require.NoError(t, err)

	loaded, err := store.GetPhase(ctx, phase.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.RulesetID)
	require.Len(t, loaded.MatchIDs, 2)
	assert.Less(t, loaded.MatchIDs[0], loaded.MatchIDs[1], "match ids are returned in ascending order")

	_, err = store.GetPhase(ctx, 999)
	assert.ErrorIs(t, err, tournament.ErrNotFound)
}

func TestMatchRoundsAndRoster(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	alice, _ := store.CreatePlayer(ctx, "Alice")
	bob, _ := store.CreatePlayer(ctx, "Bob")
	carol, _ := store.CreatePlayer(ctx, "Carol")
	setup1, err := store.CreateSetup(ctx, "Cab 1")
	require.NoError(t, err)
	setup2, err := store.CreateSetup(ctx, "Cab 2")
	require.NoError(t, err)

	phase, _ := store.CreatePhase(ctx, "Round 1", nil)
	match, err := store.CreateMatch(ctx, phase.ID, "Pool A", []int64{alice.ID, bob.ID})
	require.NoError(t, err)
	require.Len(t, match.Players, 2)

	_, err = store.AddRound(ctx, match.ID, []tournament.Standing{
		{Player: alice, Points: 3, Score: tournament.Score{Percentage: 97.5}},
		{Player: bob, Points: 1, Score: tournament.Score{Percentage: 80, IsFailed: true}},
		{Player: nil, Points: 0},
	}, []int64{setup1, setup2})
	require.NoError(t, err)

	loaded, err := store.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Rounds, 1)
	round := loaded.Rounds[0]
	require.Len(t, round.Standings, 3)
	assert.Equal(t, "Alice", round.Standings[0].Player.Name)
	assert.Equal(t, 97.5, round.Standings[0].Score.Percentage)
	assert.True(t, round.Standings[1].Score.IsFailed)
	assert.Nil(t, round.Standings[2].Player)
	require.Len(t, round.Assignments, 2)
	assert.Equal(t, setup1, round.Assignments[0].SetupID)

	loaded.Players = append(loaded.Players, *carol)
	require.NoError(t, store.SaveMatch(ctx, loaded))

	reloaded, err := store.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.HasPlayer(carol.ID))
	assert.Len(t, reloaded.Players, 3)

	matches, err := store.PhaseMatches(ctx, phase.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Len(t, matches[0].Rounds, 1)

	err = store.SaveMatch(ctx, &tournament.Match{ID: 999})
	assert.ErrorIs(t, err, tournament.ErrNotFound)
}

func TestRulesetCRUD(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	created, err := store.CreateRuleset(ctx, &tournament.Ruleset{
		Name:     "Top 8",
		IsActive: true,
		Config:   json.RawMessage(`{"rules":[{"type":"ADVANCE_TOP_N","count":8,"targetPhaseId":2}]}`),
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	all, err := store.ListRulesets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.JSONEq(t, string(created.Config), string(all[0].Config))

	name := "Top 4"
	active := false
	updated, err := store.UpdateRuleset(ctx, created.ID, tournament.RulesetUpdate{Name: &name, IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, "Top 4", updated.Name)
	assert.False(t, updated.IsActive)
	assert.JSONEq(t, string(created.Config), string(updated.Config), "config untouched by partial update")

	phase, err := store.CreatePhase(ctx, "Round 1", &created.ID)
	require.NoError(t, err)

	require.NoError(t, store.DeleteRuleset(ctx, created.ID))
	_, err = store.GetRuleset(ctx, created.ID)
	assert.ErrorIs(t, err, tournament.ErrNotFound)

	loaded, err := store.GetPhase(ctx, phase.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.RulesetID, "deleting a ruleset unlinks it from its phases")

	assert.ErrorIs(t, store.DeleteRuleset(ctx, created.ID), tournament.ErrNotFound)
}

func TestSaveManyAndResultsByRun(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	alice, _ := store.CreatePlayer(ctx, "Alice")
	bob, _ := store.CreatePlayer(ctx, "Bob")
	phase, _ := store.CreatePhase(ctx, "Round 1", nil)
	target := int64(7)
	now := time.Now().UTC().Truncate(time.Millisecond)

	results := []tournament.ProgressionResult{
		{RunID: "phase-1-1", PhaseID: phase.ID, PlayerID: alice.ID, Action: tournament.ActionAdvance, TargetPhaseID: &target, RankingPosition: 1, Reason: "Advanced", CreatedAt: now},
		{RunID: "phase-1-1", PhaseID: phase.ID, PlayerID: bob.ID, Action: tournament.ActionHoldForTiebreaker, RankingPosition: 2, TiedAtBoundary: true, Reason: "Tie", CreatedAt: now},
	}
	require.NoError(t, store.SaveMany(ctx, results))
	assert.NotZero(t, results[0].ID)
	assert.NotZero(t, results[1].ID)

	loaded, err := store.ResultsByRun(ctx, "phase-1-1")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Alice", loaded[0].PlayerName)
	assert.Equal(t, tournament.ActionAdvance, loaded[0].Action)
	require.NotNil(t, loaded[0].TargetPhaseID)
	assert.Equal(t, int64(7), *loaded[0].TargetPhaseID)
	assert.Nil(t, loaded[0].TargetMatchID)
	assert.True(t, loaded[1].TiedAtBoundary)
	assert.Equal(t, now, loaded[1].CreatedAt)

	require.NoError(t, store.SaveMany(ctx, nil), "an empty batch is not an error")

	_, err = store.ResultsByRun(ctx, "missing")
	assert.ErrorIs(t, err, tournament.ErrNotFound)
}
