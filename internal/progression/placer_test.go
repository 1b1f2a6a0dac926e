package progression

import (
	"context"
	"errors"
	"testing"

	"github.com/mauv0809/phasekeeper/internal/tournament"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func advance(id int64, targetPhase, targetMatch *int64) PlannedAction {
	return PlannedAction{
		Player:        tournament.Player{ID: id},
		Action:        tournament.ActionAdvance,
		TargetPhaseID: targetPhase,
		TargetMatchID: targetMatch,
	}
}

func roundOnSetups(setups ...int64) tournament.Round {
	r := tournament.Round{}
	for _, id := range setups {
		r.Assignments = append(r.Assignments, tournament.SetupAssignment{SetupID: id})
	}
	return r
}

func seedPlayers(store *tournament.MockStore, ids ...int64) {
	for _, id := range ids {
		store.AddPlayers(tournament.Player{ID: id, Name: string(rune('A' + id))})
	}
}

func TestPlacer_FullTargetMatchIsSkipped(t *testing.T) {
	store := tournament.NewMock()
	seedPlayers(store, 1, 2, 3)
	store.AddMatch(tournament.Match{
		ID:      20,
		Players: []tournament.Player{{ID: 1}, {ID: 2}},
		Rounds:  []tournament.Round{roundOnSetups(7, 8)},
	})

	placed := newPlacer(store).place(context.Background(), []PlannedAction{advance(3, nil, ptr(int64(20)))})

	assert.Zero(t, placed)
	assert.Empty(t, store.SaveMatchCalls)
}

func TestPlacer_DirectMatchTracksOccupancyAcrossPass(t *testing.T) {
	store := tournament.NewMock()
	seedPlayers(store, 1, 2, 3)
	store.AddMatch(tournament.Match{ID: 20, Rounds: []tournament.Round{roundOnSetups(7, 8, 8, 0)}})

	placed := newPlacer(store).place(context.Background(), []PlannedAction{
		advance(1, nil, ptr(int64(20))),
		advance(2, nil, ptr(int64(20))),
		advance(3, nil, ptr(int64(20))),
	})

	assert.Equal(t, 2, placed, "capacity counts distinct non-zero setups")
	match, err := store.GetMatch(context.Background(), 20)
	require.NoError(t, err)
	assert.Len(t, match.Players, 2)
}

func TestPlacer_NoSetupsMeansUnlimited(t *testing.T) {
	store := tournament.NewMock()
	seedPlayers(store, 1, 2, 3, 4)
	store.AddMatch(tournament.Match{ID: 20})

	actions := []PlannedAction{}
	for id := int64(1); id <= 4; id++ {
		actions = append(actions, advance(id, nil, ptr(int64(20))))
	}
	assert.Equal(t, 4, newPlacer(store).place(context.Background(), actions))
}

func TestPlacer_AlreadyPresentIsNotCounted(t *testing.T) {
	store := tournament.NewMock()
	seedPlayers(store, 1)
	store.AddMatch(tournament.Match{ID: 20, Players: []tournament.Player{{ID: 1}}})

	assert.Zero(t, newPlacer(store).place(context.Background(), []PlannedAction{advance(1, nil, ptr(int64(20)))}))
	assert.Empty(t, store.SaveMatchCalls)
}

func TestPlacer_PhaseTargetBalancesLoad(t *testing.T) {
	store := tournament.NewMock()
	seedPlayers(store, 1, 2, 3, 4, 5)
	store.AddPhase(tournament.Phase{ID: 2})
	store.AddMatch(tournament.Match{ID: 21, PhaseID: 2, Players: []tournament.Player{{ID: 9}}, Rounds: []tournament.Round{roundOnSetups(1, 2)}})
	store.AddMatch(tournament.Match{ID: 22, PhaseID: 2, Rounds: []tournament.Round{roundOnSetups(3, 4)}})
	store.AddMatch(tournament.Match{ID: 23, PhaseID: 2, Players: []tournament.Player{{ID: 3}}})

	placed := newPlacer(store).place(context.Background(), []PlannedAction{
		advance(1, ptr(int64(2)), nil), // 22 is empty
		advance(2, ptr(int64(2)), nil), // 21, 22 and 23 hold one each; lowest id wins
		advance(3, ptr(int64(2)), nil), // already in 23; 22 now holds the fewest
		advance(4, ptr(int64(2)), nil), // 21 and 22 are full
		advance(5, ptr(int64(2)), nil),
	})

	assert.Equal(t, 5, placed)
	ctx := context.Background()
	m21, _ := store.GetMatch(ctx, 21)
	m22, _ := store.GetMatch(ctx, 22)
	m23, _ := store.GetMatch(ctx, 23)
	assert.True(t, m22.HasPlayer(1))
	assert.True(t, m21.HasPlayer(2))
	assert.True(t, m22.HasPlayer(3))
	assert.True(t, m23.HasPlayer(4))
	assert.True(t, m23.HasPlayer(5))
}

func TestPlacer_IgnoresNonMovingActionsAndSkipsFailures(t *testing.T) {
	store := tournament.NewMock()
	seedPlayers(store, 1, 2, 3)
	store.AddMatch(tournament.Match{ID: 20})
	store.SaveMatchFunc = func(ctx context.Context, match *tournament.Match) error {
		if match.HasPlayer(2) {
			return errors.New("locked")
		}
		return nil
	}

	placed := newPlacer(store).place(context.Background(), []PlannedAction{
		{Player: tournament.Player{ID: 1}, Action: tournament.ActionEliminate},
		{Player: tournament.Player{ID: 1}, Action: tournament.ActionHoldForTiebreaker, TargetMatchID: ptr(int64(20))},
		advance(1, nil, nil),
		advance(2, nil, ptr(int64(20))),
		advance(99, nil, ptr(int64(20))),
		advance(3, nil, ptr(int64(404))),
		{Player: tournament.Player{ID: 3}, Action: tournament.ActionSendToLosers, TargetMatchID: ptr(int64(20))},
	})

	assert.Equal(t, 1, placed, "only the losers-lane move for player 3 lands")
	require.Len(t, store.SaveMatchCalls, 2)
}
