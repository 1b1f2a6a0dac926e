package progression

import (
	"testing"

	"github.com/mauv0809/phasekeeper/internal/tournament"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func player(id int64, name string) *tournament.Player {
	return &tournament.Player{ID: id, Name: name}
}

func standing(p *tournament.Player, points int, pct float64, failed bool) tournament.Standing {
	return tournament.Standing{Player: p, Points: points, Score: tournament.Score{Percentage: pct, IsFailed: failed}}
}

func TestBuildRanking_AggregatesRounds(t *testing.T) {
	alice, bob := player(1, "Alice"), player(2, "Bob")
	matches := []tournament.Match{{
		ID: 10,
		Rounds: []tournament.Round{
			{Standings: []tournament.Standing{standing(alice, 3, 98.12345, false), standing(bob, 1, 80, true)}},
			{Standings: []tournament.Standing{standing(alice, 1, 90, false), standing(bob, 3, 85, false)}},
		},
	}}

	ranking := BuildRanking(matches)
	require.Len(t, ranking, 2)

	assert.Equal(t, "Bob", ranking[0].Player.Name, "equal points, higher average wins")
	assert.Equal(t, 4, ranking[0].TotalPoints)
	assert.Equal(t, 82.5, ranking[0].AveragePercentage)
	assert.Equal(t, 1, ranking[0].FailCount)
	assert.Equal(t, 1, ranking[0].Rank)

	assert.Equal(t, "Alice", ranking[1].Player.Name)
	assert.Equal(t, 94.0617, ranking[1].AveragePercentage, "average is rounded to 4 decimals")
	assert.Equal(t, 2, ranking[1].Rank)
}

func TestBuildRanking_IncludesRosterAndSkipsAnonymousStandings(t *testing.T) {
	alice, carol := player(1, "Alice"), player(3, "Carol")
	matches := []tournament.Match{{
		ID:      10,
		Players: []tournament.Player{*alice, *carol},
		Rounds: []tournament.Round{
			{Standings: []tournament.Standing{standing(alice, 2, 90, false), standing(nil, 5, 100, false)}},
		},
	}}

	ranking := BuildRanking(matches)
	require.Len(t, ranking, 2)
	assert.Equal(t, "Alice", ranking[0].Player.Name)
	assert.Equal(t, "Carol", ranking[1].Player.Name)
	assert.Zero(t, ranking[1].TotalPoints)
	assert.Zero(t, ranking[1].AveragePercentage, "no rounds means a zero average")
}

func TestBuildRanking_FewerFailsRankHigher(t *testing.T) {
	a, b := player(1, "A"), player(2, "B")
	matches := []tournament.Match{{Rounds: []tournament.Round{
		{Standings: []tournament.Standing{standing(a, 2, 90, true), standing(b, 2, 90, false)}},
	}}}

	ranking := BuildRanking(matches)
	assert.Equal(t, "B", ranking[0].Player.Name)
	assert.Equal(t, 2, ranking[1].Rank)
}

func TestBuildRanking_CompetitionRanks(t *testing.T) {
	p := []*tournament.Player{player(1, "Dana"), player(2, "alex"), player(3, "Chris"), player(4, "Ben")}
	matches := []tournament.Match{{Rounds: []tournament.Round{{Standings: []tournament.Standing{
		standing(p[0], 5, 90, false),
		standing(p[1], 5, 90, false),
		standing(p[2], 5, 90, false),
		standing(p[3], 2, 70, false),
	}}}}}

	ranking := BuildRanking(matches)
	require.Len(t, ranking, 4)

	names := []string{ranking[0].Player.Name, ranking[1].Player.Name, ranking[2].Player.Name, ranking[3].Player.Name}
	assert.Equal(t, []string{"alex", "Chris", "Dana", "Ben"}, names, "names only break the ordering, case-insensitively")
	assert.Equal(t, []int{1, 1, 1, 4}, []int{ranking[0].Rank, ranking[1].Rank, ranking[2].Rank, ranking[3].Rank})

	for i := 1; i < len(ranking); i++ {
		if sameMetrics(ranking[i-1], ranking[i]) {
			assert.Equal(t, ranking[i-1].Rank, ranking[i].Rank)
		} else {
			assert.Equal(t, i+1, ranking[i].Rank)
		}
	}
}

func TestBuildRanking_Deterministic(t *testing.T) {
	var standings []tournament.Standing
	for i := int64(1); i <= 12; i++ {
		p := player(i, string(rune('A'+i)))
		standings = append(standings, standing(p, int(i%3), float64(i%4)*10, i%2 == 0))
	}
	matches := []tournament.Match{{Rounds: []tournament.Round{{Standings: standings}}}}

	first := BuildRanking(matches)
	second := BuildRanking(matches)
	assert.Equal(t, first, second)
}

func TestBuildRanking_Empty(t *testing.T) {
	assert.Empty(t, BuildRanking(nil))
	assert.NotNil(t, BuildRanking(nil))
}
