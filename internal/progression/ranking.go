package progression

import (
	"math"
	"sort"

	"github.com/mauv0809/phasekeeper/internal/tournament"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type tally struct {
	player          tournament.Player
	points          int
	percentageTotal float64
	percentageCount int
	failCount       int
}

// BuildRanking aggregates the rounds of the given matches into a ranking.
// Every roster player and every player with a standing gets exactly one
// entry. Entries are ordered by points, average percentage, fewest fails and
// finally display name; ranks use standard competition ranking (1,1,3).
func BuildRanking(matches []tournament.Match) []RankingEntry {
	byPlayer := make(map[int64]*tally)
	order := make([]int64, 0)
	get := func(p tournament.Player) *tally {
		t, ok := byPlayer[p.ID]
		if !ok {
			t = &tally{player: p}
			byPlayer[p.ID] = t
			order = append(order, p.ID)
		}
		return t
	}

	for _, match := range matches {
		for _, p := range match.Players {
			get(p)
		}
		for _, round := range match.Rounds {
			for _, standing := range round.Standings {
				if standing.Player == nil {
					continue
				}
				t := get(*standing.Player)
				t.points += standing.Points
				t.percentageTotal += standing.Score.Percentage
				t.percentageCount++
				if standing.Score.IsFailed {
					t.failCount++
				}
			}
		}
	}

	ranking := make([]RankingEntry, 0, len(order))
	for _, id := range order {
		t := byPlayer[id]
		avg := 0.0
		if t.percentageCount > 0 {
			avg = math.Round(t.percentageTotal/float64(t.percentageCount)*1e4) / 1e4
		}
		ranking = append(ranking, RankingEntry{
			Player:            t.player,
			TotalPoints:       t.points,
			AveragePercentage: avg,
			FailCount:         t.failCount,
		})
	}

	// collate.Collator keeps internal buffers, so each call gets its own.
	names := collate.New(language.Und)
	sort.SliceStable(ranking, func(i, j int) bool {
		a, b := ranking[i], ranking[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.AveragePercentage != b.AveragePercentage {
			return a.AveragePercentage > b.AveragePercentage
		}
		if a.FailCount != b.FailCount {
			return a.FailCount < b.FailCount
		}
		if c := names.CompareString(a.Player.Name, b.Player.Name); c != 0 {
			return c < 0
		}
		return a.Player.ID < b.Player.ID
	})

	assignRanks(ranking)
	return ranking
}

func assignRanks(entries []RankingEntry) {
	for i := range entries {
		if i > 0 && sameMetrics(entries[i-1], entries[i]) {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}

// sameMetrics is exact equality on the ranked metrics. Names never make a tie.
func sameMetrics(a, b RankingEntry) bool {
	return a.TotalPoints == b.TotalPoints &&
		a.AveragePercentage == b.AveragePercentage &&
		a.FailCount == b.FailCount
}
