package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/phasekeeper/internal/config"
	"github.com/mauv0809/phasekeeper/internal/database"
	"github.com/mauv0809/phasekeeper/internal/tournament"
)

const (
	numPools       = 4
	playersPerPool = 6
	roundsPerPool  = 3
	setupsPerMatch = 4
)

func main() {
	log.Info("Starting database seeder...")
	cfg := config.Load()

	db, teardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer teardown()

	store := tournament.New(db)
	ctx := context.Background()
	startTime := time.Now()

	// Tag names so repeated seeds can be told apart.
	tag := uuid.NewString()[:8]
	rng := rand.New(rand.NewSource(startTime.UnixNano()))

	setups := make([]int64, 0, setupsPerMatch)
	for i := 1; i <= setupsPerMatch; i++ {
		id, err := store.CreateSetup(ctx, fmt.Sprintf("Cab %d", i))
		if err != nil {
			log.Fatalf("Failed to create setup: %s", err)
		}
		setups = append(setups, id)
	}

	finals, err := store.CreatePhase(ctx, "Finals "+tag, nil)
	if err != nil {
		log.Fatalf("Failed to create finals phase: %s", err)
	}
	winners, err := store.CreateMatch(ctx, finals.ID, "Winners bracket", nil)
	if err != nil {
		log.Fatalf("Failed to create winners match: %s", err)
	}
	losers, err := store.CreateMatch(ctx, finals.ID, "Losers bracket", nil)
	if err != nil {
		log.Fatalf("Failed to create losers match: %s", err)
	}
	// Finals matches start without rounds; give them setups so placement has a capacity.
	for _, matchID := range []int64{winners.ID, losers.ID} {
		if _, err := store.AddRound(ctx, matchID, nil, setups); err != nil {
			log.Fatalf("Failed to add setups to match %d: %s", matchID, err)
		}
	}

	rulesConfig := fmt.Sprintf(`{
		"tiePolicy": "MANUAL_EXTRA_SONG",
		"rules": [
			{"type": "ADVANCE_TOP_N", "count": 1, "targetPhaseId": %[1]d, "targetMatchId": %[2]d},
			{"type": "SEND_RANK_RANGE_TO_PHASE", "fromRank": 2, "toRank": 3, "targetPhaseId": %[1]d, "targetMatchId": %[3]d, "lane": "LOSERS"},
			{"type": "ELIMINATE_BOTTOM_PERCENT", "percent": 50, "rounding": "UP"}
		]
	}`, finals.ID, winners.ID, losers.ID)
	ruleset, err := store.CreateRuleset(ctx, &tournament.Ruleset{
		Name:        "Pools to finals " + tag,
		Description: "Pool winner to the winners bracket, 2nd and 3rd to the losers bracket.",
		IsActive:    true,
		Config:      json.RawMessage(rulesConfig),
	})
	if err != nil {
		log.Fatalf("Failed to create ruleset: %s", err)
	}

	pools, err := store.CreatePhase(ctx, "Pools "+tag, &ruleset.ID)
	if err != nil {
		log.Fatalf("Failed to create pools phase: %s", err)
	}

	for pool := 0; pool < numPools; pool++ {
		players := make([]*tournament.Player, 0, playersPerPool)
		ids := make([]int64, 0, playersPerPool)
		for i := 0; i < playersPerPool; i++ {
			p, err := store.CreatePlayer(ctx, fmt.Sprintf("Player %c%d", 'A'+pool, i+1))
			if err != nil {
				log.Fatalf("Failed to create player: %s", err)
			}
			players = append(players, p)
			ids = append(ids, p.ID)
		}

		match, err := store.CreateMatch(ctx, pools.ID, fmt.Sprintf("Pool %c", 'A'+pool), ids)
		if err != nil {
			log.Fatalf("Failed to create pool match: %s", err)
		}
		for round := 0; round < roundsPerPool; round++ {
			if _, err := store.AddRound(ctx, match.ID, playRound(rng, players), setups); err != nil {
				log.Fatalf("Failed to add round: %s", err)
			}
		}
		log.Info("Seeded pool", "match", match.ID, "players", len(players), "rounds", roundsPerPool)
	}

	log.Info("Successfully seeded tournament.",
		"pools_phase", pools.ID,
		"finals_phase", finals.ID,
		"ruleset", ruleset.ID,
		"duration", time.Since(startTime),
	)
}

// playRound scores every player on one song. Points follow finishing order
// so better percentages earn more.
func playRound(rng *rand.Rand, players []*tournament.Player) []tournament.Standing {
	standings := make([]tournament.Standing, len(players))
	for i, p := range players {
		pct := 60 + rng.Float64()*40
		standings[i] = tournament.Standing{
			Player: p,
			Score: tournament.Score{
				Percentage: float64(int(pct*100)) / 100,
				IsFailed:   pct < 65,
			},
		}
	}
	order := make([]int, len(standings))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return standings[order[a]].Score.Percentage > standings[order[b]].Score.Percentage
	})
	for place, idx := range order {
		standings[idx].Points = len(players) - place
	}
	return standings
}
