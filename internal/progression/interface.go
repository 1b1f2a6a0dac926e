package progression

import (
	"context"

	"github.com/mauv0809/phasekeeper/internal/notifier"
	"github.com/mauv0809/phasekeeper/internal/tournament"
)

// RankingSource loads the match data rankings are built from.
type RankingSource interface {
	PhaseMatches(ctx context.Context, phaseID int64) ([]tournament.Match, error)
	GetMatch(ctx context.Context, id int64) (*tournament.Match, error)
}

// RulesetStore resolves the ruleset a phase points at.
type RulesetStore interface {
	GetRuleset(ctx context.Context, id int64) (*tournament.Ruleset, error)
}

// ProgressionResultStore appends committed decisions and reads runs back.
type ProgressionResultStore interface {
	SaveMany(ctx context.Context, results []tournament.ProgressionResult) error
	ResultsByRun(ctx context.Context, runID string) ([]tournament.ProgressionResult, error)
}

// MatchStore reads and updates match rosters.
type MatchStore interface {
	GetMatch(ctx context.Context, id int64) (*tournament.Match, error)
	SaveMatch(ctx context.Context, match *tournament.Match) error
}

// PlayerStore resolves players for placement.
type PlayerStore interface {
	GetPlayer(ctx context.Context, id int64) (*tournament.Player, error)
}

// PhaseStore resolves phases and their matches.
type PhaseStore interface {
	GetPhase(ctx context.Context, id int64) (*tournament.Phase, error)
}

// Store defines the database operations required by the progression service.
type Store interface {
	RankingSource
	RulesetStore
	ProgressionResultStore
	MatchStore
	PlayerStore
	PhaseStore
}

// Notifier defines the announcement operations required by the progression service.
type Notifier interface {
	notifier.Notifier
}
