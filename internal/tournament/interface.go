package tournament

import "context"

// TournamentStore defines the interface for interacting with the tournament's data.
type TournamentStore interface {
	CreatePlayer(ctx context.Context, name string) (*Player, error)
	GetPlayer(ctx context.Context, id int64) (*Player, error)

	CreateSetup(ctx context.Context, name string) (int64, error)

	CreatePhase(ctx context.Context, name string, rulesetID *int64) (*Phase, error)
	GetPhase(ctx context.Context, id int64) (*Phase, error)
	SetPhaseRuleset(ctx context.Context, phaseID int64, rulesetID *int64) error

	CreateMatch(ctx context.Context, phaseID int64, name string, playerIDs []int64) (*Match, error)
	GetMatch(ctx context.Context, id int64) (*Match, error)
	SaveMatch(ctx context.Context, match *Match) error
	PhaseMatches(ctx context.Context, phaseID int64) ([]Match, error)
	AddRound(ctx context.Context, matchID int64, standings []Standing, setupIDs []int64) (*Round, error)

	CreateRuleset(ctx context.Context, ruleset *Ruleset) (*Ruleset, error)
	ListRulesets(ctx context.Context) ([]Ruleset, error)
	GetRuleset(ctx context.Context, id int64) (*Ruleset, error)
	UpdateRuleset(ctx context.Context, id int64, update RulesetUpdate) (*Ruleset, error)
	DeleteRuleset(ctx context.Context, id int64) error

	SaveMany(ctx context.Context, results []ProgressionResult) error
	ResultsByRun(ctx context.Context, runID string) ([]ProgressionResult, error)
}
