package progression

import (
	"errors"
	"sync"
	"time"

	"github.com/mauv0809/phasekeeper/internal/metrics"
	"github.com/mauv0809/phasekeeper/internal/pubsub"
	"github.com/mauv0809/phasekeeper/internal/tournament"
)

var (
	// ErrNotFound marks a missing phase, match, ruleset step, source match or player.
	ErrNotFound = tournament.ErrNotFound
	// ErrInvalidConfig marks a request that cannot be evaluated as configured.
	// It is raised before any rule runs.
	ErrInvalidConfig = errors.New("invalid progression config")
)

// TiePolicy tells operators how unresolved boundary ties are meant to be broken.
type TiePolicy string

const (
	TiePolicyManualExtraSong TiePolicy = "MANUAL_EXTRA_SONG"
	TiePolicyManualAdmin     TiePolicy = "MANUAL_ADMIN"
)

// RankingEntry is one player's aggregated performance within a match or phase.
type RankingEntry struct {
	Player            tournament.Player `json:"player"`
	TotalPoints       int               `json:"totalPoints"`
	AveragePercentage float64           `json:"averagePercentage"`
	FailCount         int               `json:"failCount"`
	Rank              int               `json:"rank"`
}

// PlannedAction is the decision the rules produced for one player.
type PlannedAction struct {
	Player         tournament.Player            `json:"player"`
	Action         tournament.ProgressionAction `json:"action"`
	TargetPhaseID  *int64                       `json:"targetPhaseId,omitempty"`
	TargetMatchID  *int64                       `json:"targetMatchId,omitempty"`
	Rank           int                          `json:"rank"`
	TiedAtBoundary bool                         `json:"tiedAtBoundary"`
	Reason         string                       `json:"reason"`
}

// UnresolvedTie groups the players caught in one boundary tie.
type UnresolvedTie struct {
	PlayerIDs []int64 `json:"playerIds"`
	Reason    string  `json:"reason"`
}

// PreviewResponse is the full outcome of evaluating a ruleset without side effects.
type PreviewResponse struct {
	PhaseID        int64           `json:"phaseId"`
	MatchID        *int64          `json:"matchId,omitempty"`
	StepIndex      *int            `json:"stepIndex,omitempty"`
	StepName       *string         `json:"stepName,omitempty"`
	RulesetID      int64           `json:"rulesetId"`
	TiePolicy      TiePolicy       `json:"tiePolicy"`
	Ranking        []RankingEntry  `json:"ranking"`
	Actions        []PlannedAction `json:"actions"`
	UnresolvedTies []UnresolvedTie `json:"unresolvedTies"`
}

// CommitResponse reports what a commit persisted and placed.
type CommitResponse struct {
	RunID               string           `json:"runId"`
	Saved               int              `json:"saved"`
	AutoAssignedPlayers int              `json:"autoAssignedPlayers"`
	Preview             *PreviewResponse `json:"preview"`
}

// Service previews and commits phase progression.
type Service struct {
	store    Store
	notifier Notifier
	metrics  metrics.Metrics
	pubsub   pubsub.PubSubClient
	now      func() time.Time

	runMu      sync.Mutex
	lastRunRef int64
}
