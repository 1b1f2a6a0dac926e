package tournament

import (
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by the store when a row looked up by id does not exist.
var ErrNotFound = errors.New("not found")

// store handles all database operations for the tournament.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Player is a registered competitor.
type Player struct {
	ID   int64  `json:"id"`
	Name string `json:"playerName"`
}

// Score is the raw result a player achieved on a song in one round.
type Score struct {
	Percentage float64 `json:"percentage"`
	IsFailed   bool    `json:"isFailed"`
}

// Standing is a player's placement in one round. Player is nil when the
// standing was recorded without a linked player.
type Standing struct {
	Player *Player `json:"player,omitempty"`
	Points int     `json:"points"`
	Score  Score   `json:"score"`
}

// SetupAssignment links a round to the cabinet/setup it is played on.
type SetupAssignment struct {
	SetupID  int64  `json:"setupId"`
	PlayerID *int64 `json:"playerId,omitempty"`
}

// Round is one song played within a match.
type Round struct {
	ID          int64             `json:"id"`
	Standings   []Standing        `json:"standings"`
	Assignments []SetupAssignment `json:"matchAssignments"`
}

// Match is a group of players competing over a number of rounds.
type Match struct {
	ID      int64    `json:"id"`
	PhaseID int64    `json:"phaseId"`
	Name    string   `json:"name"`
	Players []Player `json:"players"`
	Rounds  []Round  `json:"rounds"`
}

// HasPlayer reports whether the player is already on the match roster.
func (m *Match) HasPlayer(playerID int64) bool {
	for _, p := range m.Players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// Phase is a named stage of a division, e.g. "Round 1" or "Finals".
type Phase struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	RulesetID *int64  `json:"rulesetId,omitempty"`
	MatchIDs  []int64 `json:"matchIds"`
}

// HasMatch reports whether the match belongs to the phase.
func (p *Phase) HasMatch(matchID int64) bool {
	for _, id := range p.MatchIDs {
		if id == matchID {
			return true
		}
	}
	return false
}

// Ruleset is a reusable progression configuration that phases point at.
// Config is kept as raw JSON and interpreted by the progression engine.
type Ruleset struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	IsActive    bool            `json:"isActive"`
	Config      json.RawMessage `json:"config"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// RulesetUpdate carries the fields of a partial ruleset update. Nil fields are left untouched.
type RulesetUpdate struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	IsActive    *bool           `json:"isActive,omitempty"`
}

// ProgressionAction is the decision taken for one player by a progression run.
type ProgressionAction string

const (
	ActionAdvance           ProgressionAction = "ADVANCE"
	ActionSendToLosers      ProgressionAction = "SEND_TO_LOSERS"
	ActionEliminate         ProgressionAction = "ELIMINATE"
	ActionHoldForTiebreaker ProgressionAction = "HOLD_FOR_TIEBREAKER"
)

// ProgressionResult is one persisted decision of a committed run. Rows are
// append-only; a new commit produces a new run rather than updating old rows.
type ProgressionResult struct {
	ID              int64             `json:"id" msgpack:"id"`
	RunID           string            `json:"runId" msgpack:"run_id"`
	PhaseID         int64             `json:"phaseId" msgpack:"phase_id"`
	PlayerID        int64             `json:"playerId" msgpack:"player_id"`
	PlayerName      string            `json:"playerName" msgpack:"player_name"`
	Action          ProgressionAction `json:"action" msgpack:"action"`
	TargetPhaseID   *int64            `json:"targetPhaseId,omitempty" msgpack:"target_phase_id"`
	TargetMatchID   *int64            `json:"targetMatchId,omitempty" msgpack:"target_match_id"`
	RankingPosition int               `json:"rankingPosition" msgpack:"ranking_position"`
	TiedAtBoundary  bool              `json:"tiedAtBoundary" msgpack:"tied_at_boundary"`
	Reason          string            `json:"reason" msgpack:"reason"`
	CreatedAt       time.Time         `json:"createdAt" msgpack:"created_at"`
}
