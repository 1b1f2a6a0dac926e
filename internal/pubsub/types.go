package pubsub

import (
	"time"

	"cloud.google.com/go/pubsub"
)

type client struct {
	client   *pubsub.Client
	teardown func()
}

// noopClient is used when no GCP project is configured.
type noopClient struct{}

// EventType represents the type of event/message sent via pubsub. It doubles
// as the topic name.
type EventType string

const (
	EventProgressionCommitted EventType = "progression-committed"
)

// RunCommittedEvent announces one committed progression run to downstream
// consumers (bracket displays, stream overlays).
type RunCommittedEvent struct {
	RunID               string        `msgpack:"run_id"`
	PhaseID             int64         `msgpack:"phase_id"`
	MatchID             *int64        `msgpack:"match_id"`
	StepIndex           *int          `msgpack:"step_index"`
	Saved               int           `msgpack:"saved"`
	AutoAssignedPlayers int           `msgpack:"auto_assigned_players"`
	Decisions           []RunDecision `msgpack:"decisions"`
	CommittedAt         time.Time     `msgpack:"committed_at"`
}

// RunDecision is the per-player part of a RunCommittedEvent.
type RunDecision struct {
	PlayerID      int64  `msgpack:"player_id"`
	Action        string `msgpack:"action"`
	TargetPhaseID *int64 `msgpack:"target_phase_id"`
	TargetMatchID *int64 `msgpack:"target_match_id"`
	Rank          int    `msgpack:"rank"`
}
