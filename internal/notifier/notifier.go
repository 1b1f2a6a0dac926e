package notifier

// Notifier defines a high-level interface for sending notifications about business events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// SendRunCommitted announces a committed progression run and returns the
	// provider's message id.
	SendRunCommitted(summary RunSummary) (string, error)
}

// RunSummary is what operators see after a commit.
type RunSummary struct {
	RunID               string
	PhaseID             int64
	MatchID             *int64
	StepName            *string
	Saved               int
	AutoAssignedPlayers int
	Decisions           []Decision
	UnresolvedTies      int
}

// Decision is one line of a RunSummary.
type Decision struct {
	PlayerName     string
	Action         string
	Rank           int
	TargetPhaseID  *int64
	TargetMatchID  *int64
	TiedAtBoundary bool
}
