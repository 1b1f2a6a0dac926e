package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	previews            int
	commits             int
	resultsSaved        int
	playersAutoAssigned int
	boundaryTies        int
	evaluationDurations []float64
	slackNotifSent      int
	slackNotifFailed    int
	startupTime         float64
}

var _ Metrics = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		evaluationDurations: make([]float64, 0),
	}
}

func (m *Mock) IncPreviews() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.previews++
}

func (m *Mock) IncCommits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
}

func (m *Mock) AddResultsSaved(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resultsSaved += n
}

func (m *Mock) AddPlayersAutoAssigned(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playersAutoAssigned += n
}

func (m *Mock) AddBoundaryTies(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boundaryTies += n
}

func (m *Mock) ObserveEvaluationDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluationDurations = append(m.evaluationDurations, duration)
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// Previews returns the number of times IncPreviews was called.
func (m *Mock) Previews() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.previews
}

// Commits returns the number of times IncCommits was called.
func (m *Mock) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

// ResultsSaved returns the sum passed to AddResultsSaved.
func (m *Mock) ResultsSaved() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resultsSaved
}

// PlayersAutoAssigned returns the sum passed to AddPlayersAutoAssigned.
func (m *Mock) PlayersAutoAssigned() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playersAutoAssigned
}

// BoundaryTies returns the sum passed to AddBoundaryTies.
func (m *Mock) BoundaryTies() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.boundaryTies
}

// EvaluationDurations returns every observed evaluation duration.
func (m *Mock) EvaluationDurations() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.evaluationDurations...)
}

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}
