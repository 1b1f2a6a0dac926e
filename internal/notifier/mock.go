package notifier

import (
	"sync"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies for method calls
	SendRunCommittedFunc func(summary RunSummary) (string, error)

	// Call records
	SendRunCommittedCalls []RunSummary
}

var _ Notifier = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendRunCommittedCalls = nil
}

func (m *Mock) SendRunCommitted(summary RunSummary) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendRunCommittedCalls = append(m.SendRunCommittedCalls, summary)
	if m.SendRunCommittedFunc != nil {
		return m.SendRunCommittedFunc(summary)
	}
	return "", nil
}
