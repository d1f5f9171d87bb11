package temporal

import (
	"context"
	"sync"
)

// MockWatcher is a mock implementation of Watcher for testing.
type MockWatcher struct {
	mu       sync.Mutex
	started  map[string]int // signature -> start count
	startErr error
}

// NewMockWatcher creates a new MockWatcher.
func NewMockWatcher() *MockWatcher {
	return &MockWatcher{started: make(map[string]int)}
}

// StartWatch records that a watch was started.
func (m *MockWatcher) StartWatch(ctx context.Context, signature string) (string, error) {
	if m.startErr != nil {
		return "", m.startErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started[signature]++
	return WatchWorkflowID(signature), nil
}

// SetStartError makes StartWatch fail with err.
func (m *MockWatcher) SetStartError(err error) {
	m.startErr = err
}

// StartCount returns how many times a watch was started for signature.
func (m *MockWatcher) StartCount(signature string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started[signature]
}

var _ Watcher = (*MockWatcher)(nil)
