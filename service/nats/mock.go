package nats

import (
	"context"
	"sync"

	"github.com/brojonat/solgate/service/gateway"
)

// MockPublisher records events in memory for tests.
type MockPublisher struct {
	mu           sync.RWMutex
	intents      []*TransferIntentEvent
	statuses     []*TransactionStatusEvent
	publishError error
	closed       bool
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishTransferIntent records the intent event or returns the configured error.
func (m *MockPublisher) PublishTransferIntent(ctx context.Context, intent *gateway.TransferIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishError != nil {
		return m.publishError
	}
	m.intents = append(m.intents, FromTransferIntent(intent))
	return nil
}

// PublishTransactionStatus records the status event or returns the configured error.
func (m *MockPublisher) PublishTransactionStatus(ctx context.Context, event *TransactionStatusEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishError != nil {
		return m.publishError
	}
	m.statuses = append(m.statuses, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IntentEvents returns a copy of the published intent events.
func (m *MockPublisher) IntentEvents() []*TransferIntentEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*TransferIntentEvent, len(m.intents))
	copy(out, m.intents)
	return out
}

// StatusEvents returns a copy of the published status events.
func (m *MockPublisher) StatusEvents() []*TransactionStatusEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*TransactionStatusEvent, len(m.statuses))
	copy(out, m.statuses)
	return out
}

// SetPublishError makes every publish fail with err.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed reports whether Close was called.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

var _ Publisher = (*MockPublisher)(nil)
var _ Publisher = (*JetStreamPublisher)(nil)
