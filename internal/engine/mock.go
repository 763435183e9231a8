package engine

import (
	"context"
	"sync"
)

// MockGenerator is a scripted Generator for tests. Queued errors take
// precedence over queued responses at the same position.
type MockGenerator struct {
	mu        sync.Mutex
	Responses []string
	Errors    []error
	Calls     [][]ChatMessage
	index     int
}

// NewMockGenerator creates a generator that replies with responses in order.
func NewMockGenerator(responses ...string) *MockGenerator {
	return &MockGenerator{Responses: responses}
}

// Generate implements Generator
func (m *MockGenerator) Generate(ctx context.Context, msgs []ChatMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := make([]ChatMessage, len(msgs))
	copy(call, msgs)
	m.Calls = append(m.Calls, call)

	i := m.index
	m.index++
	if i < len(m.Errors) && m.Errors[i] != nil {
		return "", m.Errors[i]
	}
	if i < len(m.Responses) {
		return m.Responses[i], nil
	}
	return "Mock response", nil
}

// AddError queues err for the call at the current end of the script.
func (m *MockGenerator) AddError(err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.Errors) < len(m.Responses) {
		m.Errors = append(m.Errors, nil)
	}
	m.Errors = append(m.Errors, err)
	m.Responses = append(m.Responses, "")
	return m
}

// CallCount returns how many times Generate was invoked.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the messages of the most recent call.
func (m *MockGenerator) LastCall() []ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	return m.Calls[len(m.Calls)-1]
}
