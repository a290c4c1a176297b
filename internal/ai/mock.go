package ai

import (
	"context"
	"strings"
	"sync"
)

// MockClient is a deterministic Client implementation for tests. Responses
// are chosen by substring match on the input text, so the same message
// always classifies the same way.
type MockClient struct {
	err       error
	responses map[string]Suggestion
	fallback  Suggestion
	delay     func(ctx context.Context) error
	calls     int
	mu        sync.Mutex
}

// NewMockClient creates a mock that returns fallback for unmatched text.
func NewMockClient(fallback Suggestion) *MockClient {
	return &MockClient{
		responses: make(map[string]Suggestion),
		fallback:  fallback,
	}
}

// WithResponse registers a suggestion returned when the classified text
// contains the given substring.
func (m *MockClient) WithResponse(substring string, s Suggestion) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[strings.ToLower(substring)] = s
	return m
}

// WithError makes every Classify call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithBlocking makes Classify block until the context is done, simulating a
// hung provider.
func (m *MockClient) WithBlocking() *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	return m
}

// Classify implements the Client interface.
func (m *MockClient) Classify(ctx context.Context, text string, _ []string) (Suggestion, error) {
	m.mu.Lock()
	m.calls++
	err := m.err
	delay := m.delay
	m.mu.Unlock()

	if delay != nil {
		if delayErr := delay(ctx); delayErr != nil {
			return Suggestion{}, delayErr
		}
	}
	if err != nil {
		return Suggestion{}, err
	}

	lower := strings.ToLower(text)
	m.mu.Lock()
	defer m.mu.Unlock()
	for substring, s := range m.responses {
		if strings.Contains(lower, substring) {
			return s, nil
		}
	}
	return m.fallback, nil
}

// Calls returns how many times Classify was invoked.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
