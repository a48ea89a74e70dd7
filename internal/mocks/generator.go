package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/nudge/internal/generation"
)

// MockGenerator implements generation.Generator for testing
type MockGenerator struct {
	// GenerateShortMessageFn allows test cases to mock the GenerateShortMessage behavior
	GenerateShortMessageFn func(ctx context.Context, p generation.Prompt) (string, error)

	// Default response values
	Text string
	Err  error

	// Call tracking for verification
	GenerateShortMessageCalls struct {
		// mu protects the call tracking state for concurrent test cases
		mu sync.Mutex

		// Count tracks how many times GenerateShortMessage was called
		Count int

		// Prompts contains all prompts passed to GenerateShortMessage calls
		Prompts []generation.Prompt
	}
}

var _ generation.Generator = (*MockGenerator)(nil)

// GenerateShortMessage implements the generation.Generator interface
func (m *MockGenerator) GenerateShortMessage(ctx context.Context, p generation.Prompt) (string, error) {
	m.GenerateShortMessageCalls.mu.Lock()
	m.GenerateShortMessageCalls.Count++
	m.GenerateShortMessageCalls.Prompts = append(m.GenerateShortMessageCalls.Prompts, p)
	m.GenerateShortMessageCalls.mu.Unlock()

	if m.GenerateShortMessageFn != nil {
		return m.GenerateShortMessageFn(ctx, p)
	}

	return m.Text, m.Err
}

// CallCount returns how many times GenerateShortMessage was called.
func (m *MockGenerator) CallCount() int {
	m.GenerateShortMessageCalls.mu.Lock()
	defer m.GenerateShortMessageCalls.mu.Unlock()
	return m.GenerateShortMessageCalls.Count
}

// LastPrompt returns the prompt of the most recent call.
func (m *MockGenerator) LastPrompt() (generation.Prompt, bool) {
	m.GenerateShortMessageCalls.mu.Lock()
	defer m.GenerateShortMessageCalls.mu.Unlock()
	n := len(m.GenerateShortMessageCalls.Prompts)
	if n == 0 {
		return generation.Prompt{}, false
	}
	return m.GenerateShortMessageCalls.Prompts[n-1], true
}

// NewMockGeneratorWithText creates a MockGenerator that returns text
func NewMockGeneratorWithText(text string) *MockGenerator {
	return &MockGenerator{Text: text}
}

// MockGeneratorThatFails creates a MockGenerator that simulates a generation failure
func MockGeneratorThatFails() *MockGenerator {
	return &MockGenerator{Err: generation.ErrGenerationFailed}
}

// MockGeneratorWithContentBlocked creates a MockGenerator that simulates content being blocked
func MockGeneratorWithContentBlocked() *MockGenerator {
	return &MockGenerator{Err: generation.ErrContentBlocked}
}

// MockGeneratorThatHangs creates a MockGenerator that blocks until its
// context is done
func MockGeneratorThatHangs() *MockGenerator {
	return &MockGenerator{
		GenerateShortMessageFn: func(ctx context.Context, _ generation.Prompt) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
}

// Reset resets the call tracking state
func (m *MockGenerator) Reset() {
	m.GenerateShortMessageCalls.mu.Lock()
	defer m.GenerateShortMessageCalls.mu.Unlock()

	m.GenerateShortMessageCalls.Count = 0
	m.GenerateShortMessageCalls.Prompts = nil
}
