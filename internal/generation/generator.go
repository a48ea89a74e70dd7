package generation

import "context"

// PromptKind selects which message a Generator is asked for.
type PromptKind string

const (
	// PromptTaskReminder asks for an encouraging line about a task that is due now.
	PromptTaskReminder PromptKind = "task_reminder"

	// PromptMorning asks for a morning greeting mentioning today's pending tasks.
	PromptMorning PromptKind = "morning"
)

// Prompt carries the facts a message is generated from. Fields irrelevant to
// Kind are ignored.
type Prompt struct {
	Kind      PromptKind
	TaskTitle string
	Pending   int
}

// Generator produces short notification text.
type Generator interface {
	// GenerateShortMessage returns a single short message for p. Callers
	// bound the call with ctx and must be prepared to use their own text on
	// error.
	GenerateShortMessage(ctx context.Context, p Prompt) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, p Prompt) (string, error)

// GenerateShortMessage calls f.
func (f GeneratorFunc) GenerateShortMessage(ctx context.Context, p Prompt) (string, error) {
	return f(ctx, p)
}
