package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/nudge/internal/domain"
	"github.com/phrazzld/nudge/internal/generation"
)

// DefaultGenerationTimeout bounds a single generator call.
const DefaultGenerationTimeout = 5 * time.Second

// Notification titles.
const (
	reminderTitlePrefix = "⏰ Time for: "
	overdueTitlePrefix  = "❗ Overdue: "
	morningTitle        = "🌅 Good morning! Ready for today?"
	eveningTitle        = "🌙 Today's summary"
)

// Message is the title and body of a notification about to be sent.
type Message struct {
	Title string
	Body  string
}

// Composer writes notification text. Reminder and morning bodies come from a
// generation.Generator when one is configured; every other body, and every
// body whose generation fails, is static.
type Composer struct {
	generator generation.Generator
	timeout   time.Duration
	logger    *slog.Logger
}

// NewComposer creates a Composer. gen may be nil, in which case only the
// static texts are used. A non-positive timeout means
// DefaultGenerationTimeout.
func NewComposer(gen generation.Generator, timeout time.Duration, logger *slog.Logger) *Composer {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		generator: gen,
		timeout:   timeout,
		logger:    logger.With(slog.String("component", "composer")),
	}
}

// ReminderMessage composes the due reminder for task.
func (c *Composer) ReminderMessage(ctx context.Context, task *domain.Task) Message {
	body := c.generate(ctx, generation.Prompt{
		Kind:      generation.PromptTaskReminder,
		TaskTitle: task.Title,
	}, fmt.Sprintf("Let's complete %q, you've got this! 💪", task.Title))

	return Message{Title: reminderTitlePrefix + task.Title, Body: body}
}

// OverdueMessage composes the overdue alert for task.
func (c *Composer) OverdueMessage(task *domain.Task) Message {
	return Message{
		Title: overdueTitlePrefix + task.Title,
		Body:  fmt.Sprintf("%q is still pending! Finish it today instead of leaving it for tomorrow. 🔥", task.Title),
	}
}

// MorningMessage composes the morning digest for a user with pending tasks
// planned today. The generator is only consulted when there is something
// pending.
func (c *Composer) MorningMessage(ctx context.Context, pending int) Message {
	greeting := "Good morning! 🌅 Today is a fresh start. Set your goals and make it count! 💪"
	if pending == 0 {
		return Message{Title: morningTitle, Body: greeting}
	}

	body := c.generate(ctx, generation.Prompt{
		Kind:    generation.PromptMorning,
		Pending: pending,
	}, fmt.Sprintf("Good morning! 🌅 You have %s planned today. Let's get started!", plural(pending, "task")))

	return Message{Title: morningTitle, Body: body}
}

// EveningMessage composes the evening summary from today's counts.
func (c *Composer) EveningMessage(completed, pending int) Message {
	var body string
	switch {
	case completed == 0 && pending == 0:
		body = "No tasks today. Get your planner ready for tomorrow! 📋"
	case pending == 0:
		body = fmt.Sprintf("Wow! 🎉 You completed all %s today. You're a champion! 🏆", plural(completed, "task"))
	default:
		body = fmt.Sprintf("You completed %s, but %d still pending. Make sure to finish them tomorrow! 💪",
			plural(completed, "task"), pending)
	}
	return Message{Title: eveningTitle, Body: body}
}

// generate asks the generator for text, bounded by the composer timeout, and
// returns fallback when there is no generator or the call fails.
func (c *Composer) generate(ctx context.Context, p generation.Prompt, fallback string) string {
	if c.generator == nil {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.generator.GenerateShortMessage(ctx, p)
	if err != nil {
		c.logger.WarnContext(ctx, "message generation failed, using fallback",
			slog.String("prompt_kind", string(p.Kind)),
			slog.String("error", err.Error()))
		return fallback
	}

	text = strings.TrimSpace(text)
	if text == "" {
		c.logger.WarnContext(ctx, "message generation returned empty text, using fallback",
			slog.String("prompt_kind", string(p.Kind)))
		return fallback
	}
	return text
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
