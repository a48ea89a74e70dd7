package gemini

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/nudge/internal/config"
	"github.com/phrazzld/nudge/internal/generation"
	"github.com/sethvargo/go-retry"
	"google.golang.org/genai"
)

//go:embed prompts.tmpl
var defaultPrompts string

const (
	systemTemplate    = "system"
	defaultRetryDelay = 500 * time.Millisecond
	temperature       = 0.7
)

// contentGenerator is the slice of the genai client used here. *genai.Models
// satisfies it.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator implements generation.Generator using the Gemini API.
type Generator struct {
	logger     *slog.Logger
	models     contentGenerator
	model      string
	maxRetries int
	retryDelay time.Duration
	prompts    *template.Template
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Gemini-backed generator from cfg. It fails with
// generation.ErrInvalidConfig when the API key or model is missing or the
// prompt template cannot be loaded.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	prompts, err := loadPrompts(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(client.Models, prompts, cfg, logger)
}

func newGenerator(
	models contentGenerator,
	prompts *template.Template,
	cfg config.LLMConfig,
	logger *slog.Logger,
) (*Generator, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Generator{
		logger:     logger.With(slog.String("component", "gemini_generator")),
		models:     models,
		model:      cfg.ModelName,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		prompts:    prompts,
	}, nil
}

// loadPrompts parses the template file at path, or the embedded default when
// path is empty. The set must define "system" and a template per PromptKind.
func loadPrompts(path string) (*template.Template, error) {
	source := defaultPrompts
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				generation.ErrInvalidConfig, path, err)
		}
		source = string(raw)
	}

	tmpl, err := template.New("prompts").Option("missingkey=error").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", generation.ErrInvalidConfig, err)
	}

	for _, name := range []string{
		systemTemplate,
		string(generation.PromptTaskReminder),
		string(generation.PromptMorning),
	} {
		if tmpl.Lookup(name) == nil {
			return nil, fmt.Errorf("%w: prompt template %q is not defined", generation.ErrInvalidConfig, name)
		}
	}
	return tmpl, nil
}

func (g *Generator) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := g.prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// GenerateShortMessage implements generation.Generator.
func (g *Generator) GenerateShortMessage(ctx context.Context, p generation.Prompt) (string, error) {
	if g.prompts.Lookup(string(p.Kind)) == nil {
		return "", fmt.Errorf("%w: unknown prompt kind %q", generation.ErrGenerationFailed, p.Kind)
	}

	prompt, err := g.render(string(p.Kind), p)
	if err != nil {
		return "", fmt.Errorf("%w: failed to execute prompt template: %v", generation.ErrGenerationFailed, err)
	}
	system, err := g.render(systemTemplate, p)
	if err != nil {
		return "", fmt.Errorf("%w: failed to execute system template: %v", generation.ErrGenerationFailed, err)
	}

	g.logger.DebugContext(ctx, "generating message",
		"prompt_kind", string(p.Kind),
		"prompt_length", len(prompt))

	return g.callWithRetry(ctx, system, prompt)
}

// callWithRetry calls the model, retrying transport failures with
// exponential backoff. Blocked or empty answers are not retried.
func (g *Generator) callWithRetry(ctx context.Context, system, prompt string) (string, error) {
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}
	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       genai.Ptr[float32](temperature),
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	backoff := retry.WithMaxRetries(uint64(g.maxRetries), retry.NewExponential(g.retryDelay))

	var (
		text    string
		attempt int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		resp, err := g.models.GenerateContent(ctx, g.model, contents, genConfig)
		if err != nil {
			g.logger.WarnContext(ctx, "Gemini API call failed",
				"attempt", attempt,
				"error", err)
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
			}
			return retry.RetryableError(fmt.Errorf("%w: %v", generation.ErrTransientFailure, err))
		}

		text, err = extractText(resp)
		return err
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
		return "", err
	}

	g.logger.DebugContext(ctx, "Gemini API call successful", "attempt", attempt)
	return text, nil
}

// extractText returns the trimmed text of the first candidate.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", generation.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", generation.ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content", generation.ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty text", generation.ErrInvalidResponse)
	}
	return text, nil
}
