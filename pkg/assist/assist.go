package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rhuss/judgeide/pkg/debug"
	"github.com/rhuss/judgeide/pkg/observability"
)

// Provider generates text for a prompt.
type Provider interface {
	// Name returns the provider identifier used in metrics and logs.
	Name() string

	// Generate returns the model's answer to prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	// Provider is "gemini" (default) or "openai".
	Provider string

	// BaseURL overrides the provider's public endpoint.
	BaseURL string

	APIKey string

	// Model defaults to gemini-1.5-flash or gpt-4o-mini.
	Model string

	// Timeout bounds a single generation. Defaults to 60s.
	Timeout time.Duration
}

// ErrNoAPIKey is returned by NewProvider when no credential is configured.
var ErrNoAPIKey = errors.New("assist: API key is required")

// NewProvider creates the provider named by cfg.Provider.
func NewProvider(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		return NewGemini(GeminiConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	case "openai":
		return NewOpenAI(OpenAIConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("assist: unknown provider %q", cfg.Provider)
	}
}

// Service answers chat questions and completion requests with a Provider.
type Service struct {
	provider Provider
}

// NewService creates a Service backed by p.
func NewService(p Provider) *Service {
	return &Service{provider: p}
}

// Provider returns the backing provider.
func (s *Service) Provider() Provider {
	return s.provider
}

// Chat answers a question about the editor state in c.
func (s *Service) Chat(ctx context.Context, c ChatContext, question string) (string, error) {
	prompt := BuildChatPrompt(c, question)
	debug.Log("assist", "chat request", "language", c.Language, "selected", c.SelectedText != "", "prompt_len", len(prompt))
	debug.Trace("assist", "chat prompt", "prompt", prompt)
	return s.generate(ctx, "chat", prompt)
}

// Complete forwards prompt to the model unchanged.
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	debug.Log("assist", "completion request", "prompt", debug.Truncate(prompt, 80))
	return s.generate(ctx, "autocomplete", prompt)
}

func (s *Service) generate(ctx context.Context, endpoint, prompt string) (string, error) {
	name := s.provider.Name()
	start := time.Now()
	text, err := s.provider.Generate(ctx, prompt)
	observability.AssistLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())

	status := "ok"
	if err != nil {
		status = "error"
		slog.Error("assistant request failed", "provider", name, "endpoint", endpoint, "error", err)
	}
	observability.AssistRequestsTotal.WithLabelValues(name, endpoint, status).Inc()
	return text, err
}
