// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides the generation collaborator: a single
// Generate(system, user) call backed by Claude or Gemini.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/account-research/internal/secrets"
	"github.com/pdiddy/account-research/pkg/types"
)

// ErrEmptyResponse is returned when a backend answers without any text.
var ErrEmptyResponse = errors.New("model returned no text")

// Generator produces text for a system instruction and a user message.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, system, user string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

const (
	defaultClaudeModel = "claude-3-5-sonnet-latest"
	defaultGeminiModel = "gemini-2.0-flash"
	defaultMaxTokens   = 4096
	defaultTimeout     = 120 * time.Second
)

// New builds the generator selected by cfg.Provider, wrapped with
// WithRetry using cfg.MaxRetries. A missing key for the selected provider
// is a configuration error.
func New(ctx context.Context, cfg types.AIConfig, creds secrets.Credentials, logger *zap.Logger) (Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var gen Generator
	switch cfg.Provider {
	case types.ProviderClaude, "":
		if creds.Anthropic == "" {
			return nil, fmt.Errorf("claude provider: %w", secrets.ErrMissingKey)
		}
		model := cfg.Model
		if model == "" {
			model = defaultClaudeModel
		}
		gen = &ClaudeBackend{
			APIKey:    creds.Anthropic,
			Model:     model,
			MaxTokens: maxTokens,
			Client:    &http.Client{Timeout: timeout},
		}
	case types.ProviderGemini:
		if creds.Gemini == "" {
			return nil, fmt.Errorf("gemini provider: %w", secrets.ErrMissingKey)
		}
		model := cfg.Model
		if model == "" {
			model = defaultGeminiModel
		}
		g, err := NewGeminiBackend(ctx, creds.Gemini, model, maxTokens, "")
		if err != nil {
			return nil, err
		}
		gen = g
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}

	logger.Debug("generator configured",
		zap.String("provider", string(cfg.Provider)),
		zap.Int("max_tokens", maxTokens),
		zap.Int("max_retries", cfg.MaxRetries))
	return WithRetry(gen, cfg.MaxRetries, logger), nil
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// WithRetry wraps g so that failed calls are retried up to maxRetries
// times with exponential backoff. Context errors are not retried.
func WithRetry(g Generator, maxRetries int, logger *zap.Logger) Generator {
	if maxRetries <= 0 {
		return g
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retrying{next: g, maxRetries: maxRetries, logger: logger}
}

type retrying struct {
	next       Generator
	maxRetries int
	logger     *zap.Logger
}

func (r *retrying) Generate(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			r.logger.Warn("retrying generation",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := r.next.Generate(ctx, system, user)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", r.maxRetries, lastErr)
}
