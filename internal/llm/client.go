package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrBackendUnavailable marks any failure of the generative backend.
// Callers degrade to their deterministic fallback instead of surfacing it.
var ErrBackendUnavailable = errors.New("generative backend unavailable")

// Client is the generative-inference backend used for language
// classification and suggestion synthesis.
type Client interface {
	// Complete sends a system message and user prompt, returning the
	// model's text answer. maxTokens bounds the output length; zero
	// means the provider default.
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string // "gemini" or "ollama"
	Model    string
	APIKey   string // gemini only; absence is fatal at startup
	Host     string // ollama only
}

// New builds the configured provider. A gemini provider without a
// credential is a startup error, not a degraded capability.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGemini(cfg.APIKey, cfg.Model)
	case "ollama":
		return NewOllama(cfg.Host, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q: must be gemini or ollama", cfg.Provider)
	}
}
