package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	ollama "github.com/JexSrs/go-ollama"
	"github.com/rs/zerolog/log"
)

const (
	ollamaDefaultHost  = "http://localhost:11434"
	ollamaDefaultModel = "codellama"
)

// Ollama talks to a local Ollama server. Used for development without a
// Gemini credential; selected by config.
type Ollama struct {
	client *ollama.Ollama
	model  string
}

func NewOllama(host, model string) (*Ollama, error) {
	if host == "" {
		host = ollamaDefaultHost
	}
	if model == "" {
		model = ollamaDefaultModel
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	log.Info().Str("host", host).Str("model", model).Msg("ollama provider configured")
	return &Ollama{client: ollama.New(*u), model: model}, nil
}

func (o *Ollama) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	type generation struct {
		text string
		err  error
	}

	// The client library blocks without taking a context; run it aside so
	// cancellation abandons the call instead of hanging the pipeline.
	ch := make(chan generation, 1)
	go func() {
		res, err := o.client.Generate(
			o.client.Generate.WithModel(o.model),
			o.client.Generate.WithSystem(system),
			o.client.Generate.WithPrompt(prompt),
		)
		if err != nil {
			ch <- generation{err: fmt.Errorf("%w: %v", ErrBackendUnavailable, err)}
			return
		}
		if !res.Done || res.Response == "" {
			ch <- generation{err: fmt.Errorf("%w: incomplete ollama response", ErrBackendUnavailable)}
			return
		}
		ch <- generation{text: res.Response}
	}()

	var text string
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, ctx.Err())
	case gen := <-ch:
		if gen.err != nil {
			return "", gen.err
		}
		text = gen.text
	}

	// Models occasionally wrap the answer in code fences.
	return enforceTokenBudget(strings.TrimSpace(strings.Trim(text, "`")), maxTokens), nil
}

// enforceTokenBudget caps the answer length. The client library exposes
// no per-request prediction limit, so the budget is applied to the
// received text; 4 bytes/token is the usual estimate.
func enforceTokenBudget(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	if budget := maxTokens * 4; len(text) > budget {
		return text[:budget]
	}
	return text
}
