package lang

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"code-smarty/internal/llm"
	"code-smarty/internal/rules"
)

const detectSystem = "You are a programming language classifier."

const detectPrompt = `Identify the programming language of the following code.
Answer with exactly one word from this list: python, java, c, cpp, unknown.

Code:
%s`

// Detector resolves a code blob to a Language. The generative classifier
// is the primary path; any backend failure falls through to the marker
// rules, which are deterministic.
type Detector struct {
	client llm.Client
}

func NewDetector(client llm.Client) *Detector {
	return &Detector{client: client}
}

// Detect never returns an error: backend failure degrades to the rule
// fallback. An out-of-set classifier answer is normalized to Unknown and
// rejected upstream; the rule fallback by construction never yields
// Unknown.
func (d *Detector) Detect(ctx context.Context, code string) Language {
	if d.client != nil {
		sample := code
		if len(sample) > 4000 {
			sample = sample[:4000]
		}
		answer, err := d.client.Complete(ctx, detectSystem, fmt.Sprintf(detectPrompt, sample), 10)
		if err == nil {
			return Parse(answer)
		}
		log.Warn().Err(err).Msg("classifier backend failed, using marker rules")
	}
	return Parse(rules.DetectLanguage(code))
}
