package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"code-smarty/internal/analysis"
	"code-smarty/internal/lang"
	"code-smarty/internal/llm"
	"code-smarty/internal/rules"
	"code-smarty/internal/sandbox"
)

// Provenance distinguishes a generative answer from the deterministic
// template assembled when the backend fails.
type Provenance string

const (
	ProvenanceGenerated Provenance = "generated"
	ProvenanceFallback  Provenance = "fallback-template"
)

// Report is the synthesized remediation report.
type Report struct {
	Text       string     `json:"text"`
	Provenance Provenance `json:"provenance"`
}

const maxSuggestionTokens = 1024

const synthSystem = "You are a code reviewer. Produce a concise remediation report " +
	"with exactly these four sections: Conceptual Issues, Complexity Analysis, " +
	"Suggested Improvements, Best-Practice Evaluation. Be specific to the code " +
	"and findings provided. Plain text, no markdown fences."

// Synthesizer builds remediation reports from collected findings and
// runtime output.
type Synthesizer struct {
	client llm.Client
}

func NewSynthesizer(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// Synthesize requests a report from the generative backend. Any backend
// failure degrades to the deterministic template; this method never
// returns an error.
func (s *Synthesizer) Synthesize(ctx context.Context, code string, findings *analysis.FindingSet, outcome sandbox.ExecutionOutcome, language lang.Language) Report {
	if s.client != nil {
		text, err := s.client.Complete(ctx, synthSystem, buildPrompt(code, findings, outcome, language), maxSuggestionTokens)
		if err == nil && strings.TrimSpace(text) != "" {
			return Report{Text: strings.TrimSpace(text), Provenance: ProvenanceGenerated}
		}
		log.Warn().Err(err).Str("language", language.String()).Msg("generative synthesis failed, using fallback template")
	}
	return Report{Text: FallbackReport(findings, outcome), Provenance: ProvenanceFallback}
}

func buildPrompt(code string, findings *analysis.FindingSet, outcome sandbox.ExecutionOutcome, language lang.Language) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Language: %s\n\n", language)
	fmt.Fprintf(&b, "Code:\n%s\n\n", code)

	b.WriteString("Static findings:\n")
	for _, f := range findings.Entries() {
		fmt.Fprintf(&b, "- %s: %s\n", f.Source, f.Report)
	}

	fmt.Fprintf(&b, "\nRuntime (%s, success=%t):\n%s\n", outcome.Mode, outcome.Success, outcome.Output)
	b.WriteString("\nWrite the four sections now.")
	return b.String()
}

// genericBullets close every fallback report. Fixed wording keeps the
// template deterministic.
var genericBullets = []string{
	"- Add input validation and handle error paths explicitly.",
	"- Keep functions small and single-purpose; extract repeated logic.",
	"- Release every acquired resource (memory, files, handles) on all exit paths.",
	"- Prefer bounded loops and bounded buffers over unbounded ones.",
	"- Add tests covering the edge cases flagged above.",
}

// FallbackReport assembles the deterministic template: conceptual errors
// when present, the runtime payload when it signals non-success, tool
// outputs that carry real diagnostics, then the generic bullets. Output
// is byte-identical for identical inputs.
func FallbackReport(findings *analysis.FindingSet, outcome sandbox.ExecutionOutcome) string {
	var b strings.Builder
	b.WriteString("== Conceptual Issues ==\n")
	conceptual, ok := findings.Get(analysis.ConceptualSource)
	if ok && conceptual != "" && conceptual != rules.NoConceptualIssues {
		b.WriteString(conceptual)
	} else {
		b.WriteString(rules.NoConceptualIssues)
	}
	b.WriteString("\n")

	if !outcome.Success {
		b.WriteString("\n== Runtime Output ==\n")
		b.WriteString(outcome.Output)
		b.WriteString("\n")
	}

	var tools []string
	for _, f := range findings.Entries() {
		if f.Source == analysis.ConceptualSource {
			continue
		}
		switch f.Report {
		case analysis.NoIssues, analysis.ToolNotAvailable:
			continue
		}
		tools = append(tools, fmt.Sprintf("[%s]\n%s", f.Source, f.Report))
	}
	if len(tools) > 0 {
		b.WriteString("\n== Tool Diagnostics ==\n")
		b.WriteString(strings.Join(tools, "\n"))
		b.WriteString("\n")
	}

	b.WriteString("\n== General Recommendations ==\n")
	b.WriteString(strings.Join(genericBullets, "\n"))
	b.WriteString("\n")
	return b.String()
}
