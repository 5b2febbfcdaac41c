package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"code-smarty/internal/analysis"
	"code-smarty/internal/lang"
	"code-smarty/internal/rules"
	"code-smarty/internal/sandbox"
)

type stubClient struct {
	answer string
	err    error
}

func (s *stubClient) Complete(_ context.Context, _, _ string, _ int) (string, error) {
	return s.answer, s.err
}

func sampleFindings() *analysis.FindingSet {
	fs := &analysis.FindingSet{}
	fs.Add(analysis.ConceptualSource, "possible memory leak: allocation present with no matching free/delete")
	fs.Add("cppcheck", "style: variable 'x' is never used")
	fs.Add("gcc", analysis.NoIssues)
	fs.Add("valgrind", analysis.ToolNotAvailable)
	return fs
}

func TestSynthesize_Generated(t *testing.T) {
	s := NewSynthesizer(&stubClient{answer: "  All four sections here.\n"})
	report := s.Synthesize(context.Background(), "int main(){}", sampleFindings(),
		sandbox.ExecutionOutcome{Mode: sandbox.ModeSandboxed, Output: "ok", Success: true}, lang.C)

	if report.Provenance != ProvenanceGenerated {
		t.Errorf("provenance = %q, want generated", report.Provenance)
	}
	if report.Text != "All four sections here." {
		t.Errorf("text = %q, want trimmed answer", report.Text)
	}
}

func TestSynthesize_BackendFailureDegrades(t *testing.T) {
	s := NewSynthesizer(&stubClient{err: errors.New("quota exceeded")})
	outcome := sandbox.ExecutionOutcome{Mode: sandbox.ModeFallback, Output: "[simulated: code was not executed] no runtime risks detected", Success: true}

	report := s.Synthesize(context.Background(), "int main(){}", sampleFindings(), outcome, lang.C)
	if report.Provenance != ProvenanceFallback {
		t.Errorf("provenance = %q, want fallback-template", report.Provenance)
	}
	if report.Text != FallbackReport(sampleFindings(), outcome) {
		t.Error("degraded text must be the deterministic template")
	}
}

func TestSynthesize_BlankAnswerDegrades(t *testing.T) {
	s := NewSynthesizer(&stubClient{answer: "   \n"})
	report := s.Synthesize(context.Background(), "x = 1", &analysis.FindingSet{},
		sandbox.ExecutionOutcome{Success: true}, lang.Python)
	if report.Provenance != ProvenanceFallback {
		t.Errorf("provenance = %q, want fallback-template for blank answer", report.Provenance)
	}
}

func TestSynthesize_NilClientDegrades(t *testing.T) {
	s := NewSynthesizer(nil)
	report := s.Synthesize(context.Background(), "x = 1", &analysis.FindingSet{},
		sandbox.ExecutionOutcome{Success: true}, lang.Python)
	if report.Provenance != ProvenanceFallback {
		t.Errorf("provenance = %q, want fallback-template with no client", report.Provenance)
	}
}

func TestFallbackReport_Deterministic(t *testing.T) {
	outcome := sandbox.ExecutionOutcome{Mode: sandbox.ModeSandboxed, Output: "segfault", Success: false}
	first := FallbackReport(sampleFindings(), outcome)
	second := FallbackReport(sampleFindings(), outcome)
	if first != second {
		t.Error("FallbackReport must be byte-identical for identical inputs")
	}
}

func TestFallbackReport_Sections(t *testing.T) {
	outcome := sandbox.ExecutionOutcome{Mode: sandbox.ModeSandboxed, Output: "segfault", Success: false}
	report := FallbackReport(sampleFindings(), outcome)

	if !strings.Contains(report, "== Conceptual Issues ==\npossible memory leak") {
		t.Errorf("missing conceptual section:\n%s", report)
	}
	if !strings.Contains(report, "== Runtime Output ==\nsegfault") {
		t.Errorf("missing runtime section for a failed run:\n%s", report)
	}
	if !strings.Contains(report, "[cppcheck]\nstyle: variable 'x' is never used") {
		t.Errorf("missing tool diagnostics:\n%s", report)
	}
	if strings.Contains(report, "valgrind") || strings.Contains(report, "[gcc]") {
		t.Errorf("sentinel reports must be excluded from diagnostics:\n%s", report)
	}
	if !strings.Contains(report, "== General Recommendations ==") {
		t.Errorf("missing recommendations:\n%s", report)
	}
}

func TestFallbackReport_SuccessfulRunOmitsRuntime(t *testing.T) {
	outcome := sandbox.ExecutionOutcome{Mode: sandbox.ModeSandboxed, Output: "all good", Success: true}
	report := FallbackReport(&analysis.FindingSet{}, outcome)

	if strings.Contains(report, "== Runtime Output ==") {
		t.Errorf("successful run must not add a runtime section:\n%s", report)
	}
	if !strings.Contains(report, "== Conceptual Issues ==\n"+rules.NoConceptualIssues) {
		t.Errorf("empty findings must show the clean sentinel:\n%s", report)
	}
	if strings.Contains(report, "== Tool Diagnostics ==") {
		t.Errorf("no diagnostics section without real tool output:\n%s", report)
	}
}
