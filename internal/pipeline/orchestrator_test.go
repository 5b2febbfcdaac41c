package pipeline

import (
	"context"
	"errors"
	"testing"

	"code-smarty/internal/analysis"
	"code-smarty/internal/lang"
	"code-smarty/internal/sandbox"
	"code-smarty/internal/suggest"
)

type fakeDetector struct {
	result lang.Language
	calls  int
}

func (f *fakeDetector) Detect(_ context.Context, _ string) lang.Language {
	f.calls++
	return f.result
}

type fakeAnalyzer struct {
	panicWith any
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string, _ lang.Language) *analysis.FindingSet {
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	fs := &analysis.FindingSet{}
	fs.Add(analysis.ConceptualSource, "no conceptual issues detected")
	return fs
}

type fakeExecutor struct{}

func (fakeExecutor) Execute(_ context.Context, _ string, _ lang.Language) sandbox.ExecutionOutcome {
	return sandbox.ExecutionOutcome{Mode: sandbox.ModeSandboxed, Output: "ran\n", Success: true}
}

type fakeSuggester struct{}

func (fakeSuggester) Synthesize(_ context.Context, _ string, _ *analysis.FindingSet, _ sandbox.ExecutionOutcome, _ lang.Language) suggest.Report {
	return suggest.Report{Text: "looks fine", Provenance: suggest.ProvenanceGenerated}
}

func newTestOrchestrator(detected lang.Language) (*Orchestrator, *fakeDetector) {
	det := &fakeDetector{result: detected}
	return NewOrchestrator(det, &fakeAnalyzer{}, fakeExecutor{}, fakeSuggester{}, nil), det
}

func TestAnalyzeCode_EmptyCode(t *testing.T) {
	o, _ := newTestOrchestrator(lang.Python)
	_, err := o.AnalyzeCode(context.Background(), "   \n\t")
	if !errors.Is(err, ErrEmptyCode) {
		t.Errorf("err = %v, want ErrEmptyCode", err)
	}

	var ae *AnalysisError
	if !errors.As(err, &ae) || ae.Op != "validate" {
		t.Errorf("err = %#v, want AnalysisError from validate", err)
	}
}

func TestAnalyzeCode_UnresolvedLanguage(t *testing.T) {
	o, _ := newTestOrchestrator(lang.Unknown)
	_, err := o.AnalyzeCode(context.Background(), "???")
	if !errors.Is(err, ErrUnknownLanguage) {
		t.Errorf("err = %v, want ErrUnknownLanguage", err)
	}
}

func TestAnalyzeCode_Success(t *testing.T) {
	o, det := newTestOrchestrator(lang.Python)
	res, err := o.AnalyzeCode(context.Background(), "print('hi')")
	if err != nil {
		t.Fatal(err)
	}
	if res.Language != lang.Python {
		t.Errorf("language = %q, want python", res.Language)
	}
	if res.Findings.Len() != 1 {
		t.Errorf("findings = %d entries, want 1", res.Findings.Len())
	}
	if res.Runtime.Mode != sandbox.ModeSandboxed || !res.Runtime.Success {
		t.Errorf("runtime = %+v, want sandboxed success", res.Runtime)
	}
	if res.Suggestions.Provenance != suggest.ProvenanceGenerated {
		t.Errorf("provenance = %q, want generated", res.Suggestions.Provenance)
	}
	if det.calls != 1 {
		t.Errorf("detector called %d times, want 1", det.calls)
	}
}

func TestAnalyzeCodeAs_BypassesDetection(t *testing.T) {
	o, det := newTestOrchestrator(lang.Unknown)
	res, err := o.AnalyzeCodeAs(context.Background(), "int main(){}", lang.C)
	if err != nil {
		t.Fatal(err)
	}
	if res.Language != lang.C {
		t.Errorf("language = %q, want c", res.Language)
	}
	if det.calls != 0 {
		t.Errorf("detector called %d times, want 0 with a hint", det.calls)
	}
}
