package api

import (
	"encoding/json"
	"strings"
	"testing"

	"code-smarty/internal/analysis"
	"code-smarty/internal/lang"
	"code-smarty/internal/pipeline"
	"code-smarty/internal/sandbox"
	"code-smarty/internal/suggest"
)

func TestRepoFileEntry_MarshalError(t *testing.T) {
	data, err := json.Marshal(RepoFileEntry{Err: "reading file: permission denied"})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"error":"reading file: permission denied"}`
	if string(data) != want {
		t.Errorf("marshaled = %s, want %s", data, want)
	}
}

func TestRepoFileEntry_MarshalResult(t *testing.T) {
	fs := &analysis.FindingSet{}
	fs.Add(analysis.ConceptualSource, "no conceptual issues detected")

	entry := RepoFileEntry{Result: &pipeline.AnalysisResult{
		Language: lang.C,
		Findings: fs,
		Runtime:  sandbox.ExecutionOutcome{Mode: sandbox.ModeFallback, Output: "x", Success: true},
		Suggestions: suggest.Report{
			Text:       "report",
			Provenance: suggest.ProvenanceFallback,
		},
	}}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if strings.Contains(s, `"error"`) {
		t.Errorf("result entry must not carry an error key: %s", s)
	}
	for _, key := range []string{`"language":"c"`, `"issues"`, `"runtime"`, `"suggestions"`, `"fallback-simulated"`} {
		if !strings.Contains(s, key) {
			t.Errorf("marshaled entry missing %s: %s", key, s)
		}
	}
}
