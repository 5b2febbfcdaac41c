package analysis

import (
	"encoding/json"
	"testing"
)

func TestFindingSet_PreservesInsertionOrder(t *testing.T) {
	fs := &FindingSet{}
	fs.Add(ConceptualSource, "leak warning")
	fs.Add("cppcheck", NoIssues)
	fs.Add("gcc", ToolNotAvailable)

	data, err := json.Marshal(fs)
	if err != nil {
		t.Fatal(err)
	}

	want := `{"conceptual_errors":"leak warning","cppcheck":"no issues detected","gcc":"tool not available"}`
	if string(data) != want {
		t.Errorf("marshaled = %s\nwant       = %s", data, want)
	}
}

func TestFindingSet_RoundTrip(t *testing.T) {
	fs := &FindingSet{}
	fs.Add("pylint", "C0114: missing module docstring")
	fs.Add("mypy", NoIssues)

	data, err := json.Marshal(fs)
	if err != nil {
		t.Fatal(err)
	}

	var back FindingSet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}

	if back.Len() != 2 {
		t.Fatalf("round-trip length = %d, want 2", back.Len())
	}
	if back.Entries()[0].Source != "pylint" || back.Entries()[1].Source != "mypy" {
		t.Errorf("round-trip lost order: %+v", back.Entries())
	}
	if report, ok := back.Get("mypy"); !ok || report != NoIssues {
		t.Errorf("Get(mypy) = %q, %v", report, ok)
	}
}

func TestFindingSet_GetMissing(t *testing.T) {
	fs := &FindingSet{}
	if _, ok := fs.Get("pylint"); ok {
		t.Error("Get on empty set must report absence")
	}
}

func TestFindingSet_NilLen(t *testing.T) {
	var fs *FindingSet
	if fs.Len() != 0 {
		t.Error("nil FindingSet must have length 0")
	}
}

func TestToolResult_Report(t *testing.T) {
	tests := []struct {
		name string
		res  ToolResult
		want string
	}{
		{"unavailable", ToolResult{Status: ToolUnavailable}, ToolNotAvailable},
		{"ok empty output", ToolResult{Status: ToolOK, Output: "  \n"}, NoIssues},
		{"ok with diagnostics", ToolResult{Status: ToolOK, Output: "warning: unused variable"}, "warning: unused variable"},
		{"failed with output", ToolResult{Status: ToolFailed, Output: "crashed hard"}, "crashed hard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.Report(); got != tt.want {
				t.Errorf("Report() = %q, want %q", got, tt.want)
			}
		})
	}
}
