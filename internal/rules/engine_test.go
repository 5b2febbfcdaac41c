package rules

import (
	"regexp"
	"testing"
)

func TestApply_CollectsInTableOrder(t *testing.T) {
	table := []Rule{
		{Name: "first", Regex: regexp.MustCompile(`aaa`), Finding: "found aaa"},
		{Name: "second", Regex: regexp.MustCompile(`bbb`), Finding: "found bbb"},
		{Name: "third", Regex: regexp.MustCompile(`zzz`), Finding: "found zzz"},
	}

	matches := Apply(table, "bbb then aaa")
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Rule != "first" || matches[1].Rule != "second" {
		t.Errorf("matches out of table order: %+v", matches)
	}
}

func TestFirstMatch(t *testing.T) {
	table := []Rule{
		{Name: "a", Regex: regexp.MustCompile(`x`)},
		{Name: "b", Regex: regexp.MustCompile(`y`)},
	}

	m, ok := FirstMatch(table, "only y here")
	if !ok || m.Rule != "b" {
		t.Errorf("FirstMatch = %+v, %v; want rule b", m, ok)
	}

	if _, ok := FirstMatch(table, "nothing"); ok {
		t.Error("FirstMatch fired on non-matching input")
	}
}

func TestReport_EmptyUsesSentinel(t *testing.T) {
	if got := Report(nil, "clean"); got != "clean" {
		t.Errorf("Report(nil) = %q, want sentinel", got)
	}

	got := Report([]Match{{Finding: "one"}, {Finding: "two"}}, "clean")
	if got != "one\ntwo" {
		t.Errorf("Report = %q, want findings joined by newline", got)
	}
}
