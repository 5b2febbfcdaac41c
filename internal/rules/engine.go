package rules

import (
	"regexp"
	"strings"
)

// Rule pairs a pattern with the finding text it produces. Rules are kept
// in ordered tables so the same engine serves language detection and the
// conceptual-error scan.
type Rule struct {
	Name    string
	Regex   *regexp.Regexp
	Finding string
}

// Match is a rule that fired against a code blob.
type Match struct {
	Rule    string
	Finding string
}

// Apply runs every rule against the code and collects all matches in
// table order. Rules are independent; one firing never suppresses another.
func Apply(table []Rule, code string) []Match {
	var matches []Match
	for _, r := range table {
		if r.Regex.MatchString(code) {
			matches = append(matches, Match{Rule: r.Name, Finding: r.Finding})
		}
	}
	return matches
}

// FirstMatch returns the first rule in table order that fires, used for
// priority-ordered classification.
func FirstMatch(table []Rule, code string) (Match, bool) {
	for _, r := range table {
		if r.Regex.MatchString(code) {
			return Match{Rule: r.Name, Finding: r.Finding}, true
		}
	}
	return Match{}, false
}

// Report joins match findings into a single findings string, one per
// line. An empty match set yields the provided sentinel.
func Report(matches []Match, emptySentinel string) string {
	if len(matches) == 0 {
		return emptySentinel
	}
	findings := make([]string, 0, len(matches))
	for _, m := range matches {
		findings = append(findings, m.Finding)
	}
	return strings.Join(findings, "\n")
}
