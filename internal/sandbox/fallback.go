package sandbox

import (
	"strings"

	"code-smarty/internal/lang"
	"code-smarty/internal/rules"
)

// fallbackLabel prefixes every fallback payload so callers can never
// mistake simulated analysis for real runtime output.
const fallbackLabel = "[simulated: code was not executed]"

// Fallback approximates runtime behavior without running anything. It
// takes over whenever the execution engine is unreachable or a
// container step fails.
type Fallback struct{}

func NewFallback() *Fallback {
	return &Fallback{}
}

// Execute produces a fallback-simulated outcome. The switch is
// exhaustive over the closed language set.
func (f *Fallback) Execute(code string, language lang.Language) ExecutionOutcome {
	var warnings []string

	switch language {
	case lang.Python:
		if err := checkPythonSyntax(code); err != "" {
			warnings = append(warnings, err)
		}
		for _, m := range rules.Apply(rules.PythonRuntimeRisks, code) {
			warnings = append(warnings, m.Finding)
		}
	case lang.C, lang.CPP:
		for _, m := range rules.CRuntimeRisks(code) {
			warnings = append(warnings, m.Finding)
		}
	case lang.Java:
		for _, m := range rules.Apply(rules.JavaRuntimeRisks, code) {
			warnings = append(warnings, m.Finding)
		}
	case lang.Unknown:
		return ExecutionOutcome{
			Mode:    ModeFallback,
			Output:  fallbackLabel + " unsupported language",
			Success: false,
		}
	}

	if len(warnings) == 0 {
		return ExecutionOutcome{
			Mode:    ModeFallback,
			Output:  fallbackLabel + " no runtime risks detected",
			Success: true,
		}
	}
	return ExecutionOutcome{
		Mode:    ModeFallback,
		Output:  fallbackLabel + "\n" + strings.Join(warnings, "\n"),
		Success: false,
	}
}

// checkPythonSyntax is a light structural check: balanced brackets and
// block headers ending in a colon. It is an approximation, not a parser.
func checkPythonSyntax(code string) string {
	depth := map[rune]int{}
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	for _, r := range code {
		switch r {
		case '(', '[', '{':
			depth[r]++
		case ')', ']', '}':
			depth[pairs[r]]--
			if depth[pairs[r]] < 0 {
				return "syntax issue: unbalanced brackets"
			}
		}
	}
	for _, n := range depth {
		if n != 0 {
			return "syntax issue: unbalanced brackets"
		}
	}

	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		for _, kw := range []string{"def ", "class ", "if ", "elif ", "else", "for ", "while ", "try", "except", "finally", "with "} {
			if strings.HasPrefix(trimmed, kw) && !strings.Contains(trimmed, "#") {
				// One-line compounds ("if x: pass") carry the colon
				// mid-line, so presence anywhere is enough.
				if !strings.Contains(trimmed, ":") && !strings.HasSuffix(trimmed, "\\") {
					return "syntax issue: block header missing colon: " + trimmed
				}
				break
			}
		}
	}
	return ""
}
