package rules

import (
	"fmt"
	"regexp"
	"strconv"
)

// NoConceptualIssues is the sentinel reported when no conceptual rule fires.
const NoConceptualIssues = "no conceptual issues detected"

// Conceptual C/C++ rules. Most are plain regex rules; the leak and
// out-of-bounds checks need to correlate two sites in the code, so the
// scan runs the regex table first and the correlating checks after.

var conceptualCRules = []Rule{
	{
		Name:    "null_deref",
		Regex:   regexp.MustCompile(`(\w+)\s*=\s*NULL\s*;[\s\S]{0,200}?\*\s*\w+|(\w+)\s*=\s*nullptr\s*;[\s\S]{0,200}?\*\s*\w+`),
		Finding: "possible null-pointer dereference: a pointer is assigned NULL and later dereferenced",
	},
	{
		Name:    "uninitialized_scalar",
		Regex:   regexp.MustCompile(`(?m)^\s*(int|float|double|char|long|short)\s+\w+\s*;`),
		Finding: "uninitialized variable: scalar declared without an initial value",
	},
	{
		Name:    "unsafe_string_copy",
		Regex:   regexp.MustCompile(`\b(strcpy|strcat|gets|sprintf)\s*\(`),
		Finding: "unsafe string operation: strcpy/strcat/gets/sprintf do not check destination bounds",
	},
	{
		Name:    "infinite_loop",
		Regex:   regexp.MustCompile(`for\s*\(\s*;\s*;\s*\)|while\s*\(\s*(1|true)\s*\)`),
		Finding: "infinite loop: loop has no exit condition",
	},
	{
		Name:    "use_after_free",
		Regex:   regexp.MustCompile(`free\s*\(\s*\w+\s*\)\s*;[\s\S]{0,200}?(\*\s*\w+|\w+\s*->|\w+\s*\[)`),
		Finding: "possible dangling pointer: memory is used after free without reassignment",
	},
}

var (
	allocRe     = regexp.MustCompile(`\b(malloc|calloc|realloc)\s*\(|\bnew\s+\w+`)
	releaseRe   = regexp.MustCompile(`\bfree\s*\(|\bdelete(\[\])?\s+\w+|\bdelete\s*\[\s*\]`)
	arrayDeclRe = regexp.MustCompile(`\b(?:int|char|float|double|long|short)\s+(\w+)\s*\[\s*(\d+)\s*\]`)
	arrayUseRe  = regexp.MustCompile(`\b(\w+)\s*\[\s*(\d+)\s*\]`)
)

// ScanConceptual applies the conceptual-error rules for C/C++ code and
// returns all matches. Every rule is independent; all firing rules are
// reported together.
func ScanConceptual(code string) []Match {
	matches := Apply(conceptualCRules, code)

	if allocRe.MatchString(code) && !releaseRe.MatchString(code) {
		matches = append(matches, Match{
			Rule:    "memory_leak",
			Finding: "possible memory leak: allocation present with no matching free/delete",
		})
	}

	matches = append(matches, scanIndexOutOfBounds(code)...)
	return matches
}

// scanIndexOutOfBounds flags literal indexes at or past a fixed array
// size declared in the same blob. Declaration sites are stripped before
// the use scan so "int arr[5]" does not flag itself.
func scanIndexOutOfBounds(code string) []Match {
	sizes := map[string]int{}
	for _, decl := range arrayDeclRe.FindAllStringSubmatch(code, -1) {
		n, err := strconv.Atoi(decl[2])
		if err != nil {
			continue
		}
		sizes[decl[1]] = n
	}
	if len(sizes) == 0 {
		return nil
	}
	uses := arrayDeclRe.ReplaceAllString(code, "")

	var matches []Match
	seen := map[string]bool{}
	for _, use := range arrayUseRe.FindAllStringSubmatch(uses, -1) {
		name := use[1]
		size, declared := sizes[name]
		if !declared || seen[name] {
			continue
		}
		idx, err := strconv.Atoi(use[2])
		if err != nil {
			continue
		}
		if idx >= size {
			seen[name] = true
			matches = append(matches, Match{
				Rule:    "index_out_of_bounds",
				Finding: fmt.Sprintf("index out of bounds: %s has size %d but index %d is used", name, size, idx),
			})
		}
	}
	return matches
}

// Runtime-risk subsets used by the fallback executor when sandboxed
// execution is unavailable. These approximate what execution would have
// surfaced; they never run the code.

var PythonRuntimeRisks = []Rule{
	{
		Name:    "py_unclosed_file",
		Regex:   regexp.MustCompile(`(?m)^\s*\w+\s*=\s*open\s*\(`),
		Finding: "file opened without a 'with' block; it may never be closed",
	},
	{
		Name:    "py_system_call",
		Regex:   regexp.MustCompile(`os\.system\s*\(|subprocess\.(call|run|Popen)\s*\(|eval\s*\(|exec\s*\(`),
		Finding: "unsafe system/eval call; arbitrary command or code execution at runtime",
	},
}

var JavaRuntimeRisks = []Rule{
	{
		Name:    "java_null_assignment",
		Regex:   regexp.MustCompile(`(\w+)\s*=\s*null\s*;[\s\S]{0,200}?\w+\s*\.\s*\w+\s*\(`),
		Finding: "possible NullPointerException: reference assigned null and later dereferenced",
	},
	{
		Name:    "java_equals_on_literal",
		Regex:   regexp.MustCompile(`\w+\s*\.equals\s*\(\s*"`),
		Finding: "potential NullPointerException: call .equals on the literal (\"...\".equals(x)) to be null-safe",
	},
	{
		Name:    "java_readline_unchecked",
		Regex:   regexp.MustCompile(`\.readLine\s*\(\s*\)\s*\.\w+`),
		Finding: "readLine() result used without a null check; returns null at end of stream",
	},
}

// CRuntimeRisks is the conceptual subset relevant to runtime behavior
// (leaks, dangling pointers, infinite loops, unsafe copies).
func CRuntimeRisks(code string) []Match {
	var risks []Match
	for _, m := range ScanConceptual(code) {
		switch m.Rule {
		case "memory_leak", "use_after_free", "infinite_loop", "unsafe_string_copy", "null_deref":
			risks = append(risks, m)
		}
	}
	return risks
}
