package rules

import "regexp"

// Detection marker tables, checked in strict priority order:
// python, then java, then C++, then C. C++ must precede C because most
// C markers also appear in C++ sources.

var pythonMarkers = []Rule{
	{Name: "py_def", Regex: regexp.MustCompile(`(?m)^\s*def\s+\w+\s*\(`)},
	{Name: "py_import", Regex: regexp.MustCompile(`(?m)^\s*(import\s+\w+|from\s+\w+(\.\w+)*\s+import\s)`)},
	// Must not match method calls like System.out.print(.
	{Name: "py_print", Regex: regexp.MustCompile(`(?m)(^|[^.\w])print\s*\(`)},
	{Name: "py_main_guard", Regex: regexp.MustCompile(`__name__\s*==\s*["']__main__["']`)},
	{Name: "py_self", Regex: regexp.MustCompile(`(?m)^\s*class\s+\w+.*:\s*$`)},
}

var javaMarkers = []Rule{
	{Name: "java_class", Regex: regexp.MustCompile(`\b(public|private|protected)?\s*class\s+\w+\s*\{`)},
	{Name: "java_main", Regex: regexp.MustCompile(`public\s+static\s+void\s+main\s*\(`)},
	{Name: "java_println", Regex: regexp.MustCompile(`System\.out\.print(ln)?\s*\(`)},
	{Name: "java_import", Regex: regexp.MustCompile(`(?m)^\s*import\s+java(x)?\.`)},
}

var cppMarkers = []Rule{
	{Name: "cpp_stl_header", Regex: regexp.MustCompile(`#include\s*<(iostream|vector|string|map|set|algorithm|memory|queue|stack)>`)},
	{Name: "cpp_std", Regex: regexp.MustCompile(`\bstd::`)},
	{Name: "cpp_cout", Regex: regexp.MustCompile(`\bc(out|in)\s*(<<|>>)`)},
	{Name: "cpp_namespace", Regex: regexp.MustCompile(`\busing\s+namespace\s+\w+|namespace\s+\w+\s*\{`)},
	{Name: "cpp_class", Regex: regexp.MustCompile(`\bclass\s+\w+\s*[:{]`)},
}

var cMarkers = []Rule{
	{Name: "c_header", Regex: regexp.MustCompile(`#include\s*<(stdio|stdlib|string|math|unistd|ctype)\.h>`)},
	{Name: "c_printf", Regex: regexp.MustCompile(`\b(printf|scanf|fprintf)\s*\(`)},
	{Name: "c_malloc", Regex: regexp.MustCompile(`\b(malloc|calloc|realloc|free)\s*\(`)},
	{Name: "c_func", Regex: regexp.MustCompile(`(?m)^\s*(int|void|char|float|double)\s+\w+\s*\([^)]*\)\s*\{`)},
}

// DetectLanguage classifies a code blob by marker tables alone and
// returns the language name. It is the deterministic fallback behind the
// generative classifier. When no table matches, the result defaults to
// "python"; treating unmatched code as Python is accepted, documented
// behavior.
func DetectLanguage(code string) string {
	if _, ok := FirstMatch(pythonMarkers, code); ok {
		return "python"
	}
	if _, ok := FirstMatch(javaMarkers, code); ok {
		return "java"
	}
	if _, ok := FirstMatch(cppMarkers, code); ok {
		return "cpp"
	}
	if _, ok := FirstMatch(cMarkers, code); ok {
		return "c"
	}
	return "python"
}
