package lang

import "strings"

// Language is the closed set of languages the analyzer understands.
// Every dispatcher in the pipeline switches exhaustively over these
// values; adding a language means touching each switch.
type Language string

const (
	Python  Language = "python"
	Java    Language = "java"
	C       Language = "c"
	CPP     Language = "cpp"
	Unknown Language = "unknown"
)

// All lists the resolvable languages, in the order the detection
// fallback rules are tried.
var All = []Language{Python, Java, CPP, C}

// Parse normalizes a free-form answer (typically from the generative
// classifier) to a Language. Anything outside the set maps to Unknown.
func Parse(s string) Language {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "`.\"' \t\n")
	switch s {
	case "python", "python3", "py":
		return Python
	case "java":
		return Java
	case "c":
		return C
	case "cpp", "c++", "cxx":
		return CPP
	default:
		return Unknown
	}
}

// FileExtensions maps a language to the source extensions it claims
// during a repository walk.
func (l Language) FileExtensions() []string {
	switch l {
	case Python:
		return []string{".py"}
	case Java:
		return []string{".java"}
	case C:
		return []string{".c"}
	case CPP:
		return []string{".cpp", ".cc", ".cxx"}
	case Unknown:
		return nil
	default:
		return nil
	}
}

// FromExtension resolves a file extension to a Language, or Unknown.
func FromExtension(ext string) Language {
	for _, l := range All {
		for _, e := range l.FileExtensions() {
			if strings.EqualFold(e, ext) {
				return l
			}
		}
	}
	return Unknown
}

func (l Language) String() string { return string(l) }
