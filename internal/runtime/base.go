package runtime

import (
	"fmt"

	"code-smarty/internal/lang"
)

// Runtime defines how to execute code for one language inside a
// container: which image, what the code file must be called, and the
// (compile-then-run where applicable) command.
type Runtime interface {
	// Language returns the language this runtime serves.
	Language() lang.Language

	// Image returns the minimal container image reference.
	Image() string

	// FileName returns the in-container code file name. Java requires
	// the file to match its public class, so this is a full name, not
	// an extension.
	FileName() string

	// Command returns the composite command to compile (if needed) and
	// run the code at codePath.
	Command(codePath string) []string
}

// Registry maps languages to their Runtime implementations.
type Registry struct {
	runtimes map[lang.Language]Runtime
}

// NewRegistry creates a registry with all executable runtimes. Unknown
// deliberately has no entry.
func NewRegistry() *Registry {
	r := &Registry{runtimes: make(map[lang.Language]Runtime)}
	r.Register(&PythonRuntime{})
	r.Register(&JavaRuntime{})
	r.Register(&CRuntime{})
	r.Register(&CPPRuntime{})
	return r
}

func (r *Registry) Register(rt Runtime) {
	r.runtimes[rt.Language()] = rt
}

// Get returns the runtime for the given language.
func (r *Registry) Get(language lang.Language) (Runtime, error) {
	rt, ok := r.runtimes[language]
	if !ok {
		return nil, fmt.Errorf("no runtime for language %q", language)
	}
	return rt, nil
}

// Images returns all container images needed by registered runtimes.
func (r *Registry) Images() []string {
	images := make([]string, 0, len(r.runtimes))
	for _, rt := range r.runtimes {
		images = append(images, rt.Image())
	}
	return images
}
