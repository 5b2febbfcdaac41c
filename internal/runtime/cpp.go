package runtime

import (
	"fmt"

	"code-smarty/internal/lang"
)

// CPPRuntime configures compile-then-run execution of C++ code.
type CPPRuntime struct{}

func (c *CPPRuntime) Language() lang.Language { return lang.CPP }

func (c *CPPRuntime) Image() string { return "docker.io/library/gcc:13" }

func (c *CPPRuntime) FileName() string { return "main.cpp" }

func (c *CPPRuntime) Command(codePath string) []string {
	return []string{"sh", "-c",
		fmt.Sprintf("g++ %s -o /tmp/app && /tmp/app", codePath),
	}
}
