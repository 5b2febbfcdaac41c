package runtime

import (
	"fmt"

	"code-smarty/internal/lang"
)

// CRuntime configures compile-then-run execution of C code.
type CRuntime struct{}

func (c *CRuntime) Language() lang.Language { return lang.C }

func (c *CRuntime) Image() string { return "docker.io/library/gcc:13" }

func (c *CRuntime) FileName() string { return "main.c" }

func (c *CRuntime) Command(codePath string) []string {
	return []string{"sh", "-c",
		fmt.Sprintf("gcc %s -o /tmp/app && /tmp/app", codePath),
	}
}
