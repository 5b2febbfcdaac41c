package runtime

import (
	"fmt"
	"path/filepath"

	"code-smarty/internal/lang"
)

// JavaRuntime configures compile-then-run execution of Java code. The
// submitted class must be named Main; the executor materializes the
// code as Main.java to satisfy javac.
type JavaRuntime struct{}

func (j *JavaRuntime) Language() lang.Language { return lang.Java }

func (j *JavaRuntime) Image() string { return "docker.io/library/eclipse-temurin:21-jdk" }

func (j *JavaRuntime) FileName() string { return "Main.java" }

func (j *JavaRuntime) Command(codePath string) []string {
	// Classes compile into /tmp: the source mount is read-only.
	return []string{"sh", "-c",
		fmt.Sprintf("javac -d /tmp %s && java -cp /tmp %s",
			codePath, className(codePath)),
	}
}

func className(codePath string) string {
	base := filepath.Base(codePath)
	return base[:len(base)-len(filepath.Ext(base))]
}
