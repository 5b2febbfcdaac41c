package runtime

import "code-smarty/internal/lang"

// PythonRuntime configures execution of Python code.
type PythonRuntime struct{}

func (p *PythonRuntime) Language() lang.Language { return lang.Python }

func (p *PythonRuntime) Image() string { return "docker.io/library/python:3.12-slim" }

func (p *PythonRuntime) FileName() string { return "main.py" }

func (p *PythonRuntime) Command(codePath string) []string {
	return []string{
		"python3", "-u", // Unbuffered output
		"-B", // Don't write .pyc files
		codePath,
	}
}
