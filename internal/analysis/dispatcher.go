package analysis

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"

	"code-smarty/internal/lang"
	"code-smarty/internal/rules"
)

// memcheckTimeout caps the dynamic memory-checker run.
const memcheckTimeout = 5 * time.Second

// Config names the external binaries the dispatcher may invoke. Every
// tool is optional; absence becomes a sentinel report.
type Config struct {
	PythonLinter      string // default pylint
	PythonTypeChecker string // default mypy
	CLinter           string // default cppcheck
	CCompiler         string // default gcc
	CPPCompiler       string // default g++
	MemChecker        string // default valgrind
}

func DefaultConfig() Config {
	return Config{
		PythonLinter:      "pylint",
		PythonTypeChecker: "mypy",
		CLinter:           "cppcheck",
		CCompiler:         "gcc",
		CPPCompiler:       "g++",
		MemChecker:        "valgrind",
	}
}

// Dispatcher runs the static-analysis strategy for a resolved language.
type Dispatcher struct {
	cfg Config
}

func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{cfg: cfg}
}

// Analyze produces the FindingSet for code in the given language. The
// switch is exhaustive over the closed language set; languages without
// a strategy get an empty set, which callers read as "not supported".
func (d *Dispatcher) Analyze(ctx context.Context, code string, language lang.Language) *FindingSet {
	fs := &FindingSet{}
	switch language {
	case lang.Python:
		d.analyzePython(ctx, code, fs)
	case lang.C:
		d.analyzeCFamily(ctx, code, lang.C, fs)
	case lang.CPP:
		d.analyzeCFamily(ctx, code, lang.CPP, fs)
	case lang.Java, lang.Unknown:
		// No static strategy; empty set.
	}
	return fs
}

// analyzePython runs the linter and the type checker against a temp
// file. One tool's failure never aborts the other; the temp file is
// removed on every path.
func (d *Dispatcher) analyzePython(ctx context.Context, code string, fs *FindingSet) {
	path, cleanup, err := writeTemp(code, "*.py")
	if err != nil {
		fs.Add(d.cfg.PythonLinter, "tool failed: "+err.Error())
		fs.Add(d.cfg.PythonTypeChecker, "tool failed: "+err.Error())
		return
	}
	defer cleanup()

	lint := runTool(ctx, d.cfg.PythonLinter, "--output-format=text", "--score=n", path)
	fs.Add(d.cfg.PythonLinter, lint.Report())

	typecheck := runTool(ctx, d.cfg.PythonTypeChecker, "--ignore-missing-imports", "--no-error-summary", path)
	fs.Add(d.cfg.PythonTypeChecker, typecheck.Report())
}

// analyzeCFamily layers four independent passes: the conceptual scan,
// the external linter, a syntax-only compile, and — when the platform,
// the checker, and a successful compile allow it — a dynamic memory
// check. Each layer appends its own entry and none can abort another.
func (d *Dispatcher) analyzeCFamily(ctx context.Context, code string, language lang.Language, fs *FindingSet) {
	matches := rules.ScanConceptual(code)
	fs.Add(ConceptualSource, rules.Report(matches, rules.NoConceptualIssues))

	ext, compiler := ".c", d.cfg.CCompiler
	if language == lang.CPP {
		ext, compiler = ".cpp", d.cfg.CPPCompiler
	}

	path, cleanup, err := writeTemp(code, "*"+ext)
	if err != nil {
		fs.Add(d.cfg.CLinter, "tool failed: "+err.Error())
		fs.Add(compiler, "tool failed: "+err.Error())
		return
	}
	defer cleanup()

	lint := runTool(ctx, d.cfg.CLinter, "--enable=warning,style", "--inline-suppr", path)
	fs.Add(d.cfg.CLinter, lint.Report())

	syntax := runTool(ctx, compiler, "-fsyntax-only", "-Wall", path)
	fs.Add(compiler, syntax.Report())

	d.memcheck(ctx, path, compiler, fs)
}

// memcheck compiles the temp source and runs the binary under the
// memory checker with a hard wall-clock cap. The compiled binary is
// removed regardless of outcome.
func (d *Dispatcher) memcheck(ctx context.Context, srcPath, compiler string, fs *FindingSet) {
	if runtime.GOOS == "windows" {
		fs.Add(d.cfg.MemChecker, ToolNotAvailable)
		return
	}
	if res := runTool(ctx, d.cfg.MemChecker, "--version"); res.Status == ToolUnavailable {
		fs.Add(d.cfg.MemChecker, ToolNotAvailable)
		return
	}

	binPath := srcPath + ".bin"
	defer func() {
		if err := os.Remove(binPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", binPath).Msg("failed to remove compiled binary")
		}
	}()

	compile := runTool(ctx, compiler, "-g", "-o", binPath, srcPath)
	if _, err := os.Stat(binPath); compile.Status != ToolOK || err != nil {
		fs.Add(d.cfg.MemChecker, "skipped: compilation failed")
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, memcheckTimeout)
	defer cancel()

	check := runTool(checkCtx, d.cfg.MemChecker,
		"--leak-check=full", "--show-leak-kinds=all", "--error-exitcode=1", binPath)
	fs.Add(d.cfg.MemChecker, check.Report())
}

// writeTemp materializes code into a temp file and returns an
// unconditional cleanup func.
func writeTemp(code, pattern string) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", filepath.Base(path)).Msg("failed to remove temp file")
		}
	}

	if _, err := f.WriteString(code); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
