package analysis

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// ToolStatus makes every degradation path an explicit branch: a tool
// run either produced diagnostics, was not installed, or failed to run.
type ToolStatus int

const (
	ToolOK ToolStatus = iota
	ToolUnavailable
	ToolFailed
)

// ToolResult is the outcome of invoking one external analysis tool.
type ToolResult struct {
	Status ToolStatus
	Output string
	Err    error
}

// Report renders the result as a FindingSet entry. Diagnostic tools exit
// non-zero when they find issues, so a failed run with output is still a
// report, not an error.
func (r ToolResult) Report() string {
	switch r.Status {
	case ToolUnavailable:
		return ToolNotAvailable
	case ToolFailed:
		if r.Output != "" {
			return r.Output
		}
		return "tool failed: " + r.Err.Error()
	default:
		if strings.TrimSpace(r.Output) == "" {
			return NoIssues
		}
		return r.Output
	}
}

// runTool resolves a binary on PATH and runs it, capturing merged
// stdout/stderr. Absence is reported, never treated as an error.
func runTool(ctx context.Context, name string, args ...string) ToolResult {
	path, err := exec.LookPath(name)
	if err != nil {
		log.Debug().Str("tool", name).Msg("tool not on PATH")
		return ToolResult{Status: ToolUnavailable, Err: err}
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...) // #nosec G204 -- tool names come from config, args built internally
	cmd.Stdout = &out
	cmd.Stderr = &out

	err = cmd.Run()
	output := strings.TrimSpace(out.String())

	if err != nil {
		if ctx.Err() != nil {
			return ToolResult{Status: ToolFailed, Output: output, Err: ctx.Err()}
		}
		if _, ok := err.(*exec.ExitError); ok {
			// Non-zero exit with diagnostics is the normal linter shape.
			return ToolResult{Status: ToolOK, Output: output}
		}
		return ToolResult{Status: ToolFailed, Output: output, Err: err}
	}
	return ToolResult{Status: ToolOK, Output: output}
}
