package sandbox

// ExecutionMode labels how an outcome was produced, so callers can never
// confuse simulated analysis with real runtime output.
type ExecutionMode string

const (
	ModeSandboxed ExecutionMode = "sandboxed"
	ModeFallback  ExecutionMode = "fallback-simulated"
)

// ExecutionOutcome is always produced: execution degrades, it never
// fails to yield a result.
type ExecutionOutcome struct {
	Mode    ExecutionMode `json:"mode"`
	Output  string        `json:"output"`
	Success bool          `json:"success"`
}
