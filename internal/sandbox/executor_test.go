package sandbox

import (
	"context"
	"testing"
	"time"

	"code-smarty/internal/lang"
)

type fakeBackend struct {
	results []*RunResult
	errs    []error
	calls   int
	lastReq RunRequest
}

func (f *fakeBackend) Run(_ context.Context, req RunRequest) (*RunResult, error) {
	f.lastReq = req
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i], f.errs[i]
}

func (f *fakeBackend) Close() error { return nil }

func newTestExecutor(backend Backend) *Executor {
	return &Executor{
		fallback:  NewFallback(),
		timeout:   time.Second,
		backend:   backend,
		available: backend != nil,
	}
}

func TestExecute_SandboxedSuccess(t *testing.T) {
	backend := &fakeBackend{
		results: []*RunResult{{ID: "run-1", Output: "hello\n", ExitCode: 0}},
		errs:    []error{nil},
	}
	e := newTestExecutor(backend)

	out := e.Execute(context.Background(), "print('hello')", lang.Python)
	if out.Mode != ModeSandboxed {
		t.Errorf("mode = %q, want sandboxed", out.Mode)
	}
	if !out.Success || out.Output != "hello\n" {
		t.Errorf("outcome = %+v, want success with captured output", out)
	}
}

func TestExecute_TimeoutIsStillSandboxed(t *testing.T) {
	backend := &fakeBackend{
		results: []*RunResult{{ID: "run-1", Output: "partial", ExitCode: -1}},
		errs:    []error{ErrTimeout},
	}
	e := newTestExecutor(backend)

	out := e.Execute(context.Background(), "while True: pass", lang.Python)
	if out.Mode != ModeSandboxed {
		t.Errorf("a timed-out run reflects the code, not the engine: mode = %q", out.Mode)
	}
	if out.Success {
		t.Error("timed-out run must not be a success")
	}
	if out.Output != "partial" {
		t.Errorf("output = %q, want the partial stream", out.Output)
	}
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want 1 (no retry for real outcomes)", backend.calls)
	}
}

func TestExecute_EngineFailureRetriesThenFallsBack(t *testing.T) {
	backend := &fakeBackend{
		results: []*RunResult{nil, nil},
		errs:    []error{ErrEngineUnavailable, ErrEngineUnavailable},
	}
	e := newTestExecutor(backend)

	var reasons []string
	e.OnDegrade = func(reason string) { reasons = append(reasons, reason) }

	out := e.Execute(context.Background(), "def f(): pass", lang.Python)
	if out.Mode != ModeFallback {
		t.Errorf("mode = %q, want fallback after two engine failures", out.Mode)
	}
	if backend.calls != 2 {
		t.Errorf("backend called %d times, want 2 (one retry)", backend.calls)
	}
	if len(reasons) != 1 || reasons[0] != "engine_failure" {
		t.Errorf("degrade reasons = %v, want [engine_failure]", reasons)
	}
}

func TestExecute_RetrySucceeds(t *testing.T) {
	backend := &fakeBackend{
		results: []*RunResult{nil, {ID: "run-2", Output: "ok", ExitCode: 0}},
		errs:    []error{ErrEngineUnavailable, nil},
	}
	e := newTestExecutor(backend)

	out := e.Execute(context.Background(), "print(1)", lang.Python)
	if out.Mode != ModeSandboxed || !out.Success {
		t.Errorf("outcome = %+v, want sandboxed success on retry", out)
	}
	if backend.calls != 2 {
		t.Errorf("backend called %d times, want 2", backend.calls)
	}
}

func TestExecute_InvalidRequestSkipsRetry(t *testing.T) {
	backend := &fakeBackend{
		results: []*RunResult{nil},
		errs:    []error{ErrInvalidRequest},
	}
	e := newTestExecutor(backend)

	var reasons []string
	e.OnDegrade = func(reason string) { reasons = append(reasons, reason) }

	out := e.Execute(context.Background(), "", lang.Python)
	if out.Mode != ModeFallback {
		t.Errorf("mode = %q, want fallback", out.Mode)
	}
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want 1 (invalid requests never retry)", backend.calls)
	}
	if len(reasons) != 1 || reasons[0] != "invalid_request" {
		t.Errorf("degrade reasons = %v, want [invalid_request]", reasons)
	}
}

func TestExecute_ConfiguredLimitsReachBackend(t *testing.T) {
	backend := &fakeBackend{
		results: []*RunResult{{ID: "run-1", Output: "ok", ExitCode: 0}},
		errs:    []error{nil},
	}
	e := newTestExecutor(backend)
	e.limits = ResourceLimits{CPUShares: 512, MemoryMB: 128, PidsLimit: 50, DiskMB: 64}

	e.Execute(context.Background(), "print(1)", lang.Python)
	if backend.lastReq.Limits != e.limits {
		t.Errorf("request limits = %+v, want the configured %+v", backend.lastReq.Limits, e.limits)
	}
	if backend.lastReq.Timeout != e.timeout {
		t.Errorf("request timeout = %s, want %s", backend.lastReq.Timeout, e.timeout)
	}
}

func TestExecute_UnavailableEngine(t *testing.T) {
	e := newTestExecutor(nil)

	var reasons []string
	e.OnDegrade = func(reason string) { reasons = append(reasons, reason) }

	out := e.Execute(context.Background(), "print(1)", lang.Python)
	if out.Mode != ModeFallback {
		t.Errorf("mode = %q, want fallback when no engine is attached", out.Mode)
	}
	if len(reasons) != 1 || reasons[0] != "engine_unavailable" {
		t.Errorf("degrade reasons = %v, want [engine_unavailable]", reasons)
	}
	if e.Available() {
		t.Error("Available must report false with no engine")
	}
}
