package sandbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"code-smarty/internal/lang"
)

// Executor fronts the execution engine with graceful degradation: every
// call yields an ExecutionOutcome, either from a real container run or
// from the static fallback.
type Executor struct {
	fallback *Fallback
	timeout  time.Duration
	limits   ResourceLimits

	// OnDegrade is invoked once per degraded execution, for metrics.
	OnDegrade func(reason string)

	mu        sync.RWMutex
	backend   Backend
	available bool
}

// NewExecutor probes the engine once at startup. A failed probe is not
// fatal: the executor starts degraded and serves fallback outcomes.
func NewExecutor(ctx context.Context, opts Options) *Executor {
	e := &Executor{
		fallback: NewFallback(),
		timeout:  opts.DefaultTimeout,
		limits:   opts.Limits,
	}
	if e.timeout == 0 {
		e.timeout = 15 * time.Second
	}
	if e.limits == (ResourceLimits{}) {
		e.limits = DefaultLimits()
	}

	backend, err := NewBackend(ctx, opts)
	if err != nil {
		log.Warn().Err(err).Msg("execution engine unavailable, starting in fallback mode")
		return e
	}

	e.backend = backend
	e.available = true
	return e
}

// Available reports whether the engine was reachable at last check.
func (e *Executor) Available() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.available
}

// Execute runs code in the sandbox, or simulates when it cannot.
//
// A non-nil RunResult is a real sandboxed outcome even when the run
// errored: a timeout or non-zero exit reflects the submitted code, not
// the engine, and must surface as Mode "sandboxed" with Success false.
// Only a nil result (infrastructure failure) triggers degradation, with
// one retry before giving up on the engine for this call.
func (e *Executor) Execute(ctx context.Context, code string, language lang.Language) ExecutionOutcome {
	e.mu.RLock()
	backend, available := e.backend, e.available
	e.mu.RUnlock()

	if !available || backend == nil {
		e.degraded("engine_unavailable")
		return e.fallback.Execute(code, language)
	}

	req := RunRequest{Code: code, Language: language, Timeout: e.timeout, Limits: e.limits}

	result, err := backend.Run(ctx, req)
	if result == nil && err != nil {
		if errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrUnsupportedLang) {
			e.degraded("invalid_request")
			return e.fallback.Execute(code, language)
		}
		log.Warn().Err(err).Msg("sandboxed run failed, retrying once")
		result, err = backend.Run(ctx, req)
	}

	if result == nil {
		log.Warn().Err(err).Msg("execution engine failed twice, degrading to fallback")
		e.degraded("engine_failure")
		return e.fallback.Execute(code, language)
	}

	return ExecutionOutcome{
		Mode:    ModeSandboxed,
		Output:  result.Output,
		Success: err == nil && result.ExitCode == 0,
	}
}

func (e *Executor) degraded(reason string) {
	if e.OnDegrade != nil {
		e.OnDegrade(reason)
	}
}

// Close releases the backend, if one was acquired.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.available = false
	if e.backend != nil {
		return e.backend.Close()
	}
	return nil
}
