package sandbox

import (
	"context"
	"fmt"
	"os/exec"
	goruntime "runtime"
	"time"

	"github.com/rs/zerolog/log"

	"code-smarty/internal/lang"
)

// RunRequest asks a backend to run one code blob in isolation.
type RunRequest struct {
	Code     string
	Language lang.Language
	Timeout  time.Duration
	Limits   ResourceLimits
}

// RunResult is the raw outcome of one container run. Output is the
// merged stdout/stderr stream.
type RunResult struct {
	ID       string
	Output   string
	ExitCode int
	Duration time.Duration
}

// Backend is an isolated-execution engine: containerd on Linux, the
// Docker CLI elsewhere.
type Backend interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
	Close() error
}

// Options configures backend selection and per-run defaults.
type Options struct {
	Preference       string // "auto" (default), "containerd", or "docker"
	ContainerdSocket string
	Namespace        string
	MaxConcurrent    int
	DefaultTimeout   time.Duration
	Limits           ResourceLimits // zero value means DefaultLimits
}

// NewBackend picks the best available engine. The error is a capability
// signal, not a fatal condition: callers record the engine as
// unavailable and analyses degrade to the fallback executor.
func NewBackend(ctx context.Context, opts Options) (Backend, error) {
	preference := opts.Preference
	if preference == "" {
		preference = "auto"
	}

	switch preference {
	case "containerd":
		return newContainerdBackend(ctx, opts)
	case "docker":
		return newDockerBackend(opts)
	case "auto":
		if goruntime.GOOS == "linux" {
			backend, err := newContainerdBackend(ctx, opts)
			if err == nil {
				log.Info().Msg("using containerd backend")
				return backend, nil
			}
			log.Warn().Err(err).Msg("containerd unavailable, trying Docker")
		}

		backend, err := newDockerBackend(opts)
		if err == nil {
			log.Info().Msg("using Docker backend")
			return backend, nil
		}

		return nil, fmt.Errorf("%w: install Docker or containerd", ErrEngineUnavailable)
	default:
		return nil, fmt.Errorf("unknown backend %q: must be auto, containerd, or docker", preference)
	}
}

func newContainerdBackend(ctx context.Context, opts Options) (Backend, error) {
	client, err := NewClient(ctx, opts.ContainerdSocket, opts.Namespace)
	if err != nil {
		return nil, err
	}

	runner := NewRunner(client, opts.MaxConcurrent)

	cleaned, err := runner.CleanupOrphaned(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to cleanup orphaned containers")
	} else if cleaned > 0 {
		log.Info().Int("count", cleaned).Msg("cleaned orphaned containers on startup")
	}

	return runner, nil
}

func newDockerBackend(opts Options) (Backend, error) {
	if _, err := exec.LookPath("docker"); err != nil {
		return nil, fmt.Errorf("%w: docker not found in PATH", ErrEngineUnavailable)
	}

	if err := exec.Command("docker", "info").Run(); err != nil {
		return nil, fmt.Errorf("%w: docker daemon not reachable", ErrEngineUnavailable)
	}

	return NewDockerRunner(opts.MaxConcurrent), nil
}
