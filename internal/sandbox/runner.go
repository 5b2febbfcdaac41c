package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/containers"
	"github.com/containerd/containerd/oci"
	"github.com/google/uuid"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/rs/zerolog/log"

	"code-smarty/internal/runtime"
)

// Runner is the containerd-based execution backend.
type Runner struct {
	client   *Client
	runtimes *runtime.Registry
	sem      chan struct{} // Concurrency limiter
	active   atomic.Int64
	mu       sync.Mutex
	closed   bool
}

func NewRunner(client *Client, maxConcurrent int) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 100
	}
	return &Runner{
		client:   client,
		runtimes: runtime.NewRegistry(),
		sem:      make(chan struct{}, maxConcurrent),
	}
}

// Run executes code in an isolated container and returns the merged
// output stream. Engine-side failures carry ErrEngineUnavailable so the
// caller can degrade to fallback analysis.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	execID := uuid.New().String()

	logger := log.With().
		Str("exec_id", execID).
		Str("language", req.Language.String()).
		Logger()

	logger.Info().Msg("sandboxed execution requested")

	if err := r.validateRequest(req); err != nil {
		return nil, &ExecutionError{ExecID: execID, Op: "validate", Err: err}
	}

	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return nil, &ExecutionError{ExecID: execID, Op: "acquire_slot", Err: ctx.Err()}
	}

	r.active.Add(1)
	defer r.active.Add(-1)

	timeout := req.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	// The run context also bounds log capture: output is read from the
	// task's own streams, so nothing is retrieved after this expires.
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	rt, err := r.runtimes.Get(req.Language)
	if err != nil {
		return nil, &ExecutionError{ExecID: execID, Op: "get_runtime", Err: fmt.Errorf("%w: %s", ErrUnsupportedLang, req.Language)}
	}

	hostDir, err := os.MkdirTemp("", "codesmarty-"+execID+"-*")
	if err != nil {
		return nil, &ExecutionError{ExecID: execID, Op: "create_temp_dir", Err: wrapEngine(err)}
	}
	defer os.RemoveAll(hostDir)

	hostCodePath := filepath.Join(hostDir, rt.FileName())
	if err := os.WriteFile(hostCodePath, []byte(req.Code), 0600); err != nil {
		return nil, &ExecutionError{ExecID: execID, Op: "write_code", Err: wrapEngine(err)}
	}
	if err := os.Chmod(hostCodePath, 0444); err != nil { // #nosec G302 -- container runs as nobody
		return nil, &ExecutionError{ExecID: execID, Op: "chmod_code", Err: wrapEngine(err)}
	}

	image, err := r.client.PullImage(execCtx, rt.Image())
	if err != nil {
		return nil, &ExecutionError{ExecID: execID, Op: "pull_image", Err: wrapEngine(err)}
	}

	containerID := "codesmarty-" + execID
	codePath := "/workspace/" + rt.FileName()

	container, err := r.createContainer(execCtx, containerID, image, rt, codePath, hostDir, req)
	if err != nil {
		return nil, &ExecutionError{ExecID: execID, Op: "create_container", Err: wrapEngine(err)}
	}
	// Always cleanup, even on panic
	defer func() {
		if cleanErr := r.cleanupContainer(context.Background(), container); cleanErr != nil {
			logger.Error().Err(cleanErr).Msg("container cleanup failed")
		}
	}()

	var outBuf bytes.Buffer
	merged := io.Writer(&outBuf)

	task, err := container.NewTask(execCtx,
		cio.NewCreator(cio.WithStreams(nil, merged, merged)),
	)
	if err != nil {
		return nil, &ExecutionError{ExecID: execID, Op: "create_task", Err: wrapEngine(err)}
	}
	defer func() {
		if _, err := task.Delete(context.Background(), containerd.WithProcessKill); err != nil {
			logger.Error().Err(err).Msg("task delete failed")
		}
	}()

	exitCh, err := task.Wait(execCtx)
	if err != nil {
		return nil, &ExecutionError{ExecID: execID, Op: "task_wait", Err: wrapEngine(err)}
	}

	if err := task.Start(execCtx); err != nil {
		return nil, &ExecutionError{ExecID: execID, Op: "task_start", Err: wrapEngine(err)}
	}

	var exitCode int

	select {
	case status := <-exitCh:
		exitCode = int(status.ExitCode())

	case <-execCtx.Done():
		logger.Warn().Msg("execution timed out, killing task")
		if err := task.Kill(context.Background(), 9); err != nil {
			logger.Error().Err(err).Msg("failed to kill timed out task")
		}
		<-exitCh

		return &RunResult{
			ID:       execID,
			Output:   truncateOutput(outBuf.String(), 1<<20) + fmt.Sprintf("\n[execution exceeded %s timeout]", timeout),
			ExitCode: -1,
			Duration: time.Since(start),
		}, ErrTimeout
	}

	duration := time.Since(start)
	logger.Info().
		Int("exit_code", exitCode).
		Dur("duration", duration).
		Msg("sandboxed execution completed")

	return &RunResult{
		ID:       execID,
		Output:   truncateOutput(outBuf.String(), 1<<20), // 1MB max
		ExitCode: exitCode,
		Duration: duration,
	}, nil
}

func (r *Runner) createContainer(
	ctx context.Context,
	id string,
	image containerd.Image,
	rt runtime.Runtime,
	codePath string,
	hostDir string,
	req RunRequest,
) (containerd.Container, error) {
	nsCtx := r.client.WithNamespace(ctx)

	limits := req.Limits
	if limits == (ResourceLimits{}) {
		limits = DefaultLimits()
	}

	return r.client.Raw().NewContainer(nsCtx, id,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(id+"-snapshot", image),
		containerd.WithNewSpec(
			oci.WithImageConfig(image),
			oci.WithProcessArgs(rt.Command(codePath)...),
			oci.WithHostname("codesmarty"),
			func(_ context.Context, _ oci.Client, _ *containers.Container, s *specs.Spec) error {
				ApplySecurityProfile(s, DefaultSecurityProfile())
				ApplyResourceLimits(s, limits)

				s.Mounts = append(s.Mounts, specs.Mount{
					Destination: "/workspace",
					Type:        "bind",
					Source:      hostDir,
					Options:     []string{"rbind", "ro"},
				})

				s.Process.Env = []string{
					"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
					"HOME=/tmp",
					"LANG=C.UTF-8",
					"SANDBOX=true",
				}

				return nil
			},
		),
	)
}

func (r *Runner) validateRequest(req RunRequest) error {
	if req.Code == "" {
		return fmt.Errorf("%w: code is empty", ErrInvalidRequest)
	}
	if len(req.Code) > 1<<20 {
		return fmt.Errorf("%w: code exceeds 1MB limit", ErrInvalidRequest)
	}
	if _, err := r.runtimes.Get(req.Language); err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedLang, req.Language)
	}
	if req.Timeout > 60*time.Second {
		return fmt.Errorf("%w: timeout exceeds 60s maximum", ErrInvalidRequest)
	}
	if req.Limits != (ResourceLimits{}) {
		if err := req.Limits.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ActiveCount returns the number of currently running executions.
func (r *Runner) ActiveCount() int64 {
	return r.active.Load()
}

// Close shuts down the runner.
func (r *Runner) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func wrapEngine(err error) error {
	return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
}

func truncateOutput(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes] + "\n... [output truncated]"
}
