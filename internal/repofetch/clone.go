package repofetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/rs/zerolog/log"
)

// ErrCloneFailed marks clone attempts that the remote rejected or that
// timed out.
var ErrCloneFailed = errors.New("repository clone failed")

const defaultCloneTimeout = 2 * time.Minute

// Fetcher clones repositories into ephemeral workspaces.
type Fetcher struct {
	timeout time.Duration
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultCloneTimeout
	}
	return &Fetcher{timeout: timeout}
}

// Clone shallow-clones ref into a fresh temp directory and returns its
// path. The caller owns the directory and must remove it when done,
// on every exit path.
func (f *Fetcher) Clone(ctx context.Context, ref string) (string, error) {
	cloneURL, err := Normalize(ref)
	if err != nil {
		return "", err
	}

	workDir, err := os.MkdirTemp("", "codesmarty-repo-*")
	if err != nil {
		return "", fmt.Errorf("creating workspace: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	log.Info().Str("url", cloneURL).Str("workspace", workDir).Msg("cloning repository")

	_, err = git.PlainCloneContext(cloneCtx, workDir, false, &git.CloneOptions{
		URL:   cloneURL,
		Depth: 1,
	})
	if err != nil {
		_ = os.RemoveAll(workDir)
		return "", fmt.Errorf("%w: %v", ErrCloneFailed, err)
	}

	return workDir, nil
}
