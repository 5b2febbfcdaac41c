package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"code-smarty/internal/lang"
	"code-smarty/internal/repofetch"
)

// maxRepoFiles bounds a single repository analysis; anything past the
// cap is skipped with a log line rather than failing the batch.
const maxRepoFiles = 500

// maxRepoFileSize skips generated or vendored blobs.
const maxRepoFileSize = 1 << 20

// FileOutcome is one entry of a repository result: either a full
// AnalysisResult or an isolated per-file error.
type FileOutcome struct {
	Result *AnalysisResult
	Err    string
}

// RepoResult maps unique relative file paths to their outcomes.
type RepoResult map[string]FileOutcome

// Fetcher clones a repository reference into an ephemeral workspace.
type Fetcher interface {
	Clone(ctx context.Context, ref string) (string, error)
}

// AnalyzeRepo clones ref, fans the pipeline out over every recognized
// source file, and returns one outcome per file. A failure in one file
// never aborts the batch; clone and input failures do.
func (o *Orchestrator) AnalyzeRepo(ctx context.Context, fetcher Fetcher, ref string) (RepoResult, error) {
	workDir, err := fetcher.Clone(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			log.Warn().Err(rmErr).Str("workspace", workDir).Msg("workspace removal failed")
		}
	}()

	files, err := collectSourceFiles(workDir)
	if err != nil {
		return nil, fmt.Errorf("walking repository: %w", err)
	}

	results := make(RepoResult, len(files))
	for _, relPath := range files {
		results[relPath] = o.analyzeRepoFile(ctx, workDir, relPath)
		if o.metrics != nil {
			o.metrics.RepoFilesProcessed.Inc()
			if results[relPath].Err != "" {
				o.metrics.RepoFileErrors.Inc()
			}
		}
	}
	return results, nil
}

// analyzeRepoFile isolates one file: a panic or error becomes that
// file's entry, never the batch's.
func (o *Orchestrator) analyzeRepoFile(ctx context.Context, workDir, relPath string) (outcome FileOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("file", relPath).Msg("file analysis panicked")
			outcome = FileOutcome{Err: fmt.Sprintf("analysis panicked: %v", r)}
		}
	}()

	data, err := os.ReadFile(filepath.Join(workDir, filepath.FromSlash(relPath))) // #nosec G304 -- path produced by our own walk
	if err != nil {
		return FileOutcome{Err: fmt.Sprintf("reading file: %v", err)}
	}

	language := lang.FromExtension(filepath.Ext(relPath))
	result, err := o.AnalyzeCodeAs(ctx, string(data), language)
	if err != nil {
		return FileOutcome{Err: err.Error()}
	}
	return FileOutcome{Result: result}
}

// collectSourceFiles returns slash-separated relative paths of every
// recognized source file, unique by construction.
func collectSourceFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if lang.FromExtension(filepath.Ext(path)) == lang.Unknown {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Size() > maxRepoFileSize {
			log.Debug().Str("file", path).Msg("skipping oversized file")
			return nil
		}
		if len(files) >= maxRepoFiles {
			log.Warn().Int("cap", maxRepoFiles).Msg("repository file cap reached, skipping remainder")
			return filepath.SkipAll
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}

// NewDefaultFetcher is a convenience for wiring the git-backed fetcher.
func NewDefaultFetcher() Fetcher {
	return repofetch.NewFetcher(0)
}
