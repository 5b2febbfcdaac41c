package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"code-smarty/internal/analysis"
	"code-smarty/internal/lang"
	"code-smarty/internal/pipeline"
	"code-smarty/internal/repofetch"
	"code-smarty/internal/sandbox"
	"code-smarty/internal/suggest"
)

type fakeDetector struct {
	result lang.Language
}

func (f *fakeDetector) Detect(_ context.Context, _ string) lang.Language {
	return f.result
}

type fakeAnalyzer struct{}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string, _ lang.Language) *analysis.FindingSet {
	fs := &analysis.FindingSet{}
	fs.Add(analysis.ConceptualSource, "no conceptual issues detected")
	return fs
}

type fakeExecutor struct{}

func (f *fakeExecutor) Execute(_ context.Context, _ string, _ lang.Language) sandbox.ExecutionOutcome {
	return sandbox.ExecutionOutcome{Mode: sandbox.ModeSandboxed, Output: "hi\n", Success: true}
}

type fakeSuggester struct{}

func (f *fakeSuggester) Synthesize(_ context.Context, _ string, _ *analysis.FindingSet, _ sandbox.ExecutionOutcome, _ lang.Language) suggest.Report {
	return suggest.Report{Text: "looks fine", Provenance: suggest.ProvenanceGenerated}
}

type fakeFetcher struct {
	dir string
	err error
}

func (f *fakeFetcher) Clone(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.dir, nil
}

func newTestHandlers(detected lang.Language, fetcher pipeline.Fetcher) *Handlers {
	orch := pipeline.NewOrchestrator(
		&fakeDetector{result: detected},
		&fakeAnalyzer{},
		&fakeExecutor{},
		&fakeSuggester{},
		nil,
	)
	return NewHandlers(orch, fetcher, nil, nil, nil)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleAnalyze_Success(t *testing.T) {
	h := newTestHandlers(lang.Python, nil)
	rec := postJSON(t, h.HandleAnalyze, AnalyzeRequest{Code: "def hello():\n    print('hi')"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	for _, key := range []string{"language", "issues", "runtime", "suggestions"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("response missing %q key", key)
		}
	}
	if string(resp["language"]) != `"python"` {
		t.Errorf("language = %s, want \"python\"", resp["language"])
	}
}

func TestHandleAnalyze_EmptyCode(t *testing.T) {
	h := newTestHandlers(lang.Python, nil)
	rec := postJSON(t, h.HandleAnalyze, AnalyzeRequest{Code: "   "})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "EMPTY_CODE" {
		t.Errorf("error code = %q, want EMPTY_CODE", resp.Code)
	}
}

func TestHandleAnalyze_UnresolvedLanguage(t *testing.T) {
	h := newTestHandlers(lang.Unknown, nil)
	rec := postJSON(t, h.HandleAnalyze, AnalyzeRequest{Code: "???"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "UNKNOWN_LANGUAGE" {
		t.Errorf("error code = %q, want UNKNOWN_LANGUAGE", resp.Code)
	}
}

func TestHandleAnalyzeRepo_MissingURL(t *testing.T) {
	h := newTestHandlers(lang.Python, &fakeFetcher{})
	rec := postJSON(t, h.HandleAnalyzeRepo, AnalyzeRepoRequest{})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAnalyzeRepo_MalformedURL(t *testing.T) {
	h := newTestHandlers(lang.Python, &fakeFetcher{err: repofetch.ErrMalformedURL})
	rec := postJSON(t, h.HandleAnalyzeRepo, AnalyzeRepoRequest{RepoURL: "not a url"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "MALFORMED_REPO_URL" {
		t.Errorf("error code = %q, want MALFORMED_REPO_URL", resp.Code)
	}
}

func TestHandleListAnalyses_NoDatabase(t *testing.T) {
	h := newTestHandlers(lang.Python, nil)
	req := httptest.NewRequest(http.MethodGet, "/analyses", nil)
	rec := httptest.NewRecorder()
	h.HandleListAnalyses(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 without a database", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "DB_UNAVAILABLE" {
		t.Errorf("error code = %q, want DB_UNAVAILABLE", resp.Code)
	}
}

func TestHandleListAnalyses_MethodNotAllowed(t *testing.T) {
	h := newTestHandlers(lang.Python, nil)
	req := httptest.NewRequest(http.MethodPost, "/analyses", nil)
	rec := httptest.NewRecorder()
	h.HandleListAnalyses(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandleAnalyzeRepo_Success(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.py"), []byte("print('hi')\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs\n"), 0600); err != nil {
		t.Fatal(err)
	}

	h := newTestHandlers(lang.Python, &fakeFetcher{dir: dir})
	rec := postJSON(t, h.HandleAnalyzeRepo, AnalyzeRepoRequest{RepoURL: "owner/repo"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp) != 1 {
		t.Fatalf("got %d entries, want 1 (README must be skipped): %v", len(resp), resp)
	}
	if _, ok := resp["app.py"]; !ok {
		t.Errorf("response missing app.py entry")
	}
}
