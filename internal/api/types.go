package api

import (
	"encoding/json"

	"code-smarty/internal/pipeline"
)

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Code string `json:"code"`
}

// AnalyzeRepoRequest is the body of POST /analyze_repo.
type AnalyzeRepoRequest struct {
	RepoURL string `json:"repo_url"`
	UserID  string `json:"user_id,omitempty"`
}

// RepoFileEntry is one value of the repository response map: a full
// analysis or an isolated error, never both.
type RepoFileEntry struct {
	Result *pipeline.AnalysisResult
	Err    string
}

func (e RepoFileEntry) MarshalJSON() ([]byte, error) {
	if e.Err != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: e.Err})
	}
	return json.Marshal(e.Result)
}

// ErrorResponse is returned for API errors.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Engine   bool   `json:"engine"`
	Database bool   `json:"database"`
	Uptime   string `json:"uptime"`
}
