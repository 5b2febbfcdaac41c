package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"code-smarty/internal/monitor"
	"code-smarty/internal/pipeline"
	"code-smarty/internal/repofetch"
	"code-smarty/internal/sandbox"
	"code-smarty/internal/storage"
)

const engineHint = " (verify that the execution engine, containerd or Docker, is installed and running)"

type Handlers struct {
	orch        *pipeline.Orchestrator
	fetcher     pipeline.Fetcher
	db          *storage.DB
	auditWriter *storage.AuditWriter
	metrics     *monitor.Metrics
}

func NewHandlers(orch *pipeline.Orchestrator, fetcher pipeline.Fetcher, db *storage.DB, auditWriter *storage.AuditWriter, metrics *monitor.Metrics) *Handlers {
	return &Handlers{
		orch:        orch,
		fetcher:     fetcher,
		db:          db,
		auditWriter: auditWriter,
		metrics:     metrics,
	}
}

func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed, r)
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}

	start := time.Now()
	result, err := h.orch.AnalyzeCode(r.Context(), req.Code)
	if err != nil {
		h.writeAnalysisError(w, r, err)
		return
	}

	h.logAudit("snippet", result, start, r)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) HandleAnalyzeRepo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed, r)
		return
	}

	var req AnalyzeRepoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}
	if req.RepoURL == "" {
		writeError(w, "repo_url is required", "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}

	start := time.Now()
	results, err := h.orch.AnalyzeRepo(r.Context(), h.fetcher, req.RepoURL)
	if err != nil {
		h.writeAnalysisError(w, r, err)
		return
	}

	resp := make(map[string]RepoFileEntry, len(results))
	for path, outcome := range results {
		resp[path] = RepoFileEntry{Result: outcome.Result, Err: outcome.Err}
		if outcome.Result != nil {
			h.logAudit("repo_file", outcome.Result, start, r)
		}
	}

	log.Info().
		Int("files", len(results)).
		Dur("duration", time.Since(start)).
		Str("request_id", RequestIDFromContext(r.Context())).
		Msg("repository analysis completed")

	writeJSON(w, http.StatusOK, resp)
}

// HandleListAnalyses returns audit-log rows, newest first, with
// optional language/status filters and a bounded limit.
func (h *Handlers) HandleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed, r)
		return
	}

	if h.db == nil {
		writeError(w, "database not configured", "DB_UNAVAILABLE", http.StatusServiceUnavailable, r)
		return
	}

	filter := storage.AnalysisFilter{
		Language: r.URL.Query().Get("language"),
		Status:   r.URL.Query().Get("status"),
		Limit:    100,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	records, err := h.db.ListAnalyses(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("audit query failed")
		writeError(w, "query failed", "INTERNAL", http.StatusInternalServerError, r)
		return
	}
	if records == nil {
		records = []storage.AnalysisRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

// writeAnalysisError maps pipeline failures to the response taxonomy:
// input and clone problems are 400s, anything else is a 500 with an
// engine hint when the engine is implicated.
func (h *Handlers) writeAnalysisError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyCode):
		writeError(w, "code is required", "EMPTY_CODE", http.StatusBadRequest, r)
	case errors.Is(err, pipeline.ErrUnknownLanguage):
		writeError(w, "could not resolve the submission to a supported language", "UNKNOWN_LANGUAGE", http.StatusBadRequest, r)
	case errors.Is(err, repofetch.ErrMalformedURL):
		writeError(w, err.Error(), "MALFORMED_REPO_URL", http.StatusBadRequest, r)
	case errors.Is(err, repofetch.ErrCloneFailed):
		writeError(w, err.Error(), "CLONE_FAILED", http.StatusBadRequest, r)
	default:
		log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("analysis failed")
		msg := "analysis failed"
		if isEngineError(err) {
			msg += engineHint
		}
		writeError(w, msg, "INTERNAL", http.StatusInternalServerError, r)
	}
}

// isEngineError reports whether a failure implicates the execution
// engine. The executor degrades engine failures in-band, so this only
// fires for errors escaping that policy.
func isEngineError(err error) bool {
	if errors.Is(err, sandbox.ErrEngineUnavailable) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "containerd") || strings.Contains(msg, "docker")
}

func (h *Handlers) logAudit(scope string, result *pipeline.AnalysisResult, start time.Time, r *http.Request) {
	if h.auditWriter == nil {
		return
	}

	h.auditWriter.Log(&storage.AnalysisRecord{
		ID:            uuid.New().String(),
		Scope:         scope,
		Language:      result.Language.String(),
		ExecutionMode: string(result.Runtime.Mode),
		Provenance:    string(result.Suggestions.Provenance),
		DurationMS:    time.Since(start).Milliseconds(),
		Status:        "completed",
		RequestIP:     r.RemoteAddr,
		CreatedAt:     start,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, msg, code string, status int, r *http.Request) {
	resp := ErrorResponse{
		Error:     msg,
		Code:      code,
		RequestID: RequestIDFromContext(r.Context()),
	}
	writeJSON(w, status, resp)
}
