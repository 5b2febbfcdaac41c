package storage

import "time"

// AnalysisRecord is the audit row written for one completed analysis.
// It summarizes the operation only; submitted code and pipeline entities
// are never persisted.
type AnalysisRecord struct {
	ID            string    `json:"id" db:"id"`
	Scope         string    `json:"scope" db:"scope"` // snippet, repo_file
	Language      string    `json:"language" db:"language"`
	ExecutionMode string    `json:"execution_mode" db:"execution_mode"` // sandboxed, fallback-simulated
	Provenance    string    `json:"provenance" db:"provenance"`         // generated, fallback-template
	DurationMS    int64     `json:"duration_ms" db:"duration_ms"`
	Status        string    `json:"status" db:"status"` // completed, rejected, error
	RequestIP     string    `json:"request_ip" db:"request_ip"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// AnalysisFilter provides criteria for querying audit records.
type AnalysisFilter struct {
	Language string
	Status   string
	Limit    int
	Offset   int
}
