package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"code-smarty/internal/analysis"
	"code-smarty/internal/lang"
	"code-smarty/internal/monitor"
	"code-smarty/internal/sandbox"
	"code-smarty/internal/suggest"
)

// Input errors. All map to a 400 at the API boundary and are never
// retried.
var (
	ErrEmptyCode       = errors.New("code is empty")
	ErrUnknownLanguage = errors.New("could not resolve language")
)

// AnalysisError wraps a pipeline failure with the analysis it belongs to.
type AnalysisError struct {
	ID  string
	Op  string
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis %s: %s: %v", e.ID, e.Op, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Detector resolves a code blob to a language. It never fails; an
// unresolvable blob comes back as lang.Unknown.
type Detector interface {
	Detect(ctx context.Context, code string) lang.Language
}

// Analyzer produces static findings for a resolved language.
type Analyzer interface {
	Analyze(ctx context.Context, code string, language lang.Language) *analysis.FindingSet
}

// Executor runs or simulates the code. It always yields an outcome.
type Executor interface {
	Execute(ctx context.Context, code string, language lang.Language) sandbox.ExecutionOutcome
}

// Suggester synthesizes the remediation report. It never fails; backend
// errors degrade to the deterministic template.
type Suggester interface {
	Synthesize(ctx context.Context, code string, findings *analysis.FindingSet, outcome sandbox.ExecutionOutcome, language lang.Language) suggest.Report
}

// AnalysisResult is the terminal record for one submission.
type AnalysisResult struct {
	Language    lang.Language            `json:"language"`
	Findings    *analysis.FindingSet     `json:"issues"`
	Runtime     sandbox.ExecutionOutcome `json:"runtime"`
	Suggestions suggest.Report           `json:"suggestions"`
}

// Orchestrator sequences detection, static analysis, execution, and
// synthesis. It is the only component aware of the full pipeline.
type Orchestrator struct {
	detector  Detector
	analyzer  Analyzer
	executor  Executor
	suggester Suggester
	metrics   *monitor.Metrics
	tracer    *monitor.Tracer
}

func NewOrchestrator(detector Detector, analyzer Analyzer, executor Executor, suggester Suggester, metrics *monitor.Metrics) *Orchestrator {
	return &Orchestrator{
		detector:  detector,
		analyzer:  analyzer,
		executor:  executor,
		suggester: suggester,
		metrics:   metrics,
		tracer:    monitor.NewTracer(),
	}
}

// AnalyzeCode runs the full pipeline for one submission. Detection uses
// the generative classifier with rule fallback; hinted callers (repo
// scope) pass the extension-resolved language instead.
func (o *Orchestrator) AnalyzeCode(ctx context.Context, code string) (*AnalysisResult, error) {
	return o.analyze(ctx, code, lang.Unknown)
}

// AnalyzeCodeAs runs the pipeline with a pre-resolved language,
// bypassing detection.
func (o *Orchestrator) AnalyzeCodeAs(ctx context.Context, code string, language lang.Language) (*AnalysisResult, error) {
	return o.analyze(ctx, code, language)
}

func (o *Orchestrator) analyze(ctx context.Context, code string, hinted lang.Language) (*AnalysisResult, error) {
	analysisID := uuid.New().String()

	if strings.TrimSpace(code) == "" {
		return nil, &AnalysisError{ID: analysisID, Op: "validate", Err: ErrEmptyCode}
	}

	logger := log.With().Str("analysis_id", analysisID).Logger()
	start := time.Now()

	ctx, span := o.tracer.StartSpan(ctx, "pipeline",
		monitor.AttrAnalysisID.String(analysisID),
	)
	defer span.End()

	language := hinted
	if language == lang.Unknown {
		language = o.stageDetect(ctx, code)
	}
	if language == lang.Unknown {
		o.record(language, "rejected", start)
		return nil, &AnalysisError{ID: analysisID, Op: "detect", Err: ErrUnknownLanguage}
	}
	span.SetAttributes(monitor.AttrLanguage.String(language.String()))
	logger = logger.With().Str("language", language.String()).Logger()

	findings := o.stageAnalyze(ctx, code, language)
	outcome := o.stageExecute(ctx, code, language)
	report := o.stageSynthesize(ctx, code, findings, outcome, language)

	span.SetAttributes(
		monitor.AttrExecMode.String(string(outcome.Mode)),
		monitor.AttrProvenance.String(string(report.Provenance)),
	)

	o.record(language, "completed", start)
	if o.metrics != nil {
		o.metrics.CodeSizeBytes.Observe(float64(len(code)))
		o.metrics.OutputSizeBytes.Observe(float64(len(outcome.Output)))
	}

	logger.Info().
		Str("mode", string(outcome.Mode)).
		Str("provenance", string(report.Provenance)).
		Dur("duration", time.Since(start)).
		Msg("analysis completed")

	return &AnalysisResult{
		Language:    language,
		Findings:    findings,
		Runtime:     outcome,
		Suggestions: report,
	}, nil
}

func (o *Orchestrator) stageDetect(ctx context.Context, code string) lang.Language {
	ctx, span := o.tracer.StartSpan(ctx, "detect")
	defer span.End()
	defer o.stage("detect", time.Now())
	return o.detector.Detect(ctx, code)
}

func (o *Orchestrator) stageAnalyze(ctx context.Context, code string, language lang.Language) *analysis.FindingSet {
	ctx, span := o.tracer.StartSpan(ctx, "static_analysis",
		monitor.AttrLanguage.String(language.String()))
	defer span.End()
	defer o.stage("static_analysis", time.Now())
	return o.analyzer.Analyze(ctx, code, language)
}

func (o *Orchestrator) stageExecute(ctx context.Context, code string, language lang.Language) sandbox.ExecutionOutcome {
	ctx, span := o.tracer.StartSpan(ctx, "execute",
		monitor.AttrLanguage.String(language.String()))
	defer span.End()
	defer o.stage("execute", time.Now())
	return o.executor.Execute(ctx, code, language)
}

func (o *Orchestrator) stageSynthesize(ctx context.Context, code string, findings *analysis.FindingSet, outcome sandbox.ExecutionOutcome, language lang.Language) suggest.Report {
	ctx, span := o.tracer.StartSpan(ctx, "synthesize")
	defer span.End()
	defer o.stage("synthesize", time.Now())
	return o.suggester.Synthesize(ctx, code, findings, outcome, language)
}

func (o *Orchestrator) stage(name string, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordStage(name, time.Since(start).Seconds())
	}
}

func (o *Orchestrator) record(language lang.Language, status string, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordAnalysis(language.String(), status, time.Since(start).Seconds())
	}
}
