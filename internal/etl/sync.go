package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ── Job ────────────────────────────────────────────────────
// Orchestrates: source → loader → markers → keywords → select → destination.

// MarkerPair maps a mark-style source column to its indicator column.
type MarkerPair struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// Job holds the configuration for one pipeline run.
type Job struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	SourceType string       `json:"sourceType"`
	SourceCfg  SourceConfig `json:"sourceConfig"`
	Markers    []MarkerPair `json:"markers,omitempty"`
	TextField  string       `json:"textField,omitempty"`
	Categories []Category   `json:"categories,omitempty"`
	Columns    []string     `json:"columns"`
}

// Validate checks the job before any data is read.
func (j *Job) Validate() error {
	if j.SourceType == "" {
		return configErrorf("source type is required")
	}
	if len(j.Categories) > 0 && j.TextField == "" {
		return configErrorf("keyword categories configured without a text column")
	}
	if err := ValidateCategories(j.Categories); err != nil {
		return err
	}
	if len(j.Columns) == 0 {
		return configErrorf("no output columns configured")
	}
	return nil
}

// Stages builds the transform chain that follows the loader.
func (j *Job) Stages() []Stage {
	var stages []Stage
	if len(j.Markers) > 0 {
		m := &MarkerTransform{}
		for _, p := range j.Markers {
			m.Sources = append(m.Sources, p.Source)
			m.Targets = append(m.Targets, p.Target)
		}
		stages = append(stages, Stage{Name: "markers", Transformer: m})
	}
	if j.TextField != "" {
		stages = append(stages, Stage{Name: "keywords", Transformer: &KeywordTransform{
			Field:      j.TextField,
			Categories: j.Categories,
		}})
	}
	stages = append(stages, Stage{Name: "select", Transformer: &SelectTransform{Fields: j.Columns}})
	return stages
}

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RunResult is the outcome of running a job.
type RunResult struct {
	RunID       string        `json:"runId"`
	JobID       string        `json:"jobId"`
	Status      string        `json:"status"` // "success" | "error"
	RowsRead    int           `json:"rowsRead"`
	RowsWritten int           `json:"rowsWritten"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
	Table       *Table        `json:"-"`
}

// ── Engine ─────────────────────────────────────────────────

// Engine runs jobs using the registered sources and an optional destination.
type Engine struct {
	Dest Destination
	Log  *zap.Logger
}

func (e *Engine) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// Run executes a job end-to-end. On failure the result carries no table.
func (e *Engine) Run(ctx context.Context, job *Job) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{RunID: uuid.NewString(), JobID: job.ID}
	log := e.logger().With(zap.String("run", result.RunID), zap.String("job", job.ID))

	fail := func(stage string, err error) (*RunResult, error) {
		result.Status = StatusError
		result.Error = fmt.Sprintf("%s: %s", stage, err)
		result.Duration = time.Since(start)
		log.Error("run failed", zap.String("stage", stage), zap.Error(err))
		return result, fmt.Errorf("%s: %w", stage, err)
	}

	if err := job.Validate(); err != nil {
		return fail("validate", err)
	}

	// 1. Resolve source from registry.
	source, err := GetSource(job.SourceType)
	if err != nil {
		return fail("source", err)
	}

	// 2. Load, normalize headers, coerce dates.
	table, err := Load(ctx, source, job.SourceCfg)
	if err != nil {
		return fail("load", err)
	}
	result.RowsRead = table.Len()
	log.Debug("loaded",
		zap.String("source", job.SourceType),
		zap.Int("rows", table.Len()),
		zap.Strings("columns", table.Schema.FieldNames()))

	// 3. Derive indicators and project.
	table, err = ApplyTransformers(table, job.Stages(), log)
	if err != nil {
		return fail("transform", err)
	}

	// 4. Write to destination.
	if e.Dest != nil {
		written, err := e.Dest.Write(ctx, table)
		if err != nil {
			return fail("write", err)
		}
		result.RowsWritten = written
	}

	result.Status = StatusSuccess
	result.Table = table
	result.Duration = time.Since(start)
	log.Info("run complete",
		zap.Int("rowsRead", result.RowsRead),
		zap.Int("rowsWritten", result.RowsWritten),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// Preview loads the source and returns up to maxRows rows of the
// normalized table, without running any stage.
func (e *Engine) Preview(ctx context.Context, sourceType string, cfg SourceConfig, maxRows int) (*Table, error) {
	source, err := GetSource(sourceType)
	if err != nil {
		return nil, err
	}
	t, err := Load(ctx, source, cfg)
	if err != nil {
		return nil, err
	}
	if maxRows >= 0 && t.Len() > maxRows {
		t.Records = t.Records[:maxRows]
	}
	return t, nil
}
