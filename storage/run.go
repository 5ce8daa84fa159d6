// Package storage provides persistence for refinement runs.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory and SQLite without API changes
// - Each storage implementation encapsulates its own data structures

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/richinex/cair/cost"
	"github.com/richinex/cair/pipeline"
)

// ErrRunNotFound is returned by LoadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is the persisted form of a refinement result.
type Run struct {
	ID             string
	InitialPrompt  string
	FinalOutput    string
	QualityScore   float64
	IterationCount int
	History        []string
	Scores         []float64
	Metadata       map[string]any
	StartedAt      time.Time
	Duration       time.Duration
}

// RunSummary is a list entry without drafts.
type RunSummary struct {
	ID             string
	InitialPrompt  string
	QualityScore   float64
	IterationCount int
	StartedAt      time.Time
}

// FromResult converts a pipeline result into a Run.
func FromResult(result *pipeline.Result) Run {
	initial, _ := result.Metadata[pipeline.MetaInitialPrompt].(string)

	history := make([]string, len(result.History))
	copy(history, result.History)
	scores := make([]float64, len(result.Scores))
	copy(scores, result.Scores)
	metadata := make(map[string]any, len(result.Metadata))
	for k, v := range result.Metadata {
		metadata[k] = v
	}

	return Run{
		ID:             result.RunID,
		InitialPrompt:  initial,
		FinalOutput:    result.FinalOutput,
		QualityScore:   result.QualityScore,
		IterationCount: result.IterationCount,
		History:        history,
		Scores:         scores,
		Metadata:       metadata,
		StartedAt:      result.StartedAt,
		Duration:       result.Duration,
	}
}

// Summary returns the list entry for r.
func (r Run) Summary() RunSummary {
	return RunSummary{
		ID:             r.ID,
		InitialPrompt:  r.InitialPrompt,
		QualityScore:   r.QualityScore,
		IterationCount: r.IterationCount,
		StartedAt:      r.StartedAt,
	}
}

// RunStore persists refinement runs and the ledger calls made during them.
type RunStore interface {
	// SaveRun stores a run, replacing any run with the same ID.
	SaveRun(ctx context.Context, run Run) error

	// LoadRun returns the run with the given ID or ErrRunNotFound.
	LoadRun(ctx context.Context, id string) (Run, error)

	// ListRuns returns the most recent runs first. limit <= 0 means no limit.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// DeleteRun removes a run and its calls.
	DeleteRun(ctx context.Context, id string) error

	// SaveCalls appends ledger calls to a run.
	SaveCalls(ctx context.Context, runID string, calls []cost.Call) error

	// LoadCalls returns a run's calls in record order.
	// Returns empty slice (not nil) if the run has none.
	LoadCalls(ctx context.Context, runID string) ([]cost.Call, error)

	// Close releases backend resources.
	Close() error
}
