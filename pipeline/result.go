package pipeline

import (
	"fmt"
	"time"
)

// Metadata keys set on every Result.
const (
	MetaInitialPrompt = "initialPrompt"
	MetaContext       = "context"
	MetaQAReport      = "qaReport"
)

// Result summarizes one refinement run.
type Result struct {
	RunID string

	// FinalOutput is the last entry of History.
	FinalOutput string

	// QualityScore is the last computed score, or 0 when no round ran.
	QualityScore float64

	// IterationCount equals len(History).
	IterationCount int

	// History holds every draft in order: the generation, then one entry per refine pass.
	History []string

	// Scores holds one score per completed round.
	Scores []float64

	Metadata map[string]any

	StartedAt time.Time
	Duration  time.Duration
}

// Rounds returns the number of review/refine rounds executed.
func (r *Result) Rounds() int {
	return len(r.Scores)
}

func (r *Result) String() string {
	return fmt.Sprintf("RefinementResult(quality_score=%.2f, iterations=%d)", r.QualityScore, r.IterationCount)
}
