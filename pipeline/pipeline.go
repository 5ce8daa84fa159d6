// Package pipeline implements the CAIR refinement loop:
// generate, then review and refine until a quality gate or the iteration
// budget stops it.
//
// Information Hiding:
// - State transitions and termination rules
// - Prompt construction for each stage
// - Usage accounting and instrumentation
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/richinex/cair/agent"
	"github.com/richinex/cair/cost"
	"github.com/richinex/cair/registry"
	"github.com/richinex/cair/telemetry"
)

const (
	// DefaultMaxIterations is the review/refine budget of a new pipeline.
	DefaultMaxIterations = 3
	// DefaultQualityThreshold is the score that stops the loop early.
	DefaultQualityThreshold = 0.85
)

// PromptBuilder turns a stage input into the prompt sent to that stage's role.
type PromptBuilder func(input string) string

// Format returns a PromptBuilder that substitutes the input for %s in format.
func Format(format string) PromptBuilder {
	return func(input string) string { return fmt.Sprintf(format, input) }
}

// Roles names the role used by each stage.
type Roles struct {
	Generator agent.Role
	Reviewer  agent.Role
	Refiner   agent.Role
	QA        agent.Role
}

// DefaultRoles returns the standard stage roles.
func DefaultRoles() Roles {
	return Roles{
		Generator: agent.RoleGenerator,
		Reviewer:  agent.RoleReviewer,
		Refiner:   agent.RoleRefiner,
		QA:        agent.RoleQAAnalyst,
	}
}

// Pipeline drives refinement runs against a registry.
type Pipeline struct {
	registry      *registry.Registry
	roles         Roles
	maxIterations int
	threshold     float64
	evaluator     Evaluator
	reviewPrompt  PromptBuilder
	refinePrompt  PromptBuilder
	qaPrompt      PromptBuilder
	qaStage       bool
	ledger        *cost.Ledger
	observer      Observer
	logger        *slog.Logger
	instruments   *telemetry.Instruments
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRegistry runs the pipeline against an existing registry instead of a
// fresh one.
func WithRegistry(reg *registry.Registry) Option {
	return func(p *Pipeline) { p.registry = reg }
}

// WithRoles overrides the stage roles.
func WithRoles(roles Roles) Option {
	return func(p *Pipeline) { p.roles = roles }
}

// WithMaxIterations sets the review/refine budget. Negative values mean 0.
func WithMaxIterations(n int) Option {
	return func(p *Pipeline) { p.maxIterations = max(n, 0) }
}

// WithQualityThreshold sets the early-termination score.
func WithQualityThreshold(threshold float64) Option {
	return func(p *Pipeline) { p.threshold = threshold }
}

// WithEvaluator replaces the placeholder evaluator.
func WithEvaluator(e Evaluator) Option {
	return func(p *Pipeline) { p.evaluator = e }
}

// WithReviewPrompt sets how the current draft becomes a review request.
func WithReviewPrompt(build PromptBuilder) Option {
	return func(p *Pipeline) { p.reviewPrompt = build }
}

// WithRefinePrompt sets how review feedback becomes a refine request.
func WithRefinePrompt(build PromptBuilder) Option {
	return func(p *Pipeline) { p.refinePrompt = build }
}

// WithQAStage adds a validation dispatch to the QA role after the loop.
// Its reply is stored under MetaQAReport and never enters History.
func WithQAStage(build PromptBuilder) Option {
	return func(p *Pipeline) {
		p.qaStage = true
		if build != nil {
			p.qaPrompt = build
		}
	}
}

// WithLedger records token usage of every stage that reports it.
func WithLedger(ledger *cost.Ledger) Option {
	return func(p *Pipeline) { p.ledger = ledger }
}

// WithObserver receives every state transition.
func WithObserver(observer Observer) Option {
	return func(p *Pipeline) { p.observer = observer }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithInstruments sets the metrics recorder.
func WithInstruments(instruments *telemetry.Instruments) Option {
	return func(p *Pipeline) { p.instruments = instruments }
}

// New creates a pipeline. Without WithRegistry it owns a new registry,
// reachable through Registry, that the caller configures before Execute.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		roles:         DefaultRoles(),
		maxIterations: DefaultMaxIterations,
		threshold:     DefaultQualityThreshold,
		evaluator:     PlaceholderEvaluator{},
		reviewPrompt:  Format("Review this output: %s"),
		refinePrompt:  Format("Refine based on feedback: %s"),
		qaPrompt:      Format("Validate this output: %s"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.registry == nil {
		p.registry = registry.New(registry.WithLogger(p.logger))
	}
	if p.instruments == nil {
		if in, err := telemetry.NewInstruments(); err == nil {
			p.instruments = in
		}
	}
	return p
}

// Registry returns the registry the pipeline dispatches through.
func (p *Pipeline) Registry() *registry.Registry {
	return p.registry
}

// MaxIterations returns the review/refine budget.
func (p *Pipeline) MaxIterations() int {
	return p.maxIterations
}

// QualityThreshold returns the early-termination score.
func (p *Pipeline) QualityThreshold() float64 {
	return p.threshold
}

// run tracks the mutable state of one Execute call.
type run struct {
	id    string
	state State
}

// Execute performs one refinement run. The generate step always runs; then
// up to MaxIterations review/refine rounds follow, stopping at the first
// score at or above the threshold. Any failure aborts the run and no
// partial result is returned.
func (p *Pipeline) Execute(ctx context.Context, initialPrompt string, tctx agent.TaskContext) (*Result, error) {
	started := time.Now()
	r := &run{id: uuid.NewString(), state: StateInitial}

	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.execute",
		trace.WithAttributes(
			attribute.String(telemetry.AttrRunID, r.id),
			attribute.Int("cair.max_iterations", p.maxIterations),
			attribute.Float64("cair.quality_threshold", p.threshold),
		),
	)
	defer span.End()

	result, err := p.execute(ctx, r, initialPrompt, tctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.ErrorContext(ctx, "refinement run failed", "run_id", r.id, "state", r.state, "error", err)
		return nil, err
	}

	result.StartedAt = started
	result.Duration = time.Since(started)
	span.SetAttributes(
		attribute.Int("cair.iteration_count", result.IterationCount),
		attribute.Float64("cair.quality_score", result.QualityScore),
	)
	p.logger.InfoContext(ctx, "refinement run complete",
		"run_id", r.id,
		"iterations", result.IterationCount,
		"quality_score", result.QualityScore,
		"duration", result.Duration,
	)
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, r *run, initialPrompt string, tctx agent.TaskContext) (*Result, error) {
	current, err := p.stage(ctx, "generate", p.roles.Generator, initialPrompt, tctx, -1)
	if err != nil {
		return nil, err
	}
	history := []string{current}
	p.transition(r, StateGenerated, -1)

	var scores []float64
	quality := 0.0
	for i := 0; i < p.maxIterations; i++ {
		p.transition(r, StateReviewing, i)
		feedback, err := p.stage(ctx, "review", p.roles.Reviewer, p.reviewPrompt(current), tctx, i)
		if err != nil {
			return nil, err
		}

		current, err = p.stage(ctx, "refine", p.roles.Refiner, p.refinePrompt(feedback), tctx, i)
		if err != nil {
			return nil, err
		}
		history = append(history, current)
		p.transition(r, StateRefined, i)

		quality, err = p.evaluator.Evaluate(ctx, current, tctx, i)
		if err != nil {
			return nil, fmt.Errorf("quality evaluation failed at iteration %d: %w", i, err)
		}
		scores = append(scores, quality)
		p.instruments.RecordIteration(ctx, quality)

		if quality >= p.threshold {
			p.logger.DebugContext(ctx, "quality gate passed", "run_id", r.id, "iteration", i, "score", quality)
			break
		}
	}

	metadata := map[string]any{
		MetaInitialPrompt: initialPrompt,
		MetaContext:       tctx.Clone(),
	}
	if p.qaStage {
		report, err := p.stage(ctx, "qa", p.roles.QA, p.qaPrompt(current), tctx, -1)
		if err != nil {
			return nil, err
		}
		metadata[MetaQAReport] = report
	}
	p.transition(r, StateTerminal, -1)

	return &Result{
		RunID:          r.id,
		FinalOutput:    history[len(history)-1],
		QualityScore:   quality,
		IterationCount: len(history),
		History:        history,
		Scores:         scores,
		Metadata:       metadata,
	}, nil
}

// stage dispatches one prompt to role inside its own span.
func (p *Pipeline) stage(ctx context.Context, name string, role agent.Role, prompt string, tctx agent.TaskContext, iteration int) (string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline."+name,
		trace.WithAttributes(
			attribute.String(telemetry.AttrStage, name),
			attribute.String(telemetry.AttrRole, role.String()),
			attribute.Int(telemetry.AttrIteration, iteration),
		),
	)
	defer span.End()

	if p.ledger == nil {
		text, err := p.registry.Dispatch(ctx, role, prompt, registry.WithContext(tctx))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return text, err
	}

	completion, err := p.registry.DispatchCompletion(ctx, role, prompt, registry.WithContext(tctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if completion.Usage != nil {
		p.ledger.Record(completion.Model, int(completion.Usage.PromptTokens), int(completion.Usage.CompletionTokens), nil)
	}
	return completion.Text, nil
}

func (p *Pipeline) transition(r *run, to State, iteration int) {
	from := r.state
	r.state = to
	p.logger.Debug("pipeline transition", "run_id", r.id, "from", from, "to", to, "iteration", iteration)
	if p.observer != nil {
		p.observer(Transition{RunID: r.id, From: from, To: to, Iteration: iteration})
	}
}
