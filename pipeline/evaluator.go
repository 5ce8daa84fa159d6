package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/richinex/cair/agent"
	cairjson "github.com/richinex/cair/internal/json"
	"github.com/richinex/cair/registry"
)

// Evaluator scores a refined draft. iteration is the zero-based round.
// The pipeline compares the score against its quality threshold, so both
// must use the same scale.
type Evaluator interface {
	Evaluate(ctx context.Context, output string, tctx agent.TaskContext, iteration int) (float64, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, output string, tctx agent.TaskContext, iteration int) (float64, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, output string, tctx agent.TaskContext, iteration int) (float64, error) {
	return f(ctx, output, tctx, iteration)
}

// PlaceholderEvaluator scores 0.7 plus 0.1 per completed round, capped at 1.
// It ignores the output and exists as a deterministic stand-in for tests
// and demos.
type PlaceholderEvaluator struct{}

// Evaluate returns the placeholder score for iteration.
func (PlaceholderEvaluator) Evaluate(_ context.Context, _ string, _ agent.TaskContext, iteration int) (float64, error) {
	return clamp(0.7 + 0.1*float64(iteration)), nil
}

// RoleEvaluator asks a configured role (the QA analyst by default) to score
// the draft and parses the score out of its reply with ParseScore.
type RoleEvaluator struct {
	registry *registry.Registry
	role     agent.Role
	prompt   PromptBuilder
}

// RoleEvaluatorOption configures a RoleEvaluator.
type RoleEvaluatorOption func(*RoleEvaluator)

// EvaluateWithRole sets the scoring role.
func EvaluateWithRole(role agent.Role) RoleEvaluatorOption {
	return func(e *RoleEvaluator) { e.role = role }
}

// EvaluateWithPrompt sets the scoring prompt builder.
func EvaluateWithPrompt(build PromptBuilder) RoleEvaluatorOption {
	return func(e *RoleEvaluator) { e.prompt = build }
}

// NewRoleEvaluator creates an evaluator that dispatches through reg.
func NewRoleEvaluator(reg *registry.Registry, opts ...RoleEvaluatorOption) *RoleEvaluator {
	e := &RoleEvaluator{
		registry: reg,
		role:     agent.RoleQAAnalyst,
		prompt:   Format(`Rate the quality of this output from 0.0 to 1.0. Reply with JSON {"score": <number>}: %s`),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate dispatches the scoring prompt and parses the reply.
func (e *RoleEvaluator) Evaluate(ctx context.Context, output string, tctx agent.TaskContext, _ int) (float64, error) {
	reply, err := e.registry.Dispatch(ctx, e.role, e.prompt(output), registry.WithContext(tctx))
	if err != nil {
		return 0, err
	}
	return ParseScore(reply)
}

type scoreReply struct {
	Score *float64 `json:"score"`
}

var (
	bareScore     = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*$`)
	labelledScore = regexp.MustCompile(`(?i)\bscore\s*[:=]?\s*(-?\d+(?:\.\d+)?)(\s*(?:/|out\s+of)\s*\d+)?`)
)

// ParseScore reads {"score": x} from reply, falling back to a reply that is
// only a number or to a labelled "score: x". Ratios such as "8/10" and scores
// outside [0, 1] are rejected.
func ParseScore(reply string) (float64, error) {
	if parsed, err := cairjson.Decode[scoreReply](reply); err == nil && parsed.Score != nil {
		return checkScore(*parsed.Score)
	}

	var match string
	if m := bareScore.FindStringSubmatch(reply); m != nil {
		match = m[1]
	} else if m := labelledScore.FindStringSubmatch(reply); m != nil {
		if m[2] != "" {
			return 0, fmt.Errorf("quality score %q is a ratio, want a value in [0, 1]", strings.TrimSpace(m[0]))
		}
		match = m[1]
	}
	if match == "" {
		preview := reply
		if len(preview) > 80 {
			preview = preview[:80] + "..."
		}
		return 0, fmt.Errorf("no quality score in evaluator reply: %q", preview)
	}

	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quality score %q: %w", match, err)
	}
	return checkScore(score)
}

func checkScore(score float64) (float64, error) {
	if score < 0 || score > 1 {
		return 0, fmt.Errorf("quality score %v outside [0, 1]", score)
	}
	return score, nil
}

func clamp(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
