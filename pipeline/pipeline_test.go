package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/cair/agent"
	"github.com/richinex/cair/cairerr"
	"github.com/richinex/cair/cost"
	"github.com/richinex/cair/llm"
	"github.com/richinex/cair/registry"
)

// usageProvider is a mock that reports fixed token usage.
type usageProvider struct {
	llm.MockProvider
	usage *llm.TokenUsage
}

func (p *usageProvider) Complete(ctx context.Context, prompt, model string, params llm.Params) (llm.Completion, error) {
	text, err := p.Generate(ctx, prompt, model, params)
	return llm.Completion{Text: text, Usage: p.usage}, err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func mockRegistry(t *testing.T, provider llm.Provider, roles ...agent.Role) *registry.Registry {
	t.Helper()
	catalog := llm.NewCatalog()
	catalog.Register("mock", func() (llm.Provider, error) { return provider, nil })
	reg := registry.New(registry.WithCatalog(catalog), registry.WithLogger(quietLogger()))
	for _, role := range roles {
		require.NoError(t, reg.Configure(role, "mock", "m-"+role.String()))
	}
	return reg
}

var stageRoles = []agent.Role{agent.RoleGenerator, agent.RoleReviewer, agent.RoleRefiner}

func never(context.Context, string, agent.TaskContext, int) (float64, error) {
	return 0.1, nil
}

func TestNeverPassingEvaluatorRunsFullBudget(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("max=%d", n), func(t *testing.T) {
			var prompts []string
			spy := EvaluatorFunc(never)
			mock := llm.NewMockProvider()
			reg := mockRegistry(t, mock, stageRoles...)
			p := New(
				WithRegistry(reg),
				WithMaxIterations(n),
				WithEvaluator(spy),
				WithLogger(quietLogger()),
				WithReviewPrompt(func(s string) string { prompts = append(prompts, "review"); return "Review: " + s }),
				WithRefinePrompt(func(s string) string { prompts = append(prompts, "refine"); return "Refine: " + s }),
			)

			result, err := p.Execute(context.Background(), "task", nil)
			require.NoError(t, err)

			assert.Len(t, result.History, n+1)
			assert.Equal(t, n+1, result.IterationCount)
			assert.Len(t, result.Scores, n)
			assert.Equal(t, 1+2*n, mock.CallCount())

			reviews, refines := 0, 0
			for _, s := range prompts {
				if s == "review" {
					reviews++
				} else {
					refines++
				}
			}
			assert.Equal(t, n, reviews)
			assert.Equal(t, n, refines)
		})
	}
}

func TestEarlyTerminationOnQualityGate(t *testing.T) {
	mock := llm.NewMockProvider()
	reg := mockRegistry(t, mock, stageRoles...)
	scores := []float64{0.5, 0.9, 0.95}
	p := New(
		WithRegistry(reg),
		WithMaxIterations(10),
		WithQualityThreshold(0.85),
		WithLogger(quietLogger()),
		WithEvaluator(EvaluatorFunc(func(_ context.Context, _ string, _ agent.TaskContext, i int) (float64, error) {
			return scores[i], nil
		})),
	)

	result, err := p.Execute(context.Background(), "task", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.IterationCount)
	assert.Equal(t, 2, result.Rounds())
	assert.Equal(t, []float64{0.5, 0.9}, result.Scores)
	assert.Equal(t, 0.9, result.QualityScore)
	assert.Equal(t, 5, mock.CallCount())
}

func TestScoreEqualToThresholdStops(t *testing.T) {
	reg := mockRegistry(t, llm.NewMockProvider(), stageRoles...)
	p := New(
		WithRegistry(reg),
		WithQualityThreshold(0.5),
		WithLogger(quietLogger()),
		WithEvaluator(EvaluatorFunc(func(context.Context, string, agent.TaskContext, int) (float64, error) {
			return 0.5, nil
		})),
	)

	result, err := p.Execute(context.Background(), "task", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.IterationCount)
}

func TestRestEndpointScenario(t *testing.T) {
	p := New(WithMaxIterations(2), WithLogger(quietLogger()))
	for _, role := range stageRoles {
		require.NoError(t, p.Registry().Configure(role, "mock", "gpt-4"))
	}

	tctx := agent.TaskContext{"lang": "py"}
	result, err := p.Execute(context.Background(), "Create a REST endpoint", tctx)
	require.NoError(t, err)

	require.Len(t, result.History, 3)
	assert.Equal(t, 3, result.IterationCount)

	generated := llm.MockResponse("Create a REST endpoint", "gpt-4")
	assert.Equal(t, generated, result.History[0])

	feedback := llm.MockResponse("Review this output: "+result.History[1], "gpt-4")
	lastRefine := "Refine based on feedback: " + feedback
	assert.Equal(t, llm.MockResponse(lastRefine, "gpt-4"), result.FinalOutput)
	assert.Equal(t, result.History[2], result.FinalOutput)

	assert.Equal(t, "Create a REST endpoint", result.Metadata[MetaInitialPrompt])
	assert.Equal(t, tctx, result.Metadata[MetaContext])
	assert.InDelta(t, 0.8, result.QualityScore, 1e-9)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "RefinementResult(quality_score=0.80, iterations=3)", result.String())
}

func TestZeroIterations(t *testing.T) {
	mock := llm.NewMockProvider()
	reg := mockRegistry(t, mock, agent.RoleGenerator)
	p := New(WithRegistry(reg), WithMaxIterations(0), WithLogger(quietLogger()))

	result, err := p.Execute(context.Background(), "only generate", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.IterationCount)
	assert.Equal(t, 0.0, result.QualityScore)
	assert.Empty(t, result.Scores)
	assert.Equal(t, 1, mock.CallCount())
}

func TestNegativeIterationsTreatedAsZero(t *testing.T) {
	p := New(WithMaxIterations(-3))
	assert.Equal(t, 0, p.MaxIterations())
}

func TestDefaults(t *testing.T) {
	p := New()
	assert.Equal(t, DefaultMaxIterations, p.MaxIterations())
	assert.Equal(t, DefaultQualityThreshold, p.QualityThreshold())
	assert.NotNil(t, p.Registry())
}

func TestPlaceholderDefaultStopsAtThirdRound(t *testing.T) {
	reg := mockRegistry(t, llm.NewMockProvider(), stageRoles...)
	p := New(WithRegistry(reg), WithMaxIterations(10), WithLogger(quietLogger()))

	result, err := p.Execute(context.Background(), "task", nil)
	require.NoError(t, err)

	assert.Equal(t, 4, result.IterationCount)
	assert.InDeltaSlice(t, []float64{0.7, 0.8, 0.9}, result.Scores, 1e-9)
}

func TestGeneratorUnconfigured(t *testing.T) {
	mock := llm.NewMockProvider()
	reg := mockRegistry(t, mock, agent.RoleReviewer, agent.RoleRefiner)
	p := New(WithRegistry(reg), WithLogger(quietLogger()))

	result, err := p.Execute(context.Background(), "task", nil)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, cairerr.ErrRoleNotConfigured)
	assert.Equal(t, "No agent configured for role: generator", err.Error())
	assert.Zero(t, mock.CallCount())
}

func TestStageFailureAbortsRun(t *testing.T) {
	mock := llm.NewMockProvider()
	reg := mockRegistry(t, mock, agent.RoleGenerator, agent.RoleReviewer)
	p := New(WithRegistry(reg), WithLogger(quietLogger()))

	result, err := p.Execute(context.Background(), "task", nil)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, cairerr.ErrRoleNotConfigured)
	assert.Contains(t, err.Error(), "refiner")
	assert.Equal(t, 2, mock.CallCount(), "generate and review ran, nothing retried")
}

func TestEvaluatorFailureAborts(t *testing.T) {
	boom := errors.New("scorer offline")
	reg := mockRegistry(t, llm.NewMockProvider(), stageRoles...)
	p := New(
		WithRegistry(reg),
		WithLogger(quietLogger()),
		WithEvaluator(EvaluatorFunc(func(context.Context, string, agent.TaskContext, int) (float64, error) {
			return 0, boom
		})),
	)

	result, err := p.Execute(context.Background(), "task", nil)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
}

func TestQAStageStoresReport(t *testing.T) {
	mock := llm.NewMockProvider()
	reg := mockRegistry(t, mock, append(stageRoles, agent.RoleQAAnalyst)...)
	p := New(WithRegistry(reg), WithMaxIterations(1), WithQAStage(nil), WithLogger(quietLogger()))

	result, err := p.Execute(context.Background(), "task", nil)
	require.NoError(t, err)

	report, ok := result.Metadata[MetaQAReport].(string)
	require.True(t, ok)
	assert.Equal(t, llm.MockResponse("Validate this output: "+result.FinalOutput, "m-qa_analyst"), report)
	assert.Len(t, result.History, 2, "QA report never enters history")
	assert.Equal(t, 4, mock.CallCount())
}

func TestQAStageRequiresRole(t *testing.T) {
	reg := mockRegistry(t, llm.NewMockProvider(), stageRoles...)
	p := New(WithRegistry(reg), WithMaxIterations(1), WithQAStage(Format("QA: %s")), WithLogger(quietLogger()))

	_, err := p.Execute(context.Background(), "task", nil)
	assert.ErrorIs(t, err, cairerr.ErrRoleNotConfigured)
}

func TestNoQAStageByDefault(t *testing.T) {
	reg := mockRegistry(t, llm.NewMockProvider(), stageRoles...)
	p := New(WithRegistry(reg), WithMaxIterations(1), WithLogger(quietLogger()))

	result, err := p.Execute(context.Background(), "task", nil)
	require.NoError(t, err)
	assert.NotContains(t, result.Metadata, MetaQAReport)
}

func TestCustomRoles(t *testing.T) {
	mock := llm.NewMockProvider()
	reg := mockRegistry(t, mock, agent.RoleOrchestrator, agent.RoleQAAnalyst)
	p := New(
		WithRegistry(reg),
		WithMaxIterations(1),
		WithLogger(quietLogger()),
		WithRoles(Roles{
			Generator: agent.RoleOrchestrator,
			Reviewer:  agent.RoleQAAnalyst,
			Refiner:   agent.RoleOrchestrator,
		}),
	)

	result, err := p.Execute(context.Background(), "task", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.FinalOutput, "[Mock m-orchestrator]"))
}

func TestObserverSeesTransitions(t *testing.T) {
	reg := mockRegistry(t, llm.NewMockProvider(), stageRoles...)
	var seen []string
	p := New(
		WithRegistry(reg),
		WithMaxIterations(2),
		WithEvaluator(EvaluatorFunc(never)),
		WithLogger(quietLogger()),
		WithObserver(func(tr Transition) {
			seen = append(seen, tr.From.String()+">"+tr.To.String())
		}),
	)

	_, err := p.Execute(context.Background(), "task", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"initial>generated",
		"generated>reviewing",
		"reviewing>refined",
		"refined>reviewing",
		"reviewing>refined",
		"refined>terminal",
	}, seen)
}

func TestLedgerRecordsUsage(t *testing.T) {
	provider := &usageProvider{usage: &llm.TokenUsage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500}}
	catalog := llm.NewCatalog()
	catalog.Register("mock", func() (llm.Provider, error) { return provider, nil })
	reg := registry.New(registry.WithCatalog(catalog), registry.WithLogger(quietLogger()))
	for _, role := range stageRoles {
		require.NoError(t, reg.Configure(role, "mock", "gpt-4"))
	}
	ledger := cost.NewLedger()
	p := New(WithRegistry(reg), WithMaxIterations(1), WithLedger(ledger), WithLogger(quietLogger()))

	_, err := p.Execute(context.Background(), "task", nil)
	require.NoError(t, err)

	summary := ledger.Summary()
	assert.Equal(t, 3, summary.TotalCalls)
	assert.Equal(t, 4500, summary.TotalTokens)
	assert.InDelta(t, 0.18, summary.TotalCostUSD, 1e-9)
}

func TestLedgerSkipsCallsWithoutUsage(t *testing.T) {
	reg := mockRegistry(t, llm.NewMockProvider(), stageRoles...)
	ledger := cost.NewLedger()
	p := New(WithRegistry(reg), WithMaxIterations(1), WithLedger(ledger), WithLogger(quietLogger()))

	_, err := p.Execute(context.Background(), "task", nil)
	require.NoError(t, err)
	assert.Zero(t, ledger.Summary().TotalCalls)
}

func TestContextMetadataIsCopied(t *testing.T) {
	reg := mockRegistry(t, llm.NewMockProvider(), stageRoles...)
	p := New(WithRegistry(reg), WithMaxIterations(1), WithLogger(quietLogger()))
	tctx := agent.TaskContext{"lang": "go"}

	result, err := p.Execute(context.Background(), "task", tctx)
	require.NoError(t, err)

	tctx["lang"] = "changed"
	assert.Equal(t, agent.TaskContext{"lang": "go"}, result.Metadata[MetaContext])
}

// rebindingProvider rebinds the generator to another model while its first call is in flight.
type rebindingProvider struct {
	usageProvider
	reg      *registry.Registry
	rebound  bool
	newModel string
}

func (p *rebindingProvider) Complete(ctx context.Context, prompt, model string, params llm.Params) (llm.Completion, error) {
	if !p.rebound {
		p.rebound = true
		if err := p.reg.Configure(agent.RoleGenerator, "mock", p.newModel); err != nil {
			return llm.Completion{}, err
		}
	}
	return p.usageProvider.Complete(ctx, prompt, model, params)
}

func TestLedgerRecordsModelThatServedCall(t *testing.T) {
	provider := &rebindingProvider{
		usageProvider: usageProvider{usage: &llm.TokenUsage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500}},
		newModel:      "gpt-3.5-turbo",
	}
	catalog := llm.NewCatalog()
	catalog.Register("mock", func() (llm.Provider, error) { return provider, nil })
	reg := registry.New(registry.WithCatalog(catalog), registry.WithLogger(quietLogger()))
	provider.reg = reg
	for _, role := range stageRoles {
		require.NoError(t, reg.Configure(role, "mock", "gpt-4"))
	}
	ledger := cost.NewLedger()
	p := New(WithRegistry(reg), WithMaxIterations(1), WithLedger(ledger), WithLogger(quietLogger()))

	_, err := p.Execute(context.Background(), "task", nil)
	require.NoError(t, err)

	calls := ledger.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "gpt-4", calls[0].Model)
	gen, ok := reg.Binding(agent.RoleGenerator)
	require.True(t, ok)
	assert.Equal(t, "gpt-3.5-turbo", gen.Model)
}

func TestStateString(t *testing.T) {
	names := map[State]string{
		StateInitial:   "initial",
		StateGenerated: "generated",
		StateReviewing: "reviewing",
		StateRefined:   "refined",
		StateTerminal:  "terminal",
		State(99):      "unknown",
	}
	for state, want := range names {
		assert.Equal(t, want, state.String())
	}
}
