// Command execution for CLI commands.
//
// Information Hiding:
// - Registry/pipeline setup hidden
// - Logging and telemetry wiring hidden
// - Output formatting hidden

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/richinex/cair/agent"
	"github.com/richinex/cair/config"
	"github.com/richinex/cair/cost"
	"github.com/richinex/cair/llm"
	"github.com/richinex/cair/pipeline"
	"github.com/richinex/cair/registry"
	"github.com/richinex/cair/storage"
	"github.com/richinex/cair/telemetry"
)

// Version is the cair release.
const Version = "0.1.0"

const serviceName = "cair"

// Options holds CLI execution options.
type Options struct {
	ConfigPath string
	Provider   string
	Model      string
	MaxIter    int     // negative: use config
	Threshold  float64 // negative: use config
	QA         bool
	Context    []string // key=value pairs
	DBPath     string
	Verbose    bool

	Out       io.Writer // command output, defaults to os.Stdout
	LogOutput io.Writer // log records, defaults to os.Stderr
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{
		Provider:  llm.ProviderMock.String(),
		MaxIter:   -1,
		Threshold: -1,
	}
}

type session struct {
	cfg         *config.File
	reg         *registry.Registry
	logger      *slog.Logger
	instruments *telemetry.Instruments
	shutdown    telemetry.ShutdownFunc
	out         io.Writer
}

func open(opts Options) (*session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logOut := opts.LogOutput
	if logOut == nil {
		logOut = os.Stderr
	}
	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logger := telemetry.ConfigureSlog(logOut, level, cfg.Log.Format)

	shutdown, err := telemetry.Init(serviceName, Version, telemetry.Config{Exporter: cfg.Telemetry.Exporter})
	if err != nil {
		return nil, err
	}
	instruments, err := telemetry.NewInstruments()
	if err != nil {
		_ = shutdown(context.Background())
		return nil, err
	}

	reg := registry.New(registry.WithLogger(logger), registry.WithInstruments(instruments))
	if err := cfg.Apply(reg); err != nil {
		_ = shutdown(context.Background())
		return nil, err
	}
	if err := ConfigureDefaults(reg, opts.Provider, opts.Model); err != nil {
		_ = shutdown(context.Background())
		return nil, err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return &session{
		cfg:         cfg,
		reg:         reg,
		logger:      logger,
		instruments: instruments,
		shutdown:    shutdown,
		out:         out,
	}, nil
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.shutdown(ctx); err != nil {
		s.logger.Warn("telemetry shutdown failed", "error", err)
	}
}

// Run executes the refinement pipeline on task.
func Run(ctx context.Context, task string, opts Options) error {
	tctx, err := ParseContext(opts.Context)
	if err != nil {
		return err
	}

	s, err := open(opts)
	if err != nil {
		return err
	}
	defer s.close()

	maxIter := s.cfg.Pipeline.MaxIterations
	if opts.MaxIter >= 0 {
		maxIter = opts.MaxIter
	}
	threshold := s.cfg.Pipeline.QualityThreshold
	if opts.Threshold >= 0 {
		threshold = opts.Threshold
	}

	ledger := cost.NewLedger()
	popts := []pipeline.Option{
		pipeline.WithRegistry(s.reg),
		pipeline.WithMaxIterations(maxIter),
		pipeline.WithQualityThreshold(threshold),
		pipeline.WithLedger(ledger),
		pipeline.WithLogger(s.logger),
		pipeline.WithInstruments(s.instruments),
	}
	if opts.QA || s.cfg.Pipeline.QAStage {
		popts = append(popts, pipeline.WithQAStage(nil))
	}
	if opts.Verbose {
		popts = append(popts, pipeline.WithObserver(func(t pipeline.Transition) {
			fmt.Fprintf(s.out, "  [%d] %s -> %s\n", t.Iteration, t.From, t.To)
		}))
	}

	fmt.Fprintf(s.out, "Running refinement (max %d iterations, threshold %.2f)...\n\n", maxIter, threshold)

	result, err := pipeline.New(popts...).Execute(ctx, task, tctx)
	if err != nil {
		return fmt.Errorf("refinement failed: %w", err)
	}

	printResult(s.out, result, opts.Verbose)
	printUsage(s.out, ledger.Summary())

	if opts.DBPath != "" {
		if err := saveRun(ctx, opts.DBPath, result, ledger.Calls()); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Saved run %s to %s\n", result.RunID, opts.DBPath)
	}
	return nil
}

// Dispatch sends a single prompt to the agent bound to roleName.
func Dispatch(ctx context.Context, roleName, prompt string, opts Options) error {
	role, err := agent.ParseRole(roleName)
	if err != nil {
		return err
	}
	tctx, err := ParseContext(opts.Context)
	if err != nil {
		return err
	}

	s, err := open(opts)
	if err != nil {
		return err
	}
	defer s.close()

	text, err := s.reg.Dispatch(ctx, role, prompt, registry.WithContext(tctx))
	if err != nil {
		return err
	}

	if opts.Verbose {
		if b, ok := s.reg.Binding(role); ok {
			fmt.Fprintf(s.out, "(%s)\n", b)
		}
	}
	fmt.Fprintln(s.out, text)
	return nil
}

// ListModels prints the static model catalogue of one provider, or all of them.
func ListModels(out io.Writer, providerName string) error {
	types := llm.ProviderTypes()
	if providerName != "" {
		pt, err := llm.ParseProviderType(providerName)
		if err != nil {
			return err
		}
		types = []llm.ProviderType{pt}
	}

	for _, pt := range types {
		fmt.Fprintf(out, "%s (default: %s)\n", pt, pt.DefaultModel())
		for _, model := range pt.Models() {
			fmt.Fprintf(out, "  %s\n", model)
		}
		fmt.Fprintln(out)
	}
	return nil
}

// EstimateCost prints the estimated cost of a call, or the pricing table when model is empty.
func EstimateCost(out io.Writer, model string, inputTokens, outputTokens int) {
	prices := cost.DefaultPrices()
	if model == "" {
		fmt.Fprintln(out, "Pricing (USD per 1K tokens):")
		for _, name := range prices.Models() {
			p := prices[name]
			fmt.Fprintf(out, "  %-28s input %.5f  output %.5f\n", name, p.Input, p.Output)
		}
		return
	}

	estimate := prices.Estimate(model, inputTokens, outputTokens)
	fmt.Fprintf(out, "%s: %d input + %d output tokens = $%.4f\n", model, inputTokens, outputTokens, estimate)
	if _, ok := prices[model]; !ok {
		fmt.Fprintln(out, "(model not in pricing table)")
	}
}

// History lists stored runs, or shows one run when runID is set.
func History(ctx context.Context, out io.Writer, dbPath, runID string, limit int) error {
	store, err := storage.OpenSqlite(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if runID != "" {
		return showRun(ctx, out, store, runID)
	}

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs stored.")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(out, "%s  %s  score=%.2f  iterations=%d  %s\n",
			run.ID, run.StartedAt.Format(time.RFC3339), run.QualityScore, run.IterationCount,
			truncateString(run.InitialPrompt, maxPromptPreviewLen))
	}
	return nil
}

// DeleteRun removes a stored run.
func DeleteRun(ctx context.Context, out io.Writer, dbPath, runID string) error {
	store, err := storage.OpenSqlite(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.LoadRun(ctx, runID); err != nil {
		return err
	}
	if err := store.DeleteRun(ctx, runID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted run %s\n", runID)
	return nil
}

// ParseContext turns key=value pairs into a task context.
func ParseContext(pairs []string) (agent.TaskContext, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	tctx := make(agent.TaskContext, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid context %q: expected key=value", pair)
		}
		tctx[strings.TrimSpace(key)] = value
	}
	return tctx, nil
}

func saveRun(ctx context.Context, dbPath string, result *pipeline.Result, calls []cost.Call) error {
	store, err := storage.OpenSqlite(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveRun(ctx, storage.FromResult(result)); err != nil {
		return err
	}
	return store.SaveCalls(ctx, result.RunID, calls)
}

func showRun(ctx context.Context, out io.Writer, store storage.RunStore, runID string) error {
	run, err := store.LoadRun(ctx, runID)
	if errors.Is(err, storage.ErrRunNotFound) {
		return fmt.Errorf("no run with ID %s", runID)
	}
	if err != nil {
		return err
	}
	calls, err := store.LoadCalls(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run %s (%s, %s)\n", run.ID, run.StartedAt.Format(time.RFC3339), run.Duration)
	fmt.Fprintf(out, "Prompt: %s\n", run.InitialPrompt)
	fmt.Fprintf(out, "Quality: %.2f  Iterations: %d\n\n", run.QualityScore, run.IterationCount)
	for i, draft := range run.History {
		fmt.Fprintf(out, "--- Draft %d ---\n%s\n", i, draft)
	}

	var total float64
	for _, c := range calls {
		total += c.CostUSD
	}
	fmt.Fprintf(out, "\n%d calls, $%.4f\n", len(calls), total)
	return nil
}

const maxPromptPreviewLen = 60

func printResult(out io.Writer, result *pipeline.Result, verbose bool) {
	if verbose {
		fmt.Fprintln(out, "--- Drafts ---")
		for i, draft := range result.History {
			fmt.Fprintf(out, "[%d] %s\n", i, draft)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "Final Output:\n%s\n\n", result.FinalOutput)
	fmt.Fprintf(out, "Quality Score: %.2f\n", result.QualityScore)
	fmt.Fprintf(out, "Iterations: %d\n", result.IterationCount)
	if report, ok := result.Metadata[pipeline.MetaQAReport].(string); ok {
		fmt.Fprintf(out, "QA Report: %s\n", report)
	}
}

func printUsage(out io.Writer, summary cost.Summary) {
	if summary.TotalCalls == 0 {
		return
	}
	fmt.Fprintf(out, "Tokens: %d (%d in, %d out) across %d calls, $%.4f\n",
		summary.TotalTokens, summary.TotalInputTokens, summary.TotalOutputTokens,
		summary.TotalCalls, summary.TotalCostUSD)
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
