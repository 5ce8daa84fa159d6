// Package main provides the cair CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/cair/cli"
	"github.com/richinex/cair/config"
)

var (
	// Global flags
	configPath string
	provider   string
	model      string
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:     "cair",
		Short:   "Role-based LLM dispatch and iterative refinement",
		Version: cli.Version,
		Long: `A CLI tool for binding LLM providers to agent roles and running the
CAIR refinement loop: generate, then review and refine until the quality
threshold or the iteration budget is reached.

Roles: generator, reviewer, refiner, qa_analyst, orchestrator.
Roles not set in --config are bound to --provider.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file with agent bindings and prompts")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "mock", "LLM provider for unconfigured roles ("+strings.Join(config.SupportedProviders(), ", ")+")")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Model for unconfigured roles (default: provider default)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(dispatchCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(costCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func baseOptions() cli.Options {
	opts := cli.DefaultOptions()
	opts.ConfigPath = configPath
	opts.Provider = provider
	opts.Model = model
	opts.Verbose = verbose
	return opts
}

func runCmd() *cobra.Command {
	var (
		maxIter   int
		threshold float64
		qa        bool
		taskCtx   []string
		dbPath    string
	)

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run the refinement pipeline on a prompt",
		Long: `Run the CAIR refinement pipeline.

The generator drafts, then each round the reviewer critiques and the
refiner rewrites. The loop stops when the quality score reaches the
threshold or after --max-iter rounds. --qa adds a final validation
by the QA analyst.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := baseOptions()
			if cmd.Flags().Changed("max-iter") {
				opts.MaxIter = maxIter
			}
			if cmd.Flags().Changed("threshold") {
				opts.Threshold = threshold
			}
			opts.QA = qa
			opts.Context = taskCtx
			opts.DBPath = dbPath
			return cli.Run(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&maxIter, "max-iter", "m", 3, "Maximum review/refine rounds")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0.85, "Quality score that ends the loop early")
	cmd.Flags().BoolVar(&qa, "qa", false, "Run the QA analyst after the loop")
	cmd.Flags().StringArrayVar(&taskCtx, "context", nil, "Task context as key=value (repeatable)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to save the run to")

	return cmd
}

func dispatchCmd() *cobra.Command {
	var taskCtx []string

	cmd := &cobra.Command{
		Use:   "dispatch [role] [prompt]",
		Short: "Send one prompt to the agent bound to a role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := baseOptions()
			opts.Context = taskCtx
			return cli.Dispatch(cmd.Context(), args[0], args[1], opts)
		},
	}

	cmd.Flags().StringArrayVar(&taskCtx, "context", nil, "Task context as key=value (repeatable)")

	return cmd
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models [provider]",
		Short: "List the model catalogue of each provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return cli.ListModels(cmd.OutOrStdout(), name)
		},
	}
}

func costCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cost [model] [input-tokens] [output-tokens]",
		Short: "Estimate call cost, or show the pricing table",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 3 {
				return fmt.Errorf("expected no arguments or model, input and output tokens")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cli.EstimateCost(cmd.OutOrStdout(), "", 0, 0)
				return nil
			}
			in, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid input tokens %q: %w", args[1], err)
			}
			out, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid output tokens %q: %w", args[2], err)
			}
			cli.EstimateCost(cmd.OutOrStdout(), args[0], in, out)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var (
		dbPath   string
		limit    int
		deleteID string
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List stored runs or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if deleteID != "" {
				return cli.DeleteRun(ctx, cmd.OutOrStdout(), dbPath, deleteID)
			}
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return cli.History(ctx, cmd.OutOrStdout(), dbPath, runID, limit)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", ".cair/cair.db", "SQLite database path")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list")
	cmd.Flags().StringVar(&deleteID, "delete", "", "Delete the run with this ID")

	return cmd
}
