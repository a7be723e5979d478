// enginectl is a one-shot command-line driver for the engine: it wires the
// same collaborators as cmd/server but runs a single query and exits,
// without starting an HTTP listener.
//
// Grounded on cklxx-elephant.ai's cmd/cobra_cli.go (root command with
// PersistentFlags plus a run-single-prompt path), trimmed to this engine's
// one meaningful action instead of that CLI's interactive/session/MCP
// subcommand tree.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/aj002fr/depgraph/internal/agents"
	"github.com/aj002fr/depgraph/internal/artifacts"
	"github.com/aj002fr/depgraph/internal/config"
	"github.com/aj002fr/depgraph/internal/engine"
	"github.com/aj002fr/depgraph/internal/executor"
	"github.com/aj002fr/depgraph/internal/models"
	"github.com/aj002fr/depgraph/internal/planner1"
	"github.com/aj002fr/depgraph/internal/planner2"
	"github.com/aj002fr/depgraph/internal/providers/llm"
	"github.com/aj002fr/depgraph/internal/runner"
	"github.com/aj002fr/depgraph/internal/taskstore"
	"github.com/aj002fr/depgraph/internal/toolloader"
	"github.com/aj002fr/depgraph/internal/tools"
)

var version = "dev"

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		maxSubtasks    int
		maxParallel    int
		taskTimeoutMS  int64
		skipValidation bool
		pretty         bool
	)

	root := &cobra.Command{
		Use:   "enginectl",
		Short: "Run one query against the decomposition engine and print its RunResult",
		Long: `enginectl decomposes a query into dependency-ordered subtasks, executes
each agent path, and consolidates the results into a single RunResult —
the same pipeline cmd/server exposes over POST /run, driven from the
command line instead of HTTP.`,
	}

	runCmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Decompose, execute, and consolidate a single query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), args[0], models.RunOptions{
				MaxSubtasks:    maxSubtasks,
				SkipValidation: skipValidation,
				MaxParallel:    maxParallel,
				TaskTimeoutMS:  taskTimeoutMS,
			}, pretty)
		},
	}
	runCmd.Flags().IntVar(&maxSubtasks, "max-subtasks", 0, "cap on decomposed subtasks (0 uses the engine default)")
	runCmd.Flags().IntVar(&maxParallel, "max-parallel", 0, "max concurrent tasks (0 uses the engine default)")
	runCmd.Flags().Int64Var(&taskTimeoutMS, "task-timeout-ms", 0, "per-task timeout in milliseconds (0 uses the engine default)")
	runCmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "skip the Runner's post-hoc answer validation pass")
	runCmd.Flags().BoolVar(&pretty, "pretty", true, "pretty-print the RunResult JSON")

	root.AddCommand(runCmd, newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print enginectl's version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

// runQuery builds the same collaborator graph cmd/server wires, without the
// HTTP layer, runs one query to completion, and prints its RunResult.
func runQuery(ctx context.Context, query string, opts models.RunOptions, pretty bool) error {
	config.Load()
	cfg := config.FromEnv()

	if opts.MaxSubtasks == 0 {
		opts.MaxSubtasks = cfg.MaxSubtasks
	}
	if opts.MaxParallel == 0 {
		opts.MaxParallel = runtime.NumCPU()
		if opts.MaxParallel < 2 {
			opts.MaxParallel = 2
		}
	}
	if opts.TaskTimeoutMS == 0 {
		opts.TaskTimeoutMS = cfg.TaskTimeoutMS
	}

	store, err := taskstore.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer store.Close()

	bus := artifacts.New(cfg.WorkspacePath)
	client := llm.NewFromEnv()

	registry := tools.NewRegistry()
	registry.Register(&tools.RunQueryTool{})
	registry.Register(&tools.SearchPolymarketTool{})
	registry.Register(tools.NewFetchAndExtractTool(client))
	registry.Register(&tools.HTTPGetTool{})
	registry.Register(&tools.HTMLToTextTool{})
	registry.Register(&tools.SummarizeTool{Client: client})
	registry.Register(&tools.SummarizeChunkedTool{Client: client})
	registry.Register(&tools.LLMAnswerTool{Client: client})
	registry.Register(&tools.ExtractLinksTool{})
	registry.Register(&tools.FileExtractTool{})
	registry.Register(&tools.PDFExtractTool{})
	registry.Register(tools.NewIngestDocumentTool(client))

	loader, err := toolloader.New(agents.ToolDescriptors, agents.AllowList(), 256)
	if err != nil {
		return fmt.Errorf("build tool loader: %w", err)
	}

	stage1 := planner1.New(client, agents.Descriptors)
	stage2 := planner2.New(loader)
	runnerInst := runner.New(store, client)

	eng := engine.New(store, bus, registry, loader, stage1, stage2, runnerInst, nil, executor.Options{
		MaxParallel:           opts.MaxParallel,
		DependencyWaitTimeout: time.Duration(cfg.DependencyWaitTimeoutMS) * time.Millisecond,
		TaskTimeout:           time.Duration(opts.TaskTimeoutMS) * time.Millisecond,
	})

	result, err := eng.Run(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}
