package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aj002fr/depgraph/internal/agents"
	"github.com/aj002fr/depgraph/internal/api"
	"github.com/aj002fr/depgraph/internal/artifacts"
	"github.com/aj002fr/depgraph/internal/config"
	"github.com/aj002fr/depgraph/internal/engine"
	"github.com/aj002fr/depgraph/internal/executor"
	"github.com/aj002fr/depgraph/internal/orchestrator"
	"github.com/aj002fr/depgraph/internal/planner1"
	"github.com/aj002fr/depgraph/internal/planner2"
	"github.com/aj002fr/depgraph/internal/providers/llm"
	"github.com/aj002fr/depgraph/internal/runner"
	"github.com/aj002fr/depgraph/internal/taskstore"
	"github.com/aj002fr/depgraph/internal/telemetry"
	"github.com/aj002fr/depgraph/internal/toolloader"
	"github.com/aj002fr/depgraph/internal/tools"
)

func main() {
	config.Load()
	cfg := config.FromEnv()

	tp, err := telemetry.Init(context.Background(), telemetry.Config{
		Enabled:     os.Getenv("OTEL_ENABLED") == "1",
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName: "depgraph-engine",
	})
	if err != nil {
		log.Fatalf("telemetry init: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	store, err := taskstore.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open task store: %v", err)
	}
	defer store.Close()

	bus := artifacts.New(cfg.WorkspacePath)

	registry := tools.NewRegistry()
	client := llm.NewFromEnv()
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
		log.Fatalf("build tool loader: %v", err)
	}

	stage1 := planner1.New(client, agents.Descriptors)
	stage2 := planner2.New(loader)
	runnerInst := runner.New(store, client)
	hub := orchestrator.NewHub()

	eng := engine.New(store, bus, registry, loader, stage1, stage2, runnerInst, hub, executor.Options{
		MaxParallel:            cfg.MaxParallel,
		DependencyWaitTimeout:  time.Duration(cfg.DependencyWaitTimeoutMS) * time.Millisecond,
		TaskTimeout:            time.Duration(cfg.TaskTimeoutMS) * time.Millisecond,
	})

	apiCfg := api.DefaultConfig()
	if v := os.Getenv("PORT"); v != "" {
		apiCfg.Addr = ":" + v
	}
	srv := api.NewServer(eng, hub, apiCfg)

	go func() {
		log.Printf("server listening on %s", apiCfg.Addr)
		if err := srv.ListenAndServe(); err != nil {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
