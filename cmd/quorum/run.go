// Copyright 2026 © The Quorum Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openquant/quorum/pkg/agent"
	"github.com/openquant/quorum/pkg/audit"
	"github.com/openquant/quorum/pkg/config"
	"github.com/openquant/quorum/pkg/core"
	"github.com/openquant/quorum/pkg/dispatch"
	"github.com/openquant/quorum/pkg/governance"
	"github.com/openquant/quorum/pkg/llm"
	"github.com/openquant/quorum/pkg/orchestrator"
	"github.com/openquant/quorum/pkg/profile"
	"github.com/openquant/quorum/pkg/registry"
	"github.com/openquant/quorum/pkg/telemetry"
	"github.com/openquant/quorum/pkg/tools"
)

// batchFile is the on-disk shape of a batch description.
type batchFile struct {
	Requests []struct {
		Agent  string `yaml:"agent"`
		Prompt string `yaml:"prompt"`
	} `yaml:"requests"`
}

func runBatch(ctx context.Context, flags globalFlags, args []string) {
	if len(args) != 1 {
		fatal(fmt.Errorf("usage: quorum run <batch.yaml>"))
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		fatal(err)
	}
	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.Init(ctx, "quorum", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		fatal(err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	requests, err := loadBatchFile(args[0])
	if err != nil {
		fatal(err)
	}

	o, cleanup, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()

	result, err := o.SubmitBatch(ctx, orchestrator.BatchRequest{
		Requests:         requests,
		ConcurrencyLimit: cfg.Orchestrator.ConcurrencyLimit,
		Deadline:         time.Duration(cfg.Orchestrator.BatchDeadlineMs) * time.Millisecond,
	})
	if err != nil {
		fatal(err)
	}

	if flags.JSON {
		printResultJSON(result)
		return
	}
	printResultText(result)
}

func loadBatchFile(path string) ([]core.InvocationRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var doc batchFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode batch file: %w", err)
	}
	if len(doc.Requests) == 0 {
		return nil, fmt.Errorf("batch file %s lists no requests", path)
	}

	requests := make([]core.InvocationRequest, 0, len(doc.Requests))
	for _, entry := range doc.Requests {
		requests = append(requests, core.NewRequest(entry.Agent, entry.Prompt))
	}
	return requests, nil
}

// buildOrchestrator wires the full stack from config: registry and profiles,
// tool provider, executor, dispatcher, audit store.
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*orchestrator.Orchestrator, func(), error) {
	reg, store, err := loadProfiles(cfg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var provider tools.Provider = tools.NewStatic()
	if cfg.MCP.Command != "" {
		mcpProvider, closeMCP, err := tools.ConnectStdio(ctx, cfg.MCP.Command, cfg.MCP.Args)
		if err != nil {
			return nil, nil, err
		}
		provider = mcpProvider
		cleanup = func() { _ = closeMCP() }
	}

	executor := buildExecutor(cfg)
	invoker := dispatch.NewInvoker(executor, governance.NewEnforcer(reg), provider)

	metrics, err := telemetry.NewBatchMetrics()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	dispatcher := dispatch.New(invoker, store, dispatch.WithObserver(metrics))

	auditStore, closeAudit, err := openAuditStore(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	allCleanup := func() {
		closeAudit()
		cleanup()
	}
	return orchestrator.New(dispatcher, orchestrator.WithAuditStore(auditStore)), allCleanup, nil
}

func loadProfiles(cfg *config.Config) (*registry.Registry, *profile.Store, error) {
	if cfg.Profiles != "" {
		defs, err := profile.LoadFile(cfg.Profiles)
		if err != nil {
			return nil, nil, err
		}
		return profile.Build(defs)
	}
	store, err := profile.NewStore(profile.DefaultProfiles())
	if err != nil {
		return nil, nil, err
	}
	return registry.Default(), store, nil
}

func buildExecutor(cfg *config.Config) agent.Executor {
	var provider llm.Provider
	switch cfg.LLM.Provider {
	case "mock":
		provider = &llm.MockProvider{
			Response: `{"sentiment": "neutral", "confidence": 0.0, "summary": "mock provider"}`,
		}
	default:
		provider = llm.NewOllama(cfg.LLM.BaseURL)
	}
	return agent.NewLLMExecutor(provider,
		agent.WithModel(cfg.LLM.Model),
		agent.WithTemperature(cfg.LLM.Temperature),
		agent.WithMaxTurns(cfg.LLM.MaxTurns))
}

func openAuditStore(cfg *config.Config) (audit.Store, func(), error) {
	if cfg.Audit.Driver == "memory" {
		return audit.NewMemoryStore(), func() {}, nil
	}
	store, err := audit.OpenSQLite(cfg.Audit.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

func printResultJSON(result *orchestrator.BatchResult) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		fatal(err)
	}
}

func printResultText(result *orchestrator.BatchResult) {
	fmt.Printf("batch %s: %s (confidence %.2f)\n\n",
		result.BatchID, result.Signal.Sentiment, result.Signal.Confidence)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tOUTCOME\tSENTIMENT\tCONFIDENCE\tDURATION\tNOTE")
	for _, outcome := range result.Outcomes {
		sentiment, confidence, note := "-", "-", outcome.AbstentionReason()
		if outcome.Result != nil {
			sentiment = string(outcome.Result.Sentiment)
			confidence = fmt.Sprintf("%.2f", outcome.Result.Confidence)
			note = outcome.Result.Summary
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			outcome.AgentName, outcome.Kind, sentiment, confidence,
			outcome.Duration.Round(time.Millisecond), note)
	}
	w.Flush()

	fmt.Printf("\n%d invocations in %s", result.Summary.Total, result.Summary.Elapsed.Round(time.Millisecond))
	if result.Summary.Denials > 0 {
		fmt.Printf(", %d policy denials", result.Summary.Denials)
	}
	fmt.Println()
}
