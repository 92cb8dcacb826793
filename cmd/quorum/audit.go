// Copyright 2026 © The Quorum Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/openquant/quorum/pkg/audit"
	"github.com/openquant/quorum/pkg/config"
	"github.com/openquant/quorum/pkg/core"
)

func runAudit(ctx context.Context, flags globalFlags, args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	batchID := fs.String("batch", "", "filter by batch id")
	agentName := fs.String("agent", "", "filter by agent name")
	kind := fs.String("kind", "", "filter by outcome kind (success, timeout, policy_violation, executor_error)")
	limit := fs.Int("limit", 50, "maximum events to list")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		fatal(err)
	}
	if cfg.Audit.Driver == "memory" {
		fatal(fmt.Errorf("the memory audit driver keeps no history to list"))
	}

	store, err := audit.OpenSQLite(cfg.Audit.Path)
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	events, err := store.List(ctx, audit.Filter{
		BatchID:   *batchID,
		AgentName: *agentName,
		Kind:      core.OutcomeKind(*kind),
		Limit:     *limit,
	})
	if err != nil {
		fatal(err)
	}

	if flags.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(events); err != nil {
			fatal(err)
		}
		return
	}

	if len(events) == 0 {
		fmt.Println("no audit events match")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tBATCH\tAGENT\tKIND\tSENTIMENT\tCONFIDENCE\tDURATION\tDETAIL")
	for _, event := range events {
		detail := event.Detail
		if event.DeniedTool != "" {
			detail = "denied " + event.DeniedTool
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
			event.CreatedAt.Format(time.RFC3339),
			event.BatchID,
			event.AgentName,
			event.Kind,
			event.Sentiment,
			event.Confidence,
			event.Duration.Round(time.Millisecond),
			detail)
	}
	w.Flush()
}
