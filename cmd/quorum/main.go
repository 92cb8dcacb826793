// Copyright 2026 © The Quorum Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

const version = "0.1.0"

type globalFlags struct {
	ConfigPath string
	Timeout    time.Duration
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(err)
	}
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	switch cmd := args[0]; cmd {
	case "run":
		runBatch(ctx, global, args[1:])
	case "validate":
		runValidate(ctx, global)
	case "audit":
		runAudit(ctx, global, args[1:])
	case "version":
		fmt.Println("quorum " + version)
	case "help":
		printUsage()
	default:
		fatal(fmt.Errorf("unknown command %q", cmd))
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{
		ConfigPath: os.Getenv("QUORUM_CONFIG"),
		Timeout:    5 * time.Minute,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--json":
			flags.JSON = true
		case arg == "--config":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --config")
			}
			flags.ConfigPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			flags.ConfigPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--timeout":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --timeout")
			}
			value, err := time.ParseDuration(args[i+1])
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = value
			i++
		case strings.HasPrefix(arg, "--timeout="):
			value, err := time.ParseDuration(strings.TrimPrefix(arg, "--timeout="))
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = value
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func printUsage() {
	fmt.Print(`quorum - capability-restricted subagent orchestrator

Usage:
  quorum [global flags] <command> [args]

Commands:
  run <batch.yaml>   execute a batch of agent invocations and print the signal
  validate           check config, profiles, and audit store wiring
  audit [flags]      list recorded invocation outcomes
  version            print the version
  help               print this help

Global flags:
  --config <path>    config file (default: $QUORUM_CONFIG)
  --timeout <dur>    overall command timeout (default 5m)
  --json             machine-readable output
`)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "quorum:", err)
	os.Exit(1)
}
