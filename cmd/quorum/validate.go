// Copyright 2026 © The Quorum Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/openquant/quorum/pkg/audit"
	"github.com/openquant/quorum/pkg/config"
)

type validateResult struct {
	Config   checkResult `json:"config"`
	Profiles checkResult `json:"profiles"`
	Audit    checkResult `json:"audit"`
	Overall  string      `json:"overall"`
}

type checkResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "error", "skip"
	Message string `json:"message,omitempty"`
}

func runValidate(_ context.Context, flags globalFlags) {
	var result validateResult
	hasError := false

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		result.Config = checkResult{Name: "config", Status: "error", Message: err.Error()}
		hasError = true
	} else {
		result.Config = checkResult{Name: "config", Status: "ok"}
	}

	if cfg != nil {
		reg, store, err := loadProfiles(cfg)
		if err != nil {
			result.Profiles = checkResult{Name: "profiles", Status: "error", Message: err.Error()}
			hasError = true
		} else {
			result.Profiles = checkResult{
				Name:    "profiles",
				Status:  "ok",
				Message: fmt.Sprintf("%d agents, %d tools", store.Len(), reg.Len()),
			}
		}

		if cfg.Audit.Driver == "memory" {
			result.Audit = checkResult{Name: "audit", Status: "skip", Message: "memory store"}
		} else if store, err := audit.OpenSQLite(cfg.Audit.Path); err != nil {
			result.Audit = checkResult{Name: "audit", Status: "error", Message: err.Error()}
			hasError = true
		} else {
			_ = store.Close()
			result.Audit = checkResult{Name: "audit", Status: "ok", Message: cfg.Audit.Path}
		}
	} else {
		result.Profiles = checkResult{Name: "profiles", Status: "skip"}
		result.Audit = checkResult{Name: "audit", Status: "skip"}
	}

	result.Overall = "ok"
	if hasError {
		result.Overall = "error"
	}

	if flags.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		_ = encoder.Encode(result)
	} else {
		for _, check := range []checkResult{result.Config, result.Profiles, result.Audit} {
			line := fmt.Sprintf("%-10s %s", check.Name, check.Status)
			if check.Message != "" {
				line += "  " + check.Message
			}
			fmt.Println(line)
		}
		fmt.Println("overall:", result.Overall)
	}

	if hasError {
		os.Exit(1)
	}
}
