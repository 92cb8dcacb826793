// Copyright 2026 © The Quorum Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent defines the opaque executor boundary. An Executor runs one
// invocation to a terminal JSON payload; it may attempt any tool calls it
// likes through the invocation's toolbox, and every one of those calls is
// authorized independently. The dispatcher treats executors as black boxes.
package agent

import (
	"context"

	"github.com/openquant/quorum/pkg/core"
	"github.com/openquant/quorum/pkg/profile"
	"github.com/openquant/quorum/pkg/tools"
)

// Invocation bundles everything an executor needs for one run.
type Invocation struct {
	Request core.InvocationRequest
	Profile *profile.Profile
	Toolbox *tools.Toolbox
}

// Executor produces the terminal payload of one invocation. The returned
// map is the raw, unvalidated agent output; schema validation happens in
// the dispatcher after the executor returns.
type Executor interface {
	Execute(ctx context.Context, inv Invocation) (map[string]any, error)
}
