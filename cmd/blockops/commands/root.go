// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands implements the blockops command tree.
package commands

import (
	"github.com/blockops-foundation/blockops/cmd/blockops/cli"
)

// Root returns the top-level blockops command.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "blockops",
		Summary: "Multi-agent coordination with a tamper-evident audit ledger",
		Subcommands: []*cli.Command{
			runCommand(),
			demoCommand(),
			inspectCommand(),
		},
	}
}
