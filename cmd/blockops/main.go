// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

// Command blockops is the operator CLI: it runs coordination scenarios
// against an in-memory ledger and inspects exported chain snapshots.
package main

import (
	"fmt"
	"os"

	"github.com/blockops-foundation/blockops/cmd/blockops/commands"
)

func main() {
	if err := commands.Root().Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
