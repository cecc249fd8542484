// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/blockops-foundation/blockops/cmd/blockops/cli"
	"github.com/blockops-foundation/blockops/ledger"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:    "inspect",
		Summary: "Read a chain snapshot and report its integrity",
		Usage:   "blockops inspect <snapshot>",
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one snapshot path")
			}
			path := args[0]

			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			blocks, err := ledger.ReadSnapshot(file)
			if err != nil {
				return fmt.Errorf("reading snapshot %s: %w", path, err)
			}

			report := ledger.VerifySnapshot(blocks)
			fmt.Println(headerStyle.Render("Snapshot " + path))
			fmt.Print(renderChainReport(report))
			for _, block := range blocks {
				fmt.Printf("  %s %-12s %s %s\n",
					faintStyle.Render(fmt.Sprintf("#%d", block.Index)),
					string(block.Data.Type),
					block.Timestamp.Format("2006-01-02 15:04:05"),
					hashStyle.Render(ledger.ShortHash(block.Hash)))
			}

			if !report.Valid {
				return fmt.Errorf("snapshot %s failed integrity checks", path)
			}
			return nil
		},
	}
}
