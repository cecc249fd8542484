// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/spf13/pflag"

	"github.com/blockops-foundation/blockops/cmd/blockops/cli"
)

func demoCommand() *cli.Command {
	var configPath string
	var exportPath string

	return &cli.Command{
		Name:    "demo",
		Summary: "Run the built-in storage-bound procurement scenario",
		Usage:   "blockops demo [--config <file.yaml>] [--export <path>]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("demo", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "path to a YAML config file (default: $BLOCKOPS_CONFIG, else built-in defaults)")
			flags.StringVar(&exportPath, "export", "", "write a chain snapshot to this path after the run")
			return flags
		},
		Run: func(args []string) error {
			cfg, err := resolveConfig(configPath)
			if err != nil {
				return err
			}
			return executeScenario(cfg, demoScenario(), exportPath)
		},
	}
}
