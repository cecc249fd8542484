// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/blockops-foundation/blockops/agent"
	"github.com/blockops-foundation/blockops/cmd/blockops/cli"
	"github.com/blockops-foundation/blockops/coordination"
	"github.com/blockops-foundation/blockops/ledger"
	"github.com/blockops-foundation/blockops/lib/config"
	"github.com/blockops-foundation/blockops/lib/llm"
)

func runCommand() *cli.Command {
	var scenarioPath string
	var configPath string
	var exportPath string

	return &cli.Command{
		Name:    "run",
		Summary: "Run a coordination scenario from a file",
		Usage:   "blockops run --scenario <file.jsonc> [--config <file.yaml>] [--export <path>]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flags.StringVar(&scenarioPath, "scenario", "", "path to a JSONC scenario file (required)")
			flags.StringVar(&configPath, "config", "", "path to a YAML config file (default: $BLOCKOPS_CONFIG, else built-in defaults)")
			flags.StringVar(&exportPath, "export", "", "write a chain snapshot to this path after the run")
			return flags
		},
		Run: func(args []string) error {
			if scenarioPath == "" {
				return fmt.Errorf("--scenario is required")
			}
			cfg, err := resolveConfig(configPath)
			if err != nil {
				return err
			}
			scenario, err := loadScenario(scenarioPath)
			if err != nil {
				return err
			}
			return executeScenario(cfg, scenario, exportPath)
		},
	}
}

// resolveConfig loads configuration with flag-over-environment
// precedence: an explicit --config path wins, then BLOCKOPS_CONFIG,
// then the built-in defaults.
func resolveConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("BLOCKOPS_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// executeScenario is the composition root shared by run and demo: it
// builds the ledger manager and coordinator from config, registers one
// participant per scenario role, runs the session with a live message
// trace, and renders the outcome.
func executeScenario(cfg *config.Config, scenario coordination.Scenario, exportPath string) error {
	timeout, err := cfg.Coordinator.ParseTimeout()
	if err != nil {
		return err
	}

	manager := ledger.NewManager(ledger.ManagerOptions{
		Constraints: &cfg.Constraints,
		Difficulty:  cfg.Ledger.Difficulty,
	})
	coordinator := coordination.New(coordination.Options{
		Manager:   manager,
		Timeout:   timeout,
		MaxRounds: cfg.Coordinator.MaxRounds,
		Observer: func(message coordination.Message) {
			fmt.Println(renderMessage(message))
		},
	})

	participants, err := buildParticipants(cfg, scenario.Participants)
	if err != nil {
		return err
	}
	for _, participant := range participants {
		if err := coordinator.Register(participant); err != nil {
			return err
		}
	}

	session := coordinator.Run(context.Background(), scenario)

	fmt.Println()
	fmt.Print(renderSession(session))
	fmt.Println()
	fmt.Print(renderStats(manager.Ledger().Stats()))

	if exportPath != "" {
		if err := exportSnapshot(manager.Ledger(), exportPath); err != nil {
			return err
		}
		fmt.Printf("\nSnapshot written to %s\n", exportPath)
	}

	if session.State != coordination.StateCompleted {
		return fmt.Errorf("session %s %s: %s", session.ID, session.State, session.Err)
	}
	return nil
}

// buildParticipants constructs one agent per scenario participant,
// picking the agent kind from the participant's name. When an LLM
// provider is configured, every rule agent is wrapped so the model
// drives decisions and the rules remain the coordinator's fallback.
func buildParticipants(cfg *config.Config, names []string) ([]coordination.Participant, error) {
	var provider llm.Provider
	switch cfg.LLM.Provider {
	case "":
	case "anthropic":
		if cfg.APIKey() == "" {
			return nil, fmt.Errorf("llm provider configured but %s is not set", cfg.LLM.APIKeyEnv)
		}
		provider = llm.NewAnthropic(nil, cfg.LLM.BaseURL, cfg.APIKey())
	case "openai":
		if cfg.APIKey() == "" {
			return nil, fmt.Errorf("llm provider configured but %s is not set", cfg.LLM.APIKeyEnv)
		}
		provider = llm.NewOpenAI(nil, cfg.LLM.BaseURL, cfg.APIKey())
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}

	participants := make([]coordination.Participant, 0, len(names))
	for _, name := range names {
		participant, err := participantForName(name)
		if err != nil {
			return nil, err
		}
		if provider != nil {
			participant = agent.WrapLLM(participant, provider, cfg.LLM.Model)
		}
		participants = append(participants, participant)
	}
	return participants, nil
}

// participantForName maps a participant name to its agent kind by
// substring, mirroring how constraint roles are matched elsewhere.
func participantForName(name string) (coordination.Participant, error) {
	lowered := strings.ToLower(name)
	switch {
	case strings.Contains(lowered, "supply"):
		return agent.NewSupplyAgent(name, agent.DefaultReorderPolicy()), nil
	case strings.Contains(lowered, "financ"):
		return agent.NewFinanceAgent(name, agent.DefaultBudgetPolicy()), nil
	case strings.Contains(lowered, "facil"):
		return agent.NewFacilityAgent(name, agent.DefaultStoragePolicy()), nil
	default:
		return nil, fmt.Errorf("participant %q matches no agent kind (want supply/finance/facility in the name)", name)
	}
}

func exportSnapshot(chain *ledger.Ledger, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	if err := chain.WriteSnapshot(file, ledger.CompressionZstd); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
