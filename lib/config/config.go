// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blockops-foundation/blockops/ledger"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for BlockOps.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Coordinator configures the negotiation protocol.
	Coordinator CoordinatorConfig `yaml:"coordinator"`

	// Ledger configures chain construction.
	Ledger LedgerConfig `yaml:"ledger"`

	// Constraints configures the transaction validator.
	Constraints ledger.Constraints `yaml:"constraints"`

	// LLM configures the optional model-backed participants. An empty
	// provider runs the rule-based agents alone.
	LLM LLMConfig `yaml:"llm"`
}

// CoordinatorConfig configures the negotiation protocol.
type CoordinatorConfig struct {
	// Timeout is the wall-clock budget for one session, as a Go
	// duration string. Default: 30s.
	Timeout string `yaml:"timeout"`

	// MaxRounds bounds the critique/refine iterations. Default: 3.
	MaxRounds int `yaml:"max_rounds"`
}

// ParseTimeout returns the session budget as a duration.
func (c CoordinatorConfig) ParseTimeout() (time.Duration, error) {
	duration, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("coordinator.timeout: %w", err)
	}
	return duration, nil
}

// LedgerConfig configures chain construction.
type LedgerConfig struct {
	// Difficulty is the number of leading zero hex digits the block
	// hash nonce search targets. 0 disables the search. Default: 2.
	Difficulty int `yaml:"difficulty"`
}

// LLMConfig configures model-backed participants.
type LLMConfig struct {
	// Provider selects the backend: "anthropic", "openai", or empty
	// for rule-based agents only.
	Provider string `yaml:"provider"`

	// Model is the vendor model identifier.
	Model string `yaml:"model"`

	// BaseURL overrides the vendor API endpoint (tests, proxies).
	BaseURL string `yaml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	// The key itself never appears in the config file.
	APIKeyEnv string `yaml:"api_key_env"`
}

// Default returns the default configuration: a development setup with
// the standard validator constraints. These defaults are used as a
// base before loading the config file.
func Default() *Config {
	return &Config{
		Environment: Development,
		Coordinator: CoordinatorConfig{
			Timeout:   "30s",
			MaxRounds: 3,
		},
		Ledger: LedgerConfig{
			Difficulty: 2,
		},
		Constraints: ledger.DefaultConstraints(),
		LLM: LLMConfig{
			APIKeyEnv: "BLOCKOPS_LLM_API_KEY",
		},
	}
}

// Load loads configuration from the BLOCKOPS_CONFIG environment
// variable.
//
// This is the only way to load configuration without an explicit
// path. If BLOCKOPS_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("BLOCKOPS_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("BLOCKOPS_CONFIG environment variable not set; " +
			"set it to the path of your blockops.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging it
// over the defaults. The config file is the single source of truth;
// environment variables do not override config values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if _, err := c.Coordinator.ParseTimeout(); err != nil {
		errs = append(errs, err)
	}
	if c.Coordinator.MaxRounds < 1 {
		errs = append(errs, fmt.Errorf("coordinator.max_rounds must be at least 1"))
	}

	if c.Ledger.Difficulty < 0 {
		errs = append(errs, fmt.Errorf("ledger.difficulty must not be negative"))
	}

	if c.Constraints.MinConfidence < 0 || c.Constraints.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("constraints.min_confidence must be between 0 and 1"))
	}
	if c.Constraints.AvailableBudget < 0 || c.Constraints.AvailableStorage < 0 {
		errs = append(errs, fmt.Errorf("constraints must not be negative"))
	}

	switch c.LLM.Provider {
	case "", "anthropic", "openai":
	default:
		errs = append(errs, fmt.Errorf("llm.provider must be anthropic, openai, or empty"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// APIKey reads the configured API key from the environment.
func (c *Config) APIKey() string {
	if c.LLM.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.LLM.APIKeyEnv)
}
