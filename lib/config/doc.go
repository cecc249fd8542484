// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for BlockOps
// components.
//
// Configuration is loaded from a single file specified by:
//   - BLOCKOPS_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
package config
