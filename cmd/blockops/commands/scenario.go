// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/blockops-foundation/blockops/coordination"
)

// loadScenario parses a scenario definition file. Files are JSONC:
// JSON with comments and trailing commas permitted, so scenario files
// can be annotated.
func loadScenario(path string) (coordination.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return coordination.Scenario{}, fmt.Errorf("reading scenario: %w", err)
	}

	var scenario coordination.Scenario
	if err := json.Unmarshal(jsonc.ToJSON(data), &scenario); err != nil {
		return coordination.Scenario{}, fmt.Errorf("parsing scenario %s: %w", path, err)
	}

	if scenario.Initiator == "" {
		return coordination.Scenario{}, fmt.Errorf("scenario %s: initiator is required", path)
	}
	if len(scenario.Participants) == 0 {
		return coordination.Scenario{}, fmt.Errorf("scenario %s: participants are required", path)
	}
	return scenario, nil
}

// demoScenario is the built-in storage-bound procurement example: the
// budget would allow the full order, but free storage caps it at 800
// units.
func demoScenario() coordination.Scenario {
	budget := 2000.0
	storage := 800
	return coordination.Scenario{
		Intent:       "Order surgical masks before stock runs out",
		Initiator:    "supply",
		Participants: []string{"supply", "finance", "facility"},
		Context: coordination.DecisionContext{
			Item:             "Surgical Masks",
			RequiredQuantity: 1000,
			UnitPrice:        2.00,
			CurrentStock:     120,
			ReorderPoint:     500,
			Urgency:          "high",
			BudgetRemaining:  &budget,
			StorageAvailable: &storage,
		},
	}
}
