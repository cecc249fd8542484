// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package coordination

import (
	"fmt"
	"strings"
)

// Deterministic fallback policies, substituted whenever a participant
// call fails. They must never fail themselves: the protocol's liveness
// depends on every step producing a usable result.

const (
	fallbackReorderPoint     = 500
	fallbackMinOrderQuantity = 100
	fallbackMaxOrderQuantity = 10_000

	fallbackBudgetRemaining  = 100_000.0
	fallbackAutonomousLimit  = 50_000.0
	fallbackEmergencyReserve = 50_000.0

	fallbackStorageAvailable = 1_000
	fallbackMaxStorage       = 5_000
	fallbackUtilization      = 0.65

	fallbackUnitPrice        = 2.00
	fallbackRequiredQuantity = 1_000
)

// fallbackConstraints derives a constraint snapshot from the
// participant's declared role and the scenario context alone. Unknown
// roles produce the unparsed variant so the protocol keeps moving
// without inventing limits.
func fallbackConstraints(role string, scenario Scenario) ConstraintSnapshot {
	context := scenario.Context
	lowered := strings.ToLower(role)

	switch {
	case strings.Contains(lowered, "supply"):
		snapshot := ConstraintSnapshot{
			Kind:             KindSupply,
			ReorderPoint:     fallbackReorderPoint,
			MinOrderQuantity: fallbackMinOrderQuantity,
			MaxOrderQuantity: fallbackMaxOrderQuantity,
			CurrentStock:     context.CurrentStock,
			Urgency:          context.Urgency,
		}
		if context.ReorderPoint > 0 {
			snapshot.ReorderPoint = context.ReorderPoint
		}
		if snapshot.Urgency == "" {
			snapshot.Urgency = "medium"
		}
		return snapshot

	case strings.Contains(lowered, "financ"):
		snapshot := ConstraintSnapshot{
			Kind:             KindFinancial,
			BudgetRemaining:  fallbackBudgetRemaining,
			AutonomousLimit:  fallbackAutonomousLimit,
			EmergencyReserve: fallbackEmergencyReserve,
			RiskTolerance:    "medium",
		}
		if context.BudgetRemaining != nil {
			snapshot.BudgetRemaining = *context.BudgetRemaining
		}
		return snapshot

	case strings.Contains(lowered, "facilit"):
		snapshot := ConstraintSnapshot{
			Kind:               KindFacility,
			StorageAvailable:   fallbackStorageAvailable,
			MaxStorage:         fallbackMaxStorage,
			CurrentUtilization: fallbackUtilization,
		}
		if context.StorageAvailable != nil {
			snapshot.StorageAvailable = *context.StorageAvailable
		}
		return snapshot

	default:
		return ConstraintSnapshot{
			Kind: KindUnparsed,
			Raw:  map[string]any{"available": true},
		}
	}
}

// fallbackProposal proposes the largest quantity that fits the
// collected budget and storage limits. Missing snapshots default to
// the standard limits so a partially-collected session still yields a
// proposal.
func fallbackProposal(scenario Scenario, collected map[string]ConstraintSnapshot) Proposal {
	context := scenario.Context

	budget := fallbackBudgetRemaining
	storage := fallbackStorageAvailable
	for _, snapshot := range collected {
		switch snapshot.Kind {
		case KindFinancial:
			budget = snapshot.BudgetRemaining
		case KindFacility:
			storage = snapshot.StorageAvailable
		}
	}

	unitPrice := context.UnitPrice
	if unitPrice <= 0 {
		unitPrice = fallbackUnitPrice
	}
	required := context.RequiredQuantity
	if required <= 0 {
		required = fallbackRequiredQuantity
	}

	budgetLimit := int(budget / unitPrice)
	quantity := min(required, budgetLimit, storage)
	cost := float64(quantity) * unitPrice

	return Proposal{
		Item:      context.Item,
		Quantity:  quantity,
		Cost:      cost,
		UnitPrice: unitPrice,
		Reasoning: fmt.Sprintf(
			"Proposed %d units (original: %d) constrained by budget (max: %d) and storage (max: %d)",
			quantity, required, budgetLimit, storage),
		ConstraintsSatisfied: map[string]bool{
			"budget":  cost <= budget,
			"storage": quantity <= storage,
		},
	}
}

// fallbackCritique evaluates a proposal against the participant's own
// snapshot. Financial snapshots gate on cost, facility snapshots on
// quantity; every other kind accepts.
func fallbackCritique(name string, proposal Proposal, own ConstraintSnapshot) Critique {
	switch own.Kind {
	case KindFinancial:
		if proposal.Cost <= own.BudgetRemaining {
			return Critique{
				Agent:      name,
				Decision:   DecisionAccept,
				Reasoning:  fmt.Sprintf("Cost $%.2f within budget $%.2f", proposal.Cost, own.BudgetRemaining),
				Confidence: 0.95,
			}
		}
		unitPrice := proposal.UnitPrice
		if unitPrice <= 0 {
			unitPrice = 1
		}
		maxQuantity := int(own.BudgetRemaining / unitPrice)
		maxCost := own.BudgetRemaining
		return Critique{
			Agent:      name,
			Decision:   DecisionReject,
			Reasoning:  fmt.Sprintf("Cost $%.2f exceeds budget $%.2f", proposal.Cost, own.BudgetRemaining),
			Confidence: 0.90,
			Adjustment: &Adjustment{
				MaxQuantity: &maxQuantity,
				MaxCost:     &maxCost,
			},
		}

	case KindFacility:
		if proposal.Quantity <= own.StorageAvailable {
			return Critique{
				Agent:      name,
				Decision:   DecisionAccept,
				Reasoning:  fmt.Sprintf("Quantity %d fits in storage %d", proposal.Quantity, own.StorageAvailable),
				Confidence: 0.93,
			}
		}
		maxQuantity := own.StorageAvailable
		return Critique{
			Agent:      name,
			Decision:   DecisionReject,
			Reasoning:  fmt.Sprintf("Quantity %d exceeds storage %d", proposal.Quantity, own.StorageAvailable),
			Confidence: 0.92,
			Adjustment: &Adjustment{
				MaxQuantity: &maxQuantity,
			},
		}

	default:
		return Critique{
			Agent:      name,
			Decision:   DecisionAccept,
			Reasoning:  "No constraints violated",
			Confidence: 0.85,
		}
	}
}
