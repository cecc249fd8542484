// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"

	"github.com/blockops-foundation/blockops/coordination"
)

// ReorderPolicy is the supply agent's ordering knowledge base.
type ReorderPolicy struct {
	ReorderPoint     int `json:"reorder_point" yaml:"reorder_point"`
	MinOrderQuantity int `json:"min_order_quantity" yaml:"min_order_quantity"`
	MaxOrderQuantity int `json:"max_order_quantity" yaml:"max_order_quantity"`
}

// DefaultReorderPolicy returns the standard ordering limits.
func DefaultReorderPolicy() ReorderPolicy {
	return ReorderPolicy{
		ReorderPoint:     500,
		MinOrderQuantity: 100,
		MaxOrderQuantity: 10_000,
	}
}

// SupplyAgent manages inventory levels: it declares reorder policy
// constraints and, as the usual initiator, proposes the largest order
// that fits everyone's limits.
type SupplyAgent struct {
	name   string
	policy ReorderPolicy
}

// NewSupplyAgent constructs a supply agent. A zero policy gets the
// defaults.
func NewSupplyAgent(name string, policy ReorderPolicy) *SupplyAgent {
	if policy == (ReorderPolicy{}) {
		policy = DefaultReorderPolicy()
	}
	return &SupplyAgent{name: name, policy: policy}
}

func (a *SupplyAgent) Name() string { return a.name }
func (a *SupplyAgent) Role() string { return "supply_chain" }

// Constraints reports the reorder policy, with the scenario's reorder
// point taking precedence over the policy default.
func (a *SupplyAgent) Constraints(_ context.Context, scenario coordination.Scenario) (coordination.ConstraintSnapshot, error) {
	snapshot := coordination.ConstraintSnapshot{
		Kind:             coordination.KindSupply,
		ReorderPoint:     a.policy.ReorderPoint,
		MinOrderQuantity: a.policy.MinOrderQuantity,
		MaxOrderQuantity: a.policy.MaxOrderQuantity,
		CurrentStock:     scenario.Context.CurrentStock,
		Urgency:          scenario.Context.Urgency,
	}
	if scenario.Context.ReorderPoint > 0 {
		snapshot.ReorderPoint = scenario.Context.ReorderPoint
	}
	if snapshot.Urgency == "" {
		snapshot.Urgency = "medium"
	}
	return snapshot, nil
}

// Propose orders the required quantity, cut down to what the collected
// budget and storage limits allow and capped by the ordering policy.
func (a *SupplyAgent) Propose(_ context.Context, scenario coordination.Scenario, collected map[string]coordination.ConstraintSnapshot) (coordination.Proposal, error) {
	context := scenario.Context

	unitPrice := context.UnitPrice
	if unitPrice <= 0 {
		unitPrice = 2.00
	}
	required := context.RequiredQuantity
	if required <= 0 {
		required = 1000
	}

	budget := 100_000.0
	storage := 1_000
	for _, snapshot := range collected {
		switch snapshot.Kind {
		case coordination.KindFinancial:
			budget = snapshot.BudgetRemaining
		case coordination.KindFacility:
			storage = snapshot.StorageAvailable
		}
	}

	budgetLimit := int(budget / unitPrice)
	quantity := min(required, budgetLimit, storage, a.policy.MaxOrderQuantity)
	cost := float64(quantity) * unitPrice

	return coordination.Proposal{
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
	}, nil
}

// Critique accepts any quantity within the ordering policy's bounds.
func (a *SupplyAgent) Critique(_ context.Context, proposal coordination.Proposal, _ coordination.ConstraintSnapshot) (coordination.Critique, error) {
	if proposal.Quantity > a.policy.MaxOrderQuantity {
		maxQuantity := a.policy.MaxOrderQuantity
		return coordination.Critique{
			Agent:    a.name,
			Decision: coordination.DecisionReject,
			Reasoning: fmt.Sprintf("Quantity %d exceeds max order quantity %d",
				proposal.Quantity, a.policy.MaxOrderQuantity),
			Confidence: 0.9,
			Adjustment: &coordination.Adjustment{MaxQuantity: &maxQuantity},
		}, nil
	}
	if proposal.Quantity < a.policy.MinOrderQuantity {
		return coordination.Critique{
			Agent:    a.name,
			Decision: coordination.DecisionReject,
			Reasoning: fmt.Sprintf("Quantity %d below min order quantity %d",
				proposal.Quantity, a.policy.MinOrderQuantity),
			Confidence: 0.85,
		}, nil
	}
	return coordination.Critique{
		Agent:      a.name,
		Decision:   coordination.DecisionAccept,
		Reasoning:  fmt.Sprintf("Quantity %d within ordering policy", proposal.Quantity),
		Confidence: 0.9,
	}, nil
}

var _ coordination.Participant = (*SupplyAgent)(nil)
