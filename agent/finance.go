// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"

	"github.com/blockops-foundation/blockops/coordination"
)

// BudgetPolicy is the finance agent's spending knowledge base.
type BudgetPolicy struct {
	// DefaultBudget is assumed when the scenario does not state the
	// remaining budget.
	DefaultBudget float64 `json:"default_budget" yaml:"default_budget"`

	// AutonomousLimit is the largest spend approvable without
	// escalation.
	AutonomousLimit float64 `json:"autonomous_approval_limit" yaml:"autonomous_approval_limit"`

	// EmergencyReserve must stay untouched.
	EmergencyReserve float64 `json:"emergency_reserve" yaml:"emergency_reserve"`
}

// DefaultBudgetPolicy returns the standard spending limits.
func DefaultBudgetPolicy() BudgetPolicy {
	return BudgetPolicy{
		DefaultBudget:    100_000,
		AutonomousLimit:  50_000,
		EmergencyReserve: 50_000,
	}
}

// FinanceAgent guards the budget: it declares financial constraints
// and critiques proposals on cost.
type FinanceAgent struct {
	name   string
	policy BudgetPolicy
}

// NewFinanceAgent constructs a finance agent. A zero policy gets the
// defaults.
func NewFinanceAgent(name string, policy BudgetPolicy) *FinanceAgent {
	if policy == (BudgetPolicy{}) {
		policy = DefaultBudgetPolicy()
	}
	return &FinanceAgent{name: name, policy: policy}
}

func (a *FinanceAgent) Name() string { return a.name }
func (a *FinanceAgent) Role() string { return "financial" }

// Constraints reports the remaining budget and approval limits.
func (a *FinanceAgent) Constraints(_ context.Context, scenario coordination.Scenario) (coordination.ConstraintSnapshot, error) {
	budget := a.policy.DefaultBudget
	if scenario.Context.BudgetRemaining != nil {
		budget = *scenario.Context.BudgetRemaining
	}
	return coordination.ConstraintSnapshot{
		Kind:             coordination.KindFinancial,
		BudgetRemaining:  budget,
		AutonomousLimit:  a.policy.AutonomousLimit,
		EmergencyReserve: a.policy.EmergencyReserve,
		RiskTolerance:    "medium",
	}, nil
}

// Propose defers to the budget: the largest quantity affordable within
// the remaining budget. Finance rarely initiates, but the capability
// is required of every participant.
func (a *FinanceAgent) Propose(_ context.Context, scenario coordination.Scenario, collected map[string]coordination.ConstraintSnapshot) (coordination.Proposal, error) {
	context := scenario.Context
	unitPrice := context.UnitPrice
	if unitPrice <= 0 {
		return coordination.Proposal{}, fmt.Errorf("finance agent %s: scenario has no unit price", a.name)
	}

	budget := a.policy.DefaultBudget
	for _, snapshot := range collected {
		if snapshot.Kind == coordination.KindFinancial {
			budget = snapshot.BudgetRemaining
		}
	}

	quantity := min(context.RequiredQuantity, int(budget/unitPrice))
	return coordination.Proposal{
		Item:      context.Item,
		Quantity:  quantity,
		Cost:      float64(quantity) * unitPrice,
		UnitPrice: unitPrice,
		Reasoning: fmt.Sprintf("Budget-first proposal: %d units within $%.2f remaining", quantity, budget),
	}, nil
}

// Critique accepts when the cost fits the budget declared in the
// agent's own constraint snapshot, noting whether the spend is within
// autonomous approval authority.
func (a *FinanceAgent) Critique(_ context.Context, proposal coordination.Proposal, own coordination.ConstraintSnapshot) (coordination.Critique, error) {
	budget := own.BudgetRemaining
	if own.Kind != coordination.KindFinancial {
		budget = a.policy.DefaultBudget
	}

	if proposal.Cost <= budget {
		authority := "requires escalation"
		if proposal.Cost <= a.policy.AutonomousLimit {
			authority = "within autonomous approval authority"
		}
		return coordination.Critique{
			Agent:    a.name,
			Decision: coordination.DecisionAccept,
			Reasoning: fmt.Sprintf("Cost $%.2f within budget $%.2f (%s)",
				proposal.Cost, budget, authority),
			Confidence: 0.95,
		}, nil
	}

	maxCost := budget
	adjustment := &coordination.Adjustment{MaxCost: &maxCost}
	if proposal.UnitPrice > 0 {
		maxQuantity := int(budget / proposal.UnitPrice)
		adjustment.MaxQuantity = &maxQuantity
	}
	return coordination.Critique{
		Agent:      a.name,
		Decision:   coordination.DecisionReject,
		Reasoning:  fmt.Sprintf("Cost $%.2f exceeds budget $%.2f", proposal.Cost, budget),
		Confidence: 0.90,
		Adjustment: adjustment,
	}, nil
}

var _ coordination.Participant = (*FinanceAgent)(nil)
