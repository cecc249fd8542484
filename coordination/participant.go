// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package coordination

import (
	"context"
)

// Scenario describes one coordination request: who starts it, who takes
// part, and the decision context everyone reasons over.
type Scenario struct {
	// Intent is a human-readable statement of what the initiator wants
	// to accomplish.
	Intent string `json:"intent"`

	// Initiator names the participant that opens the negotiation and
	// generates proposals. It must appear in Participants.
	Initiator string `json:"initiator"`

	// Participants lists the participant names involved, in the order
	// constraints are collected.
	Participants []string `json:"participants"`

	// Context carries the scenario's domain state.
	Context DecisionContext `json:"context"`
}

// DecisionContext is the structured state participants reason over when
// producing constraints, proposals, and critiques. Optional fields use
// pointers so absence is distinguishable from zero.
type DecisionContext struct {
	Item             string         `json:"item_name,omitempty"`
	RequiredQuantity int            `json:"required_quantity,omitempty"`
	UnitPrice        float64        `json:"price_per_unit,omitempty"`
	CurrentStock     int            `json:"current_stock,omitempty"`
	ReorderPoint     int            `json:"reorder_point,omitempty"`
	Urgency          string         `json:"urgency,omitempty"`
	BudgetRemaining  *float64       `json:"budget_remaining,omitempty"`
	StorageAvailable *int           `json:"storage_available,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// ConstraintKind tags which variant of ConstraintSnapshot is populated.
type ConstraintKind string

const (
	// KindSupply carries reorder policy and stock limits.
	KindSupply ConstraintKind = "supply_chain"

	// KindFinancial carries budget limits.
	KindFinancial ConstraintKind = "financial"

	// KindFacility carries storage capacity limits.
	KindFacility ConstraintKind = "facility"

	// KindUnparsed marks a snapshot whose source output could not be
	// mapped to a known variant; only Raw is meaningful.
	KindUnparsed ConstraintKind = "unparsed"
)

// ConstraintSnapshot is a participant's declared limits at collection
// time. Kind selects which field group is meaningful; the other groups
// stay at their zero values. External output that cannot be parsed into
// a known variant degrades to KindUnparsed with the original payload
// preserved in Raw.
type ConstraintSnapshot struct {
	Kind ConstraintKind `json:"type"`

	// Supply chain.
	ReorderPoint     int    `json:"reorder_point,omitempty"`
	MinOrderQuantity int    `json:"min_order_quantity,omitempty"`
	MaxOrderQuantity int    `json:"max_order_quantity,omitempty"`
	CurrentStock     int    `json:"current_stock,omitempty"`
	Urgency          string `json:"urgency,omitempty"`

	// Financial.
	BudgetRemaining  float64 `json:"budget_remaining,omitempty"`
	AutonomousLimit  float64 `json:"autonomous_limit,omitempty"`
	EmergencyReserve float64 `json:"emergency_reserve,omitempty"`
	RiskTolerance    string  `json:"risk_tolerance,omitempty"`

	// Facility.
	StorageAvailable   int     `json:"storage_available,omitempty"`
	MaxStorage         int     `json:"max_storage,omitempty"`
	CurrentUtilization float64 `json:"current_utilization,omitempty"`

	// Unparsed passthrough.
	Raw map[string]any `json:"raw,omitempty"`
}

// Proposal is a candidate quantity/cost pairing for the coordinated
// action.
type Proposal struct {
	Item                 string          `json:"item_name"`
	Quantity             int             `json:"proposed_quantity"`
	Cost                 float64         `json:"proposed_cost"`
	UnitPrice            float64         `json:"price_per_unit"`
	Reasoning            string          `json:"reasoning"`
	ConstraintsSatisfied map[string]bool `json:"constraints_satisfied,omitempty"`
}

// Decision is a critique verdict.
type Decision string

const (
	// DecisionAccept approves the proposal as-is.
	DecisionAccept Decision = "accept"

	// DecisionReject refuses the proposal, usually with a suggested
	// adjustment.
	DecisionReject Decision = "reject"
)

// Adjustment is a rejecting critique's suggested bound on the next
// proposal. Nil fields impose no bound.
type Adjustment struct {
	MaxQuantity *int     `json:"max_quantity,omitempty"`
	MaxCost     *float64 `json:"max_cost,omitempty"`
}

// Critique is one participant's evaluation of a proposal.
type Critique struct {
	Agent      string      `json:"agent"`
	Decision   Decision    `json:"decision"`
	Reasoning  string      `json:"reasoning"`
	Confidence float64     `json:"confidence"`
	Adjustment *Adjustment `json:"suggested_adjustment,omitempty"`
}

// Participant is the decision capability one negotiating entity
// supplies to the coordinator. Implementations may be rule-based,
// LLM-backed, or anything else; every method may fail, in which case
// the coordinator substitutes the deterministic fallback for the
// participant's declared role. Calls must honor the context but are
// otherwise free to take seconds; the coordinator treats them as slow,
// fallible I/O.
type Participant interface {
	// Name returns the participant's unique registry name.
	Name() string

	// Role returns the participant's declared role. The role string
	// selects the fallback policy: roles containing "supply",
	// "financ", or "facilit" map to the corresponding deterministic
	// fallback.
	Role() string

	// Constraints reports the participant's limits for the scenario.
	Constraints(ctx context.Context, scenario Scenario) (ConstraintSnapshot, error)

	// Propose generates a proposal from the scenario and the
	// constraints collected from every participant. Only the
	// initiator's Propose is called.
	Propose(ctx context.Context, scenario Scenario, collected map[string]ConstraintSnapshot) (Proposal, error)

	// Critique evaluates a proposal against the participant's own
	// constraint snapshot.
	Critique(ctx context.Context, proposal Proposal, own ConstraintSnapshot) (Critique, error)
}

// ParticipantInfo is a registry listing entry.
type ParticipantInfo struct {
	Name string `json:"name"`
	Role string `json:"role"`
}
