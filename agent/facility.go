// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"

	"github.com/blockops-foundation/blockops/coordination"
)

// StoragePolicy is the facility agent's capacity knowledge base.
type StoragePolicy struct {
	// DefaultAvailable is assumed when the scenario does not state the
	// free storage.
	DefaultAvailable int `json:"default_available" yaml:"default_available"`

	// MaxStorage is the facility's total capacity.
	MaxStorage int `json:"max_storage" yaml:"max_storage"`

	// TargetUtilization is reported with the constraint snapshot.
	TargetUtilization float64 `json:"target_utilization" yaml:"target_utilization"`
}

// DefaultStoragePolicy returns the standard capacity limits.
func DefaultStoragePolicy() StoragePolicy {
	return StoragePolicy{
		DefaultAvailable:  1_000,
		MaxStorage:        5_000,
		TargetUtilization: 0.65,
	}
}

// FacilityAgent guards storage capacity: it declares facility
// constraints and critiques proposals on quantity.
type FacilityAgent struct {
	name   string
	policy StoragePolicy
}

// NewFacilityAgent constructs a facility agent. A zero policy gets the
// defaults.
func NewFacilityAgent(name string, policy StoragePolicy) *FacilityAgent {
	if policy == (StoragePolicy{}) {
		policy = DefaultStoragePolicy()
	}
	return &FacilityAgent{name: name, policy: policy}
}

func (a *FacilityAgent) Name() string { return a.name }
func (a *FacilityAgent) Role() string { return "facility" }

// Constraints reports the free storage and capacity ceiling.
func (a *FacilityAgent) Constraints(_ context.Context, scenario coordination.Scenario) (coordination.ConstraintSnapshot, error) {
	available := a.policy.DefaultAvailable
	if scenario.Context.StorageAvailable != nil {
		available = *scenario.Context.StorageAvailable
	}
	return coordination.ConstraintSnapshot{
		Kind:               coordination.KindFacility,
		StorageAvailable:   available,
		MaxStorage:         a.policy.MaxStorage,
		CurrentUtilization: a.policy.TargetUtilization,
	}, nil
}

// Propose offers whatever fits in free storage.
func (a *FacilityAgent) Propose(_ context.Context, scenario coordination.Scenario, collected map[string]coordination.ConstraintSnapshot) (coordination.Proposal, error) {
	context := scenario.Context
	unitPrice := context.UnitPrice
	if unitPrice <= 0 {
		return coordination.Proposal{}, fmt.Errorf("facility agent %s: scenario has no unit price", a.name)
	}

	available := a.policy.DefaultAvailable
	for _, snapshot := range collected {
		if snapshot.Kind == coordination.KindFacility {
			available = snapshot.StorageAvailable
		}
	}

	quantity := min(context.RequiredQuantity, available)
	return coordination.Proposal{
		Item:      context.Item,
		Quantity:  quantity,
		Cost:      float64(quantity) * unitPrice,
		UnitPrice: unitPrice,
		Reasoning: fmt.Sprintf("Storage-first proposal: %d units within %d free", quantity, available),
	}, nil
}

// Critique accepts when the quantity fits the free storage declared in
// the agent's own constraint snapshot.
func (a *FacilityAgent) Critique(_ context.Context, proposal coordination.Proposal, own coordination.ConstraintSnapshot) (coordination.Critique, error) {
	available := own.StorageAvailable
	if own.Kind != coordination.KindFacility {
		available = a.policy.DefaultAvailable
	}

	if proposal.Quantity <= available {
		return coordination.Critique{
			Agent:      a.name,
			Decision:   coordination.DecisionAccept,
			Reasoning:  fmt.Sprintf("Quantity %d fits in storage %d", proposal.Quantity, available),
			Confidence: 0.93,
		}, nil
	}

	maxQuantity := available
	return coordination.Critique{
		Agent:      a.name,
		Decision:   coordination.DecisionReject,
		Reasoning:  fmt.Sprintf("Quantity %d exceeds storage %d", proposal.Quantity, available),
		Confidence: 0.92,
		Adjustment: &coordination.Adjustment{MaxQuantity: &maxQuantity},
	}, nil
}

var _ coordination.Participant = (*FacilityAgent)(nil)
