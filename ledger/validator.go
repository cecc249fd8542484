// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blockops-foundation/blockops/lib/clock"
)

// AllSatisfiedReason is the OverallReason sentinel reported when every
// applicable check passed (including the vacuous case where no check
// applied).
const AllSatisfiedReason = "All constraints satisfied"

// Constraints is the validator's configuration: the named numeric
// limits every validation call reads. Mutable only through
// [Validator.Update].
type Constraints struct {
	// TotalBudget is the full monthly budget in dollars. Reported in
	// snapshots; not itself a gate.
	TotalBudget float64 `yaml:"total_budget" json:"total_budget"`

	// AvailableBudget is the remaining budget a transaction's amount
	// is checked against when the transaction does not carry its own
	// available-budget figure.
	AvailableBudget float64 `yaml:"available_budget" json:"available_budget"`

	// MaxSingleAmount is the ceiling for a single autonomous
	// transaction. Amounts above it require human approval and are
	// rejected here regardless of remaining budget.
	MaxSingleAmount float64 `yaml:"max_single_amount" json:"max_single_amount"`

	// TotalStorage is the full storage capacity in units.
	TotalStorage int `yaml:"total_storage" json:"total_storage"`

	// AvailableStorage is the remaining capacity a transaction's
	// quantity is checked against absent a per-transaction override.
	AvailableStorage int `yaml:"available_storage" json:"available_storage"`

	// MinConfidence is the minimum agent confidence in [0, 1].
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
}

// DefaultConstraints returns the development defaults.
func DefaultConstraints() Constraints {
	return Constraints{
		TotalBudget:      5_000_000,
		AvailableBudget:  2_000_000,
		MaxSingleAmount:  50_000,
		TotalStorage:     10_000,
		AvailableStorage: 3_000,
		MinConfidence:    0.7,
	}
}

// CheckResult is the outcome of one constraint check.
type CheckResult struct {
	Valid bool `json:"valid" cbor:"valid"`

	// Reason explains the outcome in human-readable form, for both
	// passing and failing checks.
	Reason string `json:"reason" cbor:"reason"`

	// Remaining is the budget or capacity left after the checked
	// amount is applied (budget and storage checks only; nil for the
	// confidence check). On failure it reports the unchanged limit.
	Remaining *float64 `json:"remaining,omitempty" cbor:"remaining,omitempty"`
}

// ValidationResult aggregates the constraint checks that ran against
// one transaction. Valid is the logical AND of all checks that ran,
// vacuously true if none applied.
type ValidationResult struct {
	Valid bool `json:"valid" cbor:"valid"`

	// Checks maps check name ("budget", "storage", "confidence") to
	// its result. Only checks whose corresponding detail field was
	// present appear here.
	Checks map[string]CheckResult `json:"checks" cbor:"checks"`

	// OverallReason concatenates the failing reasons with "; ", or is
	// [AllSatisfiedReason] when everything passed.
	OverallReason string `json:"overall_reason" cbor:"overall_reason"`

	Timestamp time.Time `json:"timestamp" cbor:"timestamp"`
}

// Validator is the deterministic rule engine gating transaction
// admission. Validation itself is a pure function of the transaction
// details and the configured constraints; the only mutable state is
// the constraint set, guarded for concurrent readers.
type Validator struct {
	mutex       sync.RWMutex
	constraints Constraints
	clock       clock.Clock
}

// NewValidator creates a Validator with the given constraint set. A
// nil clk defaults to the real clock.
func NewValidator(constraints Constraints, clk clock.Clock) *Validator {
	if clk == nil {
		clk = clock.Real()
	}
	return &Validator{constraints: constraints, clock: clk}
}

// Snapshot returns a copy of the current constraint set.
func (v *Validator) Snapshot() Constraints {
	v.mutex.RLock()
	defer v.mutex.RUnlock()
	return v.constraints
}

// Update applies an administrative constraint change. The mutate
// function runs under the validator's lock with the current values.
func (v *Validator) Update(mutate func(*Constraints)) Constraints {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	mutate(&v.constraints)
	return v.constraints
}

// ValidateBudget checks a monetary amount against the available budget
// and the single-transaction ceiling. availableBudget, when non-nil,
// overrides the configured available budget.
func (v *Validator) ValidateBudget(amount float64, availableBudget *float64) CheckResult {
	constraints := v.Snapshot()

	budget := constraints.AvailableBudget
	if availableBudget != nil {
		budget = *availableBudget
	}

	if amount <= 0 {
		return CheckResult{
			Valid:     false,
			Reason:    "Amount must be positive",
			Remaining: &budget,
		}
	}
	if amount > budget {
		return CheckResult{
			Valid:     false,
			Reason:    fmt.Sprintf("Insufficient budget. Required: $%.2f, Available: $%.2f", amount, budget),
			Remaining: &budget,
		}
	}
	if amount > constraints.MaxSingleAmount {
		return CheckResult{
			Valid:     false,
			Reason:    fmt.Sprintf("Single transaction exceeds limit of $%.2f. Requires approval.", constraints.MaxSingleAmount),
			Remaining: &budget,
		}
	}

	remaining := budget - amount
	return CheckResult{
		Valid:     true,
		Reason:    "Budget constraint satisfied",
		Remaining: &remaining,
	}
}

// ValidateStorage checks a unit quantity against available storage
// capacity. availableStorage, when non-nil, overrides the configured
// capacity.
func (v *Validator) ValidateStorage(quantity int, availableStorage *int) CheckResult {
	constraints := v.Snapshot()

	capacity := constraints.AvailableStorage
	if availableStorage != nil {
		capacity = *availableStorage
	}
	capacityRemaining := float64(capacity)

	if quantity <= 0 {
		return CheckResult{
			Valid:     false,
			Reason:    "Quantity must be positive",
			Remaining: &capacityRemaining,
		}
	}
	if quantity > capacity {
		return CheckResult{
			Valid:     false,
			Reason:    fmt.Sprintf("Insufficient storage. Required: %d units, Available: %d units", quantity, capacity),
			Remaining: &capacityRemaining,
		}
	}

	remaining := float64(capacity - quantity)
	return CheckResult{
		Valid:     true,
		Reason:    "Storage constraint satisfied",
		Remaining: &remaining,
	}
}

// ValidateConfidence checks an agent confidence value against the
// configured minimum threshold.
func (v *Validator) ValidateConfidence(confidence float64) CheckResult {
	constraints := v.Snapshot()

	if confidence < constraints.MinConfidence {
		return CheckResult{
			Valid: false,
			Reason: fmt.Sprintf("Confidence %.0f%% below threshold %.0f%%. Requires human approval.",
				confidence*100, constraints.MinConfidence*100),
		}
	}
	return CheckResult{
		Valid:  true,
		Reason: fmt.Sprintf("Confidence %.0f%% meets threshold", confidence*100),
	}
}

// ValidateTransaction runs exactly the checks whose corresponding
// field is present in the transaction's details and aggregates the
// results. It does not mutate the transaction.
func (v *Validator) ValidateTransaction(tx *Transaction) ValidationResult {
	checks := make(map[string]CheckResult)
	var failures []string

	record := func(name string, result CheckResult) {
		checks[name] = result
		if !result.Valid {
			failures = append(failures, result.Reason)
		}
	}

	if tx.Details.Amount != nil {
		record("budget", v.ValidateBudget(*tx.Details.Amount, tx.Details.AvailableBudget))
	}
	if tx.Details.Quantity != nil {
		record("storage", v.ValidateStorage(*tx.Details.Quantity, tx.Details.AvailableStorage))
	}
	if tx.Details.Confidence != nil {
		record("confidence", v.ValidateConfidence(*tx.Details.Confidence))
	}

	reason := AllSatisfiedReason
	if len(failures) > 0 {
		reason = strings.Join(failures, "; ")
	}

	return ValidationResult{
		Valid:         len(failures) == 0,
		Checks:        checks,
		OverallReason: reason,
		Timestamp:     v.clock.Now(),
	}
}
