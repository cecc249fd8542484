// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import "time"

// Status is a transaction's validation status. A transaction starts
// pending and transitions exactly once: to validated when it enters
// the pending pool, or to rejected when a constraint check fails.
// Rejected transactions are retained for audit but never chained.
type Status string

const (
	// StatusPending means the transaction has been created but not
	// yet validated.
	StatusPending Status = "pending"

	// StatusValidated means the transaction passed all applicable
	// constraint checks and is eligible for inclusion in a block.
	StatusValidated Status = "validated"

	// StatusRejected means a constraint check failed. Terminal.
	StatusRejected Status = "rejected"
)

// Details is the structured payload of a transaction. Which constraint
// checks run against a transaction is determined by field presence:
// a non-nil Amount triggers the budget check, a non-nil Quantity the
// storage check, a non-nil Confidence the confidence check. The
// Available* fields, when set, override the validator's configured
// limits for that single transaction (a coordination session supplies
// the budget and capacity its participants actually negotiated under).
type Details struct {
	// Item names what is being acted on (e.g., "PPE Equipment").
	Item string `json:"item,omitempty" cbor:"item,omitempty"`

	// Vendor is the counterparty, if any.
	Vendor string `json:"vendor,omitempty" cbor:"vendor,omitempty"`

	// Amount is the monetary value of the action in dollars.
	Amount *float64 `json:"amount,omitempty" cbor:"amount,omitempty"`

	// AvailableBudget overrides the validator's configured available
	// budget for this transaction.
	AvailableBudget *float64 `json:"available_budget,omitempty" cbor:"available_budget,omitempty"`

	// Quantity is the number of units involved.
	Quantity *int `json:"quantity,omitempty" cbor:"quantity,omitempty"`

	// AvailableStorage overrides the validator's configured available
	// storage capacity for this transaction.
	AvailableStorage *int `json:"available_storage,omitempty" cbor:"available_storage,omitempty"`

	// Confidence is the submitting agent's confidence in [0, 1].
	Confidence *float64 `json:"confidence,omitempty" cbor:"confidence,omitempty"`

	// Metadata carries free-form context (the coordination agreement
	// record, for instance). Not inspected by the validator.
	Metadata map[string]any `json:"metadata,omitempty" cbor:"metadata,omitempty"`
}

// Transaction is a candidate ledger entry representing one recorded
// decision. Created by Submit; its Status and Result are set exactly
// once during validation and never change afterward.
type Transaction struct {
	ID         string            `json:"transaction_id" cbor:"transaction_id"`
	Submitter  string            `json:"submitter" cbor:"submitter"`
	ActionType string            `json:"action_type" cbor:"action_type"`
	Details    Details           `json:"details" cbor:"details"`
	Timestamp  time.Time         `json:"timestamp" cbor:"timestamp"`
	Status     Status            `json:"validation_status" cbor:"validation_status"`
	Result     *ValidationResult `json:"validation_result,omitempty" cbor:"validation_result,omitempty"`
}
