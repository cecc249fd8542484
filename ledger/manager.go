// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blockops-foundation/blockops/lib/clock"
)

// Receipt is the outcome of recording one decision: the submitted
// transaction's validation result plus, when the transaction was
// chained, the coordinates of the block that carries it. Receipts
// issued before a Reset describe a discarded chain; callers must not
// assume block indices survive a reset.
type Receipt struct {
	// Success is true when the decision was both validated and
	// chained, or — for a rejected transaction that never entered the
	// pool — reflects the validation verdict.
	Success bool `json:"success"`

	TransactionID string           `json:"transaction_id"`
	Validation    ValidationResult `json:"validation"`

	// BlockIndex and BlockHash identify the carrying block. Nil/empty
	// when the transaction was rejected and nothing was committed.
	BlockIndex *uint64 `json:"block_index"`
	BlockHash  string  `json:"block_hash,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// ManagerOptions configures a Manager and the Ledger instances it
// creates.
type ManagerOptions struct {
	// Constraints seeds the validator of each ledger instance the
	// manager creates (initial and after Reset). Zero value means
	// DefaultConstraints().
	Constraints *Constraints

	// Difficulty, Clock, Logger are passed through to the Ledger.
	Difficulty int
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Manager owns the process-wide shared Ledger instance and exposes
// "record decision" as submit + commit in one step. It is constructed
// once by the composition root and passed by handle to everything that
// records decisions; Reset atomically replaces the shared instance.
//
// Record calls are serialized so each is atomic with respect to index
// assignment and pending-pool draining even when concurrent
// coordination sessions record simultaneously.
type Manager struct {
	mutex   sync.Mutex
	ledger  *Ledger
	options ManagerOptions
	clock   clock.Clock
	logger  *slog.Logger

	// transactionCounter generates unique transaction IDs. Wall-clock
	// IDs (the obvious alternative) collide when two sessions record
	// within the same tick.
	transactionCounter uint64
}

// NewManager creates a Manager with a freshly initialized Ledger.
func NewManager(options ManagerOptions) *Manager {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	manager := &Manager{
		options: options,
		clock:   options.Clock,
		logger:  options.Logger,
	}
	manager.ledger = manager.newLedger()
	return manager
}

func (m *Manager) newLedger() *Ledger {
	constraints := DefaultConstraints()
	if m.options.Constraints != nil {
		constraints = *m.options.Constraints
	}
	return New(NewValidator(constraints, m.clock), Options{
		Difficulty: m.options.Difficulty,
		Clock:      m.clock,
		Logger:     m.logger,
	})
}

// Ledger returns the current shared instance. The returned handle
// remains usable after a Reset but describes the discarded chain.
func (m *Manager) Ledger() *Ledger {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.ledger
}

// Reset atomically replaces the shared Ledger with a fresh one,
// discarding the prior chain entirely. Treat this as a full wipe.
func (m *Manager) Reset() *Ledger {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.logger.Info("resetting ledger, prior chain discarded",
		slog.Int("blocks_discarded", m.ledger.Length()))
	m.ledger = m.newLedger()
	return m.ledger
}

// Record submits a transaction built from the given decision and
// immediately commits a single-transaction block. If validation
// rejected the transaction (so the pool stayed empty), the receipt
// reports the validation verdict with null block fields instead of
// surfacing the pool-empty condition as an error.
func (m *Manager) Record(submitter, actionType string, details Details) Receipt {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.transactionCounter++
	tx := &Transaction{
		ID:         fmt.Sprintf("TX-%s-%06d", submitter, m.transactionCounter),
		Submitter:  submitter,
		ActionType: actionType,
		Details:    details,
		Timestamp:  m.clock.Now(),
		Status:     StatusPending,
	}

	validation := m.ledger.Submit(tx)

	block, err := m.ledger.Commit(1)
	if err != nil {
		if !errors.Is(err, ErrEmptyPool) {
			// Commit can only fail this way on a programming error
			// (bad batch size, unencodable payload); still surface it
			// in the receipt rather than losing the audit record.
			m.logger.Error("commit failed", slog.String("transaction", tx.ID), slog.Any("error", err))
		}
		return Receipt{
			Success:       validation.Valid,
			TransactionID: tx.ID,
			Validation:    validation,
			Timestamp:     tx.Timestamp,
		}
	}

	index := block.Index
	return Receipt{
		Success:       true,
		TransactionID: tx.ID,
		Validation:    validation,
		BlockIndex:    &index,
		BlockHash:     block.Hash,
		Timestamp:     tx.Timestamp,
	}
}

// Preview runs the applicable constraint checks without creating a
// transaction or touching the pool. Useful for callers that want to
// know whether an action would be admitted.
func (m *Manager) Preview(amount *float64, quantity *int, confidence *float64) ValidationResult {
	tx := Transaction{Details: Details{
		Amount:     amount,
		Quantity:   quantity,
		Confidence: confidence,
	}}
	return m.Ledger().Validator().ValidateTransaction(&tx)
}
