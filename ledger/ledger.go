// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/blockops-foundation/blockops/lib/clock"
)

// maxNonceSearch caps the proof-of-work nonce search per block. The
// search is cosmetic (it exists to make commits visibly take work in
// demos), so when the cap is reached the block is committed with
// whatever nonce the search stopped at rather than looping forever on
// a misconfigured difficulty.
const maxNonceSearch = 1 << 20

// maxDifficulty clamps the configured difficulty. Five leading zero
// hex digits already means a million expected hash attempts; anything
// higher would blow through maxNonceSearch every time.
const maxDifficulty = 5

// Options configures a Ledger.
type Options struct {
	// Difficulty is the number of leading zero hex digits the
	// proof-of-work search aims for. Zero disables the search
	// entirely. Values above maxDifficulty are clamped.
	Difficulty int

	// Clock supplies block and transaction timestamps. Nil means the
	// real clock.
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Ledger owns the append-only block chain and the pending-transaction
// pool, gating admission through a Validator. All chain and pool
// access is guarded by one mutex; Submit and Commit may be called
// concurrently from multiple coordination sessions.
type Ledger struct {
	mutex      sync.Mutex
	chain      []Block
	pending    []Transaction
	validator  *Validator
	difficulty int
	clock      clock.Clock
	logger     *slog.Logger

	// Admission counters. Rejected transactions never reach the
	// chain, so their count cannot be derived from it.
	validatedCount int
	rejectedCount  int
}

// New creates a Ledger with its genesis block already in place. The
// genesis block is never recreated; discarding a chain means building
// a new Ledger (see Manager.Reset).
func New(validator *Validator, options Options) *Ledger {
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	difficulty := options.Difficulty
	if difficulty < 0 {
		difficulty = 0
	}
	if difficulty > maxDifficulty {
		difficulty = maxDifficulty
	}

	ledger := &Ledger{
		validator:  validator,
		difficulty: difficulty,
		clock:      clk,
		logger:     logger,
	}
	ledger.createGenesis()
	return ledger
}

// Validator returns the validator gating this ledger's admissions.
func (l *Ledger) Validator() *Validator { return l.validator }

func (l *Ledger) createGenesis() {
	now := l.clock.Now()
	genesis := Block{
		Index:     0,
		Timestamp: now,
		Data: BlockData{
			Type:      BlockTypeGenesis,
			Message:   "BlockOps Coordination Ledger - Genesis Block",
			Network:   "BlockOps Operations Network",
			Version:   "1.0.0",
			CreatedAt: now.Format("2006-01-02T15:04:05.999999999Z07:00"),
		},
		PreviousHash: GenesisPreviousHash,
		Nonce:        0,
	}

	hash, err := genesis.ComputeHash()
	if err != nil {
		// Genesis contents are fixed; an encoding failure here is a
		// programming error.
		panic("ledger: genesis hash failed: " + err.Error())
	}
	genesis.Hash = hash

	l.chain = append(l.chain, genesis)
	l.logger.Info("genesis block created", slog.String("hash", ShortHash(hash)))
}

// Submit validates a transaction against the constraint set, stamps
// its status, and — if it passed — appends it to the pending pool
// (FIFO). The transaction's Status and Result fields are set exactly
// once here. Validation failure is not an error: the structured
// result tells the caller what failed.
func (l *Ledger) Submit(tx *Transaction) ValidationResult {
	result := l.validator.ValidateTransaction(tx)
	tx.Result = &result

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if result.Valid {
		tx.Status = StatusValidated
		l.validatedCount++
		l.pending = append(l.pending, *tx)
		l.logger.Info("transaction validated",
			slog.String("transaction", tx.ID),
			slog.Int("pool", len(l.pending)))
	} else {
		tx.Status = StatusRejected
		l.rejectedCount++
		l.logger.Info("transaction rejected",
			slog.String("transaction", tx.ID),
			slog.String("reason", result.OverallReason))
	}

	return result
}

// Commit dequeues up to batchSize pending transactions (oldest first)
// into a new block appended to the chain. Returns ErrEmptyPool when
// nothing is pending; the caller should simply skip this commit cycle.
// This is the only chain-mutating operation besides genesis creation.
func (l *Ledger) Commit(batchSize int) (Block, error) {
	if batchSize <= 0 {
		return Block{}, fmt.Errorf("ledger: batch size %d must be positive", batchSize)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if len(l.pending) == 0 {
		return Block{}, ErrEmptyPool
	}

	count := batchSize
	if count > len(l.pending) {
		count = len(l.pending)
	}
	batch := make([]Transaction, count)
	copy(batch, l.pending[:count])
	l.pending = l.pending[count:]

	tail := l.chain[len(l.chain)-1]
	block := Block{
		Index:     uint64(len(l.chain)),
		Timestamp: l.clock.Now(),
		Data: BlockData{
			Type:             BlockTypeTransactions,
			TransactionCount: len(batch),
			Transactions:     batch,
		},
		PreviousHash: tail.Hash,
	}

	if err := l.seal(&block); err != nil {
		// Put the batch back at the head of the pool; nothing was
		// chained.
		l.pending = append(batch, l.pending...)
		return Block{}, err
	}

	l.chain = append(l.chain, block)
	l.logger.Info("block committed",
		slog.Uint64("index", block.Index),
		slog.Int("transactions", len(batch)),
		slog.String("hash", ShortHash(block.Hash)))
	return block, nil
}

// seal computes the block's hash, running the bounded proof-of-work
// nonce search when a non-zero difficulty is configured.
func (l *Ledger) seal(block *Block) error {
	hash, err := block.ComputeHash()
	if err != nil {
		return err
	}

	if l.difficulty > 0 {
		target := strings.Repeat("0", l.difficulty)
		for attempts := 0; !strings.HasPrefix(hash, target); attempts++ {
			if attempts >= maxNonceSearch {
				l.logger.Warn("nonce search cap reached, committing without target prefix",
					slog.Uint64("index", block.Index),
					slog.Int("difficulty", l.difficulty))
				break
			}
			block.Nonce++
			if hash, err = block.ComputeHash(); err != nil {
				return err
			}
		}
	}

	block.Hash = hash
	return nil
}

// Block returns the block at index.
func (l *Ledger) Block(index uint64) (Block, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if index >= uint64(len(l.chain)) {
		return Block{}, fmt.Errorf("%w: index %d, chain length %d", ErrBlockNotFound, index, len(l.chain))
	}
	return l.chain[index], nil
}

// LatestBlock returns the chain tail.
func (l *Ledger) LatestBlock() Block {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.chain[len(l.chain)-1]
}

// Chain returns a copy of the full chain for reporting. Mutating the
// returned slice does not affect the ledger.
func (l *Ledger) Chain() []Block {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	chain := make([]Block, len(l.chain))
	copy(chain, l.chain)
	return chain
}

// Length returns the number of blocks in the chain, genesis included.
func (l *Ledger) Length() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.chain)
}

// PendingCount returns the number of transactions awaiting commit.
func (l *Ledger) PendingCount() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.pending)
}
