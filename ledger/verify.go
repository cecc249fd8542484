// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"fmt"
	"time"
)

// ChainReport is the result of a full-chain integrity walk.
type ChainReport struct {
	Valid bool `json:"valid"`

	// Errors lists every violation found. ValidateChain does not
	// short-circuit on the first problem; a tampered block and the
	// broken linkage it causes downstream are both reported.
	Errors []*IntegrityError `json:"errors"`

	BlocksChecked int `json:"blocks_checked"`
}

// BlockReport is the result of verifying one block in isolation.
type BlockReport struct {
	Valid        bool   `json:"valid"`
	HashValid    bool   `json:"hash_valid"`
	LinkValid    bool   `json:"link_valid"`
	BlockHash    string `json:"block_hash"`
	ComputedHash string `json:"computed_hash"`
	PreviousHash string `json:"previous_hash"`
}

// ValidateChain walks the chain checking (a) previous-hash linkage and
// (b) hash recomputation equality for every block, plus the genesis
// sentinel. All violations are collected rather than stopping at the
// first. Ongoing writes are not blocked beyond the duration of the
// walk itself.
func (l *Ledger) ValidateChain() ChainReport {
	return validateBlocks(l.Chain())
}

// validateBlocks runs the integrity walk over an already-copied chain.
// Shared with snapshot verification, which operates on imported blocks
// that never lived in a Ledger.
func validateBlocks(chain []Block) ChainReport {
	report := ChainReport{Valid: true, BlocksChecked: len(chain)}
	fail := func(e *IntegrityError) {
		report.Valid = false
		report.Errors = append(report.Errors, e)
	}

	if len(chain) == 0 {
		fail(&IntegrityError{Index: 0, Kind: "linkage", Detail: "chain is empty"})
		return report
	}

	if chain[0].PreviousHash != GenesisPreviousHash {
		fail(&IntegrityError{
			Index:  0,
			Kind:   "linkage",
			Detail: "genesis block has invalid previous_hash",
		})
	}

	for i := range chain {
		block := &chain[i]

		if i > 0 && block.PreviousHash != chain[i-1].Hash {
			fail(&IntegrityError{
				Index: block.Index,
				Kind:  "linkage",
				Detail: fmt.Sprintf("previous_hash mismatch. Expected: %s, Got: %s",
					ShortHash(chain[i-1].Hash), ShortHash(block.PreviousHash)),
			})
		}

		recomputed, err := block.ComputeHash()
		if err != nil {
			fail(&IntegrityError{
				Index:  block.Index,
				Kind:   "hash",
				Detail: fmt.Sprintf("recomputation failed: %v", err),
			})
			continue
		}
		if block.Hash != recomputed {
			fail(&IntegrityError{
				Index: block.Index,
				Kind:  "hash",
				Detail: fmt.Sprintf("stored hash invalid. Stored: %s, Calculated: %s",
					ShortHash(block.Hash), ShortHash(recomputed)),
			})
		}
	}

	return report
}

// VerifyBlock checks a single block's stored hash and its linkage to
// the preceding block.
func (l *Ledger) VerifyBlock(index uint64) (BlockReport, error) {
	block, err := l.Block(index)
	if err != nil {
		return BlockReport{}, err
	}

	computed, err := block.ComputeHash()
	if err != nil {
		return BlockReport{}, err
	}

	report := BlockReport{
		HashValid:    block.Hash == computed,
		LinkValid:    true,
		BlockHash:    block.Hash,
		ComputedHash: computed,
		PreviousHash: block.PreviousHash,
	}
	if index > 0 {
		previous, err := l.Block(index - 1)
		if err != nil {
			return BlockReport{}, err
		}
		report.LinkValid = block.PreviousHash == previous.Hash
	} else {
		report.LinkValid = block.PreviousHash == GenesisPreviousHash
	}
	report.Valid = report.HashValid && report.LinkValid
	return report, nil
}

// HistoryEntry is one chained transaction with the coordinates of the
// block that carries it.
type HistoryEntry struct {
	BlockIndex     uint64      `json:"block_index"`
	BlockHash      string      `json:"block_hash"`
	BlockTimestamp time.Time   `json:"block_timestamp"`
	Transaction    Transaction `json:"transaction"`
}

// History flattens all transaction-block payloads across the chain in
// order, skipping genesis. A non-empty submitter filters to that
// submitter's transactions.
func (l *Ledger) History(submitter string) []HistoryEntry {
	var entries []HistoryEntry
	for _, block := range l.Chain() {
		if block.Data.Type != BlockTypeTransactions {
			continue
		}
		for _, tx := range block.Data.Transactions {
			if submitter != "" && tx.Submitter != submitter {
				continue
			}
			entries = append(entries, HistoryEntry{
				BlockIndex:     block.Index,
				BlockHash:      block.Hash,
				BlockTimestamp: block.Timestamp,
				Transaction:    tx,
			})
		}
	}
	return entries
}

// Stats is a derived, read-only aggregation of ledger state.
type Stats struct {
	TotalBlocks           int    `json:"total_blocks"`
	TotalTransactions     int    `json:"total_transactions"`
	ValidatedTransactions int    `json:"validated_transactions"`
	RejectedTransactions  int    `json:"rejected_transactions"`
	PendingTransactions   int    `json:"pending_transactions"`
	ChainValid            bool   `json:"chain_valid"`
	LatestBlockHash       string `json:"latest_block_hash"`
	GenesisHash           string `json:"genesis_hash"`
}

// Stats aggregates chain and pool counters. TotalTransactions counts
// chained transactions only; ValidatedTransactions and
// RejectedTransactions count admissions since the ledger was created
// (rejected transactions never chain, so they are tracked at submit
// time).
func (l *Ledger) Stats() Stats {
	l.mutex.Lock()
	chain := make([]Block, len(l.chain))
	copy(chain, l.chain)
	pending := len(l.pending)
	validated := l.validatedCount
	rejected := l.rejectedCount
	l.mutex.Unlock()

	total := 0
	for _, block := range chain {
		if block.Data.Type == BlockTypeTransactions {
			total += len(block.Data.Transactions)
		}
	}

	return Stats{
		TotalBlocks:           len(chain),
		TotalTransactions:     total,
		ValidatedTransactions: validated,
		RejectedTransactions:  rejected,
		PendingTransactions:   pending,
		ChainValid:            validateBlocks(chain).Valid,
		LatestBlockHash:       chain[len(chain)-1].Hash,
		GenesisHash:           chain[0].Hash,
	}
}
