// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"errors"
	"fmt"
)

// ErrEmptyPool is returned by Commit when the pending pool holds no
// transactions. It is an expected, local condition: the caller skips
// this commit cycle rather than treating the session as failed.
var ErrEmptyPool = errors.New("ledger: no pending transactions to commit")

// ErrBlockNotFound is returned by Block and VerifyBlock for an index
// outside the chain.
var ErrBlockNotFound = errors.New("ledger: block not found")

// IntegrityError describes one chain-integrity violation found by
// ValidateChain or VerifyBlock: a broken previous-hash link or a
// stored hash that no longer matches recomputation.
type IntegrityError struct {
	// Index is the block where the violation was detected.
	Index uint64
	// Kind is "linkage" or "hash".
	Kind string
	// Detail describes the mismatch, with hashes shortened for
	// readability.
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("block %d %s violation: %s", e.Index, e.Kind, e.Detail)
}
