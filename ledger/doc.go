// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger implements the hash-linked, append-only record of
// coordinated decisions: a chain of immutable blocks, a FIFO pool of
// pending transactions, and the deterministic constraint validator
// that gates admission to the pool.
//
// The chain lives entirely in memory. Blocks are hashed with keyed
// BLAKE3 over a CBOR Core Deterministic Encoding of their contents,
// so recomputing any block's hash from its stored fields reproduces
// the stored digest exactly — [Ledger.ValidateChain] relies on this to
// detect tampering. The genesis block uses an all-zero previous-hash
// sentinel of the same hex width as a real digest.
//
// [Manager] wraps one shared Ledger instance behind a convenience
// "record decision" operation (submit + single-transaction commit) and
// an explicit reset. It is constructed by the application's composition
// root and passed by handle — there is no package-level singleton.
//
// Expected negative outcomes are values, not errors: a transaction
// that fails constraint validation is recorded as rejected and
// reported through [ValidationResult]; only [ErrEmptyPool] (commit
// with nothing pending) and genuine misuse surface as errors.
package ledger
