// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/blockops-foundation/blockops/lib/codec"
)

// HashHexLength is the length of a block hash rendered as lowercase
// hex: a 32-byte BLAKE3 digest is 64 hex characters. The genesis
// sentinel has the same width.
const HashHexLength = 64

// GenesisPreviousHash is the previous-hash sentinel carried by the
// genesis block, which has no predecessor.
var GenesisPreviousHash = strings.Repeat("0", HashHexLength)

// blockDomainKey is the BLAKE3 keyed-hashing domain key for block
// digests. Domain separation keeps block hashes distinct from any
// other hash this project might compute over the same bytes. The key
// is the ASCII domain name zero-padded to 32 bytes; changing it
// invalidates every existing chain.
var blockDomainKey = [32]byte{
	'b', 'l', 'o', 'c', 'k', 'o', 'p', 's', '.', 'l', 'e', 'd', 'g', 'e', 'r', '.',
	'b', 'l', 'o', 'c', 'k', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// BlockType tags what a block's data field carries.
type BlockType string

const (
	// BlockTypeGenesis marks the chain's first block, whose data is
	// network metadata rather than transactions.
	BlockTypeGenesis BlockType = "GENESIS"

	// BlockTypeTransactions marks a block carrying a batch of
	// validated transactions.
	BlockTypeTransactions BlockType = "TRANSACTION_BLOCK"
)

// BlockData is a block's payload, tagged by Type. Genesis blocks fill
// the metadata fields; transaction blocks fill the batch fields.
type BlockData struct {
	Type BlockType `json:"type" cbor:"type"`

	// Genesis metadata.
	Message   string `json:"message,omitempty" cbor:"message,omitempty"`
	Network   string `json:"network,omitempty" cbor:"network,omitempty"`
	Version   string `json:"version,omitempty" cbor:"version,omitempty"`
	CreatedAt string `json:"created_at,omitempty" cbor:"created_at,omitempty"`

	// Transaction batch.
	TransactionCount int           `json:"transaction_count,omitempty" cbor:"transaction_count,omitempty"`
	Transactions     []Transaction `json:"transactions,omitempty" cbor:"transactions,omitempty"`
}

// Block is one immutable, hash-linked unit of the ledger. Created
// once, appended to the chain, never mutated afterward: any later
// recomputation of its hash must equal the stored hash or the chain
// is invalid.
type Block struct {
	Index        uint64    `json:"index" cbor:"index"`
	Timestamp    time.Time `json:"timestamp" cbor:"timestamp"`
	Data         BlockData `json:"data" cbor:"data"`
	PreviousHash string    `json:"previous_hash" cbor:"previous_hash"`
	Hash         string    `json:"hash" cbor:"hash"`
	Nonce        uint64    `json:"nonce" cbor:"nonce"`
}

// hashPayload is the exact structure covered by a block's hash. The
// timestamp is reduced to Unix nanoseconds so the digest does not
// depend on time.Time's serialization details or monotonic-clock
// state. Field set and names are part of the chain format.
type hashPayload struct {
	Index        uint64    `cbor:"index"`
	TimestampNS  int64     `cbor:"timestamp_ns"`
	Data         BlockData `cbor:"data"`
	PreviousHash string    `cbor:"previous_hash"`
	Nonce        uint64    `cbor:"nonce"`
}

// ComputeHash returns the hex digest of the block's hash-covered
// fields: keyed BLAKE3 over the deterministic CBOR encoding of
// {index, timestamp, data, previous_hash, nonce}. Identical inputs
// always yield the same digest.
func (b *Block) ComputeHash() (string, error) {
	encoded, err := codec.Marshal(hashPayload{
		Index:        b.Index,
		TimestampNS:  b.Timestamp.UnixNano(),
		Data:         b.Data,
		PreviousHash: b.PreviousHash,
		Nonce:        b.Nonce,
	})
	if err != nil {
		return "", fmt.Errorf("encoding block %d for hashing: %w", b.Index, err)
	}

	hasher, err := blake3.NewKeyed(blockDomainKey[:])
	if err != nil {
		// The key is a fixed 32-byte constant; a failure here is a
		// programming error, not an input condition.
		panic("ledger: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	if _, err := hasher.Write(encoded); err != nil {
		return "", fmt.Errorf("hashing block %d: %w", b.Index, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// ShortHash returns the first 16 hex characters of a digest for log
// and display output, matching the fixed rendering used everywhere a
// full hash would be noise.
func ShortHash(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16] + "..."
}
