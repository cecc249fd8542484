// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides CBOR encoding with deterministic output.
//
// All hash-covered data in BlockOps (block hash payloads, chain
// snapshots) is encoded with CBOR Core Deterministic Encoding so that
// the same logical value always produces identical bytes. Recomputing
// a block's hash from its stored fields must reproduce the stored
// digest exactly; a non-canonical encoder would break that invariant.
//
// [Marshal] and [Unmarshal] mirror encoding/json's signatures. No
// package in this repository imports fxamacker/cbor directly.
package codec
