// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/blockops-foundation/blockops/lib/codec"
)

// snapshotMagic opens every chain snapshot. The trailing digit is the
// format version; changing the payload encoding bumps it.
var snapshotMagic = []byte("BOSNAP1\n")

// CompressionTag identifies the compression algorithm used for a
// snapshot payload. Stored as one byte after the magic. These values
// are format constants — changing them breaks snapshot compatibility.
type CompressionTag uint8

const (
	// CompressionNone stores the CBOR payload uncompressed.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 uses LZ4 frame compression: fast, modest ratio.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd uses zstd at the default level. Better ratios
	// for the text-heavy reason strings a chain accumulates; the
	// snapshot default.
	CompressionZstd CompressionTag = 2
)

// String returns the human-readable name of a compression tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// snapshot is the CBOR payload of an exported chain.
type snapshot struct {
	Blocks []Block `cbor:"blocks"`
}

// WriteSnapshot encodes the current chain as CBOR and writes it to w
// compressed per the given tag. The snapshot is a reporting artifact
// for offline audit (see ReadSnapshot), not a durability mechanism:
// nothing about the in-memory engine changes.
func (l *Ledger) WriteSnapshot(w io.Writer, compression CompressionTag) error {
	payload, err := codec.Marshal(snapshot{Blocks: l.Chain()})
	if err != nil {
		return fmt.Errorf("encoding chain snapshot: %w", err)
	}

	if _, err := w.Write(snapshotMagic); err != nil {
		return fmt.Errorf("writing snapshot magic: %w", err)
	}
	if _, err := w.Write([]byte{byte(compression)}); err != nil {
		return fmt.Errorf("writing compression tag: %w", err)
	}

	switch compression {
	case CompressionNone:
		_, err = w.Write(payload)
	case CompressionLZ4:
		lz4Writer := lz4.NewWriter(w)
		if _, err = lz4Writer.Write(payload); err == nil {
			err = lz4Writer.Close()
		}
	case CompressionZstd:
		var zstdWriter *zstd.Encoder
		zstdWriter, err = zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("initializing zstd: %w", err)
		}
		if _, err = zstdWriter.Write(payload); err == nil {
			err = zstdWriter.Close()
		}
	default:
		return fmt.Errorf("unknown compression tag %s", compression)
	}
	if err != nil {
		return fmt.Errorf("writing snapshot payload (%s): %w", compression, err)
	}
	return nil
}

// ReadSnapshot decodes a chain snapshot written by WriteSnapshot.
// It returns the blocks as stored; callers that care about integrity
// run VerifySnapshot on the result.
func ReadSnapshot(r io.Reader) ([]Block, error) {
	header := make([]byte, len(snapshotMagic)+1)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}
	if !bytes.Equal(header[:len(snapshotMagic)], snapshotMagic) {
		return nil, fmt.Errorf("not a chain snapshot (bad magic)")
	}

	var payload []byte
	var err error
	switch tag := CompressionTag(header[len(snapshotMagic)]); tag {
	case CompressionNone:
		payload, err = io.ReadAll(r)
	case CompressionLZ4:
		payload, err = io.ReadAll(lz4.NewReader(r))
	case CompressionZstd:
		var zstdReader *zstd.Decoder
		zstdReader, err = zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("initializing zstd: %w", err)
		}
		defer zstdReader.Close()
		payload, err = io.ReadAll(zstdReader)
	default:
		return nil, fmt.Errorf("unknown compression tag %s", tag)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot payload: %w", err)
	}

	var decoded snapshot
	if err := codec.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("decoding chain snapshot: %w", err)
	}
	return decoded.Blocks, nil
}

// VerifySnapshot runs the full integrity walk over imported blocks:
// genesis sentinel, previous-hash linkage, and hash recomputation for
// every block.
func VerifySnapshot(blocks []Block) ChainReport {
	return validateBlocks(blocks)
}
