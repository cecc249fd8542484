// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/blockops-foundation/blockops/lib/clock"
)

func testLedger(difficulty int) (*Ledger, *clock.FakeClock) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	validator := NewValidator(DefaultConstraints(), fake)
	return New(validator, Options{Difficulty: difficulty, Clock: fake}), fake
}

func submitValid(t *testing.T, l *Ledger, id string) *Transaction {
	t.Helper()
	tx := &Transaction{
		ID:         id,
		Submitter:  "supply",
		ActionType: "PURCHASE_ORDER",
		Details: Details{
			Item:             "PPE Equipment",
			Amount:           floatPointer(1500),
			AvailableBudget:  floatPointer(2000),
			Quantity:         intPointer(500),
			AvailableStorage: intPointer(800),
			Confidence:       floatPointer(0.92),
		},
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:    StatusPending,
	}
	if result := l.Submit(tx); !result.Valid {
		t.Fatalf("Submit(%s): rejected: %s", id, result.OverallReason)
	}
	return tx
}

func TestGenesisBlock(t *testing.T) {
	t.Parallel()
	l, _ := testLedger(0)

	genesis, err := l.Block(0)
	if err != nil {
		t.Fatalf("Block(0): %v", err)
	}
	if genesis.Data.Type != BlockTypeGenesis {
		t.Errorf("genesis type = %q, want %q", genesis.Data.Type, BlockTypeGenesis)
	}
	if genesis.PreviousHash != GenesisPreviousHash {
		t.Errorf("genesis previous hash = %q, want sentinel", genesis.PreviousHash)
	}
	if len(genesis.Hash) != HashHexLength {
		t.Errorf("genesis hash length = %d, want %d", len(genesis.Hash), HashHexLength)
	}
}

func TestSubmitAndCommit(t *testing.T) {
	t.Parallel()
	l, _ := testLedger(0)

	submitValid(t, l, "TX001")
	if l.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1", l.PendingCount())
	}

	block, err := l.Commit(10)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if block.Index != 1 {
		t.Errorf("block index = %d, want 1", block.Index)
	}
	if block.Data.TransactionCount != 1 {
		t.Errorf("transaction count = %d, want 1", block.Data.TransactionCount)
	}
	if block.PreviousHash != mustBlock(t, l, 0).Hash {
		t.Error("block not linked to genesis")
	}
	if l.PendingCount() != 0 {
		t.Errorf("PendingCount after commit = %d, want 0", l.PendingCount())
	}
}

func mustBlock(t *testing.T, l *Ledger, index uint64) Block {
	t.Helper()
	block, err := l.Block(index)
	if err != nil {
		t.Fatalf("Block(%d): %v", index, err)
	}
	return block
}

func TestCommitEmptyPool(t *testing.T) {
	t.Parallel()
	l, _ := testLedger(0)

	if _, err := l.Commit(1); !errors.Is(err, ErrEmptyPool) {
		t.Errorf("Commit on empty pool: got %v, want ErrEmptyPool", err)
	}
	if l.Length() != 1 {
		t.Errorf("chain length changed by failed commit: %d", l.Length())
	}
}

func TestCommitFIFOBatching(t *testing.T) {
	t.Parallel()
	l, _ := testLedger(0)

	for i := 1; i <= 5; i++ {
		submitValid(t, l, fmt.Sprintf("TX%03d", i))
	}

	block, err := l.Commit(3)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	ids := make([]string, 0, 3)
	for _, tx := range block.Data.Transactions {
		ids = append(ids, tx.ID)
	}
	if got := strings.Join(ids, ","); got != "TX001,TX002,TX003" {
		t.Errorf("first batch = %s, want oldest three in order", got)
	}
	if l.PendingCount() != 2 {
		t.Errorf("PendingCount = %d, want 2", l.PendingCount())
	}

	second, err := l.Commit(10)
	if err != nil {
		t.Fatalf("second Commit: %v", err)
	}
	if second.Data.Transactions[0].ID != "TX004" {
		t.Errorf("second batch starts at %s, want TX004", second.Data.Transactions[0].ID)
	}
}

func TestRejectedTransactionNeverChains(t *testing.T) {
	t.Parallel()
	l, _ := testLedger(0)

	tx := &Transaction{
		ID:        "TX-REJECT",
		Submitter: "supply",
		Details: Details{
			Amount:          floatPointer(5000),
			AvailableBudget: floatPointer(2000),
		},
		Status: StatusPending,
	}
	result := l.Submit(tx)
	if result.Valid {
		t.Fatal("over-budget transaction validated")
	}
	if tx.Status != StatusRejected {
		t.Errorf("status = %q, want %q", tx.Status, StatusRejected)
	}

	if _, err := l.Commit(1); !errors.Is(err, ErrEmptyPool) {
		t.Errorf("Commit after rejection: got %v, want ErrEmptyPool", err)
	}
	if l.Length() != 1 {
		t.Errorf("chain length = %d, want 1 (genesis only)", l.Length())
	}
}

func TestValidateChainClean(t *testing.T) {
	t.Parallel()
	l, _ := testLedger(0)

	for i := 1; i <= 4; i++ {
		submitValid(t, l, fmt.Sprintf("TX%03d", i))
		if _, err := l.Commit(1); err != nil {
			t.Fatalf("Commit %d: %v", i, err)
		}
	}

	report := l.ValidateChain()
	if !report.Valid {
		t.Errorf("clean chain reported invalid: %+v", report.Errors)
	}
	if report.BlocksChecked != 5 {
		t.Errorf("BlocksChecked = %d, want 5", report.BlocksChecked)
	}
	if len(report.Errors) != 0 {
		t.Errorf("clean chain produced %d errors", len(report.Errors))
	}
}

func TestValidateChainDetectsDataTampering(t *testing.T) {
	t.Parallel()
	l, _ := testLedger(0)

	for i := 1; i <= 3; i++ {
		submitValid(t, l, fmt.Sprintf("TX%03d", i))
		if _, err := l.Commit(1); err != nil {
			t.Fatalf("Commit %d: %v", i, err)
		}
	}

	// Reach into the stored chain and alter block 2's payload.
	l.mutex.Lock()
	l.chain[2].Data.TransactionCount = 99
	l.mutex.Unlock()

	report := l.ValidateChain()
	if report.Valid {
		t.Fatal("tampered chain reported valid")
	}
	if len(report.Errors) != 1 {
		t.Fatalf("got %d errors, want exactly 1: %+v", len(report.Errors), report.Errors)
	}
	if report.Errors[0].Index != 2 || report.Errors[0].Kind != "hash" {
		t.Errorf("violation = block %d %s, want block 2 hash", report.Errors[0].Index, report.Errors[0].Kind)
	}
}

func TestValidateChainDetectsLinkTampering(t *testing.T) {
	t.Parallel()
	l, _ := testLedger(0)

	for i := 1; i <= 3; i++ {
		submitValid(t, l, fmt.Sprintf("TX%03d", i))
		if _, err := l.Commit(1); err != nil {
			t.Fatalf("Commit %d: %v", i, err)
		}
	}

	l.mutex.Lock()
	l.chain[2].PreviousHash = strings.Repeat("f", HashHexLength)
	l.mutex.Unlock()

	report := l.ValidateChain()
	if report.Valid {
		t.Fatal("chain with broken linkage reported valid")
	}
	// Changing previous_hash breaks both the linkage and block 2's own
	// stored hash (previous_hash is hash-covered).
	var kinds []string
	for _, violation := range report.Errors {
		if violation.Index != 2 {
			t.Errorf("violation at block %d, want all at block 2", violation.Index)
		}
		kinds = append(kinds, violation.Kind)
	}
	if got := strings.Join(kinds, ","); got != "linkage,hash" {
		t.Errorf("violation kinds = %s, want linkage,hash", got)
	}
}

func TestDeterministicHashing(t *testing.T) {
	t.Parallel()
	l, _ := testLedger(0)

	submitValid(t, l, "TX001")
	block, err := l.Commit(1)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	recomputed, err := block.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	if recomputed != block.Hash {
		t.Errorf("recomputed hash %s != stored %s", recomputed, block.Hash)
	}

	// Changing any single field changes the digest.
	mutations := map[string]func(*Block){
		"index":         func(b *Block) { b.Index++ },
		"timestamp":     func(b *Block) { b.Timestamp = b.Timestamp.Add(time.Nanosecond) },
		"data":          func(b *Block) { b.Data.TransactionCount++ },
		"previous_hash": func(b *Block) { b.PreviousHash = strings.Repeat("e", HashHexLength) },
		"nonce":         func(b *Block) { b.Nonce++ },
	}
	for name, mutate := range mutations {
		copied := block
		mutate(&copied)
		changed, err := copied.ComputeHash()
		if err != nil {
			t.Fatalf("ComputeHash after %s mutation: %v", name, err)
		}
		if changed == block.Hash {
			t.Errorf("mutating %s did not change the digest", name)
		}
	}
}

func TestProofOfWorkPrefix(t *testing.T) {
	t.Parallel()
	l, _ := testLedger(2)

	submitValid(t, l, "TX001")
	block, err := l.Commit(1)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !strings.HasPrefix(block.Hash, "00") {
		t.Errorf("difficulty-2 block hash %s lacks 00 prefix", block.Hash)
	}
	if report := l.ValidateChain(); !report.Valid {
		t.Errorf("mined chain invalid: %+v", report.Errors)
	}
}

func TestHistoryFilter(t *testing.T) {
	t.Parallel()
	l, _ := testLedger(0)

	for i, submitter := range []string{"supply", "finance", "supply"} {
		tx := &Transaction{
			ID:        fmt.Sprintf("TX%03d", i+1),
			Submitter: submitter,
			Details:   Details{Quantity: intPointer(10)},
			Status:    StatusPending,
		}
		if result := l.Submit(tx); !result.Valid {
			t.Fatalf("Submit: %s", result.OverallReason)
		}
	}
	if _, err := l.Commit(10); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	all := l.History("")
	if len(all) != 3 {
		t.Fatalf("History(\"\") = %d entries, want 3", len(all))
	}
	supply := l.History("supply")
	if len(supply) != 2 {
		t.Fatalf("History(supply) = %d entries, want 2", len(supply))
	}
	for _, entry := range supply {
		if entry.Transaction.Submitter != "supply" {
			t.Errorf("filtered history contains submitter %q", entry.Transaction.Submitter)
		}
		if entry.BlockIndex != 1 {
			t.Errorf("history entry block index = %d, want 1", entry.BlockIndex)
		}
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	l, _ := testLedger(0)

	submitValid(t, l, "TX001")
	if _, err := l.Commit(1); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	rejected := &Transaction{
		ID:      "TX002",
		Details: Details{Amount: floatPointer(-1)},
		Status:  StatusPending,
	}
	l.Submit(rejected)
	submitValid(t, l, "TX003")

	stats := l.Stats()
	if stats.TotalBlocks != 2 {
		t.Errorf("TotalBlocks = %d, want 2", stats.TotalBlocks)
	}
	if stats.TotalTransactions != 1 {
		t.Errorf("TotalTransactions = %d, want 1", stats.TotalTransactions)
	}
	if stats.ValidatedTransactions != 2 {
		t.Errorf("ValidatedTransactions = %d, want 2", stats.ValidatedTransactions)
	}
	if stats.RejectedTransactions != 1 {
		t.Errorf("RejectedTransactions = %d, want 1", stats.RejectedTransactions)
	}
	if stats.PendingTransactions != 1 {
		t.Errorf("PendingTransactions = %d, want 1", stats.PendingTransactions)
	}
	if !stats.ChainValid {
		t.Error("ChainValid = false for a clean chain")
	}
}

func TestVerifyBlock(t *testing.T) {
	t.Parallel()
	l, _ := testLedger(0)

	submitValid(t, l, "TX001")
	if _, err := l.Commit(1); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	report, err := l.VerifyBlock(1)
	if err != nil {
		t.Fatalf("VerifyBlock: %v", err)
	}
	if !report.Valid || !report.HashValid || !report.LinkValid {
		t.Errorf("clean block verification failed: %+v", report)
	}

	if _, err := l.VerifyBlock(99); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("VerifyBlock(99): got %v, want ErrBlockNotFound", err)
	}
}
