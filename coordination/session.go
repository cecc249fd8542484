// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package coordination

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/blockops-foundation/blockops/ledger"
)

// State is a session's position in the protocol state machine. States
// only move forward through the transition graph; COMPLETED, FAILED,
// and TIMEOUT are terminal.
type State string

const (
	StateInitiated             State = "initiated"
	StateCollectingConstraints State = "collecting_constraints"
	StateGeneratingProposals   State = "generating_proposals"
	StateNegotiating           State = "negotiating"
	StateValidating            State = "validating"
	StateExecuting             State = "executing"
	StateCompleted             State = "completed"
	StateFailed                State = "failed"
	StateTimeout               State = "timeout"
)

// Terminal reports whether no further mutation of the session is
// permitted.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimeout
}

// successor is the forward edge of the happy path. FAILED and TIMEOUT
// are reachable from any non-terminal state and are handled separately
// in canTransition.
var successor = map[State]State{
	StateInitiated:             StateCollectingConstraints,
	StateCollectingConstraints: StateGeneratingProposals,
	StateGeneratingProposals:   StateNegotiating,
	StateNegotiating:           StateValidating,
	StateValidating:            StateExecuting,
	StateExecuting:             StateCompleted,
}

func (s State) canTransition(to State) bool {
	if s.Terminal() {
		return false
	}
	if to == StateFailed || to == StateTimeout {
		return true
	}
	return successor[s] == to
}

// TransitionError reports an attempt to move a session along an edge
// the state machine does not define.
type TransitionError struct {
	SessionID string
	From      State
	To        State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session %s: illegal transition %s -> %s", e.SessionID, e.From, e.To)
}

// NegotiationRound is one completed propose/critique iteration. Rounds
// are numbered contiguously from 1 and, like messages, are immutable
// once appended.
type NegotiationRound struct {
	Number    int           `json:"round_number"`
	Proposal  Proposal      `json:"proposal"`
	Critiques []Critique    `json:"critiques"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// Agreement is the execution record built from a validated final
// proposal.
type Agreement struct {
	SessionID       string                        `json:"session_id"`
	Proposal        Proposal                      `json:"proposal"`
	Participants    []string                      `json:"participants"`
	Constraints     map[string]ConstraintSnapshot `json:"constraints_satisfied"`
	Timestamp       time.Time                     `json:"timestamp"`
	ExecutionStatus string                        `json:"execution_status"`
}

// Session is the aggregate record of one coordination request: the full
// message log, the round history, the collected constraints, and the
// outcome. The coordinator mutates a session only through its own
// protocol steps; values returned from Coordinator queries are
// snapshots and safe to retain.
type Session struct {
	ID            string                        `json:"session_id"`
	Scenario      Scenario                      `json:"scenario"`
	Initiator     string                        `json:"initiator"`
	Participants  []string                      `json:"participants"`
	State         State                         `json:"state"`
	StartedAt     time.Time                     `json:"started_at"`
	CompletedAt   time.Time                     `json:"completed_at,omitzero"`
	Messages      []Message                     `json:"messages"`
	Rounds        []NegotiationRound            `json:"negotiation_rounds"`
	Constraints   map[string]ConstraintSnapshot `json:"constraints"`
	FinalProposal *Proposal                     `json:"final_proposal,omitempty"`
	Agreement     *Agreement                    `json:"agreement,omitempty"`
	LedgerReceipt *ledger.Receipt               `json:"ledger_record,omitempty"`
	Err           string                        `json:"error,omitempty"`
}

// clone returns a deep enough copy for concurrent readers: all slices
// and maps are copied, message content and payload structs are treated
// as immutable and shared.
func (s *Session) clone() *Session {
	copied := *s
	copied.Participants = slices.Clone(s.Participants)
	copied.Messages = slices.Clone(s.Messages)
	copied.Rounds = slices.Clone(s.Rounds)
	copied.Constraints = maps.Clone(s.Constraints)
	if s.FinalProposal != nil {
		proposal := *s.FinalProposal
		copied.FinalProposal = &proposal
	}
	if s.Agreement != nil {
		agreement := *s.Agreement
		agreement.Participants = slices.Clone(s.Agreement.Participants)
		agreement.Constraints = maps.Clone(s.Agreement.Constraints)
		copied.Agreement = &agreement
	}
	if s.LedgerReceipt != nil {
		receipt := *s.LedgerReceipt
		copied.LedgerReceipt = &receipt
	}
	return &copied
}

// SessionSummary is a session table listing entry.
type SessionSummary struct {
	ID          string    `json:"session_id"`
	State       State     `json:"state"`
	Initiator   string    `json:"initiator"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}
