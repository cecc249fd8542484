// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package coordination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/blockops-foundation/blockops/ledger"
	"github.com/blockops-foundation/blockops/lib/clock"
	"github.com/blockops-foundation/blockops/lib/testutil"
)

var errNoBackend = errors.New("decision backend unavailable")

// stubParticipant routes calls to optional function fields; a nil field
// fails the call so the coordinator's fallback takes over.
type stubParticipant struct {
	name string
	role string

	constraints func(Scenario) (ConstraintSnapshot, error)
	propose     func(Scenario, map[string]ConstraintSnapshot) (Proposal, error)
	critique    func(Proposal, ConstraintSnapshot) (Critique, error)
}

func (s *stubParticipant) Name() string { return s.name }
func (s *stubParticipant) Role() string { return s.role }

func (s *stubParticipant) Constraints(_ context.Context, scenario Scenario) (ConstraintSnapshot, error) {
	if s.constraints == nil {
		return ConstraintSnapshot{}, errNoBackend
	}
	return s.constraints(scenario)
}

func (s *stubParticipant) Propose(_ context.Context, scenario Scenario, collected map[string]ConstraintSnapshot) (Proposal, error) {
	if s.propose == nil {
		return Proposal{}, errNoBackend
	}
	return s.propose(scenario, collected)
}

func (s *stubParticipant) Critique(_ context.Context, proposal Proposal, own ConstraintSnapshot) (Critique, error) {
	if s.critique == nil {
		return Critique{}, errNoBackend
	}
	return s.critique(proposal, own)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testCoordinator(options Options) (*Coordinator, *clock.FakeClock) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if options.Clock == nil {
		options.Clock = fake
	}
	if options.Logger == nil {
		options.Logger = quietLogger()
	}
	return New(options), fake
}

// registerTrio registers supply, finance, and facility participants
// whose decision backends always fail, so every decision comes from the
// deterministic role fallbacks.
func registerTrio(t *testing.T, coordinator *Coordinator) {
	t.Helper()
	for _, p := range []*stubParticipant{
		{name: "supply", role: "supply_chain"},
		{name: "finance", role: "financial"},
		{name: "facility", role: "facility"},
	} {
		if err := coordinator.Register(p); err != nil {
			t.Fatalf("Register(%s): %v", p.name, err)
		}
	}
}

func procurementScenario(required int, unitPrice, budget float64, storage int) Scenario {
	return Scenario{
		Intent:       "Order medical supplies",
		Initiator:    "supply",
		Participants: []string{"supply", "finance", "facility"},
		Context: DecisionContext{
			Item:             "Surgical Masks",
			RequiredQuantity: required,
			UnitPrice:        unitPrice,
			BudgetRemaining:  &budget,
			StorageAvailable: &storage,
		},
	}
}

func TestScenarioStorageBound(t *testing.T) {
	t.Parallel()
	coordinator, _ := testCoordinator(Options{})
	registerTrio(t, coordinator)

	session := coordinator.Run(context.Background(), procurementScenario(1000, 2.00, 2000, 800))

	if session.State != StateCompleted {
		t.Fatalf("state = %s, want completed (error: %s)", session.State, session.Err)
	}
	if session.FinalProposal == nil {
		t.Fatal("no final proposal")
	}
	if session.FinalProposal.Quantity != 800 {
		t.Errorf("quantity = %d, want 800", session.FinalProposal.Quantity)
	}
	if session.FinalProposal.Cost != 1600.00 {
		t.Errorf("cost = %.2f, want 1600.00", session.FinalProposal.Cost)
	}
	if session.LedgerReceipt == nil || !session.LedgerReceipt.Success {
		t.Fatalf("ledger receipt = %+v, want success", session.LedgerReceipt)
	}
	if coordinator.Manager().Ledger().Length() != 2 {
		t.Errorf("chain length = %d, want genesis plus one block", coordinator.Manager().Ledger().Length())
	}
}

func TestScenarioBudgetBound(t *testing.T) {
	t.Parallel()
	coordinator, _ := testCoordinator(Options{})
	registerTrio(t, coordinator)

	session := coordinator.Run(context.Background(), procurementScenario(1000, 2.00, 1200, 1000))

	if session.State != StateCompleted {
		t.Fatalf("state = %s, want completed (error: %s)", session.State, session.Err)
	}
	if session.FinalProposal.Quantity != 600 {
		t.Errorf("quantity = %d, want 600", session.FinalProposal.Quantity)
	}
	if session.FinalProposal.Cost != 1200.00 {
		t.Errorf("cost = %.2f, want 1200.00", session.FinalProposal.Cost)
	}
}

func TestScenarioBothConstraintsTight(t *testing.T) {
	t.Parallel()
	coordinator, _ := testCoordinator(Options{})
	registerTrio(t, coordinator)

	session := coordinator.Run(context.Background(), procurementScenario(2000, 2.00, 1500, 700))

	if session.State != StateCompleted {
		t.Fatalf("state = %s, want completed (error: %s)", session.State, session.Err)
	}
	if session.FinalProposal.Quantity != 700 {
		t.Errorf("quantity = %d, want 700", session.FinalProposal.Quantity)
	}
	if session.FinalProposal.Cost != 1400.00 {
		t.Errorf("cost = %.2f, want 1400.00", session.FinalProposal.Cost)
	}
}

func TestEarlyTermination(t *testing.T) {
	t.Parallel()
	coordinator, _ := testCoordinator(Options{})
	registerTrio(t, coordinator)

	// The fallback proposal already satisfies both critics, so round 1
	// is unanimous.
	session := coordinator.Run(context.Background(), procurementScenario(1000, 2.00, 2000, 800))

	if len(session.Rounds) != 1 {
		t.Fatalf("rounds = %d, want exactly 1", len(session.Rounds))
	}
	if session.Rounds[0].Number != 1 {
		t.Errorf("round number = %d, want 1", session.Rounds[0].Number)
	}
	for _, critique := range session.Rounds[0].Critiques {
		if critique.Decision != DecisionAccept {
			t.Errorf("critique from %s = %s, want accept", critique.Agent, critique.Decision)
		}
	}
}

func TestMonotonicRefinement(t *testing.T) {
	t.Parallel()
	coordinator, _ := testCoordinator(Options{})

	// The initiator proposes the raw requirement, ignoring every
	// collected constraint, so the critics drive refinement.
	greedy := &stubParticipant{
		name: "supply",
		role: "supply_chain",
		propose: func(scenario Scenario, _ map[string]ConstraintSnapshot) (Proposal, error) {
			quantity := scenario.Context.RequiredQuantity
			return Proposal{
				Item:      scenario.Context.Item,
				Quantity:  quantity,
				Cost:      float64(quantity) * scenario.Context.UnitPrice,
				UnitPrice: scenario.Context.UnitPrice,
				Reasoning: "full requirement",
			}, nil
		},
	}
	if err := coordinator.Register(greedy); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := coordinator.Register(&stubParticipant{name: "finance", role: "financial"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := coordinator.Register(&stubParticipant{name: "facility", role: "facility"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	session := coordinator.Run(context.Background(), procurementScenario(2000, 2.00, 1500, 700))

	if session.State != StateCompleted {
		t.Fatalf("state = %s, want completed (error: %s)", session.State, session.Err)
	}
	if len(session.Rounds) != 2 {
		t.Fatalf("rounds = %d, want 2 (reject then accept)", len(session.Rounds))
	}
	if session.FinalProposal.Quantity != 700 || session.FinalProposal.Cost != 1400.00 {
		t.Errorf("final proposal = %d units / $%.2f, want 700 / $1400.00",
			session.FinalProposal.Quantity, session.FinalProposal.Cost)
	}

	// Each broadcast proposal must tighten or hold.
	var previous *Proposal
	for _, message := range session.Messages {
		if message.Type != MessageProposal {
			continue
		}
		proposal, ok := message.Content.(Proposal)
		if !ok {
			t.Fatalf("proposal message %s carries %T", message.ID, message.Content)
		}
		if previous != nil {
			if proposal.Quantity > previous.Quantity {
				t.Errorf("quantity increased: %d -> %d", previous.Quantity, proposal.Quantity)
			}
			if proposal.Cost > previous.Cost {
				t.Errorf("cost increased: %.2f -> %.2f", previous.Cost, proposal.Cost)
			}
		}
		previous = &proposal
	}
}

func TestRoundExhaustionBestEffort(t *testing.T) {
	t.Parallel()
	coordinator, _ := testCoordinator(Options{MaxRounds: 3})

	stubborn := &stubParticipant{
		name: "auditor",
		role: "audit",
		critique: func(Proposal, ConstraintSnapshot) (Critique, error) {
			return Critique{
				Agent:      "auditor",
				Decision:   DecisionReject,
				Reasoning:  "never satisfied",
				Confidence: 0.5,
			}, nil
		},
	}
	if err := coordinator.Register(&stubParticipant{name: "supply", role: "supply_chain"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := coordinator.Register(stubborn); err != nil {
		t.Fatalf("Register: %v", err)
	}

	scenario := Scenario{
		Intent:       "Order against a stubborn auditor",
		Initiator:    "supply",
		Participants: []string{"supply", "auditor"},
		Context:      DecisionContext{Item: "Gloves", RequiredQuantity: 100, UnitPrice: 1.00},
	}
	session := coordinator.Run(context.Background(), scenario)

	if len(session.Rounds) != 3 {
		t.Fatalf("rounds = %d, want all 3", len(session.Rounds))
	}
	// No budget or storage snapshot was collected, so step 7 passes
	// vacuously and the unaccepted proposal still executes.
	if session.State != StateCompleted {
		t.Fatalf("state = %s, want completed (error: %s)", session.State, session.Err)
	}
	if session.FinalProposal == nil {
		t.Fatal("no final proposal despite best-effort policy")
	}
}

func TestValidationFailureFailsSession(t *testing.T) {
	t.Parallel()
	coordinator, _ := testCoordinator(Options{MaxRounds: 1})

	// The initiator overshoots and the only critic accepts blindly, so
	// only the step-7 re-validation can catch the violation.
	greedy := &stubParticipant{
		name: "supply",
		role: "supply_chain",
		propose: func(scenario Scenario, _ map[string]ConstraintSnapshot) (Proposal, error) {
			return Proposal{
				Item:      scenario.Context.Item,
				Quantity:  2000,
				Cost:      4000,
				UnitPrice: 2.00,
			}, nil
		},
	}
	blind := &stubParticipant{
		name: "finance",
		role: "financial",
		critique: func(Proposal, ConstraintSnapshot) (Critique, error) {
			return Critique{Agent: "finance", Decision: DecisionAccept, Confidence: 1}, nil
		},
	}
	if err := coordinator.Register(greedy); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := coordinator.Register(blind); err != nil {
		t.Fatalf("Register: %v", err)
	}

	budget := 1500.0
	session := coordinator.Run(context.Background(), Scenario{
		Intent:       "Overspend",
		Initiator:    "supply",
		Participants: []string{"supply", "finance"},
		Context:      DecisionContext{Item: "Masks", RequiredQuantity: 2000, UnitPrice: 2.00, BudgetRemaining: &budget},
	})

	if session.State != StateFailed {
		t.Fatalf("state = %s, want failed", session.State)
	}
	if session.Err == "" {
		t.Error("failed session has no error")
	}
	if session.LedgerReceipt != nil {
		t.Error("failed session produced a ledger receipt")
	}
	if coordinator.Manager().Ledger().Length() != 1 {
		t.Errorf("chain length = %d, want genesis only", coordinator.Manager().Ledger().Length())
	}

	// The step-7 verdict is broadcast as a REJECT from the ledger
	// pseudo-identity.
	var sawReject bool
	for _, message := range session.Messages {
		if message.Type == MessageReject && message.Sender == LedgerIdentity {
			sawReject = true
		}
	}
	if !sawReject {
		t.Error("no REJECT broadcast from the ledger identity")
	}
}

func TestTimeoutSafety(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	coordinator := New(Options{
		Timeout: 100 * time.Millisecond,
		Clock:   fake,
		Logger:  quietLogger(),
		// The very first message burns the whole budget, so the
		// step-1 boundary check trips.
		Observer: func(Message) { fake.Advance(time.Second) },
	})
	registerTrio(t, coordinator)

	session := coordinator.Run(context.Background(), procurementScenario(1000, 2.00, 2000, 800))

	if session.State != StateTimeout {
		t.Fatalf("state = %s, want timeout", session.State)
	}
	if session.Err == "" {
		t.Error("timed-out session has no error")
	}
	if len(session.Rounds) != 0 {
		t.Errorf("rounds = %d, want none", len(session.Rounds))
	}
	if session.LedgerReceipt != nil {
		t.Error("timed-out session produced a ledger receipt")
	}
	if coordinator.Manager().Ledger().Length() != 1 {
		t.Errorf("chain length = %d, want genesis only", coordinator.Manager().Ledger().Length())
	}
	if session.CompletedAt.IsZero() {
		t.Error("terminal session has no completion time")
	}
	// Partial audit trail survives.
	if len(session.Messages) == 0 {
		t.Error("timed-out session retained no messages")
	}
}

func TestObserverPanicContained(t *testing.T) {
	t.Parallel()
	coordinator, _ := testCoordinator(Options{
		Observer: func(Message) { panic("observer bug") },
	})
	registerTrio(t, coordinator)

	session := coordinator.Run(context.Background(), procurementScenario(1000, 2.00, 2000, 800))

	if session.State != StateCompleted {
		t.Fatalf("state = %s, want completed despite panicking observer (error: %s)",
			session.State, session.Err)
	}
}

func TestConcurrentSessions(t *testing.T) {
	t.Parallel()
	coordinator, _ := testCoordinator(Options{})
	registerTrio(t, coordinator)

	const sessions = 10
	done := make(chan *Session, sessions)
	for i := 0; i < sessions; i++ {
		go func() {
			done <- coordinator.Run(context.Background(), procurementScenario(1000, 2.00, 2000, 800))
		}()
	}

	seenMessages := make(map[string]bool)
	seenSessions := make(map[string]bool)
	for i := 0; i < sessions; i++ {
		session := testutil.RequireReceive(t, done, 10*time.Second, "session %d of %d", i+1, sessions)
		if session.State != StateCompleted {
			t.Errorf("session %s state = %s, want completed (error: %s)",
				session.ID, session.State, session.Err)
		}
		if seenSessions[session.ID] {
			t.Errorf("duplicate session ID %s", session.ID)
		}
		seenSessions[session.ID] = true
		for _, message := range session.Messages {
			if seenMessages[message.ID] {
				t.Errorf("duplicate message ID %s", message.ID)
			}
			seenMessages[message.ID] = true
		}
	}

	stats := coordinator.Manager().Ledger().Stats()
	if stats.TotalBlocks != sessions+1 {
		t.Errorf("TotalBlocks = %d, want %d", stats.TotalBlocks, sessions+1)
	}
	if !stats.ChainValid {
		t.Error("chain invalid after concurrent sessions")
	}
}

func TestSessionQueries(t *testing.T) {
	t.Parallel()
	coordinator, _ := testCoordinator(Options{})
	registerTrio(t, coordinator)

	finished := coordinator.Run(context.Background(), procurementScenario(1000, 2.00, 2000, 800))

	fetched, err := coordinator.Session(finished.ID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if fetched.State != StateCompleted {
		t.Errorf("fetched state = %s, want completed", fetched.State)
	}
	if len(fetched.Messages) != len(finished.Messages) {
		t.Errorf("fetched %d messages, want %d", len(fetched.Messages), len(finished.Messages))
	}

	// The snapshot is detached from the coordinator's copy.
	fetched.Messages[0].Sender = "tampered"
	again, err := coordinator.Session(finished.ID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if again.Messages[0].Sender == "tampered" {
		t.Error("session snapshot shares state with the coordinator")
	}

	if _, err := coordinator.Session("COORD-99999"); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("unknown session error = %v, want ErrUnknownSession", err)
	}

	state, err := coordinator.SessionState(finished.ID)
	if err != nil {
		t.Fatalf("SessionState: %v", err)
	}
	if state != StateCompleted {
		t.Errorf("SessionState = %s, want completed", state)
	}
	if _, err := coordinator.SessionState("COORD-99999"); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("unknown session state error = %v, want ErrUnknownSession", err)
	}

	summaries := coordinator.Sessions()
	if len(summaries) != 1 || summaries[0].ID != finished.ID {
		t.Errorf("Sessions() = %+v, want the one finished session", summaries)
	}
}

func TestUnregisteredInitiatorFails(t *testing.T) {
	t.Parallel()
	coordinator, _ := testCoordinator(Options{})

	session := coordinator.Run(context.Background(), Scenario{
		Intent:       "Nobody home",
		Initiator:    "ghost",
		Participants: []string{"ghost"},
	})

	if session.State != StateFailed {
		t.Fatalf("state = %s, want failed", session.State)
	}
}

func TestEmptyParticipantListFails(t *testing.T) {
	t.Parallel()
	coordinator, _ := testCoordinator(Options{})

	session := coordinator.Run(context.Background(), Scenario{Intent: "Empty", Initiator: "supply"})

	if session.State != StateFailed {
		t.Fatalf("state = %s, want failed", session.State)
	}
}

func TestStateTransitions(t *testing.T) {
	t.Parallel()
	legal := []struct{ from, to State }{
		{StateInitiated, StateCollectingConstraints},
		{StateCollectingConstraints, StateGeneratingProposals},
		{StateGeneratingProposals, StateNegotiating},
		{StateNegotiating, StateValidating},
		{StateValidating, StateExecuting},
		{StateExecuting, StateCompleted},
		{StateInitiated, StateFailed},
		{StateNegotiating, StateTimeout},
	}
	for _, tc := range legal {
		if !tc.from.canTransition(tc.to) {
			t.Errorf("%s -> %s rejected, want allowed", tc.from, tc.to)
		}
	}

	illegal := []struct{ from, to State }{
		{StateNegotiating, StateCollectingConstraints}, // backward
		{StateInitiated, StateNegotiating},             // skips ahead
		{StateCompleted, StateFailed},                  // terminal
		{StateTimeout, StateCollectingConstraints},     // terminal
		{StateFailed, StateCompleted},                  // terminal
	}
	for _, tc := range illegal {
		if tc.from.canTransition(tc.to) {
			t.Errorf("%s -> %s allowed, want rejected", tc.from, tc.to)
		}
	}
}

func TestFallbackConstraintsByRole(t *testing.T) {
	t.Parallel()
	budget := 2500.0
	storage := 800
	scenario := Scenario{
		Context: DecisionContext{
			CurrentStock:     120,
			BudgetRemaining:  &budget,
			StorageAvailable: &storage,
		},
	}

	tests := []struct {
		role string
		want ConstraintKind
	}{
		{"supply_chain", KindSupply},
		{"financial", KindFinancial},
		{"finance", KindFinancial},
		{"facility", KindFacility},
		{"janitor", KindUnparsed},
	}
	for _, tc := range tests {
		t.Run(tc.role, func(t *testing.T) {
			t.Parallel()
			snapshot := fallbackConstraints(tc.role, scenario)
			if snapshot.Kind != tc.want {
				t.Fatalf("kind = %s, want %s", snapshot.Kind, tc.want)
			}
			switch tc.want {
			case KindSupply:
				if snapshot.MinOrderQuantity != 100 || snapshot.MaxOrderQuantity != 10_000 {
					t.Errorf("order bounds = %d..%d, want 100..10000",
						snapshot.MinOrderQuantity, snapshot.MaxOrderQuantity)
				}
			case KindFinancial:
				if snapshot.BudgetRemaining != budget {
					t.Errorf("budget = %.2f, want %.2f", snapshot.BudgetRemaining, budget)
				}
			case KindFacility:
				if snapshot.StorageAvailable != storage {
					t.Errorf("storage = %d, want %d", snapshot.StorageAvailable, storage)
				}
			}
		})
	}
}

func TestMessageFlowOrdering(t *testing.T) {
	t.Parallel()
	coordinator, _ := testCoordinator(Options{})
	registerTrio(t, coordinator)

	session := coordinator.Run(context.Background(), procurementScenario(1000, 2.00, 2000, 800))

	if session.State != StateCompleted {
		t.Fatalf("state = %s, want completed (error: %s)", session.State, session.Err)
	}
	if len(session.Messages) == 0 {
		t.Fatal("no messages recorded")
	}
	if session.Messages[0].Type != MessageIntent {
		t.Errorf("first message = %s, want intent", session.Messages[0].Type)
	}
	last := session.Messages[len(session.Messages)-1]
	if last.Type != MessageInform || last.Sender != CoordinatorIdentity {
		t.Errorf("last message = %s from %s, want inform from %s",
			last.Type, last.Sender, CoordinatorIdentity)
	}

	valid := map[string]bool{CoordinatorIdentity: true, LedgerIdentity: true}
	for _, name := range session.Participants {
		valid[name] = true
	}
	for _, message := range session.Messages {
		if !valid[message.Sender] {
			t.Errorf("message %s has unknown sender %s", message.ID, message.Sender)
		}
		if len(message.Recipients) == 0 {
			t.Errorf("message %s has no recipients", message.ID)
		}
		for _, recipient := range message.Recipients {
			if !valid[recipient] {
				t.Errorf("message %s has unknown recipient %s", message.ID, recipient)
			}
		}
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	t.Parallel()
	coordinator, _ := testCoordinator(Options{})

	if err := coordinator.Register(&stubParticipant{name: "supply", role: "supply_chain"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := coordinator.Register(&stubParticipant{name: "supply", role: "other"})
	if !errors.Is(err, ErrDuplicateParticipant) {
		t.Fatalf("duplicate registration error = %v, want ErrDuplicateParticipant", err)
	}

	infos := coordinator.Participants()
	if len(infos) != 1 {
		t.Fatalf("Participants() = %d entries, want 1", len(infos))
	}
	if infos[0] != (ParticipantInfo{Name: "supply", Role: "supply_chain"}) {
		t.Errorf("info = %+v", infos[0])
	}
}

var _ Participant = (*stubParticipant)(nil)

func ExampleCoordinator_Run() {
	manager := ledger.NewManager(ledger.ManagerOptions{})
	coordinator := New(Options{Manager: manager, Logger: quietLogger()})
	for _, p := range []*stubParticipant{
		{name: "supply", role: "supply_chain"},
		{name: "finance", role: "financial"},
		{name: "facility", role: "facility"},
	} {
		if err := coordinator.Register(p); err != nil {
			panic(err)
		}
	}

	budget := 2000.0
	storage := 800
	session := coordinator.Run(context.Background(), Scenario{
		Intent:       "Order surgical masks",
		Initiator:    "supply",
		Participants: []string{"supply", "finance", "facility"},
		Context: DecisionContext{
			Item:             "Surgical Masks",
			RequiredQuantity: 1000,
			UnitPrice:        2.00,
			BudgetRemaining:  &budget,
			StorageAvailable: &storage,
		},
	})

	fmt.Printf("%s: %d units for $%.2f\n", session.State, session.FinalProposal.Quantity, session.FinalProposal.Cost)
	// Output: completed: 800 units for $1600.00
}
