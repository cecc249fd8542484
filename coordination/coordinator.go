// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package coordination

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blockops-foundation/blockops/ledger"
	"github.com/blockops-foundation/blockops/lib/clock"
)

// Pseudo-identities allowed in message traffic alongside the session's
// participants.
const (
	// CoordinatorIdentity is the sender of protocol-level messages
	// (announcements, queries, execution confirmation).
	CoordinatorIdentity = "coordinator"

	// LedgerIdentity is the sender of the step-7 validation verdict.
	LedgerIdentity = "ledger"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxRounds = 3
)

// Options configures a Coordinator.
type Options struct {
	// Manager records executed agreements. When nil a fresh in-memory
	// manager with default constraints is constructed.
	Manager *ledger.Manager

	// Timeout is the wall-clock budget for one session, checked
	// cooperatively after each protocol step. Defaults to 30s.
	Timeout time.Duration

	// MaxRounds bounds the propose/critique iterations of steps 5-6.
	// Defaults to 3.
	MaxRounds int

	// Clock supplies time. Defaults to the real clock; tests inject
	// clock.Fake() to exercise the timeout path deterministically.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Observer, when set, is invoked synchronously with every message
	// as it is appended. Panics are recovered and logged; the observer
	// can never abort a session.
	Observer func(Message)
}

// Coordinator drives coordination sessions through the eight-step
// negotiation protocol. Safe for concurrent use: sessions run in their
// callers' goroutines against the shared registry, counters, and
// session table.
type Coordinator struct {
	mutex            sync.Mutex
	participants     map[string]Participant
	participantOrder []string
	sessions         map[string]*Session
	sessionOrder     []string
	messageCounter   uint64
	sessionCounter   uint64

	manager   *ledger.Manager
	timeout   time.Duration
	maxRounds int
	clock     clock.Clock
	logger    *slog.Logger
	observer  func(Message)
}

// New constructs a Coordinator.
func New(options Options) *Coordinator {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Manager == nil {
		options.Manager = ledger.NewManager(ledger.ManagerOptions{
			Clock:  options.Clock,
			Logger: options.Logger,
		})
	}
	if options.Timeout <= 0 {
		options.Timeout = defaultTimeout
	}
	if options.MaxRounds <= 0 {
		options.MaxRounds = defaultMaxRounds
	}
	return &Coordinator{
		participants: make(map[string]Participant),
		sessions:     make(map[string]*Session),
		manager:      options.Manager,
		timeout:      options.Timeout,
		maxRounds:    options.MaxRounds,
		clock:        options.Clock,
		logger:       options.Logger,
		observer:     options.Observer,
	}
}

// Manager returns the ledger manager agreements are recorded to.
func (c *Coordinator) Manager() *ledger.Manager {
	return c.manager
}

// Register adds a participant to the registry.
func (c *Coordinator) Register(participant Participant) error {
	name := participant.Name()
	if name == "" {
		return fmt.Errorf("participant has empty name")
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, exists := c.participants[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateParticipant, name)
	}
	c.participants[name] = participant
	c.participantOrder = append(c.participantOrder, name)
	c.logger.Info("participant registered",
		slog.String("name", name),
		slog.String("role", participant.Role()))
	return nil
}

// Participants lists registered participants in registration order.
func (c *Coordinator) Participants() []ParticipantInfo {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	infos := make([]ParticipantInfo, 0, len(c.participantOrder))
	for _, name := range c.participantOrder {
		infos = append(infos, ParticipantInfo{Name: name, Role: c.participants[name].Role()})
	}
	return infos
}

func (c *Coordinator) participant(name string) Participant {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.participants[name]
}

// Session returns a snapshot of the identified session.
func (c *Coordinator) Session(id string) (*Session, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	session, ok := c.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return session.clone(), nil
}

// SessionState returns the identified session's current state without
// copying the full record.
func (c *Coordinator) SessionState(id string) (State, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	session, ok := c.sessions[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return session.State, nil
}

// Sessions lists all sessions in creation order.
func (c *Coordinator) Sessions() []SessionSummary {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	summaries := make([]SessionSummary, 0, len(c.sessionOrder))
	for _, id := range c.sessionOrder {
		session := c.sessions[id]
		summaries = append(summaries, SessionSummary{
			ID:          session.ID,
			State:       session.State,
			Initiator:   session.Initiator,
			StartedAt:   session.StartedAt,
			CompletedAt: session.CompletedAt,
		})
	}
	return summaries
}

// Run executes the full eight-step protocol for one scenario and
// returns a snapshot of the finished session. Expected negative
// outcomes (validation failure, timeout, failed participant calls) are
// captured in the session rather than returned; Run itself never
// fails. The session runs sequentially in the caller's goroutine;
// concurrent Run calls against the same Coordinator are safe.
func (c *Coordinator) Run(ctx context.Context, scenario Scenario) *Session {
	session := c.newSession(scenario)
	start := c.clock.Now()

	c.logger.Info("coordination session started",
		slog.String("session", session.ID),
		slog.String("intent", scenario.Intent),
		slog.String("initiator", scenario.Initiator))

	c.run(ctx, session, scenario, start)

	c.mutex.Lock()
	finished := session.clone()
	c.mutex.Unlock()
	return finished
}

func (c *Coordinator) newSession(scenario Scenario) *Session {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.sessionCounter++
	session := &Session{
		ID:           fmt.Sprintf("COORD-%05d", c.sessionCounter),
		Scenario:     scenario,
		Initiator:    scenario.Initiator,
		Participants: append([]string(nil), scenario.Participants...),
		State:        StateInitiated,
		StartedAt:    c.clock.Now(),
		Constraints:  make(map[string]ConstraintSnapshot),
	}
	c.sessions[session.ID] = session
	c.sessionOrder = append(c.sessionOrder, session.ID)
	return session
}

func (c *Coordinator) run(ctx context.Context, session *Session, scenario Scenario, start time.Time) {
	if len(scenario.Participants) == 0 {
		c.failSession(session, "scenario has no participants")
		return
	}
	initiatorListed := false
	for _, name := range scenario.Participants {
		if name == scenario.Initiator {
			initiatorListed = true
			break
		}
	}
	if !initiatorListed {
		c.failSession(session, fmt.Sprintf("initiator %s is not a participant", scenario.Initiator))
		return
	}
	if c.participant(scenario.Initiator) == nil {
		c.failSession(session, fmt.Sprintf("initiator %s is not registered", scenario.Initiator))
		return
	}

	// Step 1: initiator declares intent.
	c.step1Initiate(session, scenario)
	if c.checkTimeout(session, start) {
		return
	}

	// Step 2: coordinator announces the session.
	c.step2Broadcast(session, scenario)
	if c.checkTimeout(session, start) {
		return
	}

	// Step 3: collect constraints from every participant.
	collected, err := c.step3CollectConstraints(ctx, session, scenario)
	if err != nil {
		c.failSession(session, err.Error())
		return
	}
	if c.checkTimeout(session, start) {
		return
	}

	// Step 4: initiator generates the opening proposal.
	proposal, err := c.step4GenerateProposal(ctx, session, scenario, collected)
	if err != nil {
		c.failSession(session, err.Error())
		return
	}
	if c.checkTimeout(session, start) {
		return
	}

	// Steps 5-6: critique and refine until unanimity or round
	// exhaustion.
	final, err := c.negotiate(ctx, session, collected, proposal)
	if err != nil {
		c.failSession(session, err.Error())
		return
	}
	if c.checkTimeout(session, start) {
		return
	}

	// Step 7: independent re-validation of the settled proposal.
	verdict, err := c.step7Validate(session, collected, final)
	if err != nil {
		c.failSession(session, err.Error())
		return
	}
	if !verdict.Valid {
		c.failSession(session, fmt.Sprintf("agreement validation failed: %s", verdict.Reason))
		return
	}
	if c.checkTimeout(session, start) {
		return
	}

	// Step 8: execute and record.
	if err := c.step8Execute(session, collected, final); err != nil {
		c.failSession(session, err.Error())
		return
	}

	if err := c.transition(session, StateCompleted); err != nil {
		c.failSession(session, err.Error())
		return
	}
	now := c.clock.Now()
	c.mutex.Lock()
	session.CompletedAt = now
	c.mutex.Unlock()

	c.logger.Info("coordination session completed",
		slog.String("session", session.ID),
		slog.Duration("elapsed", now.Sub(start)))
}

// broadcast appends a message to the session log under the coordinator
// lock, then notifies the observer outside it.
func (c *Coordinator) broadcast(session *Session, sender string, recipients []string, messageType MessageType, content any, inReplyTo string) Message {
	c.mutex.Lock()
	c.messageCounter++
	message := Message{
		ID:         fmt.Sprintf("MSG-%05d", c.messageCounter),
		Timestamp:  c.clock.Now(),
		Sender:     sender,
		Recipients: recipients,
		Type:       messageType,
		Content:    content,
		InReplyTo:  inReplyTo,
	}
	session.Messages = append(session.Messages, message)
	observer := c.observer
	c.mutex.Unlock()

	if observer != nil {
		c.notifyObserver(observer, message)
	}

	c.logger.Debug("message broadcast",
		slog.String("session", session.ID),
		slog.String("id", message.ID),
		slog.String("type", string(messageType)),
		slog.String("sender", sender))
	return message
}

func (c *Coordinator) notifyObserver(observer func(Message), message Message) {
	defer func() {
		if recovered := recover(); recovered != nil {
			c.logger.Error("message observer panicked",
				slog.String("message", message.ID),
				slog.Any("panic", recovered))
		}
	}()
	observer(message)
}

func (c *Coordinator) transition(session *Session, to State) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !session.State.canTransition(to) {
		return &TransitionError{SessionID: session.ID, From: session.State, To: to}
	}
	session.State = to
	return nil
}

// failSession marks the session FAILED unless it already reached a
// terminal state.
func (c *Coordinator) failSession(session *Session, reason string) {
	now := c.clock.Now()
	c.mutex.Lock()
	if session.State.Terminal() {
		c.mutex.Unlock()
		return
	}
	session.State = StateFailed
	session.Err = reason
	session.CompletedAt = now
	c.mutex.Unlock()
	c.logger.Error("coordination session failed",
		slog.String("session", session.ID),
		slog.String("reason", reason))
}

// checkTimeout is the cooperative step-boundary timeout check. A slow
// participant call can overrun the budget by at most one step's
// latency.
func (c *Coordinator) checkTimeout(session *Session, start time.Time) bool {
	elapsed := c.clock.Now().Sub(start)
	if elapsed <= c.timeout {
		return false
	}
	now := c.clock.Now()
	c.mutex.Lock()
	if session.State.Terminal() {
		c.mutex.Unlock()
		return true
	}
	session.State = StateTimeout
	session.Err = fmt.Sprintf("coordination timed out after %.1fs", elapsed.Seconds())
	session.CompletedAt = now
	c.mutex.Unlock()
	c.logger.Warn("coordination session timed out",
		slog.String("session", session.ID),
		slog.Duration("elapsed", elapsed))
	return true
}

func (c *Coordinator) step1Initiate(session *Session, scenario Scenario) {
	recipients := make([]string, 0, len(scenario.Participants))
	for _, name := range scenario.Participants {
		if name != scenario.Initiator {
			recipients = append(recipients, name)
		}
	}
	if len(recipients) == 0 {
		recipients = []string{CoordinatorIdentity}
	}
	c.broadcast(session, scenario.Initiator, recipients, MessageIntent, IntentContent{
		Intent:               scenario.Intent,
		Context:              scenario.Context,
		RequiresCoordination: true,
	}, "")
}

func (c *Coordinator) step2Broadcast(session *Session, scenario Scenario) {
	c.broadcast(session, CoordinatorIdentity, session.Participants, MessageInform, AnnouncementContent{
		Announcement:  fmt.Sprintf("Coordination session %s initiated", session.ID),
		Initiator:     scenario.Initiator,
		Intent:        scenario.Intent,
		PleaseProvide: "constraints",
	}, "")
}

func (c *Coordinator) step3CollectConstraints(ctx context.Context, session *Session, scenario Scenario) (map[string]ConstraintSnapshot, error) {
	if err := c.transition(session, StateCollectingConstraints); err != nil {
		return nil, err
	}

	collected := make(map[string]ConstraintSnapshot)
	for _, name := range session.Participants {
		participant := c.participant(name)
		if participant == nil {
			c.logger.Warn("participant not registered, skipping",
				slog.String("session", session.ID),
				slog.String("name", name))
			continue
		}

		query := c.broadcast(session, CoordinatorIdentity, []string{name}, MessageQuery, QueryContent{
			Query: "What are your constraints for this coordination?",
		}, "")

		snapshot, err := participant.Constraints(ctx, scenario)
		if err != nil {
			c.logger.Warn("constraint collection failed, using role fallback",
				slog.String("session", session.ID),
				slog.String("participant", name),
				slog.String("error", err.Error()))
			snapshot = fallbackConstraints(participant.Role(), scenario)
		}

		c.broadcast(session, name, []string{CoordinatorIdentity}, MessageConstraint, snapshot, query.ID)
		collected[name] = snapshot
	}

	c.mutex.Lock()
	for name, snapshot := range collected {
		session.Constraints[name] = snapshot
	}
	c.mutex.Unlock()

	c.logger.Info("constraints collected",
		slog.String("session", session.ID),
		slog.Int("count", len(collected)))
	return collected, nil
}

func (c *Coordinator) step4GenerateProposal(ctx context.Context, session *Session, scenario Scenario, collected map[string]ConstraintSnapshot) (Proposal, error) {
	if err := c.transition(session, StateGeneratingProposals); err != nil {
		return Proposal{}, err
	}

	initiator := c.participant(scenario.Initiator)
	proposal, err := initiator.Propose(ctx, scenario, collected)
	if err != nil {
		c.logger.Warn("proposal generation failed, using fallback",
			slog.String("session", session.ID),
			slog.String("initiator", scenario.Initiator),
			slog.String("error", err.Error()))
		proposal = fallbackProposal(scenario, collected)
	}

	c.broadcastProposal(session, proposal)
	return proposal, nil
}

func (c *Coordinator) broadcastProposal(session *Session, proposal Proposal) {
	recipients := make([]string, 0, len(session.Participants))
	for _, name := range session.Participants {
		if name != session.Initiator {
			recipients = append(recipients, name)
		}
	}
	if len(recipients) == 0 {
		recipients = []string{CoordinatorIdentity}
	}
	c.broadcast(session, session.Initiator, recipients, MessageProposal, proposal, "")
}

// negotiate runs the critique/refine loop of steps 5 and 6. The loop
// stops on the first unanimous accept; when rounds are exhausted the
// last refined proposal settles as final regardless of acceptance
// (best-effort policy, re-checked independently in step 7).
func (c *Coordinator) negotiate(ctx context.Context, session *Session, collected map[string]ConstraintSnapshot, proposal Proposal) (Proposal, error) {
	if err := c.transition(session, StateNegotiating); err != nil {
		return Proposal{}, err
	}

	current := proposal
	for round := 1; round <= c.maxRounds; round++ {
		roundStart := c.clock.Now()

		critiques := c.collectCritiques(ctx, session, collected, current)
		allAccept := true
		for _, critique := range critiques {
			if critique.Decision != DecisionAccept {
				allAccept = false
				break
			}
		}

		if allAccept {
			c.appendRound(session, NegotiationRound{
				Number:    round,
				Proposal:  current,
				Critiques: critiques,
				Timestamp: c.clock.Now(),
				Duration:  c.clock.Now().Sub(roundStart),
			})
			c.setFinalProposal(session, current)
			c.logger.Info("proposal accepted",
				slog.String("session", session.ID),
				slog.Int("round", round))
			return current, nil
		}

		if round < c.maxRounds {
			current = c.refineProposal(session, current, critiques)
		}

		c.appendRound(session, NegotiationRound{
			Number:    round,
			Proposal:  current,
			Critiques: critiques,
			Timestamp: c.clock.Now(),
			Duration:  c.clock.Now().Sub(roundStart),
		})
	}

	c.logger.Warn("negotiation rounds exhausted, settling on last proposal",
		slog.String("session", session.ID),
		slog.Int("rounds", c.maxRounds))
	c.setFinalProposal(session, current)
	return current, nil
}

func (c *Coordinator) collectCritiques(ctx context.Context, session *Session, collected map[string]ConstraintSnapshot, proposal Proposal) []Critique {
	var critiques []Critique
	for _, name := range session.Participants {
		if name == session.Initiator {
			continue
		}
		participant := c.participant(name)
		if participant == nil {
			continue
		}

		own := collected[name]
		critique, err := participant.Critique(ctx, proposal, own)
		if err != nil {
			c.logger.Warn("critique failed, using fallback",
				slog.String("session", session.ID),
				slog.String("participant", name),
				slog.String("error", err.Error()))
			critique = fallbackCritique(name, proposal, own)
		}
		if critique.Agent == "" {
			critique.Agent = name
		}

		messageType := MessageCritique
		if critique.Decision == DecisionAccept {
			messageType = MessageAccept
		}
		c.broadcast(session, name, []string{session.Initiator, CoordinatorIdentity}, messageType, critique, "")

		critiques = append(critiques, critique)
	}
	return critiques
}

// refineProposal computes the most restrictive adjustment across all
// rejecting critiques and rebroadcasts the tightened proposal. The
// refined quantity and cost never exceed the current round's.
func (c *Coordinator) refineProposal(session *Session, current Proposal, critiques []Critique) Proposal {
	maxQuantity := current.Quantity
	maxCost := current.Cost
	for _, critique := range critiques {
		if critique.Decision != DecisionReject || critique.Adjustment == nil {
			continue
		}
		if critique.Adjustment.MaxQuantity != nil {
			maxQuantity = min(maxQuantity, *critique.Adjustment.MaxQuantity)
		}
		if critique.Adjustment.MaxCost != nil {
			maxCost = min(maxCost, *critique.Adjustment.MaxCost)
		}
	}

	quantity := maxQuantity
	if current.UnitPrice > 0 {
		quantity = min(maxQuantity, int(maxCost/current.UnitPrice))
	}

	refined := current
	refined.Quantity = quantity
	refined.Cost = float64(quantity) * current.UnitPrice
	refined.Reasoning = fmt.Sprintf("Refined to %d units based on participant feedback", quantity)

	c.broadcastProposal(session, refined)
	return refined
}

func (c *Coordinator) appendRound(session *Session, round NegotiationRound) {
	c.mutex.Lock()
	session.Rounds = append(session.Rounds, round)
	c.mutex.Unlock()
}

func (c *Coordinator) setFinalProposal(session *Session, proposal Proposal) {
	c.mutex.Lock()
	session.FinalProposal = &proposal
	c.mutex.Unlock()
}

// step7Validate re-checks the settled proposal against the collected
// budget and storage limits, independent of what the critiques said
// during negotiation.
func (c *Coordinator) step7Validate(session *Session, collected map[string]ConstraintSnapshot, proposal Proposal) (AgreementValidation, error) {
	if err := c.transition(session, StateValidating); err != nil {
		return AgreementValidation{}, err
	}

	verdict := AgreementValidation{
		Valid:     true,
		Checks:    make(map[string]ValidationCheck),
		Timestamp: c.clock.Now(),
	}

	if financial, ok := c.findSnapshot(session, collected, KindFinancial); ok {
		budgetOK := proposal.Cost <= financial.BudgetRemaining
		verdict.Checks["budget"] = ValidationCheck{
			Valid:  budgetOK,
			Reason: fmt.Sprintf("Cost $%.2f vs Budget $%.2f", proposal.Cost, financial.BudgetRemaining),
		}
		if !budgetOK {
			verdict.Valid = false
			verdict.Reason = "budget constraint violated"
		}
	}

	if facility, ok := c.findSnapshot(session, collected, KindFacility); ok {
		storageOK := proposal.Quantity <= facility.StorageAvailable
		verdict.Checks["storage"] = ValidationCheck{
			Valid:  storageOK,
			Reason: fmt.Sprintf("Quantity %d vs Storage %d", proposal.Quantity, facility.StorageAvailable),
		}
		if !storageOK {
			verdict.Valid = false
			verdict.Reason = "storage constraint violated"
		}
	}

	messageType := MessageAccept
	if !verdict.Valid {
		messageType = MessageReject
	}
	c.broadcast(session, LedgerIdentity, session.Participants, messageType, verdict, "")

	return verdict, nil
}

// findSnapshot returns the first collected snapshot of the given kind
// in participant order.
func (c *Coordinator) findSnapshot(session *Session, collected map[string]ConstraintSnapshot, kind ConstraintKind) (ConstraintSnapshot, bool) {
	for _, name := range session.Participants {
		if snapshot, ok := collected[name]; ok && snapshot.Kind == kind {
			return snapshot, true
		}
	}
	return ConstraintSnapshot{}, false
}

// step8Execute builds the agreement, records it to the ledger, and
// broadcasts the execution confirmation. A failed ledger write does
// not fail the session; the receipt is attached for audit either way.
func (c *Coordinator) step8Execute(session *Session, collected map[string]ConstraintSnapshot, proposal Proposal) error {
	if err := c.transition(session, StateExecuting); err != nil {
		return err
	}

	agreement := Agreement{
		SessionID:       session.ID,
		Proposal:        proposal,
		Participants:    session.Participants,
		Constraints:     collected,
		Timestamp:       c.clock.Now(),
		ExecutionStatus: "completed",
	}

	details := ledger.Details{
		Item:     proposal.Item,
		Amount:   &proposal.Cost,
		Quantity: &proposal.Quantity,
		Metadata: map[string]any{
			"session_id": session.ID,
			"intent":     session.Scenario.Intent,
		},
	}
	if financial, ok := c.findSnapshot(session, collected, KindFinancial); ok {
		budget := financial.BudgetRemaining
		details.AvailableBudget = &budget
	}
	if facility, ok := c.findSnapshot(session, collected, KindFacility); ok {
		storage := facility.StorageAvailable
		details.AvailableStorage = &storage
	}

	receipt := c.manager.Record(session.Initiator, "COORDINATED_ACTION", details)
	if !receipt.Success {
		c.logger.Warn("ledger write failed",
			slog.String("session", session.ID),
			slog.String("reason", receipt.Validation.OverallReason))
	}

	c.mutex.Lock()
	session.Agreement = &agreement
	session.LedgerReceipt = &receipt
	c.mutex.Unlock()

	c.broadcast(session, CoordinatorIdentity, session.Participants, MessageInform, ExecutionContent{
		Status:    "executed",
		Agreement: agreement,
		Receipt:   receipt,
	}, "")

	c.logger.Info("agreement executed",
		slog.String("session", session.ID),
		slog.Bool("recorded", receipt.Success))
	return nil
}
