// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package coordination

import (
	"time"
)

// MessageType classifies a protocol message, following the FIPA-ACL
// performative vocabulary the protocol is modeled on.
type MessageType string

const (
	// MessageIntent declares that the initiator wants to coordinate an
	// action ("I need to order supplies").
	MessageIntent MessageType = "intent"

	// MessageConstraint carries a participant's constraint snapshot in
	// reply to a query.
	MessageConstraint MessageType = "constraint"

	// MessageProposal carries a candidate quantity/cost pairing from
	// the initiator to the other participants.
	MessageProposal MessageType = "proposal"

	// MessageCritique carries a rejecting evaluation of a proposal,
	// optionally with a suggested adjustment.
	MessageCritique MessageType = "critique"

	// MessageAccept signals approval of a proposal or agreement.
	MessageAccept MessageType = "accept"

	// MessageReject signals refusal of a proposal or agreement.
	MessageReject MessageType = "reject"

	// MessageQuery asks a participant for its constraints.
	MessageQuery MessageType = "query"

	// MessageInform carries announcements and status updates.
	MessageInform MessageType = "inform"
)

// Message is one unit of inter-participant communication. Messages are
// immutable once appended to a session; the ID is unique and
// monotonically increasing across all sessions of one Coordinator.
type Message struct {
	ID         string      `json:"message_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Sender     string      `json:"sender"`
	Recipients []string    `json:"recipients"`
	Type       MessageType `json:"message_type"`
	Content    any         `json:"content"`
	InReplyTo  string      `json:"in_reply_to,omitempty"`
}

// IntentContent is the payload of the initiator's opening INTENT
// message.
type IntentContent struct {
	Intent               string          `json:"intent"`
	Context              DecisionContext `json:"context"`
	RequiresCoordination bool            `json:"requires_coordination"`
}

// AnnouncementContent is the payload of the coordinator's session
// announcement.
type AnnouncementContent struct {
	Announcement  string `json:"announcement"`
	Initiator     string `json:"initiator"`
	Intent        string `json:"intent"`
	PleaseProvide string `json:"please_provide"`
}

// QueryContent is the payload of a constraint query.
type QueryContent struct {
	Query string `json:"query"`
}

// ValidationCheck is one named check inside an agreement validation.
type ValidationCheck struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// AgreementValidation is the payload of the validation verdict
// broadcast from the ledger pseudo-identity in step 7.
type AgreementValidation struct {
	Valid     bool                       `json:"valid"`
	Checks    map[string]ValidationCheck `json:"checks"`
	Reason    string                     `json:"reason,omitempty"`
	Timestamp time.Time                  `json:"timestamp"`
}

// ExecutionContent is the payload of the final INFORM confirming that
// the agreement was executed and recorded.
type ExecutionContent struct {
	Status    string    `json:"status"`
	Agreement Agreement `json:"agreement"`
	Receipt   any       `json:"ledger_receipt,omitempty"`
}
