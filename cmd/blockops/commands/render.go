// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/blockops-foundation/blockops/coordination"
	"github.com/blockops-foundation/blockops/ledger"
)

// ANSI 256-color styles for dark terminals.
var (
	faintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	acceptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	rejectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	senderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	hashStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Width(14)
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// messageTypeStyle colors a protocol message type by its valence:
// accepts green, rejects red, critiques amber, everything else blue.
func messageTypeStyle(messageType coordination.MessageType) lipgloss.Style {
	switch messageType {
	case coordination.MessageAccept:
		return acceptStyle
	case coordination.MessageReject:
		return rejectStyle
	case coordination.MessageCritique:
		return warnStyle
	default:
		return headerStyle
	}
}

// renderMessage formats one protocol message as a single log line for
// the live observer.
func renderMessage(message coordination.Message) string {
	var summary string
	switch content := message.Content.(type) {
	case coordination.IntentContent:
		summary = content.Intent
	case coordination.AnnouncementContent:
		summary = content.Announcement
	case coordination.QueryContent:
		summary = content.Query
	case coordination.Proposal:
		summary = fmt.Sprintf("%d units of %s for $%.2f", content.Quantity, content.Item, content.Cost)
	case coordination.Critique:
		summary = fmt.Sprintf("%s (confidence %.2f)", content.Reasoning, content.Confidence)
	case coordination.ConstraintSnapshot:
		summary = fmt.Sprintf("constraints (%s)", content.Kind)
	case coordination.AgreementValidation:
		if content.Valid {
			summary = "agreement validated"
		} else {
			summary = content.Reason
		}
	case coordination.ExecutionContent:
		summary = content.Status
	default:
		summary = fmt.Sprintf("%v", content)
	}

	return fmt.Sprintf("%s %s %s %s %s",
		faintStyle.Render(message.ID),
		messageTypeStyle(message.Type).Render(fmt.Sprintf("%-10s", string(message.Type))),
		senderStyle.Render(message.Sender),
		faintStyle.Render("-> "+strings.Join(message.Recipients, ", ")),
		messageStyle.Render(summary))
}

// renderSession formats the session outcome block printed after a run.
func renderSession(session *coordination.Session) string {
	var b strings.Builder

	stateStyle := acceptStyle
	if session.State != coordination.StateCompleted {
		stateStyle = rejectStyle
	}

	b.WriteString(headerStyle.Render("Session "+session.ID) + "\n")
	writeField(&b, "State", stateStyle.Render(string(session.State)))
	writeField(&b, "Initiator", session.Initiator)
	writeField(&b, "Participants", strings.Join(session.Participants, ", "))
	writeField(&b, "Rounds", fmt.Sprintf("%d", len(session.Rounds)))
	writeField(&b, "Messages", fmt.Sprintf("%d", len(session.Messages)))

	if session.FinalProposal != nil {
		proposal := session.FinalProposal
		writeField(&b, "Outcome", fmt.Sprintf("%d units of %s for $%.2f ($%.2f/unit)",
			proposal.Quantity, proposal.Item, proposal.Cost, proposal.UnitPrice))
	}
	if session.LedgerReceipt != nil {
		receipt := session.LedgerReceipt
		if receipt.BlockIndex != nil {
			writeField(&b, "Ledger", fmt.Sprintf("block %d %s",
				*receipt.BlockIndex, hashStyle.Render(ledger.ShortHash(receipt.BlockHash))))
		} else {
			writeField(&b, "Ledger", rejectStyle.Render("rejected: "+receipt.Validation.OverallReason))
		}
	}
	if session.Err != "" {
		writeField(&b, "Error", rejectStyle.Render(session.Err))
	}
	return b.String()
}

// renderStats formats the post-run ledger summary.
func renderStats(stats ledger.Stats) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Ledger") + "\n")
	writeField(&b, "Blocks", fmt.Sprintf("%d", stats.TotalBlocks))
	writeField(&b, "Transactions", fmt.Sprintf("%d chained, %d rejected",
		stats.TotalTransactions, stats.RejectedTransactions))
	writeField(&b, "Chain", renderVerdict(stats.ChainValid))
	writeField(&b, "Latest hash", hashStyle.Render(ledger.ShortHash(stats.LatestBlockHash)))
	return b.String()
}

// renderChainReport formats an integrity walk result, one line per
// violation.
func renderChainReport(report ledger.ChainReport) string {
	var b strings.Builder
	writeField(&b, "Blocks", fmt.Sprintf("%d", report.BlocksChecked))
	writeField(&b, "Integrity", renderVerdict(report.Valid))
	for _, violation := range report.Errors {
		b.WriteString(fmt.Sprintf("  %s block %d (%s): %s\n",
			rejectStyle.Render("✗"), violation.Index, violation.Kind, violation.Detail))
	}
	return b.String()
}

func renderVerdict(valid bool) string {
	if valid {
		return acceptStyle.Render("valid")
	}
	return rejectStyle.Render("INVALID")
}

func writeField(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label) + " " + value + "\n")
}
