// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

// Package coordination drives multi-participant negotiation sessions
// through an eight-step protocol: intent declaration, constraint
// collection, proposal generation, iterative critique and refinement,
// independent validation, and ledger-backed execution.
//
// A Coordinator owns the participant registry, the process-wide message
// and session counters, and the session table. One session runs
// sequentially in its caller's goroutine; many sessions may run
// concurrently against the same Coordinator. Participants supply
// decisions through the Participant interface; when a participant call
// fails, a deterministic role-scoped fallback is substituted so the
// protocol always terminates.
//
// Expected negative outcomes (validation failure, timeout, a failed
// ledger write) are captured in the Session record, not returned as
// errors. The session's message log and round history are append-only
// and survive into terminal states as a partial audit trail.
package coordination
