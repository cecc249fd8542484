// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent implements the negotiation participants: rule-based
// supply, finance, and facility roles, and an LLM-backed wrapper that
// delegates reasoning to a language model.
//
// The rule agents are deterministic and never fail; they are both
// usable participants in their own right and the reference policies
// the coordinator's fallbacks mirror. LLMParticipant returns an error
// whenever the model call or its JSON output cannot be mapped to the
// expected payload, handing control to the coordinator's fallback
// discipline.
package agent
