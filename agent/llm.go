// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blockops-foundation/blockops/coordination"
	"github.com/blockops-foundation/blockops/lib/llm"
)

// Sampling settings per call site: constraint and critique calls run
// cool for consistency, proposal generation a little warmer.
var (
	constraintTemperature = 0.3
	proposalTemperature   = 0.5
	critiqueTemperature   = 0.3
)

// LLMParticipant delegates a participant's reasoning to a language
// model. The wrapped inner participant supplies identity and role; the
// model supplies the decisions. Every method returns an error when the
// model call fails or its output cannot be mapped to the expected
// payload, which hands control to the coordinator's deterministic
// fallback for the role.
type LLMParticipant struct {
	inner    coordination.Participant
	provider llm.Provider
	model    string
}

// WrapLLM wraps inner with model-backed reasoning.
func WrapLLM(inner coordination.Participant, provider llm.Provider, model string) *LLMParticipant {
	return &LLMParticipant{inner: inner, provider: provider, model: model}
}

func (p *LLMParticipant) Name() string { return p.inner.Name() }
func (p *LLMParticipant) Role() string { return p.inner.Role() }

// Constraints asks the model for the participant's limits. Output that
// is valid JSON but not a recognized constraint variant degrades to
// the unparsed snapshot rather than an error: the payload is still
// usable audit material even when no rule can act on it.
func (p *LLMParticipant) Constraints(ctx context.Context, scenario coordination.Scenario) (coordination.ConstraintSnapshot, error) {
	contextJSON, err := json.Marshal(scenario.Context)
	if err != nil {
		return coordination.ConstraintSnapshot{}, fmt.Errorf("agent %s: encoding context: %w", p.Name(), err)
	}

	prompt := fmt.Sprintf(`As a %s agent, analyze the following scenario and provide your constraints.

Scenario: %s
Context: %s

Provide your constraints as a JSON object with a "type" field (one of "supply_chain", "financial", "facility") and the relevant limits, policies, and requirements.
Return ONLY valid JSON, no markdown or explanation.`, p.Role(), scenario.Intent, contextJSON)

	text, err := p.complete(ctx, prompt, 500, &constraintTemperature)
	if err != nil {
		return coordination.ConstraintSnapshot{}, err
	}

	var snapshot coordination.ConstraintSnapshot
	if err := json.Unmarshal([]byte(text), &snapshot); err != nil {
		return coordination.ConstraintSnapshot{}, fmt.Errorf("agent %s: constraint output is not JSON: %w", p.Name(), err)
	}

	switch snapshot.Kind {
	case coordination.KindSupply, coordination.KindFinancial, coordination.KindFacility:
		return snapshot, nil
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return coordination.ConstraintSnapshot{}, fmt.Errorf("agent %s: constraint output is not a JSON object: %w", p.Name(), err)
	}
	return coordination.ConstraintSnapshot{Kind: coordination.KindUnparsed, Raw: raw}, nil
}

// Propose asks the model for a proposal satisfying all collected
// constraints.
func (p *LLMParticipant) Propose(ctx context.Context, scenario coordination.Scenario, collected map[string]coordination.ConstraintSnapshot) (coordination.Proposal, error) {
	contextJSON, err := json.Marshal(scenario.Context)
	if err != nil {
		return coordination.Proposal{}, fmt.Errorf("agent %s: encoding context: %w", p.Name(), err)
	}
	constraintsJSON, err := json.Marshal(collected)
	if err != nil {
		return coordination.Proposal{}, fmt.Errorf("agent %s: encoding constraints: %w", p.Name(), err)
	}

	prompt := fmt.Sprintf(`As a %s agent, generate a procurement proposal that satisfies all agent constraints.

Context:
%s

Constraints from all agents:
%s

Generate a proposal as JSON with these fields:
- item_name: the item being ordered
- proposed_quantity: how many units to order
- proposed_cost: total cost
- price_per_unit: unit price
- reasoning: explanation of the proposal
- constraints_satisfied: object with budget and storage booleans

Ensure the proposal respects all constraints. Return ONLY valid JSON.`, p.Role(), contextJSON, constraintsJSON)

	text, err := p.complete(ctx, prompt, 800, &proposalTemperature)
	if err != nil {
		return coordination.Proposal{}, err
	}

	var proposal coordination.Proposal
	if err := json.Unmarshal([]byte(text), &proposal); err != nil {
		return coordination.Proposal{}, fmt.Errorf("agent %s: proposal output is not JSON: %w", p.Name(), err)
	}
	if proposal.Quantity <= 0 || proposal.UnitPrice <= 0 {
		return coordination.Proposal{}, fmt.Errorf("agent %s: proposal has non-positive quantity or unit price", p.Name())
	}
	return proposal, nil
}

// Critique asks the model to evaluate a proposal against the
// participant's own constraints.
func (p *LLMParticipant) Critique(ctx context.Context, proposal coordination.Proposal, own coordination.ConstraintSnapshot) (coordination.Critique, error) {
	proposalJSON, err := json.Marshal(proposal)
	if err != nil {
		return coordination.Critique{}, fmt.Errorf("agent %s: encoding proposal: %w", p.Name(), err)
	}
	ownJSON, err := json.Marshal(own)
	if err != nil {
		return coordination.Critique{}, fmt.Errorf("agent %s: encoding constraints: %w", p.Name(), err)
	}

	prompt := fmt.Sprintf(`As a %s agent, evaluate the following procurement proposal against your constraints.

Proposal:
%s

Your Constraints:
%s

Decide whether to accept or reject this proposal. Return JSON with:
- agent: your agent name
- decision: "accept" or "reject"
- reasoning: explanation for your decision
- confidence: number between 0 and 1
- suggested_adjustment: (optional) if rejecting, object with max_quantity and/or max_cost

Return ONLY valid JSON.`, p.Role(), proposalJSON, ownJSON)

	text, err := p.complete(ctx, prompt, 600, &critiqueTemperature)
	if err != nil {
		return coordination.Critique{}, err
	}

	var critique coordination.Critique
	if err := json.Unmarshal([]byte(text), &critique); err != nil {
		return coordination.Critique{}, fmt.Errorf("agent %s: critique output is not JSON: %w", p.Name(), err)
	}
	if critique.Decision != coordination.DecisionAccept && critique.Decision != coordination.DecisionReject {
		return coordination.Critique{}, fmt.Errorf("agent %s: critique decision %q is not accept or reject", p.Name(), critique.Decision)
	}
	if critique.Agent == "" {
		critique.Agent = p.Name()
	}
	return critique, nil
}

func (p *LLMParticipant) complete(ctx context.Context, prompt string, maxTokens int, temperature *float64) (string, error) {
	response, err := p.provider.Complete(ctx, llm.Request{
		Model:       p.model,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("agent %s: %w", p.Name(), err)
	}
	return stripFences(response.Text), nil
}

// stripFences removes a markdown code fence wrapper if the model added
// one despite the instructions.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

var _ coordination.Participant = (*LLMParticipant)(nil)
