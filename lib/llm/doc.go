// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm provides minimal clients for LLM completion APIs.
//
// The package defines a common [Provider] interface with vendor
// implementations for the Anthropic Messages API and the OpenAI Chat
// Completions API. Only blocking completion is supported; participant
// decisions are single short exchanges and never streamed.
package llm
