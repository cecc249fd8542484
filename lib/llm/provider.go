// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Provider is the interface for LLM API backends. Implementations
// translate between the common types in this package and each vendor's
// wire format.
type Provider interface {
	// Complete sends a request and blocks until the full response is
	// available.
	Complete(ctx context.Context, request Request) (*Response, error)
}

// Request is a single-turn completion request.
type Request struct {
	// Model is the vendor model identifier.
	Model string

	// System is the optional system prompt.
	System string

	// Prompt is the user message.
	Prompt string

	// MaxTokens bounds the response length.
	MaxTokens int

	// Temperature, when non-nil, overrides the vendor default.
	Temperature *float64
}

// Usage reports token consumption for one request.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response is the completed result.
type Response struct {
	// Model is the model that produced the response.
	Model string

	// Text is the concatenated text content.
	Text string

	// StopReason is the vendor-reported stop reason.
	StopReason string

	// Usage reports token counts.
	Usage Usage
}

// ProviderError is returned when the LLM API responds with an error.
type ProviderError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Type is the provider-specific error type string
	// (e.g., "invalid_request_error", "rate_limit_error").
	Type string

	// Message is the human-readable error description.
	Message string
}

func (err *ProviderError) Error() string {
	if err.Type != "" {
		return fmt.Sprintf("llm: HTTP %d: %s: %s", err.StatusCode, err.Type, err.Message)
	}
	return fmt.Sprintf("llm: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsRateLimited returns true if the error is a rate limit response
// (HTTP 429).
func (err *ProviderError) IsRateLimited() bool {
	return err.StatusCode == http.StatusTooManyRequests
}

// doProviderRequest marshals wireRequest as JSON, POSTs it to endpoint
// via httpClient, and returns the HTTP response. Returns a
// ProviderError for non-200 status codes.
//
// On success the caller is responsible for closing the response body.
// On error the body is already closed.
func doProviderRequest(ctx context.Context, httpClient *http.Client, endpoint string, headers map[string]string, wireRequest any, prefix string) (*http.Response, error) {
	body, err := json.Marshal(wireRequest)
	if err != nil {
		return nil, fmt.Errorf("%s: marshaling request: %w", prefix, err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost,
		endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", prefix, err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		httpRequest.Header.Set(key, value)
	}

	httpResponse, err := httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("%s: sending request: %w", prefix, err)
	}

	if httpResponse.StatusCode != http.StatusOK {
		defer httpResponse.Body.Close()
		return nil, readProviderError(httpResponse)
	}

	return httpResponse, nil
}

// readProviderError parses an error response body in the common
// provider error format used by Anthropic, OpenAI, and compatible
// APIs: {"error":{"type":"...","message":"..."}}. Extra fields in the
// error object are silently ignored.
func readProviderError(httpResponse *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 4096))

	var wireError struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wireError); err != nil || wireError.Error.Message == "" {
		return &ProviderError{
			StatusCode: httpResponse.StatusCode,
			Message:    string(body),
		}
	}
	return &ProviderError{
		StatusCode: httpResponse.StatusCode,
		Type:       wireError.Error.Type,
		Message:    wireError.Error.Message,
	}
}
