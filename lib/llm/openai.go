// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const openAIDefaultBaseURL = "https://api.openai.com"

// OpenAI implements [Provider] for the OpenAI Chat Completions API.
type OpenAI struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewOpenAI creates an OpenAI provider. A nil httpClient uses
// http.DefaultClient; an empty baseURL targets the public API.
func NewOpenAI(httpClient *http.Client, baseURL, apiKey string) *OpenAI {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	return &OpenAI{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type openAIRequest struct {
	Model               string          `json:"model"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	Temperature         *float64        `json:"temperature,omitempty"`
	Messages            []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends a non-streaming request and returns the full
// response.
func (provider *OpenAI) Complete(ctx context.Context, request Request) (*Response, error) {
	wireRequest := openAIRequest{
		Model:               request.Model,
		MaxCompletionTokens: request.MaxTokens,
		Temperature:         request.Temperature,
	}
	if request.System != "" {
		wireRequest.Messages = append(wireRequest.Messages,
			openAIMessage{Role: "system", Content: request.System})
	}
	wireRequest.Messages = append(wireRequest.Messages,
		openAIMessage{Role: "user", Content: request.Prompt})

	headers := map[string]string{
		"Authorization": "Bearer " + provider.apiKey,
	}
	httpResponse, err := doProviderRequest(ctx, provider.httpClient,
		provider.baseURL+"/v1/chat/completions", headers, wireRequest, "llm/openai")
	if err != nil {
		return nil, err
	}
	defer httpResponse.Body.Close()

	var wireResponse openAIResponse
	if err := json.NewDecoder(httpResponse.Body).Decode(&wireResponse); err != nil {
		return nil, fmt.Errorf("llm/openai: decoding response: %w", err)
	}
	if len(wireResponse.Choices) == 0 {
		return nil, fmt.Errorf("llm/openai: response has no choices")
	}

	choice := wireResponse.Choices[0]
	return &Response{
		Model:      wireResponse.Model,
		Text:       choice.Message.Content,
		StopReason: choice.FinishReason,
		Usage: Usage{
			InputTokens:  wireResponse.Usage.PromptTokens,
			OutputTokens: wireResponse.Usage.CompletionTokens,
		},
	}, nil
}

var _ Provider = (*OpenAI)(nil)
