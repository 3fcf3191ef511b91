// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/manuscript-engine/internal/httputil"
	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// messagesAPIBase is the messages API endpoint. Package-level var for
// test substitution.
var messagesAPIBase = "https://api.anthropic.com/v1/messages"

// MessagesBackend calls a messages-style completion API.
type MessagesBackend struct {
	cfg    types.ModelConfig
	client *http.Client
}

// NewMessagesBackend builds the production Provider from config.
func NewMessagesBackend(cfg types.ModelConfig) *MessagesBackend {
	return &MessagesBackend{cfg: cfg, client: http.DefaultClient}
}

type messagesRequest struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	System    string           `json:"system,omitempty"`
	Messages  []messagePayload `json:"messages"`
}

type messagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Usage   usagePayload   `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usagePayload struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Generate sends one prompt and returns the text completion. Rate limits
// retry with backoff inside the HTTP helper; other failures are
// classified for the stage machine at this call site.
func (b *MessagesBackend) Generate(ctx context.Context, system, user string) (Response, error) {
	reqBody := messagesRequest{
		Model:     b.cfg.Model,
		MaxTokens: b.cfg.MaxTokens,
		System:    system,
		Messages: []messagePayload{
			{Role: "user", Content: user},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, messagesAPIBase, bytes.NewReader(bodyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", b.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := httputil.DoWithRetry(ctx, b.client, req, b.cfg.MaxRetries)
	if err != nil {
		return Response{}, types.Retryable(fmt.Errorf("calling model API: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Response{}, httputil.ClassifyStatus("model API", resp.StatusCode)
	}

	var mResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&mResp); err != nil {
		return Response{}, fmt.Errorf("decoding model response: %w", err)
	}

	usage := types.TokenUsage{
		InputTokens:  mResp.Usage.InputTokens,
		OutputTokens: mResp.Usage.OutputTokens,
	}

	for _, block := range mResp.Content {
		if block.Type == "text" && block.Text != "" {
			return Response{Text: block.Text, Usage: usage}, nil
		}
	}
	return Response{}, types.Retryable(fmt.Errorf("model API returned no text content"))
}
