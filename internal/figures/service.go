// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package figures

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/manuscript-engine/internal/httputil"
)

// imageAPIBase is the image generation endpoint. Package-level var for
// test substitution.
var imageAPIBase = "https://api.imagegen.example.com/v1/images"

// HTTPService calls an image generation API that accepts a prompt and
// returns a base64-encoded PNG.
type HTTPService struct {
	APIKey string
	Client *http.Client
}

type imageRequest struct {
	Prompt string `json:"prompt"`
	Format string `json:"format"`
}

type imageResponse struct {
	Image string `json:"image"`
	Error string `json:"error,omitempty"`
}

// Render requests one image. Service failures map onto the typed errors
// so the generator's retry policy applies uniformly.
func (s *HTTPService) Render(ctx context.Context, prompt string) ([]byte, error) {
	body, err := json.Marshal(imageRequest{Prompt: prompt, Format: "png"})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, imageAPIBase, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: HTTP %d", ErrQuota, resp.StatusCode)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: HTTP %d", ErrMalformedPrompt, resp.StatusCode)
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: HTTP %d", ErrService, resp.StatusCode)
	}

	var ir imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrService, err)
	}
	if ir.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrService, ir.Error)
	}

	data, err := base64.StdEncoding.DecodeString(ir.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image payload: %v", ErrService, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", ErrService)
	}
	return data, nil
}
