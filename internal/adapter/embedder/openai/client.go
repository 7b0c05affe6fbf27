// Package openai computes embeddings through an OpenAI-compatible
// /embeddings endpoint (Hugging Face TEI, LiteLLM, OpenAI).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls a remote embeddings endpoint.
type Client struct {
	url        string
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
}

// NewClient creates an embeddings client. url is the full endpoint URL.
func NewClient(url, apiKey, model string, dimensions int) *Client {
	return &Client{
		url:        url,
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("embeddings API error %d: %s", resp.StatusCode, string(data))
	}

	var out embeddingResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal embeddings: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("embeddings API returned no data")
	}
	vec := out.Data[0].Embedding
	if len(vec) != c.dimensions {
		return nil, fmt.Errorf("embeddings API returned %d dimensions, want %d", len(vec), c.dimensions)
	}
	return vec, nil
}

// Dimensions returns the configured embedding size.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close is a no-op.
func (c *Client) Close() error { return nil }
