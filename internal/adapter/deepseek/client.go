// Package deepseek provides an HTTP client for the DeepSeek chat-completions
// API. Any OpenAI-compatible endpoint with the same request shape works.
package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Strob0t/CogniChat/internal/adapter/otel"
	"github.com/Strob0t/CogniChat/internal/port/completion"
	"github.com/Strob0t/CogniChat/internal/resilience"
)

// ErrEmptyCompletion is returned when the API answers without any choices.
var ErrEmptyCompletion = errors.New("completion returned no choices")

// Client calls the chat-completions endpoint. It never retries.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a completion client for the given endpoint URL. A zero
// timeout leaves the request bounded only by the caller's context.
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends req and returns the first choice's message content.
func (c *Client) Complete(ctx context.Context, req completion.Request) (reply string, err error) {
	ctx, span := otel.StartCompletionSpan(ctx, req.Model)
	defer func() { otel.EndSpan(span, err) }()

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	data, err := c.doRequest(ctx, body)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}

	var out completionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("unmarshal completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) ([]byte, error) {
	var result []byte
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			err := fmt.Errorf("completion API error %d: %s", resp.StatusCode, string(data))
			if resp.StatusCode < 500 {
				return resilience.Rejected(err)
			}
			return err
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(ctx, call); err != nil {
			return nil, err
		}
		return result, nil
	}
	if err := call(ctx); err != nil {
		return nil, err
	}
	return result, nil
}
