// Package gotrue implements identity.Provider against the Supabase Auth
// (GoTrue) REST API.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Strob0t/CogniChat/internal/domain"
	"github.com/Strob0t/CogniChat/internal/domain/user"
	"github.com/Strob0t/CogniChat/internal/resilience"
)

// Client talks to the /auth/v1 endpoints of a Supabase project.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a client for the project at baseURL (e.g.
// https://xyz.supabase.co) using the project's anon key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/auth/v1",
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type remoteUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u remoteUser) toDomain() user.User {
	name, _ := u.UserMetadata["name"].(string)
	return user.User{ID: u.ID, Email: u.Email, Name: name}
}

// session is the token response. Sign-up without auto-confirm returns the
// bare user object instead, which decodes into the embedded fields.
type session struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int         `json:"expires_in"`
	User        *remoteUser `json:"user"`
	remoteUser
}

func (s *session) credentials() (*user.Credentials, error) {
	u := s.User
	if u == nil {
		u = &s.remoteUser
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: response carried no user", domain.ErrIdentity)
	}
	return &user.Credentials{
		User:        u.toDomain(),
		AccessToken: s.AccessToken,
		ExpiresIn:   s.ExpiresIn,
	}, nil
}

// SignUp registers a new account and stores the display name in the user's
// metadata.
func (c *Client) SignUp(ctx context.Context, req user.SignUpRequest) (*user.Credentials, error) {
	body := map[string]any{
		"email":    req.Email,
		"password": req.Password,
		"data":     map[string]string{"name": req.Name},
	}
	var s session
	if err := c.do(ctx, http.MethodPost, "/signup", "", body, &s); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return s.credentials()
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, req user.SignInRequest) (*user.Credentials, error) {
	body := map[string]string{"email": req.Email, "password": req.Password}
	var s session
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &s); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return s.credentials()
}

// SignOut revokes the access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if err := c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Health checks the provider's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/health", "", nil, nil); err != nil {
		return fmt.Errorf("identity health: %w", err)
	}
	return nil
}

// apiError covers the three error shapes GoTrue has used over time.
type apiError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (e apiError) text() string {
	for _, s := range []string{e.Msg, e.ErrorDescription, e.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	call := func(ctx context.Context) error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("apikey", c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if bearer == "" {
			bearer = c.apiKey
		}
		req.Header.Set("Authorization", "Bearer "+bearer)

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
			var ae apiError
			_ = json.Unmarshal(data, &ae)
			msg := ae.text()
			if msg == "" {
				msg = fmt.Sprintf("status %d", resp.StatusCode)
			}
			// 4xx answers are user errors and must not trip the breaker.
			if resp.StatusCode < 500 {
				return resilience.Rejected(fmt.Errorf("%w: %s", domain.ErrIdentity, msg))
			}
			return fmt.Errorf("%w: %s", domain.ErrIdentity, msg)
		}
		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}

	if c.breaker == nil {
		return call(ctx)
	}
	return c.breaker.Execute(ctx, call)
}
