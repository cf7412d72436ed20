// Package httptransport implements the insurance transport over HTTP with
// bearer-token authentication, the scheme both the national fund and the
// private insurer gateways use.
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
	"github.com/brightsmile-clinic/claims-platform/pkg/logging"
)

const defaultTimeout = 30 * time.Second

// Config holds the upstream coordinates for one provider gateway.
type Config struct {
	// BaseURL is the operation endpoint root; operations POST to
	// BaseURL/<operation>.
	BaseURL string

	// TokenURL issues bearer tokens for a username/password pair.
	TokenURL string

	Username string
	Password string
}

// Transport is an insurance.Transport speaking JSON over HTTP. A bearer
// token is fetched lazily and refreshed through Reauthenticate when the
// upstream reports it expired.
type Transport struct {
	cfg        Config
	httpClient *http.Client
	logger     *logging.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient overrides the underlying HTTP client, mostly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) {
		t.httpClient = client
	}
}

// New creates a transport for one provider gateway.
func New(cfg Config, logger *logging.Logger, opts ...Option) *Transport {
	t := &Transport{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger.WithComponent("httptransport"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Call posts the payload to the named operation endpoint. A 401 maps to
// insurance.ErrTokenExpired so the caller can reauthenticate and replay;
// other non-2xx statuses map to insurance.StatusError.
func (t *Transport) Call(ctx context.Context, operation string, payload any) (json.RawMessage, error) {
	token, err := t.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("httptransport: marshal %s payload: %w", operation, err)
	}

	endpoint := strings.TrimRight(t.cfg.BaseURL, "/") + "/" + operation
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httptransport: create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httptransport: %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httptransport: read %s response: %w", operation, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, insurance.ErrTokenExpired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &insurance.StatusError{
			Operation: operation,
			Code:      resp.StatusCode,
			Body:      truncate(string(respBody), 500),
		}
	}
	return json.RawMessage(respBody), nil
}

// Reauthenticate fetches a fresh bearer token from the token endpoint.
func (t *Transport) Reauthenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", t.cfg.Username)
	form.Set("password", t.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("httptransport: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httptransport: token request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httptransport: read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &insurance.StatusError{
			Operation: "token",
			Code:      resp.StatusCode,
			Body:      truncate(string(respBody), 200),
		}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return fmt.Errorf("httptransport: decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return fmt.Errorf("httptransport: token endpoint returned no access_token")
	}

	t.mu.Lock()
	t.token = tokenResp.AccessToken
	t.mu.Unlock()
	t.logger.Debug("bearer token refreshed", "expires_in", tokenResp.ExpiresIn)
	return nil
}

// currentToken returns the cached token, fetching one on first use.
func (t *Transport) currentToken(ctx context.Context) (string, error) {
	t.mu.RLock()
	token := t.token
	t.mu.RUnlock()
	if token != "" {
		return token, nil
	}
	if err := t.Reauthenticate(ctx); err != nil {
		return "", err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
