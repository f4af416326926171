// Package api defines the remote service consumed by the sync engine and
// an HTTP implementation of it. The sync processor only interprets
// success or failure; error payloads are folded into the returned error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// RemoteAPI is the per-entity CRUD surface the sync processor replays
// queued mutations against.
type RemoteAPI interface {
	CreateDeck(ctx context.Context, deckID string, data json.RawMessage) error
	UpdateDeck(ctx context.Context, deckID string, data json.RawMessage) error
	DeleteDeck(ctx context.Context, deckID string) error
	CreateCard(ctx context.Context, cardID string, data json.RawMessage) error
	UpdateCard(ctx context.Context, cardID string, data json.RawMessage) error
	DeleteCard(ctx context.Context, cardID string) error
	// Ping checks that the service is reachable
	Ping(ctx context.Context) error
}

// DefaultTimeout bounds each individual remote call
const DefaultTimeout = 10 * time.Second

// HTTPClient talks to the remote flashcard service over HTTP
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a client from environment configuration.
// API_BASE_URL is required; API_TOKEN is optional.
func NewHTTPClient() (*HTTPClient, error) {
	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL environment variable is not set")
	}
	return NewHTTPClientWithConfig(baseURL, os.Getenv("API_TOKEN"), DefaultTimeout), nil
}

// NewHTTPClientWithConfig creates a client with explicit settings
func NewHTTPClientWithConfig(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// errorResponse is the error payload the service returns on failure
type errorResponse struct {
	Error string `json:"error"`
}

// do sends one request and reduces the response to success or failure
func (c *HTTPClient) do(ctx context.Context, method, path string, body json.RawMessage) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Пытаемся вытащить сообщение об ошибке из тела ответа
	var errResp errorResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Error != "" {
		return fmt.Errorf("%s %s: %s (status %d)", method, path, errResp.Error, resp.StatusCode)
	}
	return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
}

// CreateDeck implements RemoteAPI
func (c *HTTPClient) CreateDeck(ctx context.Context, deckID string, data json.RawMessage) error {
	return c.do(ctx, http.MethodPost, "/decks", data)
}

// UpdateDeck implements RemoteAPI
func (c *HTTPClient) UpdateDeck(ctx context.Context, deckID string, data json.RawMessage) error {
	return c.do(ctx, http.MethodPut, "/decks/"+deckID, data)
}

// DeleteDeck implements RemoteAPI
func (c *HTTPClient) DeleteDeck(ctx context.Context, deckID string) error {
	return c.do(ctx, http.MethodDelete, "/decks/"+deckID, nil)
}

// CreateCard implements RemoteAPI
func (c *HTTPClient) CreateCard(ctx context.Context, cardID string, data json.RawMessage) error {
	return c.do(ctx, http.MethodPost, "/cards", data)
}

// UpdateCard implements RemoteAPI
func (c *HTTPClient) UpdateCard(ctx context.Context, cardID string, data json.RawMessage) error {
	return c.do(ctx, http.MethodPut, "/cards/"+cardID, data)
}

// DeleteCard implements RemoteAPI
func (c *HTTPClient) DeleteCard(ctx context.Context, cardID string) error {
	return c.do(ctx, http.MethodDelete, "/cards/"+cardID, nil)
}

// Ping implements RemoteAPI
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil)
}
