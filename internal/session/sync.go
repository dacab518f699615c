// Package session talks to the remote session-sync service, a thin CRUD
// endpoint keyed by session ID. The blob format below is the full contract;
// the service's storage is opaque to us.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"pageforge_ai_server/internal/types"
)

var ErrSessionNotFound = errors.New("session: not found")

// Blob is the document synced per session.
type Blob struct {
	Project     json.RawMessage          `json:"project,omitempty"`
	Assets      []types.Asset            `json:"assets,omitempty"`
	ChatHistory []types.ConversationTurn `json:"chatHistory,omitempty"`
	LastActive  time.Time                `json:"lastActive"`
}

// Client is the cloud session service client.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
}

// Sync uploads the session blob, overwriting any previous one.
func (c *Client) Sync(ctx context.Context, id string, blob *Blob) error {
	if c.baseURL == "" {
		return errors.New("session: sync service not configured")
	}
	payload, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("session: marshal blob: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/sessions/"+id, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("session: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("session: sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("session: sync status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// Retrieve fetches a previously synced blob.
func (c *Client) Retrieve(ctx context.Context, id string) (*Blob, error) {
	if c.baseURL == "" {
		return nil, errors.New("session: sync service not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("session: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session: retrieve request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrSessionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("session: retrieve status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var blob Blob
	if err := json.NewDecoder(resp.Body).Decode(&blob); err != nil {
		return nil, fmt.Errorf("session: decode blob: %w", err)
	}
	return &blob, nil
}
