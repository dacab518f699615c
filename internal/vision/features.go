// Package vision calls the external design-feature pre-processor, which
// extracts dominant colors and a coarse layout guess from a reference image.
// The service is best-effort: callers fall back to DefaultSpec on any error.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pageforge_ai_server/internal/types"
)

// Extractor is the pre-processor contract the router depends on; satisfied
// by Client and by test stubs.
type Extractor interface {
	Extract(ctx context.Context, imageDataURI string) (*types.DesignSpec, error)
}

// Client talks to the feature-extraction endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type extractRequest struct {
	Image string `json:"image"`
}

type extractResponse struct {
	Colors struct {
		Primary     string `json:"primary"`
		Secondary   string `json:"secondary"`
		Accent      string `json:"accent"`
		Background  string `json:"background"`
		Text        string `json:"text"`
		IsDarkTheme bool   `json:"isDarkTheme"`
	} `json:"colors"`
	Layout struct {
		Type             string   `json:"type"`
		Sections         []string `json:"sections"`
		EstimatedColumns int      `json:"estimatedColumns"`
	} `json:"layout"`
}

// Extract sends one image payload and maps the response into a DesignSpec.
func (c *Client) Extract(ctx context.Context, imageDataURI string) (*types.DesignSpec, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("vision: no endpoint configured")
	}

	payload, err := json.Marshal(extractRequest{Image: imageDataURI})
	if err != nil {
		return nil, fmt.Errorf("vision: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("vision: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("vision: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("vision: decode response: %w", err)
	}

	return &types.DesignSpec{
		Layout: &types.LayoutSpec{
			Type:     out.Layout.Type,
			Sections: out.Layout.Sections,
			Columns:  out.Layout.EstimatedColumns,
		},
		Colors: &types.ColorSpec{
			Primary:     out.Colors.Primary,
			Secondary:   out.Colors.Secondary,
			Accent:      out.Colors.Accent,
			Background:  out.Colors.Background,
			Text:        out.Colors.Text,
			IsDarkTheme: out.Colors.IsDarkTheme,
		},
	}, nil
}

// DefaultSpec is the documented fallback used when extraction fails: a
// dark-theme blue palette on a standard landing-page layout.
func DefaultSpec() *types.DesignSpec {
	return &types.DesignSpec{
		Layout: &types.LayoutSpec{
			Type:     "landing",
			Sections: []string{"navbar", "hero", "features", "footer"},
			Columns:  12,
		},
		Colors: &types.ColorSpec{
			Primary:     "#3B82F6",
			Secondary:   "#60A5FA",
			Accent:      "#818CF8",
			Background:  "#0F172A",
			Text:        "#E2E8F0",
			IsDarkTheme: true,
		},
	}
}
