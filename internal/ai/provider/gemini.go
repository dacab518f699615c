package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"pageforge_ai_server/internal/types"
)

const (
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
	defaultGeminiModel    = "gemini-2.0-flash"

	// Inline images are capped to bound payload size and latency.
	maxInlineImages = 5
)

// GeminiClient is the vision-capable backend. It speaks the
// systemInstruction/contents/parts wire format and accepts inline image
// payloads decoded from data-URI assets.
type GeminiClient struct {
	endpoint string
	model    string
	http     *http.Client
}

// NewGeminiClient builds a vision client. An empty endpoint or model selects
// the defaults.
func NewGeminiClient(endpoint, model string) *GeminiClient {
	if endpoint == "" {
		endpoint = defaultGeminiEndpoint
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{
		endpoint: endpoint,
		model:    model,
		http:     &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *GeminiClient) Name() string { return "gemini" }

// Wire types for the generateContent request/response bodies.

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
}

type geminiGenConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *GeminiClient) GeneratePage(ctx context.Context, req Request) (string, error) {
	parts := imageParts(req.Assets)
	prompt := req.Prompt
	if req.Spec != nil && req.Spec.Valid() {
		specJSON, err := json.Marshal(req.Spec)
		if err == nil {
			prompt = prompt + "\n\nFollow this design specification:\n" + string(specJSON)
		}
	}
	parts = append(parts, geminiPart{Text: prompt})
	return c.call(ctx, req, parts)
}

func (c *GeminiClient) Chat(ctx context.Context, req Request, task TaskType, history []types.ConversationTurn) (string, error) {
	var sb strings.Builder
	for _, turn := range history {
		sb.WriteString(string(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Task: ")
	sb.WriteString(string(task))
	sb.WriteString("\n")
	sb.WriteString(req.Prompt)

	parts := imageParts(req.Assets)
	parts = append(parts, geminiPart{Text: sb.String()})
	return c.call(ctx, req, parts)
}

func (c *GeminiClient) call(ctx context.Context, req Request, parts []geminiPart) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: geminiGenConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf(c.endpoint, c.model) + "?key=" + req.Credential
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &RateLimitError{Provider: c.Name(), Credential: req.Credential}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var parsed geminiResponse
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", &RemoteError{Provider: c.Name(), StatusCode: resp.StatusCode, Message: msg}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &RemoteError{Provider: c.Name(), StatusCode: resp.StatusCode, Message: "empty candidate list"}
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// imageParts converts data-URI image assets into inline parts, capped at
// maxInlineImages. Malformed payloads are skipped with a log line rather than
// failing the whole call.
func imageParts(assets []types.Asset) []geminiPart {
	var parts []geminiPart
	for _, img := range types.Images(assets, maxInlineImages) {
		mime, data, ok := splitDataURI(img.Payload)
		if !ok {
			log.Printf("WARN: skipping image asset %q: not a data URI", img.Name)
			continue
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: mime, Data: data}})
	}
	return parts
}

// splitDataURI pulls the mime type and base64 payload out of a
// "data:image/png;base64,...." string.
func splitDataURI(uri string) (mime, data string, ok bool) {
	if !strings.HasPrefix(uri, "data:") {
		return "", "", false
	}
	rest := strings.TrimPrefix(uri, "data:")
	comma := strings.Index(rest, ",")
	if comma < 0 {
		return "", "", false
	}
	meta, payload := rest[:comma], rest[comma+1:]
	meta = strings.TrimSuffix(meta, ";base64")
	if meta == "" {
		meta = "image/png"
	}
	return meta, payload, true
}
