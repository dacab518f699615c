// Package optimizer runs the two-phase prompt elaboration: one provider call
// that must yield both a prose description and a structured design spec, with
// credential rotation on transient failure.
package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"pageforge_ai_server/internal/ai/keypool"
	"pageforge_ai_server/internal/ai/prompts"
	"pageforge_ai_server/internal/ai/provider"
	"pageforge_ai_server/internal/types"
)

// Attempt bound across provider errors and invalid-JSON responses alike.
const maxAttempts = 3

// JSON structure matters more than prose here, so the temperature sits below
// the generation default.
const optimizeTemperature = 0.4

// ErrNoCredentials is a configuration error, never retried.
var ErrNoCredentials = errors.New("optimizer: no credentials configured")

// Result is a successful optimization: the elaborated prose and a validated
// design spec.
type Result struct {
	Text string            `json:"text"`
	Spec *types.DesignSpec `json:"designSpec"`
}

// ExhaustedError is returned when every attempt failed. BestText carries the
// best prose obtained so the caller is not left empty-handed; only the
// structured half is mandatory.
type ExhaustedError struct {
	Attempts int
	BestText string
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("optimizer: exhausted %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Optimizer drives the vision-capable provider; images in the assets are
// forwarded so the spec can reflect a reference screenshot.
type Optimizer struct {
	client provider.Client
	pool   *keypool.Pool
}

func New(client provider.Client, pool *keypool.Pool) *Optimizer {
	return &Optimizer{client: client, pool: pool}
}

// attemptState threads retry bookkeeping through the loop explicitly.
type attemptState struct {
	attempt  int
	lastKey  string
	lastErr  error
	bestText string
}

// Optimize elaborates a raw prompt into prose plus a validated DesignSpec.
// Retries with a fresh credential on rate limits, remote errors, and
// structurally invalid responses, up to the attempt bound.
func (o *Optimizer) Optimize(ctx context.Context, rawPrompt string, assets []types.Asset) (*Result, error) {
	if o.pool.Size() == 0 {
		return nil, ErrNoCredentials
	}

	st := attemptState{}
	for st.attempt = 1; st.attempt <= maxAttempts; st.attempt++ {
		key, ok := o.pool.Select(st.lastKey)
		if !ok {
			key, ok = o.pool.Select("")
		}
		if !ok {
			return nil, ErrNoCredentials
		}
		st.lastKey = key

		raw, err := o.client.GeneratePage(ctx, provider.Request{
			Credential:  key,
			Prompt:      prompts.OptimizePrompt(rawPrompt),
			System:      prompts.SystemOptimize,
			Assets:      assets,
			Temperature: optimizeTemperature,
			MaxTokens:   4096,
		})
		if err != nil {
			var rl *provider.RateLimitError
			if errors.As(err, &rl) {
				o.pool.MarkFailed(rl.Credential)
			}
			log.Printf("Optimize attempt %d/%d failed: %v", st.attempt, maxAttempts, err)
			st.lastErr = err
			continue
		}

		text, spec, err := parseTwoSections(raw)
		if text != "" && len(text) > len(st.bestText) {
			st.bestText = text
		}
		if err != nil {
			log.Printf("Optimize attempt %d/%d: response rejected: %v", st.attempt, maxAttempts, err)
			st.lastErr = err
			continue
		}
		return &Result{Text: text, Spec: spec}, nil
	}

	return nil, &ExhaustedError{Attempts: maxAttempts, BestText: st.bestText, LastErr: st.lastErr}
}

// parseTwoSections splits the response at the section markers, parses the
// JSON half, and enforces the DesignSpec validity invariant.
func parseTwoSections(raw string) (string, *types.DesignSpec, error) {
	descIdx := strings.Index(raw, prompts.DescriptionMarker)
	specIdx := strings.Index(raw, prompts.DesignSpecMarker)
	if specIdx < 0 {
		return strings.TrimSpace(raw), nil, errors.New("design spec section marker missing")
	}

	var text string
	if descIdx >= 0 && descIdx < specIdx {
		text = strings.TrimSpace(raw[descIdx+len(prompts.DescriptionMarker) : specIdx])
	} else {
		text = strings.TrimSpace(raw[:specIdx])
	}

	jsonSegment := stripFence(strings.TrimSpace(raw[specIdx+len(prompts.DesignSpecMarker):]))
	var spec types.DesignSpec
	if err := json.Unmarshal([]byte(jsonSegment), &spec); err != nil {
		return text, nil, fmt.Errorf("design spec is not valid JSON: %w", err)
	}
	if !spec.Valid() {
		return text, nil, errors.New("design spec incomplete: layout and colors are required")
	}
	return text, &spec, nil
}

// stripFence removes incidental ```json wrapping around the JSON segment and
// trims anything after the closing brace.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if end := strings.Index(s, "```"); end >= 0 {
		s = s[:end]
	}
	s = strings.TrimSpace(s)
	// Tolerate trailing prose after the object.
	if start := strings.Index(s, "{"); start >= 0 {
		depth := 0
		for i := start; i < len(s); i++ {
			switch s[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return s
}
