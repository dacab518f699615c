package optimizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pageforge_ai_server/internal/ai/keypool"
	"pageforge_ai_server/internal/ai/provider"
	"pageforge_ai_server/internal/types"
)

// scriptedClient returns canned responses (or errors) in sequence and
// records the credentials used.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
	keysUsed  []string
}

func (s *scriptedClient) Name() string { return "stub" }

func (s *scriptedClient) GeneratePage(_ context.Context, req provider.Request) (string, error) {
	i := s.calls
	s.calls++
	s.keysUsed = append(s.keysUsed, req.Credential)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func (s *scriptedClient) Chat(_ context.Context, _ provider.Request, _ provider.TaskType, _ []types.ConversationTurn) (string, error) {
	return "", errors.New("not scripted")
}

const goodResponse = `===DESCRIPTION===
A moody single-page portfolio with a large hero and a three-column work grid.

===DESIGN_SPEC===
` + "```json" + `
{
  "layout": {"type": "landing", "sections": ["navbar", "hero", "work", "footer"], "columns": 3},
  "colors": {"background": "#0f172a", "primary": "#3b82f6", "text": "#e2e8f0"}
}
` + "```"

func TestOptimizeSuccess(t *testing.T) {
	client := &scriptedClient{responses: []string{goodResponse}}
	o := New(client, keypool.New([]string{"k1"}))

	res, err := o.Optimize(context.Background(), "dark portfolio", nil)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if !strings.Contains(res.Text, "portfolio") {
		t.Errorf("prose section not extracted: %q", res.Text)
	}
	if !res.Spec.Valid() {
		t.Fatal("returned spec is not valid")
	}
	if res.Spec.Layout.Type != "landing" || res.Spec.Colors.Background != "#0f172a" {
		t.Errorf("spec fields wrong: %+v", res.Spec)
	}
}

func TestOptimizeRejectsSpecMissingColors(t *testing.T) {
	noColors := `===DESCRIPTION===
Some elaboration.

===DESIGN_SPEC===
{"layout": {"type": "landing", "sections": ["hero"]}}`

	client := &scriptedClient{responses: []string{noColors, noColors, noColors}}
	o := New(client, keypool.New([]string{"k1", "k2"}))

	_, err := o.Optimize(context.Background(), "anything", nil)
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if client.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", client.calls)
	}
	if exhausted.BestText != "Some elaboration." {
		t.Errorf("best prose not salvaged: %q", exhausted.BestText)
	}
}

func TestOptimizeRetriesInvalidJSONThenSucceeds(t *testing.T) {
	garbage := "===DESIGN_SPEC===\nnot json at all"
	client := &scriptedClient{responses: []string{garbage, goodResponse}}
	o := New(client, keypool.New([]string{"k1", "k2"}))

	res, err := o.Optimize(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("expected recovery on second attempt, got %v", err)
	}
	if client.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", client.calls)
	}
	if !res.Spec.Valid() {
		t.Error("recovered spec invalid")
	}
}

func TestOptimizeRotatesOnRateLimit(t *testing.T) {
	pool := keypool.New([]string{"k1", "k2"})
	client := &scriptedClient{
		errs:      []error{&provider.RateLimitError{Provider: "stub", Credential: "k1"}, nil},
		responses: []string{"", goodResponse},
	}
	// Force the first selection deterministic by parking k2 up front.
	pool.MarkFailed("k2")

	o := New(client, pool)
	_, err := o.Optimize(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("expected success after rotation, got %v", err)
	}
	if len(client.keysUsed) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(client.keysUsed))
	}
	if client.keysUsed[0] != "k1" {
		t.Fatalf("first call should use k1, got %q", client.keysUsed[0])
	}
	if client.keysUsed[1] != "k2" {
		t.Errorf("rotation did not move off the rate-limited key: %q", client.keysUsed[1])
	}
}

func TestOptimizeNoCredentials(t *testing.T) {
	o := New(&scriptedClient{}, keypool.New(nil))
	_, err := o.Optimize(context.Background(), "anything", nil)
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}
