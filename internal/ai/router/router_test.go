package router

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"pageforge_ai_server/internal/ai/keypool"
	"pageforge_ai_server/internal/ai/provider"
	"pageforge_ai_server/internal/types"
	"pageforge_ai_server/internal/vision"
)

// recordingClient serves a fixed response and records every request.
type recordingClient struct {
	name     string
	response string
	errs     []error
	calls    int
	requests []provider.Request
}

func (c *recordingClient) Name() string { return c.name }

func (c *recordingClient) GeneratePage(_ context.Context, req provider.Request) (string, error) {
	i := c.calls
	c.calls++
	c.requests = append(c.requests, req)
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	return c.response, nil
}

func (c *recordingClient) Chat(_ context.Context, _ provider.Request, _ provider.TaskType, _ []types.ConversationTurn) (string, error) {
	return "", errors.New("not used")
}

type stubExtractor struct {
	spec *types.DesignSpec
	err  error
}

func (s *stubExtractor) Extract(_ context.Context, _ string) (*types.DesignSpec, error) {
	return s.spec, s.err
}

var goodFlatResponse = "```html\n" + `<!DOCTYPE html>
<html>
<head><title>Dark Portfolio</title></head>
<body><section class="hero"><h1>Hero</h1><p>Selected works shown below.</p></section></body>
</html>` + "\n```\n```css\n" + `body { margin: 0; background: #0f172a; color: #e2e8f0; }
.hero { padding: 6rem 2rem; text-align: center; }` + "\n```"

func newTestRouter(visionC, fastC *recordingClient, ex vision.Extractor) *Router {
	return New(visionC, fastC,
		keypool.New([]string{"vk1", "vk2", "vk3"}),
		keypool.New([]string{"fk1", "fk2", "fk3"}),
		ex)
}

func imageAsset() types.Asset {
	return types.Asset{Kind: types.AssetImage, Payload: "data:image/png;base64,aGk=", Name: "ref.png"}
}

func TestRoutingNoImagesUsesFastPipeline(t *testing.T) {
	fast := &recordingClient{name: "fast", response: goodFlatResponse}
	visionC := &recordingClient{name: "vision", response: goodFlatResponse}
	r := newTestRouter(visionC, fast, &stubExtractor{err: errors.New("should not be called")})

	res := r.Generate(context.Background(), "dark portfolio hero section", nil, types.ModeFlat, nil)
	if !res.Success {
		t.Fatalf("generation failed: %s", res.Error)
	}
	if res.PipelineUsed != types.PipelineFastText {
		t.Errorf("pipeline = %s, want fast-text", res.PipelineUsed)
	}
	if fast.calls != 1 || visionC.calls != 0 {
		t.Errorf("wrong backend invoked: fast=%d vision=%d", fast.calls, visionC.calls)
	}
}

func TestRoutingWithImageUsesVisionPipeline(t *testing.T) {
	fast := &recordingClient{name: "fast", response: goodFlatResponse}
	visionC := &recordingClient{name: "vision", response: goodFlatResponse}
	extracted := &types.DesignSpec{
		Layout: &types.LayoutSpec{Type: "gallery", Sections: []string{"grid"}},
		Colors: &types.ColorSpec{Background: "#ffffff", Primary: "#111111"},
	}
	r := newTestRouter(visionC, fast, &stubExtractor{spec: extracted})

	res := r.Generate(context.Background(), "match this screenshot", []types.Asset{imageAsset()}, types.ModeFlat, nil)
	if !res.Success {
		t.Fatalf("generation failed: %s", res.Error)
	}
	if res.PipelineUsed != types.PipelineVision {
		t.Errorf("pipeline = %s, want vision", res.PipelineUsed)
	}
	if visionC.calls != 1 || fast.calls != 0 {
		t.Errorf("wrong backend invoked: fast=%d vision=%d", fast.calls, visionC.calls)
	}
	if visionC.requests[0].Spec.Layout.Type != "gallery" {
		t.Errorf("extracted spec not forwarded: %+v", visionC.requests[0].Spec)
	}
}

func TestPreprocessorFailureFallsBackToDefaultSpec(t *testing.T) {
	visionC := &recordingClient{name: "vision", response: goodFlatResponse}
	r := newTestRouter(visionC, &recordingClient{name: "fast"}, &stubExtractor{err: errors.New("service down")})

	res := r.Generate(context.Background(), "dark portfolio hero section", []types.Asset{imageAsset()}, types.ModeFlat, nil)
	if !res.Success {
		t.Fatalf("generation failed: %s", res.Error)
	}
	if !reflect.DeepEqual(visionC.requests[0].Spec, vision.DefaultSpec()) {
		t.Errorf("spec used is not the documented default: %+v", visionC.requests[0].Spec)
	}
}

func TestMultiFileMode(t *testing.T) {
	raw := `---FILE: index.html---
<!DOCTYPE html><html><body><div id="root"></div></body></html>

---FILE: src/App.tsx---
export default function App() { return <div className="app"/>; }
`
	fast := &recordingClient{name: "fast", response: raw}
	r := newTestRouter(&recordingClient{name: "vision"}, fast, nil)

	res := r.Generate(context.Background(), "react app", nil, types.ModeMultiFile, nil)
	if !res.Success {
		t.Fatalf("generation failed: %s", res.Error)
	}
	if len(res.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(res.Files))
	}
	if res.Files[1].Language != "tsx" {
		t.Errorf("language tag wrong: %+v", res.Files[1])
	}
}

func TestMultiFileDegradesToFlatWrapper(t *testing.T) {
	// No markers, but a valid flat pair: must degrade, not fail.
	fast := &recordingClient{name: "fast", response: goodFlatResponse}
	r := newTestRouter(&recordingClient{name: "vision"}, fast, nil)

	res := r.Generate(context.Background(), "react app", nil, types.ModeMultiFile, nil)
	if !res.Success {
		t.Fatalf("expected graceful degrade, got failure: %s", res.Error)
	}
	if len(res.Files) != 2 {
		t.Fatalf("expected synthesized pair, got %d files", len(res.Files))
	}
	if res.Files[0].Name != "index.html" || res.Files[1].Name != "styles.css" {
		t.Errorf("unexpected synthesized names: %v, %v", res.Files[0].Name, res.Files[1].Name)
	}
	if !strings.Contains(res.Files[0].Content, "<!DOCTYPE html>") {
		t.Error("recovered HTML missing from wrapper")
	}
}

func TestRetryOnRateLimitThenSuccess(t *testing.T) {
	fast := &recordingClient{
		name:     "fast",
		response: goodFlatResponse,
		errs:     []error{&provider.RateLimitError{Provider: "fast", Credential: "fk1"}},
	}
	r := newTestRouter(&recordingClient{name: "vision"}, fast, nil)

	res := r.Generate(context.Background(), "page", nil, types.ModeFlat, nil)
	if !res.Success {
		t.Fatalf("expected recovery, got: %s", res.Error)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
}

func TestExhaustionReturnsFailureWithSalvage(t *testing.T) {
	refusal := "I cannot generate that page."
	fast := &recordingClient{name: "fast", response: refusal}
	r := newTestRouter(&recordingClient{name: "vision"}, fast, nil)

	res := r.Generate(context.Background(), "page", nil, types.ModeFlat, nil)
	if res.Success {
		t.Fatal("expected failure")
	}
	if fast.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", fast.calls)
	}
	if res.RawModelOutput != refusal {
		t.Errorf("raw output not salvaged: %q", res.RawModelOutput)
	}
	if res.Error == "" {
		t.Error("missing human-readable error")
	}
}

func TestZeroCredentialConfigurationError(t *testing.T) {
	fast := &recordingClient{name: "fast", response: goodFlatResponse}
	r := New(&recordingClient{name: "vision"}, fast, keypool.New(nil), keypool.New(nil), nil)

	res := r.Generate(context.Background(), "page", nil, types.ModeFlat, nil)
	if res.Success {
		t.Fatal("expected configuration failure")
	}
	if fast.calls != 0 {
		t.Error("provider called despite empty pool")
	}
}
