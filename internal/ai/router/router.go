// Package router is the top-level generation entry point: it picks a
// pipeline per request, runs best-effort image pre-processing, and drives
// the retry loop around provider calls and parser validation.
package router

import (
	"context"
	"errors"
	"fmt"
	"log"

	"pageforge_ai_server/internal/ai/keypool"
	"pageforge_ai_server/internal/ai/parse"
	"pageforge_ai_server/internal/ai/prompts"
	"pageforge_ai_server/internal/ai/provider"
	"pageforge_ai_server/internal/types"
	"pageforge_ai_server/internal/vision"
)

// Attempts per generate call; each one selects a fresh credential and the
// first attempt clearing the parser gates wins.
const maxAttempts = 3

const generateTemperature = 0.7

// Router owns the pipeline decision. Requests with image assets go through
// the vision backend, everything else through the fast text backend.
type Router struct {
	visionClient provider.Client
	fastClient   provider.Client
	visionPool   *keypool.Pool
	fastPool     *keypool.Pool
	extractor    vision.Extractor
}

func New(visionClient, fastClient provider.Client, visionPool, fastPool *keypool.Pool, extractor vision.Extractor) *Router {
	return &Router{
		visionClient: visionClient,
		fastClient:   fastClient,
		visionPool:   visionPool,
		fastPool:     fastPool,
		extractor:    extractor,
	}
}

// Generate produces a page for the prompt in the requested output mode.
// spec may be nil or carry the optimizer's structured output. Terminal
// failures come back as a non-success result, never a panic or bare error.
func (r *Router) Generate(ctx context.Context, prompt string, assets []types.Asset, mode types.OutputMode, spec *types.DesignSpec) *types.GenerationResult {
	client := r.fastClient
	pool := r.fastPool
	pipeline := types.PipelineFastText

	if types.HasImages(assets) {
		client = r.visionClient
		pool = r.visionPool
		pipeline = types.PipelineVision
		spec = r.preprocess(ctx, assets, spec)
	}

	if pool.Size() == 0 {
		return &types.GenerationResult{
			Error:        "no credentials configured for " + client.Name(),
			PipelineUsed: pipeline,
			ProviderUsed: client.Name(),
		}
	}

	var instruction string
	if mode == types.ModeMultiFile {
		instruction = prompts.MultiFilePrompt(prompt, spec)
	} else {
		instruction = prompts.FlatPagePrompt(prompt, spec)
	}

	type attemptState struct {
		attempt int
		lastKey string
		lastErr error
		lastRaw string
	}
	st := attemptState{}

	for st.attempt = 1; st.attempt <= maxAttempts; st.attempt++ {
		key, ok := pool.Select(st.lastKey)
		if !ok {
			key, ok = pool.Select("")
		}
		if !ok {
			st.lastErr = errors.New("credential pool exhausted")
			break
		}
		st.lastKey = key

		raw, err := client.GeneratePage(ctx, provider.Request{
			Credential:  key,
			Prompt:      instruction,
			System:      prompts.SystemPage,
			Assets:      assets,
			Spec:        spec,
			Temperature: generateTemperature,
			MaxTokens:   8192,
		})
		if err != nil {
			var rl *provider.RateLimitError
			if errors.As(err, &rl) {
				pool.MarkFailed(rl.Credential)
			}
			log.Printf("Generate attempt %d/%d via %s failed: %v", st.attempt, maxAttempts, client.Name(), err)
			st.lastErr = err
			continue
		}
		st.lastRaw = raw

		if res, ok := r.assemble(raw, mode); ok {
			res.PipelineUsed = pipeline
			res.ProviderUsed = client.Name()
			res.Attempts = st.attempt
			return res
		}
		st.lastErr = fmt.Errorf("output below validation thresholds")
		log.Printf("Generate attempt %d/%d via %s: parse validation failed", st.attempt, maxAttempts, client.Name())
	}

	msg := "generation failed"
	if st.lastErr != nil {
		msg = fmt.Sprintf("generation failed after %d attempts: %v", maxAttempts, st.lastErr)
	}
	return &types.GenerationResult{
		Error:          msg,
		RawModelOutput: st.lastRaw,
		PipelineUsed:   pipeline,
		ProviderUsed:   client.Name(),
		Attempts:       st.attempt - 1,
	}
}

// assemble runs the parser for the requested mode and applies its gates.
// Multi-file requests degrade to a synthesized single-page file set when the
// model ignored the marker format but produced a usable flat page.
func (r *Router) assemble(raw string, mode types.OutputMode) (*types.GenerationResult, bool) {
	if mode == types.ModeMultiFile {
		if files := parse.ParseFiles(raw); len(files) > 0 {
			return &types.GenerationResult{Success: true, Files: files, RawModelOutput: raw}, true
		}
		flat := parse.ParseFlat(raw)
		if flat.OK {
			log.Printf("Multi-file markers absent; degrading to a single-page file set")
			return &types.GenerationResult{
				Success:        true,
				Files:          wrapFlatAsFiles(flat),
				RawModelOutput: raw,
			}, true
		}
		return nil, false
	}

	flat := parse.ParseFlat(raw)
	if !flat.OK {
		return nil, false
	}
	return &types.GenerationResult{
		Success:        true,
		HTML:           flat.HTML,
		CSS:            flat.CSS,
		RawModelOutput: raw,
	}, true
}

// wrapFlatAsFiles packages a flat HTML/CSS pair as a minimal file set so a
// multi-file request never loses a valid generation.
func wrapFlatAsFiles(flat parse.Flat) []types.GeneratedFile {
	return []types.GeneratedFile{
		{Name: "index.html", Content: flat.HTML, Language: "html"},
		{Name: "styles.css", Content: flat.CSS, Language: "css"},
	}
}

// preprocess runs the external feature extractor over the first image and
// merges the result into the optimizer's spec. Extraction is best-effort:
// any failure falls back to the existing spec, or the documented default
// when there is none.
func (r *Router) preprocess(ctx context.Context, assets []types.Asset, spec *types.DesignSpec) *types.DesignSpec {
	images := types.Images(assets, 1)
	if len(images) == 0 || r.extractor == nil {
		return specOrDefault(spec)
	}

	extracted, err := r.extractor.Extract(ctx, images[0].Payload)
	if err != nil {
		log.Printf("WARN: design-feature extraction failed, using fallback spec: %v", err)
		return specOrDefault(spec)
	}
	return mergeSpecs(spec, extracted)
}

func specOrDefault(spec *types.DesignSpec) *types.DesignSpec {
	if spec.Valid() {
		return spec
	}
	return vision.DefaultSpec()
}

// mergeSpecs lays the extracted layout and colors over the optimizer's spec,
// keeping its typography, components, and the rest.
func mergeSpecs(base, extracted *types.DesignSpec) *types.DesignSpec {
	if base == nil {
		return extracted
	}
	merged := *base
	if extracted.Layout != nil {
		merged.Layout = extracted.Layout
	}
	if extracted.Colors != nil {
		merged.Colors = extracted.Colors
	}
	return &merged
}
