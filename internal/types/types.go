package types

import "time"

// AssetKind classifies a user-supplied asset attached to a request.
type AssetKind string

const (
	AssetImage    AssetKind = "image"
	AssetLink     AssetKind = "link"
	AssetDocument AssetKind = "document"
)

// Asset is a request-scoped input owned by the caller. Image payloads are
// data URIs; links and documents carry a URI or plain text reference.
type Asset struct {
	Kind    AssetKind `json:"kind"`
	Payload string    `json:"payload"`
	Name    string    `json:"name,omitempty"`
}

// HasImages reports whether any asset in the list is an image.
func HasImages(assets []Asset) bool {
	for _, a := range assets {
		if a.Kind == AssetImage {
			return true
		}
	}
	return false
}

// Images returns the image assets in order, capped at max.
func Images(assets []Asset, max int) []Asset {
	var out []Asset
	for _, a := range assets {
		if a.Kind != AssetImage {
			continue
		}
		out = append(out, a)
		if len(out) == max {
			break
		}
	}
	return out
}

// DesignSpec is the structured half of an optimized prompt: a machine-usable
// description of the page the user asked for. Layout and Colors are the
// mandatory core; everything else is advisory.
type DesignSpec struct {
	Layout     *LayoutSpec     `json:"layout,omitempty"`
	Colors     *ColorSpec      `json:"colors,omitempty"`
	Typography *TypographySpec `json:"typography,omitempty"`
	Components []ComponentSpec `json:"components,omitempty"`
	Effects    []string        `json:"effects,omitempty"`
	Spacing    string          `json:"spacing,omitempty"`
}

// Valid reports whether the spec carries the mandatory layout and colors
// sections. An invalid spec must never be surfaced as a successful optimize.
func (s *DesignSpec) Valid() bool {
	return s != nil && s.Layout != nil && s.Colors != nil
}

type LayoutSpec struct {
	Type     string   `json:"type"`
	Sections []string `json:"sections,omitempty"`
	Columns  int      `json:"columns,omitempty"`
}

type ColorSpec struct {
	Background  string `json:"background"`
	Primary     string `json:"primary"`
	Secondary   string `json:"secondary,omitempty"`
	Accent      string `json:"accent,omitempty"`
	Text        string `json:"text,omitempty"`
	IsDarkTheme bool   `json:"isDarkTheme,omitempty"`
}

type TypographySpec struct {
	HeadingFont string `json:"headingFont,omitempty"`
	BodyFont    string `json:"bodyFont,omitempty"`
	BaseSize    string `json:"baseSize,omitempty"`
}

type ComponentSpec struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// OutputMode selects the artifact shape a generation call produces.
type OutputMode string

const (
	ModeFlat      OutputMode = "flat"
	ModeMultiFile OutputMode = "multiFile"
)

// Pipeline identifies which provider path handled a generation.
type Pipeline string

const (
	PipelineFastText Pipeline = "fast-text"
	PipelineVision   Pipeline = "vision"
)

// GeneratedFile is one named source file recovered from model output.
type GeneratedFile struct {
	Name     string `json:"filename"`
	Content  string `json:"content"`
	Language string `json:"type"` // e.g. "tsx", "css", "html"
}

// GenerationResult is the outcome of one generate call. Flat mode fills
// HTML/CSS; multi-file mode fills Files. Results are superseded by later
// calls, never mutated.
type GenerationResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	HTML  string          `json:"html,omitempty"`
	CSS   string          `json:"css,omitempty"`
	Files []GeneratedFile `json:"files,omitempty"`

	RawModelOutput string   `json:"rawModelOutput,omitempty"`
	PipelineUsed   Pipeline `json:"pipelineUsed,omitempty"`
	ProviderUsed   string   `json:"providerUsed,omitempty"`
	Attempts       int      `json:"attempts,omitempty"`
}

// ChatRole is the author of a conversation turn.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// PendingModification is a code replacement suggested by the assistant. It is
// surfaced to the caller and applied or discarded explicitly, never
// auto-applied.
type PendingModification struct {
	HTML string `json:"html,omitempty"`
	CSS  string `json:"css,omitempty"`
}

// ConversationTurn is one append-only entry in a chat session.
type ConversationTurn struct {
	Role         ChatRole             `json:"role"`
	Content      string               `json:"content"`
	Modification *PendingModification `json:"modification,omitempty"`
	At           time.Time            `json:"at"`
}
