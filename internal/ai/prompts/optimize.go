package prompts

import "fmt"

// Section markers the optimizer locates in the two-part response.
const (
	DescriptionMarker = "===DESCRIPTION==="
	DesignSpecMarker  = "===DESIGN_SPEC==="
)

// SystemOptimize steers the model toward structural fidelity over prose.
const SystemOptimize = `You are a senior product designer turning rough ideas into precise design briefs. You always answer in the exact two-section format requested, and the JSON section is always valid JSON.`

// OptimizePrompt asks for a human-readable elaboration plus a structured
// design specification, separated by the section markers.
func OptimizePrompt(rawPrompt string) string {
	return fmt.Sprintf(`A user wants a web page built from this rough description:

---
%s
---

Respond in EXACTLY two sections with these exact marker lines:

%s
An elaborated, concrete description of the page: purpose, audience, tone,
content of each section, visual direction. Plain prose, no code.

%s
A single JSON object with this shape (layout and colors are mandatory):
{
  "layout": {"type": "landing", "sections": ["navbar", "hero", "features", "footer"], "columns": 12},
  "colors": {"background": "#...", "primary": "#...", "secondary": "#...", "accent": "#...", "text": "#...", "isDarkTheme": false},
  "typography": {"headingFont": "...", "bodyFont": "...", "baseSize": "16px"},
  "components": [{"type": "navbar", "attributes": {"sticky": "true"}}],
  "effects": ["soft-shadows"],
  "spacing": "comfortable"
}

Nothing outside the two sections.`, rawPrompt, DescriptionMarker, DesignSpecMarker)
}
