package prompts

import (
	"encoding/json"
	"fmt"

	"pageforge_ai_server/internal/types"
)

// SystemPage is the system instruction shared by both generation pipelines.
const SystemPage = `You are an expert web designer and front-end engineer. You produce complete, production-quality pages that render correctly with no build step. Follow the output format instructions exactly; your output is parsed by a machine.`

// FlatPagePrompt instructs the model to emit one HTML document and one
// stylesheet as tagged fenced blocks.
func FlatPagePrompt(userPrompt string, spec *types.DesignSpec) string {
	p := fmt.Sprintf(`Build a complete web page for the following request:

---
%s
---

Requirements:
1. Semantic, accessible HTML5 in a single document.
2. A standalone stylesheet; no inline style attributes.
3. Responsive layout, mobile first.
4. No external JS frameworks; vanilla JS inline only if the design needs it.

Respond with exactly two fenced code blocks and nothing else:

`+"```html"+`
<!DOCTYPE html>
...
`+"```"+`

`+"```css"+`
...
`+"```", userPrompt)

	if spec.Valid() {
		if specJSON, err := json.Marshal(spec); err == nil {
			p += "\n\nFollow this design specification:\n" + string(specJSON)
		}
	}
	return p
}

// MultiFilePrompt instructs the model to emit a React scaffold using the
// file-marker convention the parser scans for.
func MultiFilePrompt(userPrompt string, spec *types.DesignSpec) string {
	p := fmt.Sprintf(`Build a multi-file React + TypeScript (Vite) project for the following request:

---
%s
---

Include at minimum: index.html, src/main.tsx, src/App.tsx, one component per
major section under src/components/, and src/styles.css.

Output every file using EXACTLY this marker format, one marker line per file,
file content immediately after the marker:

---FILE: index.html---
<!DOCTYPE html>
...

---FILE: src/App.tsx---
...

Only file markers and file contents. No commentary before, between, or after.`, userPrompt)

	if spec.Valid() {
		if specJSON, err := json.Marshal(spec); err == nil {
			p += "\n\nFollow this design specification:\n" + string(specJSON)
		}
	}
	return p
}
