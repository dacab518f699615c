package prompts

import "fmt"

// SystemChat frames the code-analysis assistant.
const SystemChat = `You are a code assistant helping a user understand and refine a generated web page. When asked to modify code, respond with the full replacement html and css as tagged fenced code blocks; otherwise answer in plain prose.`

// ChatModifyPrompt wraps a modification request with the current page code
// so the model returns full replacements, never diffs.
func ChatModifyPrompt(instruction, html, css string) string {
	return fmt.Sprintf(`User's instruction:
---
%s
---

Current page HTML:
---
%s
---

Current page CSS:
---
%s
---

Apply the instruction and respond with the COMPLETE updated page as two
fenced code blocks tagged html and css. Do not omit unchanged parts.`, instruction, html, css)
}

// ChatContextPrompt wraps an explain/review question with the page code.
func ChatContextPrompt(question, html, css string) string {
	return fmt.Sprintf("User question: %s\n\nPage HTML:\n%s\n\nPage CSS:\n%s", question, html, css)
}
