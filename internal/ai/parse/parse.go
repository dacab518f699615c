// Package parse extracts typed code artifacts from free-text model output.
//
// Flat extraction runs an ordered strategy chain, each step only firing when
// the previous produced nothing usable: tagged fences, sniffed untagged
// fences, a raw HTML document span, and finally <style> tag harvesting for a
// missing stylesheet. Multi-file extraction scans for ---FILE: path---
// markers instead. All functions are pure.
package parse

import (
	"regexp"
	"strings"

	"pageforge_ai_server/internal/types"
	"pageforge_ai_server/internal/utils"
)

// Validation floors. Outputs below these are truncated or token-starved
// generations and must be retried, not shipped.
const (
	MinHTMLLength = 100
	MinCSSLength  = 50
)

// Flat is the outcome of flat-mode extraction. OK is false when either slot
// missed its length floor even though text was returned.
type Flat struct {
	HTML string
	CSS  string
	OK   bool
}

var fenceRe = regexp.MustCompile("(?s)```([a-zA-Z0-9_+.-]*)[ \t]*\r?\n(.*?)\r?\n[ \t]*```")

type fencedBlock struct {
	lang string
	body string
}

func fencedBlocks(s string) []fencedBlock {
	var out []fencedBlock
	for _, m := range fenceRe.FindAllStringSubmatch(s, -1) {
		out = append(out, fencedBlock{lang: strings.ToLower(m[1]), body: m[2]})
	}
	return out
}

// ParseFlat recovers an HTML document and a stylesheet from raw model text.
func ParseFlat(raw string) Flat {
	var html, css string

	blocks := fencedBlocks(raw)

	// Explicitly tagged blocks win; first match per slot, later duplicates
	// ignored.
	for _, b := range blocks {
		switch b.lang {
		case "html":
			if html == "" {
				html = strings.TrimSpace(b.body)
			}
		case "css":
			if css == "" {
				css = strings.TrimSpace(b.body)
			}
		}
	}

	// Untagged blocks are classified by structural sniffing.
	for _, b := range blocks {
		if b.lang != "" {
			continue
		}
		body := strings.TrimSpace(b.body)
		if html == "" && looksLikeHTML(body) {
			html = body
			continue
		}
		if css == "" && looksLikeCSS(body) {
			css = body
		}
	}

	// No fenced HTML anywhere: look for a bare document span in the text.
	if html == "" {
		html = rawDocumentSpan(raw)
	}

	// Stylesheet missing but the document may embed one.
	if css == "" && html != "" {
		css = styleTagContents(html)
	}

	return Flat{
		HTML: html,
		CSS:  css,
		OK:   len(html) >= MinHTMLLength && len(css) >= MinCSSLength,
	}
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range []string{"<!doctype", "<html", "<head", "<body"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// selectorRe matches a CSS-selector-like prefix immediately before an
// opening brace: a class, an id, or a bare identifier.
var selectorRe = regexp.MustCompile(`(?m)^\s*[.#]?[A-Za-z][\w-]*[^{}\n]*\{`)

func looksLikeCSS(s string) bool {
	if strings.Count(s, "{") == 0 || strings.Count(s, "{") != strings.Count(s, "}") {
		return false
	}
	return selectorRe.MatchString(s)
}

var (
	doctypeSpanRe = regexp.MustCompile(`(?is)<!DOCTYPE\s+html.*?</html>`)
	htmlSpanRe    = regexp.MustCompile(`(?is)<html[\s>].*?</html>`)
)

func rawDocumentSpan(raw string) string {
	if m := doctypeSpanRe.FindString(raw); m != "" {
		return strings.TrimSpace(m)
	}
	if m := htmlSpanRe.FindString(raw); m != "" {
		return strings.TrimSpace(m)
	}
	return ""
}

var styleTagRe = regexp.MustCompile(`(?is)<style[^>]*>(.*?)</style>`)

// styleTagContents concatenates every <style> body in document order,
// separated by a blank line.
func styleTagContents(html string) string {
	var chunks []string
	for _, m := range styleTagRe.FindAllStringSubmatch(html, -1) {
		if body := strings.TrimSpace(m[1]); body != "" {
			chunks = append(chunks, body)
		}
	}
	return strings.Join(chunks, "\n\n")
}

// fileMarkerRe tolerates stray whitespace around the marker and path.
var fileMarkerRe = regexp.MustCompile(`(?m)^\s*---\s*FILE:\s*(.+?)\s*---\s*$`)

// ParseFiles scans for the ---FILE: path--- marker convention and returns
// the named files in source order. Fence lines immediately wrapping a file
// body are stripped. Returns nil when no marker is present.
func ParseFiles(raw string) []types.GeneratedFile {
	markers := fileMarkerRe.FindAllStringSubmatchIndex(raw, -1)
	if len(markers) == 0 {
		return nil
	}

	var files []types.GeneratedFile
	for i, m := range markers {
		path := strings.TrimSpace(raw[m[2]:m[3]])
		if path == "" || strings.EqualFold(path, "end") {
			continue
		}
		start := m[1]
		end := len(raw)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		content := stripWrappingFence(strings.TrimSpace(raw[start:end]))
		if content == "" {
			continue
		}
		files = append(files, types.GeneratedFile{
			Name:     path,
			Content:  content,
			Language: utils.LanguageForFile(path),
		})
	}
	return files
}

// stripWrappingFence removes one layer of triple-backtick fencing around a
// file body, tag included, leaving interior fences alone.
func stripWrappingFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	last := len(lines) - 1
	if strings.TrimSpace(lines[last]) != "```" {
		return s
	}
	return strings.TrimSpace(strings.Join(lines[1:last], "\n"))
}
