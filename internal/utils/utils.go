package utils

import (
	"errors"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ShouldRetry reports whether an error looks transient enough to be worth
// another attempt with a fresh credential.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= 500 || apiErr.HTTPStatusCode == 429
	}
	errMsg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"rate limit",
		"500 internal server error",
		"502 bad gateway",
		"503 service unavailable",
		"504 gateway timeout",
		"timeout",
		"connection reset by peer",
		"context deadline exceeded",
	} {
		if strings.Contains(errMsg, marker) {
			return true
		}
	}
	return false
}

// LanguageForFile infers a language tag from a file path when the model
// omitted one.
func LanguageForFile(filename string) string {
	lower := strings.ToLower(filename)
	switch filepath.Ext(lower) {
	case ".html", ".htm":
		return "html"
	case ".css":
		return "css"
	case ".js":
		return "javascript"
	case ".jsx":
		return "jsx"
	case ".ts":
		return "typescript"
	case ".tsx":
		return "tsx"
	case ".json":
		return "json"
	case ".md":
		return "markdown"
	case ".svg":
		return "svg"
	case ".yaml", ".yml":
		return "yaml"
	case ".txt":
		return "text"
	default:
		base := filepath.Base(lower)
		if strings.Contains(base, "vite.config") || strings.Contains(base, "tailwind.config") {
			return "typescript"
		}
		if strings.Contains(base, "package.json") || strings.Contains(base, "tsconfig.json") {
			return "json"
		}
		return "text"
	}
}
