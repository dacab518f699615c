// Package provider defines the capability set shared by the interchangeable
// AI backends and the error taxonomy their callers rotate credentials on.
package provider

import (
	"context"
	"fmt"

	"pageforge_ai_server/internal/types"
)

// TaskType tells a chat call what the assistant is being asked to do.
type TaskType string

const (
	TaskExplain TaskType = "explain"
	TaskReview  TaskType = "review"
	TaskModify  TaskType = "modify"
)

// Request carries everything one provider call needs. The credential is
// supplied per call; selection and rotation belong to the caller so that
// attempt counting stays centralized.
type Request struct {
	Credential  string
	Prompt      string
	System      string
	Assets      []types.Asset
	Spec        *types.DesignSpec
	Temperature float32
	MaxTokens   int
}

// Client is one AI backend. Implementations do not retry internally; a rate
// limit or remote failure is surfaced as-is so the caller can rotate
// credentials.
type Client interface {
	// Name identifies the backend in results and logs.
	Name() string
	// GeneratePage asks the model for page code and returns the raw text.
	GeneratePage(ctx context.Context, req Request) (string, error)
	// Chat runs a conversational call with prior turns as context.
	Chat(ctx context.Context, req Request, task TaskType, history []types.ConversationTurn) (string, error)
}

// RateLimitError signals an HTTP 429 equivalent. The credential that hit the
// limit is carried so the caller can park it.
type RateLimitError struct {
	Provider   string
	Credential string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

// RemoteError is a non-2xx provider response other than a rate limit.
type RemoteError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote error %d: %s", e.Provider, e.StatusCode, e.Message)
}
