package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"pageforge_ai_server/internal/types"
)

const (
	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
	defaultGroqModel   = "llama-3.3-70b-versatile"
)

// GroqClient is the fast text-only backend. Groq exposes an OpenAI-compatible
// API, so the call goes through go-openai with a custom base URL.
type GroqClient struct {
	baseURL string
	model   string
}

func NewGroqClient(baseURL, model string) *GroqClient {
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	if model == "" {
		model = defaultGroqModel
	}
	return &GroqClient{baseURL: baseURL, model: model}
}

func (c *GroqClient) Name() string { return "groq" }

func (c *GroqClient) GeneratePage(ctx context.Context, req Request) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
	}
	return c.call(ctx, req, messages)
}

func (c *GroqClient) Chat(ctx context.Context, req Request, task TaskType, history []types.ConversationTurn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == types.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: fmt.Sprintf("Task: %s\n%s", task, req.Prompt),
	})
	return c.call(ctx, req, messages)
}

func (c *GroqClient) call(ctx context.Context, req Request, messages []openai.ChatCompletionMessage) (string, error) {
	config := openai.DefaultConfig(req.Credential)
	config.BaseURL = c.baseURL
	client := openai.NewClientWithConfig(config)

	if req.System != "" {
		messages = append([]openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
		}, messages...)
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", c.mapError(err, req.Credential)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &RemoteError{Provider: c.Name(), StatusCode: 200, Message: "empty completion"}
	}
	return resp.Choices[0].Message.Content, nil
}

// mapError translates go-openai errors into the shared taxonomy so the
// retry loops upstream treat both backends identically.
func (c *GroqClient) mapError(err error, credential string) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return &RateLimitError{Provider: c.Name(), Credential: credential}
		}
		return &RemoteError{Provider: c.Name(), StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	if strings.Contains(strings.ToLower(err.Error()), "rate limit") {
		return &RateLimitError{Provider: c.Name(), Credential: credential}
	}
	return fmt.Errorf("groq: request failed: %w", err)
}
