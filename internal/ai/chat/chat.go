// Package chat is the code-analysis conversation collaborator: append-only
// per-session turn history, with modify-task responses parsed into pending
// code replacements the caller applies or discards explicitly.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"pageforge_ai_server/internal/ai/keypool"
	"pageforge_ai_server/internal/ai/parse"
	"pageforge_ai_server/internal/ai/prompts"
	"pageforge_ai_server/internal/ai/provider"
	"pageforge_ai_server/internal/types"
	"pageforge_ai_server/internal/utils"
)

const maxAttempts = 2

var ErrNoCredentials = errors.New("chat: no credentials configured")

// Service runs chat turns against the fast text backend and keeps the
// per-session history. History lives for the process lifetime; durable
// persistence belongs to the session sync layer.
type Service struct {
	client provider.Client
	pool   *keypool.Pool

	mu       sync.Mutex
	sessions map[string][]types.ConversationTurn
}

func NewService(client provider.Client, pool *keypool.Pool) *Service {
	return &Service{
		client:   client,
		pool:     pool,
		sessions: make(map[string][]types.ConversationTurn),
	}
}

// History returns a copy of the session's turns in order.
func (s *Service) History(sessionID string) []types.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.sessions[sessionID]
	out := make([]types.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}

// Ask runs one conversational turn. For modify tasks the response is parsed
// for a full html/css replacement and attached as a pending modification;
// it is never applied to the caller's project here.
func (s *Service) Ask(ctx context.Context, sessionID, message string, task provider.TaskType, pageHTML, pageCSS string) (*types.ConversationTurn, error) {
	if s.pool.Size() == 0 {
		return nil, ErrNoCredentials
	}

	var promptText string
	switch task {
	case provider.TaskModify:
		promptText = prompts.ChatModifyPrompt(message, pageHTML, pageCSS)
	default:
		promptText = prompts.ChatContextPrompt(message, pageHTML, pageCSS)
	}

	history := s.History(sessionID)

	var (
		raw     string
		err     error
		lastKey string
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		key, ok := s.pool.Select(lastKey)
		if !ok {
			key, ok = s.pool.Select("")
		}
		if !ok {
			return nil, ErrNoCredentials
		}
		lastKey = key

		raw, err = s.client.Chat(ctx, provider.Request{
			Credential:  key,
			Prompt:      promptText,
			System:      prompts.SystemChat,
			Temperature: 0.7,
			MaxTokens:   4096,
		}, task, history)
		if err == nil {
			break
		}
		var rl *provider.RateLimitError
		if errors.As(err, &rl) {
			s.pool.MarkFailed(rl.Credential)
		}
		if !utils.ShouldRetry(err) {
			break
		}
		log.Printf("Chat attempt %d/%d failed: %v", attempt, maxAttempts, err)
	}
	if err != nil {
		return nil, fmt.Errorf("chat turn failed: %w", err)
	}

	reply := types.ConversationTurn{Role: types.RoleAssistant, Content: raw, At: time.Now()}
	if task == provider.TaskModify {
		reply.Modification = extractModification(raw)
	}

	userTurn := types.ConversationTurn{Role: types.RoleUser, Content: message, At: time.Now()}

	s.mu.Lock()
	s.sessions[sessionID] = append(s.sessions[sessionID], userTurn, reply)
	s.mu.Unlock()

	return &reply, nil
}

// extractModification pulls a full html/css replacement out of a modify
// response. A reply without usable code yields no pending modification.
func extractModification(raw string) *types.PendingModification {
	flat := parse.ParseFlat(raw)
	if flat.HTML == "" && flat.CSS == "" {
		return nil
	}
	return &types.PendingModification{HTML: flat.HTML, CSS: flat.CSS}
}
