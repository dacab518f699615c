package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pageforge_ai_server/internal/ai/chat"
	"pageforge_ai_server/internal/ai/optimizer"
	"pageforge_ai_server/internal/ai/provider"
	"pageforge_ai_server/internal/ai/router"
	"pageforge_ai_server/internal/session"
	"pageforge_ai_server/internal/store"
	"pageforge_ai_server/internal/types"
)

// APIHandler holds dependencies for API endpoints.
type APIHandler struct {
	optimizer   *optimizer.Optimizer
	router      *router.Router
	chatService *chat.Service
	sessions    *session.Client
	projects    store.Store
}

// NewAPIHandler initializes a new API handler with its dependencies.
// sessions may be nil when no sync service is configured.
func NewAPIHandler(
	opt *optimizer.Optimizer,
	gen *router.Router,
	chatSvc *chat.Service,
	sessions *session.Client,
	projects store.Store,
) *APIHandler {
	return &APIHandler{
		optimizer:   opt,
		router:      gen,
		chatService: chatSvc,
		sessions:    sessions,
		projects:    projects,
	}
}

// --- Structs for API Requests/Responses ---

type OptimizeRequest struct {
	Prompt string        `json:"prompt" binding:"required"`
	Assets []types.Asset `json:"assets"`
}

type OptimizeResponse struct {
	Text       string            `json:"text"`
	DesignSpec *types.DesignSpec `json:"designSpec"`
}

type GenerateRequest struct {
	Prompt     string            `json:"prompt" binding:"required"`
	Assets     []types.Asset     `json:"assets"`
	Mode       types.OutputMode  `json:"mode"`
	DesignSpec *types.DesignSpec `json:"designSpec"`
}

type GenerateResponse struct {
	ProjectID string                  `json:"projectId"`
	Result    *types.GenerationResult `json:"result"`
}

type ChatRequest struct {
	Message string            `json:"message" binding:"required"`
	Task    provider.TaskType `json:"task"`
	HTML    string            `json:"html"`
	CSS     string            `json:"css"`
}

// --- API Handlers ---

// POST /page/optimize
func (h *APIHandler) OptimizePrompt(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	res, err := h.optimizer.Optimize(c.Request.Context(), req.Prompt, req.Assets)
	if err != nil {
		var exhausted *optimizer.ExhaustedError
		switch {
		case errors.Is(err, optimizer.ErrNoCredentials):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No provider credentials configured"})
		case errors.As(err, &exhausted):
			log.Printf("Optimize exhausted: %v", err)
			// Only the structured half is mandatory; hand back whatever prose
			// was salvaged so the UI has something to show.
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "Prompt optimization failed",
				"text":  exhausted.BestText,
			})
		default:
			log.Printf("Optimize error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Prompt optimization failed"})
		}
		return
	}

	c.JSON(http.StatusOK, OptimizeResponse{Text: res.Text, DesignSpec: res.Spec})
}

// POST /page/generate
func (h *APIHandler) GeneratePage(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.Mode == "" {
		req.Mode = types.ModeFlat
	}
	if req.Mode != types.ModeFlat && req.Mode != types.ModeMultiFile {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be 'flat' or 'multiFile'"})
		return
	}

	projectID := uuid.New().String()
	log.Printf("Generation request %s: mode=%s assets=%d", projectID, req.Mode, len(req.Assets))

	result := h.router.Generate(c.Request.Context(), req.Prompt, req.Assets, req.Mode, req.DesignSpec)
	if !result.Success {
		log.Printf("Generation request %s failed: %s", projectID, result.Error)
		c.JSON(http.StatusBadGateway, GenerateResponse{ProjectID: projectID, Result: result})
		return
	}

	log.Printf("Generation request %s succeeded via %s on attempt %d", projectID, result.ProviderUsed, result.Attempts)
	c.JSON(http.StatusCreated, GenerateResponse{ProjectID: projectID, Result: result})
}

// POST /chat/:sessionId
func (h *APIHandler) ChatTurn(c *gin.Context) {
	sessionID := c.Param("sessionId")
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.Task == "" {
		req.Task = provider.TaskExplain
	}

	turn, err := h.chatService.Ask(c.Request.Context(), sessionID, req.Message, req.Task, req.HTML, req.CSS)
	if err != nil {
		if errors.Is(err, chat.ErrNoCredentials) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No provider credentials configured"})
			return
		}
		log.Printf("Chat turn failed for session %s: %v", sessionID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Chat request failed"})
		return
	}

	c.JSON(http.StatusOK, turn)
}

// GET /chat/:sessionId/history
func (h *APIHandler) ChatHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"turns": h.chatService.History(c.Param("sessionId"))})
}

// POST /session/:id/sync
func (h *APIHandler) SyncSession(c *gin.Context) {
	id := c.Param("id")
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable request body"})
		return
	}
	var blob session.Blob
	if err := json.Unmarshal(raw, &blob); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session blob: " + err.Error()})
		return
	}
	blob.LastActive = time.Now().UTC()

	if err := h.projects.Put("session/"+id, raw); err != nil {
		log.Printf("WARN: local session cache write failed for %s: %v", id, err)
	}

	if h.sessions == nil {
		c.JSON(http.StatusOK, gin.H{"synced": false, "message": "No sync service configured; cached locally."})
		return
	}
	if err := h.sessions.Sync(c.Request.Context(), id, &blob); err != nil {
		log.Printf("Session sync failed for %s: %v", id, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Session sync failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": true})
}

// GET /session/:id
func (h *APIHandler) RetrieveSession(c *gin.Context) {
	id := c.Param("id")

	if h.sessions != nil {
		blob, err := h.sessions.Retrieve(c.Request.Context(), id)
		if err == nil {
			c.JSON(http.StatusOK, blob)
			return
		}
		if !errors.Is(err, session.ErrSessionNotFound) {
			log.Printf("Session retrieve failed for %s: %v", id, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Session retrieval failed"})
			return
		}
	}

	// Remote miss or no remote: try the local cache.
	raw, err := h.projects.Get("session/" + id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}
