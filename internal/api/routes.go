package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes sets up the API endpoints and groups them logically.
func RegisterRoutes(router *gin.Engine, h *APIHandler) {

	// --- Page Generation ---
	pageGroup := router.Group("/page")
	{
		pageGroup.POST("/optimize", h.OptimizePrompt) // Elaborate a prompt into prose + design spec
		pageGroup.POST("/generate", h.GeneratePage)   // Generate flat HTML/CSS or a multi-file scaffold
	}

	// --- Code-Analysis Chat ---
	chatGroup := router.Group("/chat")
	{
		chatGroup.POST("/:sessionId", h.ChatTurn)
		chatGroup.GET("/:sessionId/history", h.ChatHistory)
	}

	// --- Session Sync ---
	sessionGroup := router.Group("/session")
	{
		sessionGroup.POST("/:id/sync", h.SyncSession)
		sessionGroup.GET("/:id", h.RetrieveSession)
	}

	// --- Simple Health Check ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
