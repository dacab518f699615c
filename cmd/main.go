package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"pageforge_ai_server/config"
	"pageforge_ai_server/internal/ai/chat"
	"pageforge_ai_server/internal/ai/keypool"
	"pageforge_ai_server/internal/ai/optimizer"
	"pageforge_ai_server/internal/ai/provider"
	"pageforge_ai_server/internal/ai/router"
	"pageforge_ai_server/internal/api"
	"pageforge_ai_server/internal/session"
	"pageforge_ai_server/internal/store"
	"pageforge_ai_server/internal/vision"
)

func main() {
	// Load .env before viper so file-provided variables are visible to it.
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		} else {
			log.Println("Info: .env file not found, relying on system environment variables.")
		}
	} else {
		log.Println("Info: Loaded environment variables from .env file.")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	// --- Dependency Initialization ---
	visionPool := keypool.New(cfg.GeminiKeys())
	fastPool := keypool.New(cfg.GroqKeys())
	log.Printf("Credential pools: vision=%d fast=%d", visionPool.Size(), fastPool.Size())

	visionClient := provider.NewGeminiClient(cfg.GeminiEndpoint, cfg.GeminiModel)
	fastClient := provider.NewGroqClient(cfg.GroqBaseURL, cfg.GroqModel)

	var extractor vision.Extractor
	if cfg.VisionFeatureEndpoint != "" {
		extractor = vision.NewClient(cfg.VisionFeatureEndpoint)
	} else {
		log.Println("Info: VISION_FEATURE_ENDPOINT not set; image requests use the default design spec.")
	}

	promptOptimizer := optimizer.New(visionClient, visionPool)
	genRouter := router.New(visionClient, fastClient, visionPool, fastPool, extractor)
	chatService := chat.NewService(fastClient, fastPool)

	var sessionClient *session.Client
	if cfg.SessionSyncURL != "" {
		sessionClient = session.NewClient(cfg.SessionSyncURL, cfg.SessionSyncKey)
	} else {
		log.Println("Info: SESSION_SYNC_URL not set; sessions are cached locally only.")
	}

	projects := store.NewMemory()

	apiHandler := api.NewAPIHandler(promptOptimizer, genRouter, chatService, sessionClient, projects)

	// --- Start API Server ---
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
		log.Println("Running in Gin Debug Mode")
	}

	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())

	api.RegisterRoutes(engine, apiHandler)

	server := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: engine,
		// Generation calls are slow; the write timeout has to cover a full
		// provider round trip plus retries.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting API server on %s\n", cfg.ServerAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server listen error: %s\n", err)
		}
		log.Println("API server has stopped listening.")
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received signal: %s. Shutting down server...", sig)

	shutdownCtx, serverCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer serverCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("API server forced shutdown error: %v", err)
	} else {
		log.Println("API server gracefully stopped.")
	}

	log.Println("Application exiting.")
}
