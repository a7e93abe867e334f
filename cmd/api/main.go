package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jwebster45206/mystery-engine/internal/config"
	"github.com/jwebster45206/mystery-engine/internal/engine"
	"github.com/jwebster45206/mystery-engine/internal/handlers"
	"github.com/jwebster45206/mystery-engine/internal/logger"
	"github.com/jwebster45206/mystery-engine/internal/middleware"
	"github.com/jwebster45206/mystery-engine/internal/services"
	"github.com/jwebster45206/mystery-engine/internal/storage"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting Mystery Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"provider", cfg.Provider,
		"storage", cfg.StorageBackend)

	var remote services.GenerationProvider
	switch cfg.Provider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			log.Error("Gemini API key is required when using gemini provider")
			os.Exit(1)
		}
		remote = services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, log)
		log.Info("Using Gemini generation provider", "model", cfg.GeminiModel)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Error("OpenAI API key is required when using openai provider")
			os.Exit(1)
		}
		remote = services.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel, log)
		log.Info("Using OpenAI generation provider", "model", cfg.OpenAIModel)
	case "local":
		log.Info("Using local deterministic generation provider")
	default:
		log.Error("Invalid generation provider specified",
			"provider", cfg.Provider, "supported", []string{"gemini", "openai", "local"})
		os.Exit(1)
	}

	// Decorator chain: retry around the remote backend, local fallback
	// on exhaustion.
	var provider services.GenerationProvider
	if remote != nil {
		provider = services.NewRetryProvider(remote, services.RetryPolicy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
		}, log)
		if cfg.FallbackLocal {
			provider = services.NewFallbackProvider(provider, services.NewLocalProvider(time.Now().UnixNano()), log)
		}
	} else {
		provider = services.NewLocalProvider(time.Now().UnixNano())
	}

	var store storage.Storage
	switch cfg.StorageBackend {
	case "redis":
		redisStore := storage.NewRedisStorage(cfg.RedisURL, log)
		storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := redisStore.WaitForConnection(storageCtx); err != nil {
			storageCancel()
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		storageCancel()
		store = redisStore
	case "sqlite":
		sqliteStore, err := storage.NewSQLiteStorage(cfg.SQLitePath, log)
		if err != nil {
			log.Error("Failed to open SQLite storage", "error", err)
			os.Exit(1)
		}
		store = sqliteStore
	default:
		log.Error("Invalid storage backend specified",
			"backend", cfg.StorageBackend, "supported", []string{"redis", "sqlite"})
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	eng := engine.New(store, provider, cfg.MaxQuestions, log)

	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler(store, log))

	gameHandler := handlers.NewGameHandler(eng, log)
	mux.Handle("/api/game/", gameHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
