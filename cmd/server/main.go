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

	"solbot-backend/internal/api"
	"solbot-backend/internal/config"
	"solbot-backend/internal/handlers"
	"solbot-backend/internal/llm"
	"solbot-backend/internal/scaffolding"
	"solbot-backend/internal/services"
	"solbot-backend/internal/store"
	"solbot-backend/internal/store/memory"
	"solbot-backend/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	log.Println("Starting SoLBot Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize Store
	// With DATABASE_URL: Postgres wrapped with an in-memory fallback so a
	// database outage degrades durability, not tutoring. Without: memory only.
	var appStore store.Store
	if cfg.DatabaseURL != "" {
		dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dbCancel()

		dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
		}
		defer dbpool.Close()

		if err := dbpool.Ping(dbCtx); err != nil {
			log.Fatalf("FATAL: Unable to ping database: %v\n", err)
		}
		log.Println("Database connection pool established and pinged successfully.")

		appStore = store.WithFallback(postgres.NewPostgresStore(dbpool), memory.NewMemoryStore())
		log.Println("Postgres store initialized with in-memory fallback.")
	} else {
		appStore = memory.NewMemoryStore()
		log.Println("In-memory store initialized.")
	}

	// 3. Initialize Dependencies (LLM client, Services, Handlers)
	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.AnthropicAPIKey,
		Model:          cfg.AnthropicModel,
		BaseURL:        cfg.LLMBaseURL,
		MaxRetries:     cfg.LLMMaxRetries,
		RetryBackoff:   cfg.LLMRetryBackoff,
		AttemptTimeout: cfg.LLMTimeout,
		CacheTTL:       cfg.LLMCacheTTL,
		CacheSize:      cfg.LLMCacheSize,
	}, appStore)
	log.Println("LLM client initialized.")

	resolver := scaffolding.NewResolver(appStore)

	chatService := services.NewChatService(appStore, llmClient, resolver, services.ChatServiceConfig{
		Temperature:      cfg.LLMTemperature,
		MaxTokens:        cfg.LLMMaxTokens,
		ResponseCacheTTL: cfg.ResponseTTL,
	})
	log.Println("ChatService initialized.")
	userDataService := services.NewUserDataService(appStore)
	log.Println("UserDataService initialized.")

	chatHandler := handlers.NewChatHandlers(chatService)
	userDataHandler := handlers.NewUserDataHandlers(userDataService)

	// 4. Setup Router & Inject Dependencies
	router := api.NewRouter(api.RouterDependencies{
		ChatHandler:     chatHandler,
		UserDataHandler: userDataHandler,
		Config:          cfg,
	})
	log.Println("HTTP router configured.")

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// WriteTimeout must cover the model call plus retries.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
	}

	log.Println("Server shutdown complete.")
}
