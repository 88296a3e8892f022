package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/amirhamza8927/aiseo-ai-backend/internal/auth"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/client"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/config"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/handler"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/middleware"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/pipeline"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/quality"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/server"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/service"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/store"
	ws "github.com/amirhamza8927/aiseo-ai-backend/internal/websocket"
	"github.com/amirhamza8927/aiseo-ai-backend/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Redis backs the job store, checkpoints, rate limiting and the queue.
	// Without any of those the service runs fully in memory.
	needsRedis := cfg.Store.Backend == "redis" || cfg.Pipeline.Checkpoints == "redis" || cfg.Pipeline.Async
	var redisClient *redis.Client
	if needsRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis not available: %v", err)
		}
	}

	// Job store
	var jobs *store.Store
	if cfg.Store.Backend == "redis" {
		jobs = store.NewRedisStore(redisClient, time.Duration(cfg.Store.TTLHour)*time.Hour)
	} else {
		jobs = store.NewMemoryStore()
	}

	// Checkpoints
	var checkpoints service.CheckpointStore
	if cfg.Pipeline.Checkpoints == "redis" {
		checkpoints = store.NewRedisCheckpoints(redisClient, time.Duration(cfg.Pipeline.CheckpointTTLHour)*time.Hour)
	} else {
		checkpoints = store.NewMemoryCheckpoints()
	}

	// Initialize external clients
	var generator pipeline.Generator
	llmName := "mock"
	if cfg.LLM.APIKey == "" {
		log.Println("Info: LLM API key not configured, using offline mock generator")
		generator = client.NewMockLLM()
	} else {
		llmClient, err := client.NewLLMClient(&cfg.LLM)
		if err != nil {
			log.Fatalf("Failed to initialize LLM client: %v", err)
		}
		generator = llmClient
		llmName = llmClient.Model()
	}

	var sources pipeline.SourceLister
	if cfg.Serp.Provider == "duckduckgo" {
		sources = client.NewDuckDuckGoClient(&cfg.Serp)
	} else {
		sources = client.NewMockSerpClient()
	}

	// Initialize storage client (optional - articles are not archived without it)
	var artifacts pipeline.ArtifactStore
	if cfg.Storage.Enabled() {
		r2Client, err := client.NewR2Client(&cfg.Storage)
		if err != nil {
			log.Printf("Warning: storage client not initialized: %v", err)
		} else {
			artifacts = r2Client
		}
	} else {
		log.Println("Info: article storage not configured, archiving disabled")
	}

	prompts, err := pipeline.LoadPrompts()
	if err != nil {
		log.Fatalf("Failed to load prompts: %v", err)
	}

	deps := &pipeline.Deps{
		Generator: generator,
		Sources:   sources,
		Artifacts: artifacts,
		Prompts:   prompts,
		Quality: quality.Config{
			WordCountTarget:    cfg.Pipeline.DefaultWordCount,
			WordCountTolerance: cfg.Validation.WordCountTolerance,
			MetaDescriptionMin: cfg.Validation.MetaDescriptionMin,
			MetaDescriptionMax: cfg.Validation.MetaDescriptionMax,
			InternalLinksMin:   cfg.Validation.InternalLinksMin,
			InternalLinksMax:   cfg.Validation.InternalLinksMax,
			ExternalRefsMin:    cfg.Validation.ExternalRefsMin,
			ExternalRefsMax:    cfg.Validation.ExternalRefsMax,
		},
		SourceCount: cfg.Serp.Results,
	}

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	orchestrator := pipeline.NewOrchestrator(deps, jobs, checkpoints, hub)

	var asynqClient *asynq.Client
	if cfg.Pipeline.Async {
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer asynqClient.Close()
	}

	// Initialize services and handlers
	jobService := service.NewJobService(jobs, checkpoints, orchestrator, asynqClient, cfg.Pipeline)
	jobHandler := handler.NewJobHandler(jobService, validator.New())

	// Initialize Zitadel JWKS verifier (optional - falls back to legacy JWT)
	var tokenVerifier auth.TokenVerifier
	if cfg.Zitadel.Issuer != "" {
		jwksVerifier, err := auth.NewJWKSVerifier(&cfg.Zitadel)
		if err != nil {
			log.Printf("Warning: JWKS verifier not initialized: %v", err)
		} else {
			defer jwksVerifier.Close()
			tokenVerifier = jwksVerifier
		}
	}
	authenticator := auth.NewAuthenticator(tokenVerifier, cfg.JWT.Secret)
	authHandler := handler.NewAuthHandler(authenticator)

	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		// Behind Traefik: auth is handled by ForwardAuth, read X-User-* headers
		log.Println("Info: Gateway mode enabled, using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuthMiddleware()
	} else {
		apiAuthMiddleware = middleware.NewAuthMiddleware(authenticator).Authenticate()
	}

	app := server.New(server.Options{
		Jobs:        jobHandler,
		Auth:        authHandler,
		APIAuth:     apiAuthMiddleware,
		RateLimiter: middleware.NewRateLimiter(redisClient),
		JobsPerHour: cfg.RateLimit.JobsPerHour,
		Hub:         hub,
		Services: server.Services{
			LLM:     llmName,
			Serp:    cfg.Serp.Provider,
			Store:   cfg.Store.Backend,
			Queue:   cfg.Pipeline.Async,
			Storage: artifacts != nil,
			Auth:    authenticator.Configured(),
		},
		LogLevel:  cfg.Server.LogLevel,
		AccessLog: true,
	})

	// Start Asynq worker server
	if cfg.Pipeline.Async {
		go startWorkerServer(cfg, jobService)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, jobService *service.JobService) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				service.QueuePipeline: 1,
			},
			LogLevel: asynqLogLevel,
		},
	)

	mux := asynq.NewServeMux()
	worker.NewPipelineWorker(jobService).Register(mux)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}
