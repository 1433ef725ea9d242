package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"AgriPolicy/internal/agent"
	"AgriPolicy/internal/config"
	"AgriPolicy/internal/embedding"
	"AgriPolicy/internal/indicator"
	"AgriPolicy/internal/llm"
	"AgriPolicy/internal/rag/index"
	"AgriPolicy/internal/rag/interfaces"
	"AgriPolicy/internal/rag/loaders"
	"AgriPolicy/internal/rag/pipeline"
	"AgriPolicy/internal/rag/splitters"
	httpclient "AgriPolicy/pkg/http"
	"AgriPolicy/pkg/httpmiddleware"
	"AgriPolicy/pkg/logger"
	"AgriPolicy/pkg/ratelimiter"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize Logger
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New(cfg.App.Name, "")
	appLogger.Info("Starting policy service...")

	// 3. Initialize providers
	embedder, err := embedding.NewModel(cfg.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}
	generator, err := llm.NewClient(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	// 4. Initialize the index and pipelines
	store, err := index.NewStore(cfg.Index.Path)
	if err != nil {
		log.Fatalf("Failed to open index store: %v", err)
	}
	defer store.Close()

	idx := index.New(store, embedder, appLogger)
	if _, err := idx.Load(context.Background()); err != nil {
		// A missing or corrupt snapshot is not fatal at startup: the
		// index endpoint rebuilds it.
		appLogger.WithError(err).Warn("no usable index snapshot, reindex required")
	}

	chunker, err := splitters.NewTokenSplitter(cfg.Chunking.WindowTokens, cfg.Chunking.OverlapTokens)
	if err != nil {
		log.Fatalf("Failed to create splitter: %v", err)
	}

	var objectStore interfaces.Loader
	if cfg.MinIO.Enabled {
		osl, err := loaders.NewObjectStoreLoader(cfg.MinIO)
		if err != nil {
			log.Fatalf("Failed to create object store loader: %v", err)
		}
		objectStore = osl
	}

	indexing := pipeline.NewIndexingPipeline(chunker, idx, objectStore, appLogger)
	retrieval := pipeline.NewRetrievalPipeline(embedder, idx, cfg.Retrieval, appLogger)

	// 5. Initialize the indicator client
	catalog, err := indicator.LoadCatalog(cfg.Indicator.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load indicator catalog: %v", err)
	}
	areas, err := indicator.LoadAreas(cfg.Indicator.AreasPath)
	if err != nil {
		log.Fatalf("Failed to load area list: %v", err)
	}

	outbound, err := httpclient.NewClient(cfg.Middleware.CircuitBreaker)
	if err != nil {
		log.Fatalf("Failed to create outbound HTTP client: %v", err)
	}
	var limiter ratelimiter.RateLimiter
	if cfg.Middleware.RateLimiter.Enabled {
		limiter = ratelimiter.NewTokenBucket(
			cfg.Middleware.RateLimiter.TokenBucket.Rate,
			cfg.Middleware.RateLimiter.TokenBucket.Capacity,
		)
	}
	source := indicator.NewSDMXSource(cfg.Indicator.SDMX, outbound, limiter)

	var cache indicator.Cache
	if cfg.Indicator.Redis.Enabled {
		cache, err = indicator.NewRedisCache(cfg.Indicator.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		appLogger.Info("Using Redis indicator cache")
	} else {
		cache = indicator.NewMemoryCache()
	}

	indicators := indicator.NewClient(
		catalog, source, cache,
		config.Duration(cfg.Indicator.CacheTTL, 6*time.Hour),
		cfg.Indicator.RetryAttempts,
		config.Duration(cfg.Indicator.RetryBackoff, 500*time.Millisecond),
		appLogger,
	)

	// 6. Create the orchestrator and HTTP surface
	orchestrator := agent.NewOrchestrator(retrieval, indicators, catalog, areas, generator, appLogger)
	handler := newHandler(orchestrator, indexing, catalog, appLogger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", handler.health)
	api := router.Group("/api/v1")
	if cfg.Middleware.RateLimiter.Enabled {
		// The API gets its own bucket: inbound traffic and outbound
		// SDMX calls must not drain each other's tokens.
		api.Use(httpmiddleware.RateLimit(ratelimiter.NewTokenBucket(
			cfg.Middleware.RateLimiter.TokenBucket.Rate,
			cfg.Middleware.RateLimiter.TokenBucket.Capacity,
		)))
	}
	{
		api.POST("/answer", handler.answer)
		api.POST("/index", handler.indexDocuments)
		api.GET("/indicators", handler.listIndicators)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	// 7. Serve until a shutdown signal arrives
	go func() {
		appLogger.WithField("address", cfg.Server.Address).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		config.Duration(cfg.Server.ShutdownTimeout, 10*time.Second))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("forced shutdown")
	}
	appLogger.Info("Server stopped")
}
