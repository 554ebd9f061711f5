// Package main is the application entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/cache"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/config"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/docstore"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/handler"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/index"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/middleware"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/model"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/pipeline"
	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/service"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/chunker"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/database"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/embedding"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/extractor"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/kafka"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/llm"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/log"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/storage"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/tasks"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/token"
)

// rebuildOnIngest turns document-ingest events into background rebuilds.
type rebuildOnIngest struct {
	cacheMgr *cache.Manager
}

func (r *rebuildOnIngest) OnDocumentIngested(ctx context.Context, event tasks.DocumentIngestEvent) {
	r.cacheMgr.ScheduleRebuild(fmt.Sprintf("document ingested: %s", event.Document))
}

func main() {
	// 1. Load configuration
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. Initialize the logger
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("logger initialized")

	// 3. Optional infrastructure: Redis answer cache, MinIO document store
	if cfg.Redis.Addr != "" {
		database.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}

	store, err := docstore.NewStore(cfg.Data.DocumentsDir)
	if err != nil {
		log.Fatalf("failed to open document store: %v", err)
	}

	if cfg.MinIO.Endpoint != "" {
		minioClient, err := storage.NewClient(cfg.MinIO)
		if err != nil {
			log.Warnf("MinIO unavailable, serving local documents only: %v", err)
		} else {
			synced, err := minioClient.SyncTo(context.Background(), store.Dir())
			if err != nil {
				log.Warnf("failed to sync documents from MinIO: %v", err)
			} else {
				log.Infof("synced %d documents from MinIO", synced)
			}
		}
	}

	// 4. Embedding provider: remote when reachable, local fallback otherwise
	provider, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		log.Fatalf("failed to initialize embedding provider: %v", err)
	}
	serialized := embedding.NewSerialized(provider)

	// 5. Vector index; a failure here degrades retrieval to keyword search
	idx, err := index.New(cfg.VectorIndex, cfg.Elasticsearch, cfg.Data.CacheDir, provider.Dimension())
	if err != nil {
		log.Warnf("vector index unavailable, keyword search only: %v", err)
		idx = nil
	}

	// 6. Pipeline and cache manager
	strategy := chunkingStrategy(cfg.Chunking)
	processor := pipeline.NewProcessor(&extractor.PDFExtractor{}, strategy, cfg.Chunking.MinChars, serialized, idx)
	cacheMgr := cache.NewManager(store, processor, idx, cfg.Data.CacheDir)

	if err := cacheMgr.Initialize(context.Background()); err != nil {
		log.Fatalf("system initialization failed: %v", err)
	}

	// 7. Services
	jwtManager := token.NewJWTManager(cfg.Admin.JWTSecret, cfg.Admin.AccessTokenExpireHours)
	llmClient := llm.NewClient(cfg.LLM)
	if llmClient == nil {
		log.Info("no generative service configured, answers are extractive")
	}
	qaService := service.NewQAService(cacheMgr, serialized, llmClient)

	// 8. Background Kafka consumer for ingest events
	if cfg.Kafka.Brokers != "" {
		kafka.InitProducer(cfg.Kafka)
		go kafka.StartConsumer(cfg.Kafka, &rebuildOnIngest{cacheMgr: cacheMgr})
	}

	// 9. Router
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		state := cacheMgr.Progress().State
		status := http.StatusOK
		if state != model.StateValid {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": state})
	})

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/ask", handler.NewAskHandler(qaService).Ask)
		apiV1.GET("/documents", handler.NewDocumentHandler(store, cacheMgr).List)
		apiV1.GET("/stats", handler.NewDocumentHandler(store, cacheMgr).Stats)
		apiV1.GET("/progress", handler.NewDocumentHandler(store, cacheMgr).Progress)

		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", handler.NewAdminHandler(cacheMgr, jwtManager, cfg.Admin).Login)

			guarded := admin.Group("/")
			guarded.Use(middleware.AdminAuth(jwtManager))
			{
				guarded.POST("/initialize", handler.NewAdminHandler(cacheMgr, jwtManager, cfg.Admin).Initialize)
				guarded.POST("/cache/clear", handler.NewAdminHandler(cacheMgr, jwtManager, cfg.Admin).ClearCache)
			}
		}
	}
	r.GET("/ws/ask", handler.NewAskHandler(qaService).StreamAsk)

	// 10. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP server shutdown failed: %v", err)
	}
	log.Info("server stopped")
}

// chunkingStrategy builds the configured strategy; unknown names fall back
// to word windows.
func chunkingStrategy(cfg config.ChunkingConfig) chunker.Strategy {
	window := chunker.WordWindow{ChunkSize: cfg.ChunkSize, Overlap: cfg.Overlap}
	switch cfg.Strategy {
	case "sections":
		return chunker.LegalSection{Fallback: window, MinSectionChars: cfg.MinChars}
	case "", "words":
		return window
	default:
		log.Warnf("unknown chunking strategy '%s', using word windows", cfg.Strategy)
		return window
	}
}
