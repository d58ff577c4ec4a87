package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/argo-backend/internal/analysiscache"
	"github.com/yungbote/argo-backend/internal/clients/openai"
	"github.com/yungbote/argo-backend/internal/clients/qdrant"
	goredis "github.com/yungbote/argo-backend/internal/clients/redis"
	"github.com/yungbote/argo-backend/internal/contextbuild"
	"github.com/yungbote/argo-backend/internal/db"
	"github.com/yungbote/argo-backend/internal/handlers"
	"github.com/yungbote/argo-backend/internal/logger"
	"github.com/yungbote/argo-backend/internal/repos"
	"github.com/yungbote/argo-backend/internal/server"
	"github.com/yungbote/argo-backend/internal/services"
	"github.com/yungbote/argo-backend/internal/stream"
	"github.com/yungbote/argo-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Database
	database, err := db.NewDatabaseService(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err = database.AutoMigrateAll(); err != nil {
		log.Warn("Auto migration failed", "error", err)
	}
	theDB := database.DB()

	// Repos
	log.Info("Setting up repos from main...")
	discussionRepo := repos.NewDiscussionRepo(theDB, log)
	messageRepo := repos.NewMessageRepo(theDB, log)
	contactRepo := repos.NewContactRepo(theDB, log)
	contactMessageRepo := repos.NewContactMessageRepo(theDB, log)

	// Clients
	log.Info("Setting up clients from main...")
	aiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}

	var vectorStore qdrant.VectorStore
	qdrantCfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		log.Warn("Qdrant not configured; retrieval runs degraded", "error", err)
	} else {
		vectorStore, err = qdrant.NewVectorStore(log, qdrantCfg)
		if err != nil {
			log.Warn("Could not init Qdrant vector store; retrieval runs degraded", "error", err)
		} else if err := vectorStore.EnsureCollection(context.Background()); err != nil {
			log.Warn("Could not ensure Qdrant collection", "error", err)
		}
	}

	var invalidationBus goredis.InvalidationBus
	if bus, err := goredis.NewInvalidationBus(log); err != nil {
		log.Warn("Invalidation bus unavailable; cache invalidation stays local", "error", err)
	} else {
		invalidationBus = bus
		defer bus.Close()
	}

	// Analysis cache + invalidation forwarding
	cache := analysiscache.New(log)
	if invalidationBus != nil {
		err := invalidationBus.StartForwarder(context.Background(), func(ev goredis.InvalidationEvent) {
			switch ev.Scope {
			case goredis.ScopeKey:
				cache.Invalidate(ev.Key)
			default:
				cache.InvalidateAll()
			}
		})
		if err != nil {
			log.Warn("Could not start invalidation forwarder", "error", err)
		}
	}

	// Context assembly + streaming
	budgetPolicy := contextbuild.LoadBudgetPolicyFromEnv(log)
	streamCfg := stream.LoadConfigFromEnv(log)
	controller := stream.NewController(log, streamCfg)

	// Services
	log.Info("Setting up services from main...")
	ragService := services.NewRAGService(log, aiClient, vectorStore)
	assembler := contextbuild.NewAssembler(
		log,
		budgetPolicy,
		services.NewDiscussionSource(log, messageRepo),
		services.NewChatHistorySource(log, contactMessageRepo),
		ragService,
	)
	discussionService := services.NewDiscussionService(
		theDB,
		log,
		discussionRepo,
		messageRepo,
		ragService,
		aiClient,
		assembler,
		controller,
		streamCfg.MaxMessageChars,
	)
	analysisService := services.NewAnalysisService(log, contactRepo, contactMessageRepo, ragService, aiClient, cache)
	importService := services.NewHistoryImportService(log, contactRepo, contactMessageRepo, aiClient, vectorStore, cache, invalidationBus)
	healthService := services.NewHealthService(log, database, vectorStore)

	// Optional one-time archive load
	if archivePath := utils.GetEnv("CHAT_ARCHIVE_PATH", "", log); archivePath != "" {
		if loaded, err := importService.LoadArchive(context.Background(), archivePath); err != nil {
			log.Warn("Archive load failed", "path", archivePath, "error", err)
		} else {
			log.Info("Archive load finished", "path", archivePath, "contacts", loaded)
		}
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	discussionHandler := handlers.NewDiscussionHandler(log, discussionService)
	contactHandler := handlers.NewContactHandler(log, analysisService)
	adminHandler := handlers.NewAdminHandler(log, importService)
	readinessHandler := handlers.NewReadinessHandler(healthService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		DiscussionHandler: discussionHandler,
		ContactHandler:    contactHandler,
		AdminHandler:      adminHandler,
		ReadinessHandler:  readinessHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
