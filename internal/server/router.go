package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/argo-backend/internal/handlers"
)

type RouterConfig struct {
	DiscussionHandler *handlers.DiscussionHandler
	ContactHandler    *handlers.ContactHandler
	AdminHandler      *handlers.AdminHandler
	ReadinessHandler  *handlers.ReadinessHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Probes
	router.GET("/healthcheck", handlers.HealthCheck)
	router.GET("/readyz", cfg.ReadinessHandler.Ready)

	// Discussions
	router.GET("/discussions", cfg.DiscussionHandler.List)
	router.POST("/discussions/start", cfg.DiscussionHandler.Start)
	router.GET("/discussions/:discussion_id", cfg.DiscussionHandler.Get)
	router.DELETE("/discussions/:discussion_id", cfg.DiscussionHandler.Delete)
	router.POST("/discussions/:discussion_id/chat", cfg.DiscussionHandler.Chat)
	router.POST("/discussions/:discussion_id/chat/stream", cfg.DiscussionHandler.ChatStream)

	// Contacts
	router.GET("/contacts", cfg.ContactHandler.List)
	router.GET("/contacts/:contact_id", cfg.ContactHandler.Get)
	router.POST("/contacts/:contact_id/analyze", cfg.ContactHandler.Analyze)

	// Admin
	router.POST("/admin/rebuild_history", cfg.AdminHandler.RebuildHistory)
	router.POST("/admin/clear_analysis_cache", cfg.AdminHandler.ClearAnalysisCache)

	return router
}
