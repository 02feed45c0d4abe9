package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"arahkarir/internal/api/middleware"
	"arahkarir/internal/auth"
	"arahkarir/internal/config"
	"arahkarir/internal/oracle"
	"arahkarir/internal/profile"
	"arahkarir/internal/roadmap"
	"arahkarir/internal/storage"
	"arahkarir/internal/visitor"
)

// RegisterRoutes registers the API routes, without an /api prefix.
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
	oracleClient oracle.Client,
	visitors visitor.Store,
) {
	oracleTimeout := cfg.Oracle.Timeout()
	profiles := profile.NewStore(db)
	roadmaps := roadmap.NewManager(db)

	authHandler := NewAuthHandler(
		db, authService, redisClient, logger,
		cfg.Auth.LoginRateLimitPerHour,
		cfg.Auth.LoginLockThreshold,
		cfg.Auth.LoginLockTTL(),
		cfg.Auth.CookieDomain,
	)
	chatHandler := NewChatHandler(db, oracleClient, asynqClient, oracleTimeout)
	testHandler := NewTestHandler(db, oracleClient, profiles, storageClient, oracleTimeout)
	profileHandler := NewProfileHandler(db, profiles, oracleClient, oracleTimeout)
	roadmapHandler := NewRoadmapHandler(roadmaps, oracleClient, oracleTimeout)
	ratingHandler := NewRatingHandler(db)
	statsHandler := NewStatsHandler(visitors)
	wsHandler := NewWsHandler(redisClient, authService, logger, cfg.API.AllowedOrigins)

	authMiddleware := middleware.AuthMiddleware(authService)
	visitorMiddleware := middleware.VisitorTrackingMiddleware(visitors)

	v1 := router.Group("/v1")
	v1.Use(visitorMiddleware)
	{
		v1.GET("/ws", wsHandler.HandleConnection)
		v1.GET("/stats/visitors", statsHandler.ActiveVisitors)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		chatGroup := v1.Group("/chat")
		chatGroup.Use(authMiddleware)
		{
			chatGroup.POST("/messages", chatHandler.SendMessage)
			chatGroup.GET("/messages", chatHandler.GetHistory)
		}

		testGroup := v1.Group("/tests")
		testGroup.Use(authMiddleware)
		{
			testGroup.POST("", testHandler.SubmitTest)
			testGroup.GET("", testHandler.ListTests)
			testGroup.GET("/:id", testHandler.GetTest)
		}

		profileGroup := v1.Group("/profile")
		profileGroup.Use(authMiddleware)
		{
			profileGroup.GET("", profileHandler.GetProfile)
			profileGroup.POST("/summaries", profileHandler.GenerateSummary)
			profileGroup.GET("/summaries", profileHandler.ListSummaries)
		}

		v1.POST("/summaries/:id/rating", authMiddleware, ratingHandler.RateSummary)

		roadmapGroup := v1.Group("/roadmaps")
		roadmapGroup.Use(authMiddleware)
		{
			roadmapGroup.POST("", roadmapHandler.CreateRoadmap)
			roadmapGroup.GET("", roadmapHandler.ListRoadmaps)
			roadmapGroup.GET("/progress", roadmapHandler.OverallProgress)
			roadmapGroup.GET("/:id", roadmapHandler.GetRoadmap)
			roadmapGroup.POST("/:id/phases/:index/complete", roadmapHandler.CompletePhase)
			roadmapGroup.POST("/:id/skills/complete", roadmapHandler.CompleteSkill)
		}
	}
}
