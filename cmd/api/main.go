package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/ai"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/handler"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/middleware"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/repository"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/service"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/cache"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/config"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/database"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/logger"
	corsmiddleware "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/middleware/cors"
	reqidmiddleware "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, goal progress cache disabled", zap.Error(err))
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, validate, logr)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, requestRepo, cfg.Requests.PendingTTL, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, validate, logr)
	goalSvc := service.NewGoalService(goalRepo, cacheRepo, cfg.Goals.CacheTTL, cfg.Goals.ClampToTarget, metricsSvc, validate, logr)

	fallback := service.NewLeastLoadedScorer(logr)
	var scorer service.CandidateScorer = fallback
	if cfg.Matching.AssistedEnabled {
		ranker := ai.NewClient(cfg.AI, logr)
		scorer = service.NewAssistedScorer(ranker, fallback, cfg.Matching.ScorerTimeout, metricsSvc, logr)
	}
	matchingSvc := service.NewMatchingService(
		availabilityRepo,
		requestRepo,
		lessonRepo,
		scorer,
		cfg.Video.MeetingBaseURL,
		cfg.Matching.DefaultDuration,
		metricsSvc,
		validate,
		logr,
	)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if _, err := availabilitySvc.ExpirePending(sweepCtx); err != nil {
					logr.Warn("availability request sweep failed", zap.Error(err))
				}
			}
		}
	}()

	authHandler := handler.NewAuthHandler(authSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	matchingHandler := handler.NewMatchingHandler(matchingSvc)
	lessonHandler := handler.NewLessonHandler(lessonSvc)
	goalHandler := handler.NewGoalHandler(goalSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	teachers := authed.Group("/teachers", middleware.RequireRole(models.RoleTeacher))
	teachers.POST("/:id/availability", availabilityHandler.CreateSlot)
	teachers.GET("/:id/availability", availabilityHandler.ListSlots)
	teachers.DELETE("/:id/availability/:sid", availabilityHandler.DeleteSlot)

	authed.POST("/availability-requests", availabilityHandler.CreateRequest)
	authed.GET("/availability-requests", availabilityHandler.ListRequests)
	authed.POST("/availability-requests/:id/match", matchingHandler.MatchScheduled)
	authed.POST("/matches/instant", matchingHandler.MatchInstant)

	authed.GET("/lessons", lessonHandler.List)
	authed.GET("/lessons/:id", lessonHandler.Get)
	authed.POST("/lessons/:id/start", lessonHandler.Start)
	authed.POST("/lessons/:id/complete", lessonHandler.Complete)
	authed.POST("/lessons/:id/cancel", lessonHandler.Cancel)
	authed.PUT("/lessons/:id/video-link", middleware.RequireRole(models.RoleTeacher), lessonHandler.UpdateVideoLink)

	authed.POST("/goals", middleware.RequireRole(models.RoleTeacher), goalHandler.Create)
	authed.GET("/goals", goalHandler.ListByGroup)
	authed.GET("/goals/:id/progress", goalHandler.Progress)
	authed.POST("/goals/:id/progress/:studentId/recompute", goalHandler.Recompute)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "assisted_scorer", cfg.Matching.AssistedEnabled)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
