package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Vampire-Chan/VideoVerse/internal/config"
	"github.com/Vampire-Chan/VideoVerse/internal/entity"
	"github.com/Vampire-Chan/VideoVerse/internal/jobs"
	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"github.com/Vampire-Chan/VideoVerse/internal/middleware"
	"github.com/Vampire-Chan/VideoVerse/internal/realtime"
	"github.com/Vampire-Chan/VideoVerse/internal/session"
	"github.com/Vampire-Chan/VideoVerse/pkg/ratelimiter"
	"github.com/Vampire-Chan/VideoVerse/pkg/storage"

	adminHttp "github.com/Vampire-Chan/VideoVerse/internal/modules/admin/delivery/http"
	adminRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/admin/repository"
	adminService "github.com/Vampire-Chan/VideoVerse/internal/modules/admin/service"

	commentHttp "github.com/Vampire-Chan/VideoVerse/internal/modules/comment/delivery/http"
	commentRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/comment/repository"
	commentService "github.com/Vampire-Chan/VideoVerse/internal/modules/comment/service"

	notifHttp "github.com/Vampire-Chan/VideoVerse/internal/modules/notification/delivery/http"
	notifRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/notification/repository"
	notifService "github.com/Vampire-Chan/VideoVerse/internal/modules/notification/service"

	reactionHttp "github.com/Vampire-Chan/VideoVerse/internal/modules/reaction/delivery/http"
	reactionRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/reaction/repository"
	reactionService "github.com/Vampire-Chan/VideoVerse/internal/modules/reaction/service"

	searchService "github.com/Vampire-Chan/VideoVerse/internal/modules/search/service"

	streamingHttp "github.com/Vampire-Chan/VideoVerse/internal/modules/streaming/delivery/http"

	studioHttp "github.com/Vampire-Chan/VideoVerse/internal/modules/studio/delivery/http"
	studioRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/studio/repository"
	studioService "github.com/Vampire-Chan/VideoVerse/internal/modules/studio/service"

	userHttp "github.com/Vampire-Chan/VideoVerse/internal/modules/user/delivery/http"
	userRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/user/repository"
	userService "github.com/Vampire-Chan/VideoVerse/internal/modules/user/service"

	videoHttp "github.com/Vampire-Chan/VideoVerse/internal/modules/video/delivery/http"
	videoRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/video/repository"
	videoService "github.com/Vampire-Chan/VideoVerse/internal/modules/video/service"

	watchHttp "github.com/Vampire-Chan/VideoVerse/internal/modules/watch/delivery/http"
	watchRepo "github.com/Vampire-Chan/VideoVerse/internal/modules/watch/repository"
	watchService "github.com/Vampire-Chan/VideoVerse/internal/modules/watch/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg         *config.Config
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client

	hub       *realtime.Hub
	broker    *realtime.RedisBroker
	scheduler *jobs.Scheduler
}

// NewServer wires every module. redisClient may be nil: sessions, orphan
// tracking and realtime fan-out then stay in process and rate limiting is
// off.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	media, err := storage.NewCloudinaryStorage(storage.DefaultBreakerConfig())
	if err != nil {
		return nil, err
	}

	var index searchService.VideoIndex = searchService.Disabled{}
	if cfg.MeiliSearchHost != "" {
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		index = searchService.NewMeiliVideoIndex(meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey)))
	} else {
		logging.Warn().Msg("MEILISEARCH_HOST not set, search falls back to SQL")
	}

	hub := realtime.NewHub()
	var publisher realtime.Publisher = hub
	var broker *realtime.RedisBroker

	var sessions session.Store
	var orphans storage.OrphanRegistry
	if redisClient != nil {
		broker = realtime.NewRedisBroker(redisClient, hub)
		publisher = broker
		sessions = session.NewRedisStore(redisClient)
		orphans = storage.NewRedisOrphans(redisClient)
	} else {
		logging.Warn().Msg("redis not configured, running single-instance")
		sessions = session.NewMemoryStore()
		orphans = storage.LogOrphans{}
	}
	limiter := ratelimiter.New(redisClient)

	users := userRepo.NewUserRepository(db)
	videos := videoRepo.NewVideoRepository(db)
	comments := commentRepo.NewCommentRepository(db)
	watches := watchRepo.NewWatchRepository(db)

	resolver, err := notifService.NewResolver(map[entity.ReferentKind]notifService.LookupFunc{
		entity.ReferentVideo: func(ctx context.Context, id uuid.UUID) (any, error) {
			return videos.FindByID(ctx, id)
		},
		entity.ReferentComment: func(ctx context.Context, id uuid.UUID) (any, error) {
			return comments.FindByID(ctx, id)
		},
	})
	if err != nil {
		return nil, err
	}
	notificationSvc := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), publisher, resolver)
	notificationHandler := notifHttp.NewNotificationHandler(notificationSvc)

	tokens := userService.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	github := userService.NewGitHubProvider(userService.GitHubConfig{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		CallbackURL:  cfg.GitHubCallbackURL,
	})

	authSvc := userService.NewAuthService(users, tokens, github)
	authHandler := userHttp.NewAuthHandler(authSvc, userHttp.SessionConfig{
		Store:       sessions,
		TTL:         cfg.SessionTTL,
		Secure:      cfg.IsProduction(),
		FrontendURL: cfg.FrontendURL,
	})

	profileSvc := userService.NewProfileService(users, videos, watches, media, tokens)
	userHandler := userHttp.NewUserHandler(profileSvc)

	watchSvc := watchService.NewWatchService(watches, users)
	watchHandler := watchHttp.NewWatchHandler(watchSvc)

	reactionSvc := reactionService.NewReactionService(reactionRepo.NewReactionRepository(db), videos, publisher)
	reactionHandler := reactionHttp.NewReactionHandler(reactionSvc)

	videoSvc := videoService.NewVideoService(
		videos, users, watches, reactionSvc, notificationSvc, index, media, orphans, publisher, limiter,
		videoService.Options{Folder: cfg.CloudinaryUploadFolder, UploadWindow: cfg.RateLimitUpload},
	)
	videoHandler := videoHttp.NewVideoHandler(videoSvc, cfg.MaxUploadMB<<20)

	commentSvc := commentService.NewCommentService(comments, videos, users, notificationSvc, publisher, limiter, cfg.RateLimitComment)
	commentHandler := commentHttp.NewCommentHandler(commentSvc)

	studioSvc := studioService.NewStudioService(studioRepo.NewStudioRepository(db))
	studioHandler := studioHttp.NewStudioHandler(studioSvc)

	adminSvc := adminService.NewAdminService(adminRepo.NewAdminRepository(db), videoSvc, media)
	adminHandler := adminHttp.NewAdminHandler(adminSvc)

	streamingHandler := streamingHttp.NewStreamingHandler(cfg.VideoDir)
	wsHandler := realtime.NewHandler(hub, cfg.AllowedOrigins)

	scheduler := jobs.NewScheduler()
	for _, job := range []jobs.Job{
		jobs.NewOrphanReconciler(orphans, media),
		jobs.NewSessionCleanup(sessions),
	} {
		if err := scheduler.Register(job); err != nil {
			return nil, err
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	setupCORS(router, cfg.AllowedOrigins)
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())

	authMw := middleware.NewAuthMiddleware(tokens, sessions)
	guard := middleware.NewGuard(users, videos, comments)
	authed := middleware.Require(middleware.Authenticated)

	router.GET("/healthz", healthz(db, redisClient))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", authMw.OptionalAuth(), wsHandler.Serve)

	api := router.Group("/api")
	api.Use(authMw.OptionalAuth())

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/status", authHandler.Status)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/github", authHandler.GitHubLogin)
		auth.GET("/github/callback", authHandler.GitHubCallback)
	}

	videoGroup := api.Group("/videos")
	{
		videoGroup.GET("", videoHandler.List)
		videoGroup.GET("/search", videoHandler.Search)
		videoGroup.GET("/suggestions", videoHandler.Suggestions)
		videoGroup.GET("/user/:userId", videoHandler.ListByUser)
		videoGroup.POST("/upload", middleware.Require(middleware.Authenticated, guard.Creator()), videoHandler.Upload)

		videoGroup.GET("/:id", videoHandler.Get)
		videoGroup.POST("/:id/view", videoHandler.RecordView)
		videoGroup.GET("/:id/signed-url", authed, videoHandler.SignedURL)
		videoGroup.PUT("/:id", middleware.Require(middleware.Authenticated, guard.OwnsVideo("id")), videoHandler.Update)
		videoGroup.DELETE("/:id", middleware.Require(middleware.Authenticated, guard.OwnsVideo("id")), videoHandler.Delete)

		videoGroup.POST("/:id/like", authed, reactionHandler.Like)
		videoGroup.POST("/:id/dislike", authed, reactionHandler.Dislike)

		videoGroup.GET("/:id/comments", commentHandler.GetComments)
		videoGroup.POST("/:id/comments", authed, commentHandler.CreateComment)
		videoGroup.PUT("/comments/:commentId", middleware.Require(middleware.Authenticated, guard.OwnsComment("commentId")), commentHandler.UpdateComment)
		videoGroup.DELETE("/comments/:commentId", middleware.Require(middleware.Authenticated, guard.OwnsComment("commentId")), commentHandler.DeleteComment)
	}

	userGroup := api.Group("/users")
	{
		userGroup.PUT("/profile", authed, userHandler.UpdateProfile)
		userGroup.POST("/activate-channel", authed, userHandler.ActivateChannel)
		userGroup.GET("/:id", userHandler.GetChannel)
		watchHandler.RegisterRoutes(userGroup, authed)
	}

	api.GET("/studio/my-videos", authed, studioHandler.MyVideos)

	notifications := api.Group("/notifications", authed)
	{
		notifications.GET("", notificationHandler.GetNotifications)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.PUT("/read-all", notificationHandler.MarkAllAsRead)
		notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
		notifications.GET("/:id/referent", notificationHandler.Referent)
	}

	api.GET("/streaming/:videoId", streamingHandler.Stream)

	admin := api.Group("/admin", middleware.Require(middleware.Authenticated, guard.Admin()))
	{
		admin.GET("/users", adminHandler.GetAllUsers)
		admin.GET("/videos", adminHandler.GetAllVideos)
		admin.GET("/comments", adminHandler.GetAllComments)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)
		admin.DELETE("/videos/:id", adminHandler.DeleteVideo)
		admin.DELETE("/comments/:id", adminHandler.DeleteComment)
	}

	return &Server{
		cfg:         cfg,
		engine:      router,
		db:          db,
		redisClient: redisClient,
		hub:         hub,
		broker:      broker,
		scheduler:   scheduler,
	}, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then stops the background loops and
// drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		if err := s.hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("realtime hub stopped")
		}
	}()
	if s.broker != nil {
		go func() {
			if err := s.broker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("realtime broker stopped")
			}
		}()
	}
	s.scheduler.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func healthz(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"database": "ok"}
		code := http.StatusOK

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["database"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
		if rdb != nil {
			status["redis"] = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				status["redis"] = "unreachable"
				code = http.StatusServiceUnavailable
			}
		}
		c.JSON(code, status)
	}
}

func setupCORS(router *gin.Engine, origins []string) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Range"},
		ExposeHeaders:    []string{"Content-Length", "Content-Range", "Accept-Ranges", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
