package main

import (
	"log/slog"
	"net/http"
	"time"

	"kanmind/backend/internal/cache"
	"kanmind/backend/internal/config"
	"kanmind/backend/internal/database"
	"kanmind/backend/internal/handlers"
	"kanmind/backend/internal/middleware"
	"kanmind/backend/internal/monitoring"
	"kanmind/backend/internal/repositories"
	"kanmind/backend/internal/services"
	"kanmind/backend/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type application struct {
	cfg     *config.Config
	log     *slog.Logger
	limiter *middleware.RateLimiter
	health  *monitoring.HealthChecker
	worker  *worker.Worker

	issuer *services.TokenIssuer
	users  *repositories.CachedUserRepository

	auth     *handlers.AuthHandler
	profiles *handlers.UserHandler
	boards   *handlers.BoardHandler
	tasks    *handlers.TaskHandler
	comments *handlers.CommentHandler
}

func newApplication(cfg *config.Config, log *slog.Logger, pool *database.DatabasePool, store cache.Cache) *application {
	db := pool.DB

	userRepo := repositories.NewUserRepository(db)
	boardRepo := repositories.NewBoardRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	commentRepo := repositories.NewCommentRepository(db)
	tokenRepo := repositories.NewTokenRepository(db)
	cachedUsers := repositories.NewCachedUserRepository(userRepo, store, cfg.Redis.UserCacheTTL, log)

	authz := services.NewAuthorizer(log)
	issuer := services.NewTokenIssuer(cfg.Auth, tokenRepo, store, log)

	health := monitoring.NewHealthChecker(3 * time.Second)
	health.Register("database", pool.HealthContext)
	health.Register("cache", store.Health)

	jobs := worker.NewWorker(log)
	jobs.Register(worker.PurgeExpiredTokens(cfg.Auth.SweepInterval, tokenRepo.DeleteExpired, log))

	app := &application{
		cfg:      cfg,
		log:      log,
		health:   health,
		worker:   jobs,
		issuer:   issuer,
		users:    cachedUsers,
		auth:     handlers.NewAuthHandler(services.NewAuthService(userRepo, issuer, cfg.Auth.BCryptCost)),
		profiles: handlers.NewUserHandler(services.NewUserService(userRepo, cachedUsers)),
		boards:   handlers.NewBoardHandler(services.NewBoardService(boardRepo, userRepo, authz)),
		tasks:    handlers.NewTaskHandler(services.NewTaskService(taskRepo, boardRepo, userRepo, authz)),
		comments: handlers.NewCommentHandler(services.NewCommentService(commentRepo, taskRepo, boardRepo, authz)),
	}
	if cfg.RateLimit.Enabled {
		app.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstSize, cfg.RateLimit.CleanupInterval)
	}
	return app
}

func (a *application) routes() *gin.Engine {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RecoveryWithLog(a.log))
	router.Use(middleware.RequestLogger(a.log))
	router.Use(monitoring.MetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  a.cfg.CORS.AllowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/health", a.health.HealthHandler())
	router.GET("/health/ready", a.health.ReadinessHandler())
	router.GET("/health/live", a.health.LivenessHandler())
	router.GET("/metrics", monitoring.MetricsHandler())

	api := router.Group("/api")
	if a.limiter != nil {
		api.Use(middleware.RateLimit(a.limiter))
	}

	api.POST("/registration/", a.auth.Register)
	api.POST("/login/", a.auth.Login)
	api.POST("/token/refresh/", a.auth.Refresh)

	protected := api.Group("")
	protected.Use(middleware.Authenticate(a.issuer, a.users, a.log))
	{
		protected.POST("/logout/", a.auth.Logout)

		protected.GET("/profile/", a.profiles.GetProfile)
		protected.DELETE("/profile/", a.profiles.DeleteProfile)
		protected.GET("/email-check/", a.profiles.EmailCheck)

		protected.GET("/boards/", a.boards.ListBoards)
		protected.POST("/boards/", a.boards.CreateBoard)
		protected.GET("/boards/:id/", a.boards.GetBoard)
		protected.PATCH("/boards/:id/", a.boards.UpdateBoard)
		protected.DELETE("/boards/:id/", a.boards.DeleteBoard)

		protected.GET("/tasks/assigned-to-me/", a.tasks.AssignedToMe)
		protected.GET("/tasks/reviewing/", a.tasks.Reviewing)
		protected.POST("/tasks/", a.tasks.CreateTask)
		protected.GET("/tasks/:id/", a.tasks.GetTask)
		protected.PATCH("/tasks/:id/", a.tasks.UpdateTask)
		protected.DELETE("/tasks/:id/", a.tasks.DeleteTask)

		protected.GET("/tasks/:id/comments/", a.comments.ListComments)
		protected.POST("/tasks/:id/comments/", a.comments.CreateComment)
		protected.DELETE("/tasks/:id/comments/:comment_id/", a.comments.DeleteComment)
	}

	return router
}

func (a *application) stop() {
	a.worker.Stop()
	if a.limiter != nil {
		a.limiter.Stop()
	}
}
