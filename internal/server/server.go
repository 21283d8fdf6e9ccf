// Package server exposes the moderation engine over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "candor/docs" // swagger docs
	"candor/internal/audit"
	"candor/internal/cache"
	"candor/internal/config"
	"candor/internal/database"
	"candor/internal/featureflags"
	"candor/internal/identity"
	"candor/internal/middleware"
	"candor/internal/models"
	"candor/internal/notifications"
	"candor/internal/repository"
	"candor/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	store         *repository.Store
	notifier      *notifications.Notifier
	moderationHub *notifications.ModerationHub
	featureFlags  *featureflags.Manager
	emitter       *audit.Emitter

	reportService      *service.ReportService
	moderationService  *service.ModerationService
	strikeService      *service.StrikeService
	restrictionService *service.RestrictionService
	historyService     *service.HistoryService
	sweeper            *service.Sweeper
}

// NewServer connects the database and Redis and builds the server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; notifications and the live feed are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	guard, err := identity.NewGuard(identity.Config{Secret: cfg.IdentitySecret})
	if err != nil {
		return nil, fmt.Errorf("identity guard: %w", err)
	}

	store := repository.NewStore(db)
	policy := service.PolicyFromConfig(cfg)
	notifier := notifications.NewNotifier(redisClient)
	emitter := audit.NewEmitter(store.Activities, store.Reports)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("candor-api"),
		store:          store,
		notifier:       notifier,
		moderationHub:  notifications.NewModerationHub(),
		featureFlags:   flags,
		emitter:        emitter,
	}
	s.restrictionService = service.NewRestrictionService(store, emitter, notifier, policy)
	s.strikeService = service.NewStrikeService(store, s.restrictionService, emitter, policy)
	s.reportService = service.NewReportService(store, guard, emitter, notifier, policy)
	s.moderationService = service.NewModerationService(store, guard, s.strikeService, emitter, notifier, policy)
	s.historyService = service.NewHistoryService(store, s.restrictionService, policy)
	s.sweeper = service.NewSweeper(s.restrictionService, flags, cfg.SweeperInterval())

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// The feed authenticates from the query string; it is registered before
	// the header-authenticated group so that group's middleware never sees it.
	api.Get("/ws/moderation",
		middleware.WebSocketAuthRequired(s.config.JWTSecret),
		s.loadActor,
		s.ModeratorRequired(),
		s.ModerationFeedHandler(),
	)

	protected := api.Group("", middleware.AuthRequired(s.config.JWTSecret), s.loadActor)

	protected.Post("/reports", s.reportRateLimit(), s.CreateReport)
	protected.Get("/me/restrictions", s.GetMyRestrictions)

	mod := protected.Group("/moderation", s.ModeratorRequired())
	mod.Get("/reports", s.ListReports)
	// Specific /:id/:resource routes before the generic /:id route.
	mod.Post("/reports/:id/actions", s.ApplyAction)
	mod.Get("/reports/:id/audit", s.GetAuditTrail)
	mod.Get("/reports/:id", s.GetReport)
	mod.Get("/users/:id/history", s.GetModerationHistory)
	mod.Get("/users/:id/restrictions", s.GetUserRestrictions)
	mod.Post("/restrictions/:id/lift", s.AdminRequired(), s.LiftRestriction)
}

// App builds a configured Fiber app without listening.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Candor Moderation API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.redis != nil {
		go func() {
			if err := s.moderationHub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start moderation feed wiring", slog.String("error", err.Error()))
			}
		}()
	}
	go s.sweeper.Run(s.shutdownCtx)

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.moderationHub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down moderation feed", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis only carries notifications and rate limits, so it never fails readiness.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "degraded"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}
