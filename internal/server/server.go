package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimbusdeck/edge/internal/config"
	"github.com/nimbusdeck/edge/internal/dispatch"
	"github.com/nimbusdeck/edge/internal/handler"
	"github.com/nimbusdeck/edge/internal/middleware"
	"github.com/nimbusdeck/edge/internal/ratelimit"
	"github.com/nimbusdeck/edge/internal/repository"
	"github.com/nimbusdeck/edge/internal/service"
	"github.com/nimbusdeck/edge/internal/storage"
	"github.com/nimbusdeck/edge/internal/usage"
	"github.com/nimbusdeck/edge/pkg/logger"
)

type Server struct {
	router        *gin.Engine
	config        *config.Config
	redis         *storage.RedisClient
	postgres      *storage.Postgres
	log           *logger.Logger
	dispatcher    *dispatch.Dispatcher
	tenantHandler *handler.TenantHandler
	authHandler   *handler.AuthHandler
	authService   *service.AuthService
	httpServer    *http.Server
}

func New(cfg *config.Config, redis *storage.RedisClient, postgres *storage.Postgres, emitter usage.Emitter, log *logger.Logger) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	tenantRepo := repository.NewTenantRepository(postgres)
	tenantService := service.NewTenantService(tenantRepo, redis)
	authService := service.NewAuthService(
		cfg.Auth.JWTSecret,
		cfg.Auth.AdminEmail,
		cfg.Auth.AdminPasswordHash,
		cfg.Auth.JWTExpiryHours,
	)

	limiter := ratelimit.NewFixedWindow(ratelimit.NewRedisWindowStore(redis))
	dispatcher := dispatch.New(tenantService, limiter, emitter, log,
		cfg.Dispatch.BaseDomain, cfg.Dispatch.DefaultRequestsPerMinute)

	s := &Server{
		router:        router,
		config:        cfg,
		redis:         redis,
		postgres:      postgres,
		log:           log,
		dispatcher:    dispatcher,
		tenantHandler: handler.NewTenantHandler(tenantService),
		authHandler:   handler.NewAuthHandler(authService),
		authService:   authService,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery(s.log))
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger(s.log))

	// Tenant-host traffic never reaches the routes below; the dispatcher
	// claims it here.
	s.router.Use(s.dispatcher.Middleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	s.router.POST("/admin/login", s.authHandler.Login)

	admin := s.router.Group("/admin", middleware.RequireAuth(s.authService))
	{
		admin.POST("/tenants", s.tenantHandler.Create)
		admin.GET("/tenants", s.tenantHandler.List)
		admin.GET("/tenants/:id", s.tenantHandler.Get)
		admin.PATCH("/tenants/:id", s.tenantHandler.Update)
		admin.DELETE("/tenants/:id", s.tenantHandler.Delete)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	redisHealthy := true
	if err := s.redis.Ping(c.Request.Context()); err != nil {
		redisHealthy = false
		s.log.Error("redis health check failed", err)
	}

	dbHealthy := true
	if err := s.postgres.Ping(c.Request.Context()); err != nil {
		dbHealthy = false
		s.log.Error("database health check failed", err)
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !redisHealthy || !dbHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "edge-dispatch",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis":    redisHealthy,
			"database": dbHealthy,
		},
	})
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	s.log.Info("starting edge dispatcher on " + addr)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
