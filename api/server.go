package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/ecs-queue-backlog/api/handlers"
	"github.com/OldStager01/ecs-queue-backlog/api/middleware"
	"github.com/OldStager01/ecs-queue-backlog/pkg/config"
)

const maxRequestBytes = 64 << 10

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.APIConfig
}

// Dependencies are the collaborators the routes are wired to.
type Dependencies struct {
	Invoker   handlers.Invoker
	Providers handlers.ProviderLister
	// Scheduler may be nil.
	Scheduler handlers.SchedulerStatus
	Metrics   http.Handler
}

func NewServer(cfg config.APIConfig, deps Dependencies) *Server {
	if cfg.JWTSecret == "" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router: gin.New(),
		config: cfg,
	}

	s.setupMiddleware()
	s.setupRoutes(deps)

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestLogger("/metrics", "/health/live"))
	s.router.Use(middleware.NoStore())
}

func (s *Server) setupRoutes(deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Providers, deps.Scheduler)
	invocationHandler := handlers.NewInvocationHandler(deps.Invoker)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/live", healthHandler.Live)

	if deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	v1 := s.router.Group("/v1")
	v1.Use(middleware.RequestSizeLimit(maxRequestBytes))
	if s.config.JWTSecret != "" {
		v1.Use(middleware.JWTAuth(s.config.JWTSecret, s.config.JWTIssuer))
	}
	if s.config.RateLimit > 0 {
		v1.Use(middleware.NewRateLimiter(s.config.RateLimit).Middleware())
	}
	{
		v1.POST("/invocations", invocationHandler.Invoke)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	idle := s.config.IdleTimeout
	if idle <= 0 {
		idle = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  idle,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
