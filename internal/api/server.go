// Package api serves the recommendation HTTP API.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ochestra-tech/cloudoptimizer/internal/config"
	"github.com/ochestra-tech/cloudoptimizer/internal/health"
	"github.com/ochestra-tech/cloudoptimizer/internal/optimization"
)

// Server handles the HTTP API for the application
type Server struct {
	router     *gin.Engine
	config     config.APIConfig
	health     *health.Monitor
	optimizer  *optimization.Optimizer
	metrics    *Metrics
	httpServer *http.Server
}

// NewServer creates a new API server
func NewServer(config config.APIConfig, health *health.Monitor, optimizer *optimization.Optimizer) *Server {
	s := &Server{
		config:    config,
		health:    health,
		optimizer: optimizer,
		metrics:   NewMetrics(),
	}

	s.setupRouter()

	return s
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(CORSMiddleware())
	r.Use(MetricsMiddleware(s.metrics))

	// Probe endpoints stay outside auth and rate limiting.
	r.GET("/healthz", s.handleHealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.Use(RateLimitMiddleware(s.config.RateLimitRPS, s.config.RateLimitBurst))
	if s.config.Authentication.Enabled {
		api.Use(AuthMiddleware(s.config.Authentication.JWTKey))
	}
	{
		api.GET("/recommendations", s.getRecommendations)
		api.GET("/recommendations/:provider", s.getProviderRecommendations)
		api.POST("/analyze", s.runAnalysis)
	}

	s.router = r
}

// Start begins serving the API
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
