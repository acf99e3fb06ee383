package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
	"github.com/ochestra-tech/cloudoptimizer/internal/cost/providers"
)

// AnalyzeRequest narrows an on-demand analysis run. All fields are
// optional; an empty body analyzes every configured cloud with every
// active strategy over the default window.
type AnalyzeRequest struct {
	Provider   string    `json:"provider,omitempty"`
	Strategies []string  `json:"strategies,omitempty"`
	Start      time.Time `json:"start,omitempty"`
	End        time.Time `json:"end,omitempty"`
}

// handleHealthCheck reports adapter credential health for readiness
// probes.
func (s *Server) handleHealthCheck(c *gin.Context) {
	status := http.StatusOK
	state := "ok"
	if !s.health.Healthy() {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":    state,
		"providers": s.health.Statuses(),
		"timestamp": time.Now().UTC(),
	})
}

// getRecommendations returns the most recent full analysis.
func (s *Server) getRecommendations(c *gin.Context) {
	set := s.optimizer.Latest()
	if set == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis has completed yet"})
		return
	}
	c.JSON(http.StatusOK, set)
}

// getProviderRecommendations returns the latest analysis narrowed to one
// cloud.
func (s *Server) getProviderRecommendations(c *gin.Context) {
	provider := cost.Provider(c.Param("provider"))
	if !provider.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider: " + c.Param("provider")})
		return
	}

	set := s.optimizer.LatestForProvider(provider)
	if set == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis has completed yet"})
		return
	}
	c.JSON(http.StatusOK, set)
}

// runAnalysis triggers a synchronous analysis run.
func (s *Server) runAnalysis(c *gin.Context) {
	var req AnalyzeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	provider := cost.Provider(req.Provider)
	if req.Provider != "" && !provider.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider: " + req.Provider})
		return
	}

	start, end := req.Start, req.End
	if start.IsZero() || end.IsZero() {
		start, end = providers.DefaultWindow()
	}
	if !start.Before(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must precede end"})
		return
	}

	set, err := s.optimizer.AnalyzeWith(c.Request.Context(), provider, req.Strategies, start, end)
	if err != nil {
		var confErr *cost.ConfigurationError
		if errors.As(err, &confErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": confErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.metrics.ObserveAnalysis(set)
	c.JSON(http.StatusOK, set)
}
