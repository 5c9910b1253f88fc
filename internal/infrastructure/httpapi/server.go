package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"NewsVerifier/internal/infrastructure/storage"
	"NewsVerifier/internal/logging"
	"NewsVerifier/internal/ports"
	"NewsVerifier/internal/recheck"
	"NewsVerifier/internal/usecase"
)

// Server exposes the operational entry points: full-crawl trigger,
// recheck-sweep trigger, and per-cluster manual verification. Each
// invokes the corresponding core operation synchronously and always
// reports a structured summary, even on partial failure.
type Server struct {
	pipeline *usecase.Pipeline
	sweeper  *recheck.Scheduler
	clusters ports.ClusterRepository
	logger   *slog.Logger
}

// NewServer wires the operational surface.
func NewServer(pipeline *usecase.Pipeline, sweeper *recheck.Scheduler, clusters ports.ClusterRepository, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{pipeline: pipeline, sweeper: sweeper, clusters: clusters, logger: logger}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/crawl", s.runCrawl)
	r.POST("/recheck", s.runRecheck)
	r.POST("/clusters/:id/verify", s.verifyCluster)
	r.GET("/clusters/:id", s.getCluster)

	return r
}

func (s *Server) runCrawl(c *gin.Context) {
	summary, err := s.pipeline.RunCrawl(c.Request.Context())
	if err != nil {
		s.logger.Error("crawl trigger failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summary": summary})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) runRecheck(c *gin.Context) {
	summary, err := s.sweeper.Sweep(c.Request.Context(), time.Now().UTC())
	if err != nil {
		s.logger.Error("recheck trigger failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summary": summary})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) verifyCluster(c *gin.Context) {
	result, err := s.pipeline.VerifyOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.logger.Error("manual verification failed", "cluster", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recommendation": result.Recommendation,
		"score":          result.Score,
		"matched":        len(result.Matched),
		"missing":        result.Missing,
	})
}

func (s *Server) getCluster(c *gin.Context) {
	cluster, err := s.clusters.Cluster(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if storage.IsNotFound(err) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cluster)
}
