package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codequery-ai/codequery/pkg/types"
)

type queryRequest struct {
	Question string `json:"question" binding:"required"`
	TopK     int    `json:"top_k"`
}

// router builds the gin handler tree. Queries over HTTP are always
// non-streaming; streaming is a terminal affordance.
func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)

	api := r.Group("/v1")
	if s.token != "" {
		api.Use(s.bearerAuth())
	}
	api.POST("/query", s.handleQuery)
	api.GET("/index/status", s.handleIndexStatus)

	return r
}

func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenFromHeader(c.GetHeader("Authorization")) != s.token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing bearer token"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "codequery",
		"version": Version,
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}

	resp, err := s.engine.Query(c.Request.Context(), req.Question, req.TopK, false)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, types.ErrNetwork) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleIndexStatus(c *gin.Context) {
	stats := s.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"backend":       s.cfg.Vector.Backend,
		"collection":    s.cfg.Vector.CollectionName,
		"total_files":   stats.TotalFiles,
		"indexed_files": stats.IndexedFiles,
		"failed_files":  stats.FailedFiles,
		"total_chunks":  stats.TotalChunks,
	})
}

// tokenFromHeader strips the bearer prefix, tolerating case differences in
// the scheme.
func tokenFromHeader(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
