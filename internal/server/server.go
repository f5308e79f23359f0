// Package server exposes the query engine over two transports: a JSON HTTP
// API and an MCP server reachable over SSE on the next port up.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codequery-ai/codequery/internal/config"
	"github.com/codequery-ai/codequery/internal/query"
	"github.com/codequery-ai/codequery/pkg/types"
)

// Version is reported by the health endpoint and the MCP handshake.
const Version = "0.1.0"

// Server bundles the transports and their shared dependencies. The engine
// must be safe for concurrent use; both transports call it directly.
type Server struct {
	cfg    *config.Config
	engine *query.Engine
	token  string

	mu    sync.RWMutex
	stats types.IndexStats
}

// New creates a Server. token, when non-empty, gates the HTTP API behind
// bearer authentication.
func New(cfg *config.Config, engine *query.Engine, token string) *Server {
	return &Server{cfg: cfg, engine: engine, token: token}
}

// SetStats records the stats of the most recent indexing pass for the
// status endpoints.
func (s *Server) SetStats(stats types.IndexStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
}

// Stats returns the recorded stats.
func (s *Server) Stats() types.IndexStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Run serves both transports until the context is canceled or either server
// fails. HTTP listens on port, MCP over SSE on port+1.
func (s *Server) Run(ctx context.Context, port int) error {
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router(),
	}
	mcpSrv := s.newMCPServer()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", port).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Int("port", port+1).Msg("MCP server listening")
		if err := mcpSrv.Start(fmt.Sprintf(":%d", port+1)); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
		_ = mcpSrv.Shutdown(shutdownCtx)
		return nil
	})

	return g.Wait()
}
