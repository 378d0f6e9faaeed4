// Package mcp exposes the newsroom index and agent over the Model Context
// Protocol, so an assistant can search indexed documents, add or remove
// them, and run a task.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
	"github.com/custodia-labs/newsdesk/internal/logger"
)

// Version is reported to clients in the initialize handshake.
const Version = "0.1.0"

const shutdownTimeout = 5 * time.Second

// ErrMissingIndexService is returned by NewServer without an index.
var ErrMissingIndexService = errors.New("mcp: index service is required")

var log = logger.For("mcp")

// Ports are the engine services the server calls into.
type Ports struct {
	Index driving.IndexService
	// Tasks is optional; the ask tool is only registered when it is set.
	Tasks driving.TaskService
}

// Validate reports a missing required port.
func (p *Ports) Validate() error {
	if p == nil || p.Index == nil {
		return ErrMissingIndexService
	}
	return nil
}

// Server serves the newsdesk tools and document resources.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer registers the tools and resources backed by ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(&mcp.Implementation{Name: "newsdesk", Version: Version}, nil),
	}
	s.registerTools()
	s.registerResources()

	if ports.Tasks == nil {
		log.Debug("no task service, ask tool disabled")
	}
	return s, nil
}

// Run serves a single client over stdin/stdout until ctx is done or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	log.Debug("serving on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect attaches the server to an already established transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

// Handler returns a streamable HTTP handler. Every session shares the
// same server and so the same index.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP listens on addr and serves Handler until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown: %v", err)
		}
	}()

	log.Info("listening on %s", addr)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
