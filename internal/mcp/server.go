package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/searchsync/internal/app"
	"github.com/dshills/searchsync/internal/storage"
	"github.com/dshills/searchsync/internal/syncer"
)

const (
	// ServerName is the MCP server name
	ServerName = "searchsync"
)

// Service is what the tools call into. *app.App implements it.
type Service interface {
	Jobs() []string
	ResolveZone(ctx context.Context, lat, lon float64) (int64, bool, error)
	Sync(ctx context.Context, req app.SyncRequest) (*syncer.Summary, error)
	Runs(ctx context.Context, job string, limit int) ([]*storage.Run, error)
}

var _ Service = (*app.App)(nil)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	svc    Service
	logger *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(svc Service, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, version),
		svc:    svc,
		logger: logger,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until ctx is done or
// stdin closes
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("mcp server listening on stdio", "tools", []string{"resolve_zone", "sync_index", "get_status"})
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(resolveZoneTool(), s.handleResolveZone)
	s.mcp.AddTool(syncIndexTool(s.svc.Jobs()), s.handleSyncIndex)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
