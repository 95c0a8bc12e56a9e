// Package mcp exposes the live session and training history as MCP tools.
package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/setlog/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := storage.UserFromContext(ctx); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return storage.ContextWithUser(ctx, userID)
}

// HTTPContext carries the user resolved by the HTTP identity middleware into
// tool handlers. Pass it to server.WithHTTPContextFunc.
func HTTPContext(ctx context.Context, r *http.Request) context.Context {
	if id, ok := storage.UserFromContext(r.Context()); ok {
		return WithUserID(ctx, id)
	}
	return ctx
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("setlog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("setlog strength training server. Read the live workout session, personal records, finished workouts and training volume. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetActiveSession, Handler: h.getActiveSession},
		server.ServerTool{Tool: toolGetPersonalRecords, Handler: h.getPersonalRecords},
		server.ServerTool{Tool: toolGetWorkoutHistory, Handler: h.getWorkoutHistory},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolGetTrainingSummary, Handler: h.getTrainingSummary},
		server.ServerTool{Tool: toolGetDataStats, Handler: h.getDataStats},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resActiveSession, Handler: h.activeSession},
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resActiveSession = mcp.NewResource(
	"setlog://active_session",
	"Active Session",
	mcp.WithResourceDescription("The workout in progress: current exercise and set, rest countdown, completed sets and records set so far"),
	mcp.WithMIMEType("application/json"),
)

var resRecentWorkouts = mcp.NewResource(
	"setlog://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("Finished workouts from the last 14 days"),
	mcp.WithMIMEType("application/json"),
)
