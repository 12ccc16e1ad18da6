// Package mcpserver exposes memories to MCP clients over streamable HTTP.
// Each connection is bound to a client (app) name and a user id taken from the
// request path /mcp/{client_name}/{user_id}.
package mcpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/goibibo/mem0/internal/services"
)

const (
	serverName    = "openmemory"
	serverVersion = "0.1.0"
	// PathPrefix is where the MCP endpoint is mounted.
	PathPrefix = "/mcp/"
)

// Identity names the calling app and user.
type Identity struct {
	ClientName string
	UserID     string
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom extracts the identity set by WithIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.ClientName != "" && id.UserID != ""
}

// ParsePath reads client name and user id from /mcp/{client_name}/{user_id}[/...].
func ParsePath(path string) (Identity, bool) {
	rest := strings.TrimPrefix(path, PathPrefix)
	if rest == path {
		return Identity{}, false
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Identity{}, false
	}
	return Identity{ClientName: parts[0], UserID: parts[1]}, true
}

// NewMCPServer builds the MCP server and registers the memory tools.
func NewMCPServer(mems *services.MemoryService, users *services.UserService, log zerolog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)
	NewMemoryTools(mems, users, log).RegisterTools(s)
	return s
}

// NewHandler wraps s in a streamable HTTP handler that derives the caller's
// identity from the request path.
func NewHandler(s *server.MCPServer) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s,
		server.WithHeartbeatInterval(30*time.Second),
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if id, ok := ParsePath(r.URL.Path); ok {
				return WithIdentity(ctx, id)
			}
			return ctx
		}),
	)
}
