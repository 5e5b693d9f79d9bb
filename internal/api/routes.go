// Package api wires the HTTP surface: health check, the MCP endpoint of the
// selected HTTP transport and the REST tool API under /api/v1.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/handaas/patent-bigdata-mcp/internal/api/handlers"
	apimiddleware "github.com/handaas/patent-bigdata-mcp/internal/api/middleware"
	"github.com/handaas/patent-bigdata-mcp/internal/domain/tool"
)

// Transport names accepted on the command line.
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

// Transports lists the valid transport names in display order.
var Transports = []string{TransportStdio, TransportSSE, TransportStreamableHTTP}

// Mount points of the MCP HTTP transports.
const (
	PathSSE            = "/sse"
	PathStreamableHTTP = "/mcp"
)

// Deps are the collaborators of the router. Calls is nil when the audit
// trail is disabled; MCPHandler is nil when only the REST API is served.
type Deps struct {
	Registry   *tool.ToolRegistry
	Calls      handlers.CallLister
	MCPPath    string
	MCPHandler http.Handler
	AuthSecret []byte
	Logger     *slog.Logger
}

// MCPHandler returns the mount path and handler serving server over transport.
// stdio has no HTTP handler and is rejected here.
func MCPHandler(transport string, server *mcp.Server) (string, http.Handler, error) {
	getServer := func(*http.Request) *mcp.Server { return server }
	switch transport {
	case TransportSSE:
		return PathSSE, mcp.NewSSEHandler(getServer, nil), nil
	case TransportStreamableHTTP:
		return PathStreamableHTTP, mcp.NewStreamableHTTPHandler(getServer, nil), nil
	default:
		return "", nil, fmt.Errorf("transport %q is not served over http", transport)
	}
}

// NewRouter creates the chi router.
//
// Public: GET /health.
// Bearer-protected when deps.AuthSecret is set: the MCP endpoint and /api/v1/*.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apimiddleware.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	auth := apimiddleware.Auth(deps.AuthSecret)

	if deps.MCPHandler != nil && deps.MCPPath != "" {
		// SSE posts messages to sub-paths of the mount point.
		mcpHandler := auth(deps.MCPHandler)
		r.Handle(deps.MCPPath, mcpHandler)
		r.Handle(deps.MCPPath+"/*", mcpHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth)

		if deps.Registry != nil {
			toolHandler := handlers.NewToolHandler(deps.Registry, deps.Logger)
			r.Get("/tools", toolHandler.ListTools)          // GET /api/v1/tools
			r.Get("/tools/{name}", toolHandler.GetTool)     // GET /api/v1/tools/{name}
			r.Post("/tools/{name}", toolHandler.InvokeTool) // POST /api/v1/tools/{name}
		}

		if deps.Calls != nil {
			callHandler := handlers.NewCallHandler(deps.Calls, deps.Logger)
			r.Get("/calls", callHandler.ListCalls) // GET /api/v1/calls
		}
	})

	return r
}
