package api

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handaas/patent-bigdata-mcp/internal/domain/audit"
	"github.com/handaas/patent-bigdata-mcp/internal/domain/tool"
	"github.com/handaas/patent-bigdata-mcp/internal/infra/handaas"
	"github.com/handaas/patent-bigdata-mcp/internal/mcpserver"
	pkgauth "github.com/handaas/patent-bigdata-mcp/pkg/auth"
)

var testSecret = []byte("test-secret-key-32-chars-min!!!")

type emptyCaller struct{}

func (emptyCaller) Call(context.Context, string, map[string]any) handaas.Result {
	return handaas.Result{Kind: handaas.KindEmpty}
}

type emptyLister struct{}

func (emptyLister) List(context.Context, int) ([]audit.CallRecord, error) { return nil, nil }

func testRegistry(t *testing.T) *tool.ToolRegistry {
	t.Helper()
	reg := tool.NewToolRegistry()
	require.NoError(t, tool.RegisterBuiltins(reg, tool.NewService(emptyCaller{}, nil)))
	return reg
}

func serve(h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestNewRouter_HealthEndpoint(t *testing.T) {
	router := NewRouter(Deps{AuthSecret: testSecret})

	rr := serve(router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestNewRouter_ToolsWithoutAuthSecret(t *testing.T) {
	router := NewRouter(Deps{Registry: testRegistry(t)})

	rr := serve(router, http.MethodGet, "/api/v1/tools", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(router, http.MethodPost, "/api/v1/tools/"+tool.ToolPatentStats, "", `{"matchKeyword":"华为"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":null}`, rr.Body.String())
}

func TestNewRouter_ProtectedRoutesRequireToken(t *testing.T) {
	router := NewRouter(Deps{Registry: testRegistry(t), Calls: emptyLister{}, AuthSecret: testSecret})

	for _, target := range []string{"/api/v1/tools", "/api/v1/calls"} {
		rr := serve(router, http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, target)
	}

	token, err := pkgauth.GenerateToken(testSecret, "ops", time.Hour)
	require.NoError(t, err)
	for _, target := range []string{"/api/v1/tools", "/api/v1/calls"} {
		rr := serve(router, http.MethodGet, target, token, "")
		assert.Equal(t, http.StatusOK, rr.Code, target)
	}
}

func TestNewRouter_CallsNotMountedWithoutAudit(t *testing.T) {
	router := NewRouter(Deps{Registry: testRegistry(t)})

	rr := serve(router, http.MethodGet, "/api/v1/calls", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNewRouter_MCPEndpointRequiresToken(t *testing.T) {
	server, err := mcpserver.NewServer(tool.NewService(emptyCaller{}, nil), nil)
	require.NoError(t, err)
	path, h, err := MCPHandler(TransportStreamableHTTP, server)
	require.NoError(t, err)
	assert.Equal(t, PathStreamableHTTP, path)

	router := NewRouter(Deps{MCPPath: path, MCPHandler: h, AuthSecret: testSecret})

	rr := serve(router, http.MethodPost, PathStreamableHTTP, "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMCPHandler(t *testing.T) {
	server, err := mcpserver.NewServer(tool.NewService(emptyCaller{}, nil), nil)
	require.NoError(t, err)

	path, h, err := MCPHandler(TransportSSE, server)
	require.NoError(t, err)
	assert.Equal(t, PathSSE, path)
	assert.NotNil(t, h)

	_, _, err = MCPHandler(TransportStdio, server)
	assert.Error(t, err)
	_, _, err = MCPHandler("websocket", server)
	assert.Error(t, err)
}

func TestNewRouter_AccessLogUsesDepsLogger(t *testing.T) {
	var buf bytes.Buffer
	router := NewRouter(Deps{Logger: slog.New(slog.NewTextHandler(&buf, nil))})

	serve(router, http.MethodGet, "/health", "", "")

	assert.Contains(t, buf.String(), "path=/health")
	assert.Contains(t, buf.String(), "status=200")
}
