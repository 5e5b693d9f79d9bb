package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handaas/patent-bigdata-mcp/internal/infra/config"
	"github.com/handaas/patent-bigdata-mcp/internal/infra/eventbus"
	pkgauth "github.com/handaas/patent-bigdata-mcp/pkg/auth"
)

func runCmd(t *testing.T, ctx context.Context, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(ctx, args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCmd(t, context.Background(), "--version")

	assert.Equal(t, 0, code)
	assert.Contains(t, out, "patentmcp version")
}

func TestRun_Help(t *testing.T) {
	code, out, _ := runCmd(t, context.Background(), "--help")

	assert.Equal(t, 0, code)
	assert.Contains(t, out, "--config")
	assert.Contains(t, out, "--issue-token")
}

func TestRun_UnknownFlag(t *testing.T) {
	code, _, errOut := runCmd(t, context.Background(), "--no-such-flag")

	assert.Equal(t, 2, code)
	assert.NotEmpty(t, errOut)
}

func TestRun_InvalidTransport_ExitsOne(t *testing.T) {
	code, out, errOut := runCmd(t, context.Background(), "websocket")

	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "stdio 或 sse 或 streamable-http")
	assert.Contains(t, errOut, `"websocket"`)
}

func TestRun_InvalidConfig_ExitsOne(t *testing.T) {
	t.Setenv("HANDAAS_TIMEOUT", "soon")

	code, _, errOut := runCmd(t, context.Background(), "stdio")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "timeout")
}

func TestRun_MissingConfigFile_ExitsOne(t *testing.T) {
	code, _, _ := runCmd(t, context.Background(), "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, 1, code)
}

func TestRun_IssueToken(t *testing.T) {
	secret := "issue-token-secret"
	t.Setenv("MCP_AUTH_SECRET", secret)

	code, out, _ := runCmd(t, context.Background(), "--issue-token", "ops-bot", "--token-ttl", "1h")
	require.Equal(t, 0, code)

	claims, err := pkgauth.ParseToken([]byte(secret), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops-bot", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestRun_IssueToken_WithoutSecret(t *testing.T) {
	t.Setenv("MCP_AUTH_SECRET", "")

	code, out, errOut := runCmd(t, context.Background(), "--issue-token", "ops-bot")
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "MCP_AUTH_SECRET")
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestRun_StreamableHTTP_ServesUntilCancelled(t *testing.T) {
	port := freePort(t)
	t.Setenv("MCP_HTTP_HOST", "127.0.0.1")
	t.Setenv("MCP_HTTP_PORT", strconv.Itoa(port))
	t.Setenv("MCP_AUTH_SECRET", "")
	t.Setenv("AUDIT_DB_PATH", filepath.Join(t.TempDir(), "audit", "calls.db"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		code, _, _ := runCmd(t, ctx, "streamable-http")
		done <- code
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/api/v1/calls")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(15 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestSetupLogger(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		logger := setupLogger(tc.level, "text", &bytes.Buffer{})
		assert.True(t, logger.Enabled(context.Background(), tc.want), tc.level)
		if tc.want > slog.LevelDebug {
			assert.False(t, logger.Enabled(context.Background(), tc.want-1), tc.level)
		}
	}
}

func TestSetupLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	setupLogger("info", "json", &buf).Info("hello", "k", "v")

	assert.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestIsLoopback(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1":   true,
		"::1":         true,
		"localhost":   true,
		"0.0.0.0":     false,
		"":            false,
		"10.0.0.7":    false,
		"example.org": false,
	}
	for host, want := range cases {
		assert.Equal(t, want, isLoopback(host), host)
	}
}

func TestWarnIfExposed(t *testing.T) {
	cases := []struct {
		name   string
		host   string
		secret string
		warn   bool
	}{
		{"loopback without secret", "127.0.0.1", "", false},
		{"all interfaces with secret", "0.0.0.0", "s3cret", false},
		{"all interfaces without secret", "0.0.0.0", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := config.Default()
			cfg.HTTPHost = tc.host
			cfg.AuthSecret = tc.secret

			warnIfExposed(setupLogger("info", "text", &buf), cfg)

			if tc.warn {
				assert.Contains(t, buf.String(), "level=WARN")
				assert.Contains(t, buf.String(), "MCP_AUTH_SECRET")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestReportDropped(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger("info", "text", &buf)
	bus := eventbus.New()

	reportDropped(logger, bus)
	assert.Empty(t, buf.String())

	_ = bus.Subscribe("tool.called")
	for i := 0; i < 101; i++ {
		bus.Publish("tool.called", i)
	}
	reportDropped(logger, bus)
	assert.Contains(t, buf.String(), "count=1")
}
