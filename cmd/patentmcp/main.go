// patentmcp serves the Handaas patent big-data API as MCP tools over
// stdio, SSE or streamable HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/handaas/patent-bigdata-mcp/internal/api"
	"github.com/handaas/patent-bigdata-mcp/internal/domain/audit"
	"github.com/handaas/patent-bigdata-mcp/internal/domain/tool"
	"github.com/handaas/patent-bigdata-mcp/internal/infra/config"
	"github.com/handaas/patent-bigdata-mcp/internal/infra/eventbus"
	"github.com/handaas/patent-bigdata-mcp/internal/infra/handaas"
	"github.com/handaas/patent-bigdata-mcp/internal/infra/sqlite"
	"github.com/handaas/patent-bigdata-mcp/internal/mcpserver"
	"github.com/handaas/patent-bigdata-mcp/internal/server"
	"github.com/handaas/patent-bigdata-mcp/internal/version"
	pkgauth "github.com/handaas/patent-bigdata-mcp/pkg/auth"
)

const shutdownTimeout = 10 * time.Second

// Options are the command line flags, interpreted by github.com/jessevdk/go-flags.
type Options struct {
	Config     string        `short:"f" long:"config" description:"YAML config file; environment variables override it"`
	Version    bool          `long:"version" description:"Show version information"`
	IssueToken string        `long:"issue-token" value-name:"SUBJECT" description:"Print a bearer token for SUBJECT signed with MCP_AUTH_SECRET and exit"`
	TokenTTL   time.Duration `long:"token-ttl" default:"24h" description:"Lifetime of the token printed by --issue-token"`

	Args struct {
		Transport string `positional-arg-name:"transport" description:"stdio (default), sse or streamable-http"`
	} `positional-args:"yes"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command and returns the process exit code.
// stdout belongs to the stdio transport, so diagnostics go to errOut.
func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	var opts Options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = version.Name
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(out, err) //nolint:errcheck
			return 0
		}
		fmt.Fprintln(errOut, err) //nolint:errcheck
		return 2
	}

	if opts.Version {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintln(errOut, err) //nolint:errcheck
		return 1
	}

	if opts.IssueToken != "" {
		token, err := pkgauth.GenerateToken([]byte(cfg.AuthSecret), opts.IssueToken, opts.TokenTTL)
		if err != nil {
			fmt.Fprintf(errOut, "issue token: %v (is MCP_AUTH_SECRET set?)\n", err) //nolint:errcheck
			return 1
		}
		fmt.Fprintln(out, token) //nolint:errcheck
		return 0
	}

	transport := opts.Args.Transport
	if transport == "" {
		transport = api.TransportStdio
	}
	if !slices.Contains(api.Transports, transport) {
		fmt.Fprintf(errOut, "请输入正确的启动方式: %s (got %q)\n", strings.Join(api.Transports, " 或 "), transport) //nolint:errcheck
		return 1
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat, errOut)
	if err := serve(ctx, cfg, transport, logger); err != nil {
		logger.Error("server stopped", "transport", transport, "error", err)
		return 1
	}
	return 0
}

// serve wires the components for transport and blocks until ctx is done
// or the transport fails.
func serve(ctx context.Context, cfg config.Config, transport string, logger *slog.Logger) error {
	logger.Info("starting mcp server", "transport", transport, "version", version.Version)

	client := handaas.NewClient(cfg.Credentials,
		handaas.WithBaseURL(cfg.BaseURL),
		handaas.WithTimeout(cfg.Timeout),
		handaas.WithLogger(logger),
	)

	bus := eventbus.New()
	defer reportDropped(logger, bus)
	var recorder *audit.Recorder
	if cfg.AuditDBPath != "" {
		db, err := sqlite.Open(ctx, cfg.AuditDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		recorder, err = audit.NewRecorder(db, logger)
		if err != nil {
			return err
		}
		recorder.Start(ctx, bus)
		logger.Info("call audit enabled", "path", cfg.AuditDBPath)
	}
	defer bus.Close()

	svc := tool.NewService(client, bus)
	mcpServer, err := mcpserver.NewServer(svc, logger)
	if err != nil {
		return err
	}

	if transport == api.TransportStdio {
		err := mcpServer.Run(ctx, &mcp.StdioTransport{})
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	registry := tool.NewToolRegistry()
	if err := tool.RegisterBuiltins(registry, svc); err != nil {
		return err
	}
	path, mcpHandler, err := api.MCPHandler(transport, mcpServer)
	if err != nil {
		return err
	}

	deps := api.Deps{
		Registry:   registry,
		MCPPath:    path,
		MCPHandler: mcpHandler,
		AuthSecret: []byte(cfg.AuthSecret),
		Logger:     logger,
	}
	if recorder != nil {
		deps.Calls = recorder
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.HTTPHost
	srvCfg.Port = cfg.HTTPPort
	warnIfExposed(logger, cfg)
	srv := server.NewServer(api.NewRouter(deps), srvCfg, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// reportDropped logs call events lost to a full subscriber buffer.
func reportDropped(logger *slog.Logger, bus *eventbus.Bus) {
	if n := bus.Dropped(); n > 0 {
		logger.Warn("call events dropped by the event bus", "count", n)
	}
}

// warnIfExposed logs when the HTTP transports accept unauthenticated
// connections from other hosts.
func warnIfExposed(logger *slog.Logger, cfg config.Config) {
	if cfg.AuthSecret != "" || isLoopback(cfg.HTTPHost) {
		return
	}
	logger.Warn("http transport exposed without MCP_AUTH_SECRET",
		"host", cfg.HTTPHost, "port", cfg.HTTPPort)
}

// isLoopback reports whether host only accepts local connections.
// An empty host listens on every interface.
func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// setupLogger builds the process logger. Output always goes to w (stderr in
// production) because the stdio transport owns stdout.
func setupLogger(level, format string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
