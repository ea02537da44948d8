package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/rpggio/roadmap/internal/config"
	"github.com/rpggio/roadmap/internal/mcp"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		transport string
		host      string
		port      int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose roadmap operations as MCP tools over stdio or streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("transport") {
				a.cfg.Transport.Mode = transport
			}
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			services := mcp.Services{Engine: a.engine}
			if a.activity != nil {
				services.Activity = a.activity
			}
			if a.runs != nil {
				services.Runs = a.runs
			}
			server := mcp.NewServer(mcp.Config{
				Services: services,
				TenantID: a.engine.TenantID(),
				Version:  version,
				Logger:   a.logger,
			})

			if a.cfg.Transport.Mode == config.ModeStdio {
				return runStdioMode(cmd.Context(), a.logger, server)
			}
			return runHTTPMode(cmd.Context(), a.logger, server, a.cfg.Addr())
		},
	}
	cmd.Flags().StringVar(&transport, "transport", config.ModeStdio, "transport: stdio|http")
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "HTTP listen port (default from config)")
	return cmd
}

func runStdioMode(ctx context.Context, logger *slog.Logger, server *sdkmcp.Server) error {
	logger.Info("starting stdio transport")

	// Run blocks until stdin closes or the context is canceled.
	if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	logger.Info("shutting down")
	return nil
}

// newRouter mounts the MCP endpoint and a health check.
func newRouter(mcpHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Handle("/mcp", mcpHandler)
	r.Handle("/mcp/*", mcpHandler)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return r
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, server *sdkmcp.Server, addr string) error {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           newRouter(mcpHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
