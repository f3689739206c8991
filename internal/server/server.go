// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mathrix/autonomouslab/internal/config"
	"codeberg.org/mathrix/autonomouslab/internal/database"
	"codeberg.org/mathrix/autonomouslab/internal/handlers"
	"codeberg.org/mathrix/autonomouslab/internal/models"
	"codeberg.org/mathrix/autonomouslab/internal/repository"
	"codeberg.org/mathrix/autonomouslab/internal/services/access"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.NewFromCLI(cmd)
	if err != nil {
		return err
	}
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database (migrations are applied on open)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc, err := newServices(ctx, cfg, db, tlsResult.SecureCookies(cfg))
	if err != nil {
		return err
	}
	defer svc.Close()

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, handlers.New(svc.deps), cfg)

	return startWithGracefulShutdown(ctx, e, cfg, tlsResult)
}

// Reconcile verifies the payment of one email and grants access when the
// provider confirms it.
func Reconcile(ctx context.Context, cmd *cli.Command) error {
	return withGranter(ctx, cmd, func(ctx context.Context, g *access.Granter, email string) error {
		if err := g.Grant(ctx, email); err != nil {
			if errors.Is(err, access.ErrNotPaid) {
				return fmt.Errorf("%s: %w", email, err)
			}
			return err
		}
		slog.Info("access granted", "email", email)
		return nil
	})
}

// Grant gives one email access without a payment, e.g. for review copies.
func Grant(ctx context.Context, cmd *cli.Command) error {
	return withGranter(ctx, cmd, func(ctx context.Context, g *access.Granter, email string) error {
		if err := g.GrantManually(ctx, email); err != nil {
			return err
		}
		slog.Info("access granted", "email", email, "source", models.AccessSourceAdmin)
		return nil
	})
}

// Revoke takes access away from one email.
func Revoke(ctx context.Context, cmd *cli.Command) error {
	return withGranter(ctx, cmd, func(ctx context.Context, g *access.Granter, email string) error {
		if err := g.Revoke(ctx, email); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s has no access record", email)
			}
			return err
		}
		slog.Info("access revoked", "email", email)
		return nil
	})
}

// withGranter wires the services for a one-shot command and runs fn with
// the normalized email argument.
func withGranter(ctx context.Context, cmd *cli.Command, fn func(context.Context, *access.Granter, string) error) error {
	email := cmd.Args().First()
	if !models.ValidEmail(email) {
		return fmt.Errorf("usage: %s <email>", cmd.Name)
	}

	cfg, err := config.NewFromCLI(cmd)
	if err != nil {
		return err
	}
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc, err := newServices(ctx, cfg, db, cfg.SecureCookies())
	if err != nil {
		return err
	}
	defer svc.Close()

	return fn(ctx, svc.deps.Granter, models.NormalizeEmail(email))
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config, tlsResult *TLSResult) error {
	// Channel for server errors
	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		// Plain HTTP on configured port
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		// HTTPS on :443
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		// HTTP redirect server on :80
		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP→HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeManual:
		// HTTPS on configured port
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown main server
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}

	// Shutdown HTTP redirect server if running
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
