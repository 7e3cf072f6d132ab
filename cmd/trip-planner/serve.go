package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/txn2/trip-planner/internal/server"
	"github.com/txn2/trip-planner/pkg/platform"
)

func newServeCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the search service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Server.Address = address
			}
			setupLogger(cfg.Log, cmd.ErrOrStderr())
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Listen address, overrides server.address")
	return cmd
}

func runServe(ctx context.Context, cfg *platform.Config) error {
	p, err := platform.New(platform.WithConfig(cfg), platform.WithVersion(server.Version))
	if err != nil {
		return fmt.Errorf("creating platform: %w", err)
	}
	defer func() { _ = p.Close() }()

	if err := p.Start(ctx); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Address, err)
	}
	return serveUntilDone(ctx, server.New(p), ln, p, cfg.Server.ShutdownTimeout)
}

// serveUntilDone serves on ln until ctx is canceled, then drains in-flight
// requests before stopping the platform.
func serveUntilDone(ctx context.Context, srv *http.Server, ln net.Listener, p *platform.Platform, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "address", ln.Addr().String(), "version", server.Version)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down", "timeout", timeout)
	p.Health().SetDraining()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down http server: %w", err))
	}
	if err := p.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
