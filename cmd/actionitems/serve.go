package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/actionitems/internal/http"
)

type serveFlags struct {
	host string
	port int
}

func newServeCmd(g *globalFlags) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve extraction over HTTP",
		Long: `Start the HTTP API.

Endpoints:
  GET  /health          liveness and version
  GET  /metrics         Prometheus metrics
  POST /api/v1/extract  transcript JSON in, action items out
                        (?reference_date=YYYY-MM-DD anchors relative dates)

Examples:
  actionitems serve --port 9090
  curl -s -X POST localhost:9090/api/v1/extract --data-binary @meeting.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), g, f)
		},
	}

	cmd.Flags().StringVar(&f.host, "host", "", "listen address (default from config, 127.0.0.1)")
	cmd.Flags().IntVar(&f.port, "port", 0, "listen port (default from config, 8080)")

	return cmd
}

func runServe(ctx context.Context, g *globalFlags, f *serveFlags) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if f.host != "" {
		cfg.Server.Host = f.host
	}
	if f.port > 0 {
		cfg.Server.Port = f.port
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger.Underlying()

	server, err := httpserver.NewServer(a.extractor, logger.Named("http"), &httpserver.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Version:      version,
		Telemetry:    a.telemetry,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
		return err
	}
	return nil
}
