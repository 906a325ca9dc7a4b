package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/apk-analysis/apk-fingerprint-go/internal/analyzer"
	"github.com/apk-analysis/apk-fingerprint-go/internal/api"
	"github.com/apk-analysis/apk-fingerprint-go/internal/api/handlers"
	"github.com/apk-analysis/apk-fingerprint-go/internal/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	Port  int
	Watch bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (uploads, scan history, live events, metrics)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "HTTP port (overrides server.port)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Also watch watcher.dir for new APKs")
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	cfg, logger, err := loadConfig(cmd, root, false)
	if err != nil {
		return err
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logger.Infof("Starting apkscan server %s", Version)

	catalogue, err := loadCatalogue(cfg, logger)
	if err != nil {
		return err
	}
	an, err := analyzer.New(catalogue, logger, analyzer.Options{
		Workers:   cfg.Scan.Workers,
		CacheSize: cfg.Scan.CacheSize,
	})
	if err != nil {
		return err
	}

	var promMetrics *middleware.PrometheusMetrics
	if cfg.Metrics.Enabled {
		promMetrics = middleware.NewPrometheusMetrics(logger, middleware.DefaultNamespace)
	}

	events := handlers.NewScanEventHandler(logger)
	events.Start(ctx)

	stack, err := buildStack(ctx, cfg, logger, an, stackOptions{metrics: promMetrics, notifier: events})
	if err != nil {
		return err
	}
	defer stack.Close()

	_, stopConsumer, err := startRequestConsumer(ctx, cfg, stack.scans, logger)
	if err != nil {
		return err
	}
	defer stopConsumer()

	if opts.Watch {
		stopWatch, err := startWatching(ctx, cfg, stack.scans, promMetrics, logger)
		if err != nil {
			return err
		}
		defer stopWatch()
	}

	router := api.SetupRouter(cfg, logger, stack.scans, promMetrics, events)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Minute, // 支持大文件上传
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":  server.Addr,
			"rules": catalogue.Len(),
		}).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown error")
	}

	logger.Info("Server stopped")
	return nil
}
