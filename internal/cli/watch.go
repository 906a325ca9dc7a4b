package cli

import (
	"context"

	"github.com/apk-analysis/apk-fingerprint-go/internal/analyzer"
	"github.com/apk-analysis/apk-fingerprint-go/internal/config"
	"github.com/apk-analysis/apk-fingerprint-go/internal/middleware"
	"github.com/apk-analysis/apk-fingerprint-go/internal/service"
	"github.com/apk-analysis/apk-fingerprint-go/internal/watcher"
	"github.com/apk-analysis/apk-fingerprint-go/internal/worker"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	Dir          string
	ResultDir    string
	ScanExisting bool
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scan APKs dropped into a directory and store the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "Directory to watch (overrides watcher.dir)")
	cmd.Flags().StringVar(&opts.ResultDir, "results", "", "Directory for JSON reports (overrides watcher.result_dir)")
	cmd.Flags().BoolVar(&opts.ScanExisting, "existing", false, "Also scan APKs already present at startup")
	return cmd
}

func runWatch(cmd *cobra.Command, root *rootOptions, opts *watchOptions) error {
	cfg, logger, err := loadConfig(cmd, root, false)
	if err != nil {
		return err
	}
	if opts.Dir != "" {
		cfg.Watcher.Dir = opts.Dir
	}
	if opts.ResultDir != "" {
		cfg.Watcher.ResultDir = opts.ResultDir
	}
	if opts.ScanExisting {
		cfg.Watcher.ScanExisting = true
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

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

	stack, err := buildStack(ctx, cfg, logger, an, stackOptions{})
	if err != nil {
		return err
	}
	defer stack.Close()

	stopWatch, err := startWatching(ctx, cfg, stack.scans, nil, logger)
	if err != nil {
		return err
	}
	defer stopWatch()

	<-ctx.Done()
	logger.Info("Shutting down watcher...")
	return nil
}

// startWatching 监控目录 -> Worker 池 -> 扫描服务
func startWatching(ctx context.Context, cfg *config.Config, scans service.ScanService, metrics *middleware.PrometheusMetrics, logger *logrus.Logger) (func(), error) {
	processor, err := worker.NewScanProcessor(scans, cfg.Watcher.ResultDir, logger)
	if err != nil {
		return nil, err
	}

	pool := worker.NewPool(cfg.Worker.Concurrency, cfg.Worker.QueueSize, processor, logger)
	if metrics != nil {
		pool.SetStatsRecorder(metrics)
	}
	pool.Start(ctx)

	fw, err := watcher.NewFileWatcher(&cfg.Watcher, func(ctx context.Context, path string) error {
		return pool.SubmitAndWait(ctx, worker.NewTask(path))
	}, logger)
	if err != nil {
		pool.Stop()
		return nil, err
	}

	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		pool.Stop()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"dir":        fw.WatchDir(),
		"result_dir": cfg.Watcher.ResultDir,
		"workers":    cfg.Worker.Concurrency,
	}).Info("Watching for new APKs")

	return func() {
		fw.Stop()
		pool.Stop()
	}, nil
}
