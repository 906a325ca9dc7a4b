package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/apk-analysis/apk-fingerprint-go/internal/analyzer"
	"github.com/apk-analysis/apk-fingerprint-go/internal/config"
	"github.com/apk-analysis/apk-fingerprint-go/internal/middleware"
	"github.com/apk-analysis/apk-fingerprint-go/internal/queue"
	"github.com/apk-analysis/apk-fingerprint-go/internal/repository"
	"github.com/apk-analysis/apk-fingerprint-go/internal/retry"
	"github.com/apk-analysis/apk-fingerprint-go/internal/service"
	"github.com/apk-analysis/apk-fingerprint-go/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type stackOptions struct {
	metrics  *middleware.PrometheusMetrics
	notifier service.Notifier
}

// stack 长驻模式共用的依赖：数据库、对象存储、消息队列、扫描服务
type stack struct {
	db      *gorm.DB
	scans   service.ScanService
	logger  *logrus.Logger
	closers []func()
}

func buildStack(ctx context.Context, cfg *config.Config, logger *logrus.Logger, an *analyzer.Analyzer, opts stackOptions) (*stack, error) {
	s := &stack{logger: logger}

	db, err := repository.InitDB(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	s.db = db
	s.closers = append(s.closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	logger.WithField("type", cfg.Database.Type).Info("Database connected successfully")

	serviceOpts := []service.Option{service.WithRetry(retry.Backoff(logger))}

	if cfg.Storage.Enabled {
		store, err := storage.NewMinioStore(&cfg.Storage)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to init storage: %w", err)
		}
		serviceOpts = append(serviceOpts, service.WithStorage(store))
		logger.WithFields(logrus.Fields{
			"endpoint": cfg.Storage.Endpoint,
			"bucket":   store.Bucket(),
		}).Info("Object storage enabled")
	}

	if cfg.RabbitMQ.Enabled {
		mq, err := queue.NewRabbitMQ(&cfg.RabbitMQ, cfg.RabbitMQ.Queue, 1, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to init RabbitMQ: %w", err)
		}
		mq.StartConnectionWatcher()
		s.closers = append(s.closers, func() { mq.Close() })
		serviceOpts = append(serviceOpts, service.WithEvents(queue.NewProducer(mq, logger)))
		logger.WithField("queue", cfg.RabbitMQ.Queue).Info("Scan events will be published to RabbitMQ")
	}

	if opts.metrics != nil {
		serviceOpts = append(serviceOpts, service.WithMetrics(opts.metrics))
		opts.metrics.SetRulesLoaded(an.Catalogue().Len())
		go reportDBStats(ctx, db, opts.metrics)
	}
	if opts.notifier != nil {
		serviceOpts = append(serviceOpts, service.WithNotifier(opts.notifier))
	}

	s.scans = service.NewScanService(an, repository.NewScanRepository(db), logger, serviceOpts...)
	return s, nil
}

// Close 按创建的逆序释放资源
func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func reportDBStats(ctx context.Context, db *gorm.DB, metrics *middleware.PrometheusMetrics) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := sqlDB.Stats()
			metrics.UpdateDBStats(stats.OpenConnections, stats.InUse)
		}
	}
}

// startRequestConsumer 消费扫描请求队列，未配置时返回 nil
func startRequestConsumer(ctx context.Context, cfg *config.Config, scans service.ScanService, logger *logrus.Logger) (*queue.Consumer, func(), error) {
	if !cfg.RabbitMQ.Enabled || cfg.RabbitMQ.Requests == "" {
		return nil, func() {}, nil
	}

	workers := cfg.Worker.Concurrency
	if workers <= 0 {
		workers = 1
	}

	mq, err := queue.NewRabbitMQ(&cfg.RabbitMQ, cfg.RabbitMQ.Requests, workers, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init RabbitMQ consumer: %w", err)
	}

	consumer := queue.NewConsumer(mq, scans.HandleQueueRequest, workers, logger)
	if err := consumer.Start(ctx); err != nil {
		mq.Close()
		return nil, nil, fmt.Errorf("failed to start consumer: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"queue":   cfg.RabbitMQ.Requests,
		"workers": workers,
	}).Info("Scan request consumer started")

	return consumer, func() {
		consumer.Stop()
		mq.Close()
	}, nil
}
