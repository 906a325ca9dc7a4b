package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/apk-analysis/apk-fingerprint-go/internal/analyzer"
	"github.com/apk-analysis/apk-fingerprint-go/internal/domain"
	"github.com/apk-analysis/apk-fingerprint-go/internal/fingerprint"
	"github.com/apk-analysis/apk-fingerprint-go/internal/queue"
	"github.com/apk-analysis/apk-fingerprint-go/internal/repository"
	"github.com/apk-analysis/apk-fingerprint-go/internal/retry"
	"github.com/apk-analysis/apk-fingerprint-go/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrScanNotFound 扫描记录不存在
var ErrScanNotFound = errors.New("scan not found")

// ErrNoAPK 请求既没有路径也没有内容
var ErrNoAPK = errors.New("scan request has no APK")

// Analyzer 报告聚合器
type Analyzer interface {
	AnalyzeFile(ctx context.Context, path string) (*analyzer.Result, error)
	AnalyzeReader(ctx context.Context, r io.ReadSeeker, name string) (*analyzer.Result, error)
	Catalogue() *fingerprint.Catalogue
}

// EventPublisher 扫描事件发布
type EventPublisher interface {
	PublishScanCompleted(ctx context.Context, event *queue.ScanCompletedEvent) error
}

// Metrics 扫描指标
type Metrics interface {
	RecordScanStarted()
	RecordScanCompleted(source string, duration time.Duration, frameworks []string, cached bool)
	RecordScanFailed(source string, duration time.Duration)
	RecordSideEffectFailure(operation string)
}

// ScanEvent 推送给实时订阅者的事件
type ScanEvent struct {
	Type string             `json:"type"`
	Scan *domain.ScanRecord `json:"scan"`
}

// Notifier 实时推送（WebSocket）
type Notifier interface {
	Notify(event ScanEvent)
}

// ScanRequest 扫描请求。Path 和 Reader 二选一。
type ScanRequest struct {
	Path     string
	Reader   io.ReadSeeker
	FileName string
	Source   domain.ScanSource
	Archive  bool // 是否归档到对象存储
}

// ScanService 扫描服务接口
type ScanService interface {
	// 执行扫描并持久化；分析失败时返回失败记录和错误
	Submit(ctx context.Context, req *ScanRequest) (*domain.ScanRecord, *analyzer.Report, error)

	// 处理消息队列中的扫描请求
	HandleQueueRequest(ctx context.Context, msg *queue.ScanRequestMessage) error

	GetScan(ctx context.Context, id string) (*domain.ScanRecord, error)
	GetLatestBySHA256(ctx context.Context, sha256 string) (*domain.ScanRecord, error)
	GetReport(ctx context.Context, id string) (json.RawMessage, error)
	ListScans(ctx context.Context, filter repository.ScanFilter) ([]domain.ScanRecord, int64, error)
	FrameworkStatistics(ctx context.Context) ([]domain.FrameworkStat, error)
	DeleteScan(ctx context.Context, id string) error

	// 当前生效的指纹规则
	Rules() []fingerprint.Rule
}

// Option 可选依赖
type Option func(*scanService)

// WithStorage 上传的 APK 归档到对象存储
func WithStorage(store storage.Store) Option {
	return func(s *scanService) { s.store = store }
}

// WithEvents 扫描结束后发布事件
func WithEvents(events EventPublisher) Option {
	return func(s *scanService) { s.events = events }
}

// WithNotifier 实时推送
func WithNotifier(n Notifier) Option {
	return func(s *scanService) { s.notifier = n }
}

// WithMetrics 记录 Prometheus 指标
func WithMetrics(m Metrics) Option {
	return func(s *scanService) { s.metrics = m }
}

// WithRetry 外部依赖的重试策略
func WithRetry(cfg *retry.Config) Option {
	return func(s *scanService) { s.retryCfg = cfg }
}

type scanService struct {
	analyzer Analyzer
	repo     repository.ScanRepository
	store    storage.Store
	events   EventPublisher
	notifier Notifier
	metrics  Metrics
	retryCfg *retry.Config
	logger   *logrus.Logger
}

// NewScanService 创建扫描服务实例
func NewScanService(an Analyzer, repo repository.ScanRepository, logger *logrus.Logger, opts ...Option) ScanService {
	s := &scanService{
		analyzer: an,
		repo:     repo,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retryCfg == nil {
		s.retryCfg = retry.Backoff(logger)
	}
	return s
}

func (s *scanService) Submit(ctx context.Context, req *ScanRequest) (*domain.ScanRecord, *analyzer.Report, error) {
	startTime := time.Now()
	if req.Source == "" {
		req.Source = domain.SourceUpload
	}
	if req.FileName == "" && req.Path != "" {
		req.FileName = filepath.Base(req.Path)
	}

	if s.metrics != nil {
		s.metrics.RecordScanStarted()
	}

	result, err := s.analyze(ctx, req)
	if err != nil {
		record := s.failedRecord(ctx, req, err, time.Since(startTime))
		s.finish(ctx, record, false)
		return record, nil, err
	}

	record, err := newCompletedRecord(req, result)
	if err != nil {
		record = s.failedRecord(ctx, req, err, time.Since(startTime))
		s.finish(ctx, record, false)
		return record, nil, err
	}

	if req.Archive {
		record.ObjectKey = s.archive(ctx, req, result.Artifact)
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.WithError(err).WithField("scan_id", record.ID).Error("Failed to persist scan")
		if s.metrics != nil {
			s.metrics.RecordSideEffectFailure("persist")
			s.metrics.RecordScanFailed(string(req.Source), time.Since(startTime))
		}
		return nil, nil, fmt.Errorf("保存扫描记录失败: %w", err)
	}

	s.finish(ctx, record, result.Artifact.Cached)

	s.logger.WithFields(logrus.Fields{
		"scan_id":      record.ID,
		"file":         record.FileName,
		"package_name": record.PackageName,
		"frameworks":   record.Frameworks(),
		"cached":       result.Artifact.Cached,
	}).Info("Scan completed")

	return record, result.Report, nil
}

func (s *scanService) analyze(ctx context.Context, req *ScanRequest) (*analyzer.Result, error) {
	switch {
	case req.Reader != nil:
		return s.analyzer.AnalyzeReader(ctx, req.Reader, req.FileName)
	case req.Path != "":
		return s.analyzer.AnalyzeFile(ctx, req.Path)
	default:
		return nil, ErrNoAPK
	}
}

// newCompletedRecord 报告转为数据库记录
func newCompletedRecord(req *ScanRequest, result *analyzer.Result) (*domain.ScanRecord, error) {
	report := result.Report
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}

	info := report.APKInfo
	record := &domain.ScanRecord{
		ID:              uuid.New().String(),
		FileName:        req.FileName,
		Source:          req.Source,
		Status:          domain.ScanStatusCompleted,
		FileSize:        result.Artifact.FileSize,
		MD5:             result.Artifact.MD5,
		SHA256:          result.Artifact.SHA256,
		PackageName:     info.PackageName,
		APILevel:        int(info.APILevel),
		PermissionCount: len(info.Permissions),
		ActivityCount:   len(info.Activities),
		ServiceCount:    len(info.Services),
		ReceiverCount:   len(info.Receivers),
		ProviderCount:   len(info.Providers),
		ReportJSON:      string(reportJSON),
		DurationMs:      int(result.Artifact.Duration.Milliseconds()),
		CreatedAt:       time.Now().UTC(),
		Detections:      make([]domain.ScanDetection, 0, len(report.Results)),
	}

	for i, res := range report.Results {
		record.Detections = append(record.Detections, domain.ScanDetection{
			ScanID:     record.ID,
			Framework:  res.Name,
			Position:   i,
			MatchCount: len(res.Matches),
		})
	}

	return record, nil
}

// failedRecord 失败的扫描也会落库，便于排查
func (s *scanService) failedRecord(ctx context.Context, req *ScanRequest, cause error, duration time.Duration) *domain.ScanRecord {
	s.logger.WithError(cause).WithField("file", req.FileName).Warn("Scan failed")

	record := &domain.ScanRecord{
		ID:           uuid.New().String(),
		FileName:     req.FileName,
		Source:       req.Source,
		Status:       domain.ScanStatusFailed,
		ErrorMessage: cause.Error(),
		DurationMs:   int(duration.Milliseconds()),
		CreatedAt:    time.Now().UTC(),
		Detections:   []domain.ScanDetection{},
	}

	if err := s.repo.Create(context.WithoutCancel(ctx), record); err != nil {
		s.logger.WithError(err).Error("Failed to persist failed scan")
		if s.metrics != nil {
			s.metrics.RecordSideEffectFailure("persist")
		}
	}
	return record
}

// archive 按内容哈希上传，已存在则跳过。失败不影响扫描结果。
func (s *scanService) archive(ctx context.Context, req *ScanRequest, artifact analyzer.Artifact) string {
	if s.store == nil || artifact.SHA256 == "" {
		return ""
	}

	key := storage.ObjectKey(artifact.SHA256)
	err := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		body, closeFn, err := openForUpload(req)
		if err != nil {
			return retry.Permanent(err)
		}
		defer closeFn()

		return s.store.Put(ctx, key, body, artifact.FileSize)
	})
	if err != nil {
		s.logger.WithError(err).WithField("object_key", key).Warn("Failed to archive APK")
		if s.metrics != nil {
			s.metrics.RecordSideEffectFailure("storage")
		}
		return ""
	}
	return key
}

func openForUpload(req *ScanRequest) (io.Reader, func(), error) {
	if req.Reader != nil {
		if _, err := req.Reader.Seek(0, io.SeekStart); err != nil {
			return nil, nil, err
		}
		return req.Reader, func() {}, nil
	}

	f, err := os.Open(req.Path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// finish 推送、发布事件并记录指标
func (s *scanService) finish(ctx context.Context, record *domain.ScanRecord, cached bool) {
	if s.notifier != nil {
		s.notifier.Notify(ScanEvent{Type: queue.EventScanCompleted, Scan: record})
	}

	if s.events != nil {
		event := &queue.ScanCompletedEvent{
			ScanID:      record.ID,
			Status:      string(record.Status),
			FileName:    record.FileName,
			SHA256:      record.SHA256,
			PackageName: record.PackageName,
			Frameworks:  record.Frameworks(),
			Error:       record.ErrorMessage,
			DurationMs:  int64(record.DurationMs),
			Timestamp:   time.Now().UTC(),
		}
		err := retry.Do(context.WithoutCancel(ctx), s.retryCfg, func(ctx context.Context) error {
			return s.events.PublishScanCompleted(ctx, event)
		})
		if err != nil {
			s.logger.WithError(err).WithField("scan_id", record.ID).Warn("Failed to publish scan event")
			if s.metrics != nil {
				s.metrics.RecordSideEffectFailure("publish")
			}
		}
	}

	if s.metrics != nil {
		duration := time.Duration(record.DurationMs) * time.Millisecond
		if record.Status == domain.ScanStatusCompleted {
			s.metrics.RecordScanCompleted(string(record.Source), duration, record.Frameworks(), cached)
		} else {
			s.metrics.RecordScanFailed(string(record.Source), duration)
		}
	}
}

func (s *scanService) HandleQueueRequest(ctx context.Context, msg *queue.ScanRequestMessage) error {
	req := &ScanRequest{
		Path:     msg.Path,
		FileName: msg.FileName,
		Source:   domain.SourceQueue,
	}

	if msg.Path == "" {
		if s.store == nil {
			return fmt.Errorf("object %s requested but storage is disabled", msg.ObjectKey)
		}
		data, err := s.fetchObject(ctx, msg.ObjectKey)
		if err != nil {
			return err
		}
		req.Reader = bytes.NewReader(data)
		if req.FileName == "" {
			req.FileName = filepath.Base(msg.ObjectKey)
		}
	}

	_, _, err := s.Submit(ctx, req)
	return err
}

func (s *scanService) fetchObject(ctx context.Context, key string) ([]byte, error) {
	return retry.DoWithResult(ctx, s.retryCfg, func(ctx context.Context) ([]byte, error) {
		rc, err := s.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, retry.Permanent(err)
			}
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	})
}

func (s *scanService) GetScan(ctx context.Context, id string) (*domain.ScanRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "获取扫描记录失败")
	}
	return record, nil
}

func (s *scanService) GetLatestBySHA256(ctx context.Context, sha256 string) (*domain.ScanRecord, error) {
	record, err := s.repo.FindLatestBySHA256(ctx, sha256)
	if err != nil {
		return nil, notFound(err, "获取扫描记录失败")
	}
	return record, nil
}

func (s *scanService) GetReport(ctx context.Context, id string) (json.RawMessage, error) {
	record, err := s.GetScan(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != domain.ScanStatusCompleted || record.ReportJSON == "" {
		return nil, fmt.Errorf("%w: scan %s has no report", ErrScanNotFound, id)
	}
	return json.RawMessage(record.ReportJSON), nil
}

func (s *scanService) ListScans(ctx context.Context, filter repository.ScanFilter) ([]domain.ScanRecord, int64, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list scans")
		return nil, 0, fmt.Errorf("获取扫描列表失败: %w", err)
	}
	return records, total, nil
}

func (s *scanService) FrameworkStatistics(ctx context.Context) ([]domain.FrameworkStat, error) {
	stats, err := s.repo.FrameworkStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取框架统计失败: %w", err)
	}
	return stats, nil
}

func (s *scanService) DeleteScan(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, "删除扫描记录失败")
	}
	s.logger.WithField("scan_id", id).Info("Scan deleted")
	return nil
}

func (s *scanService) Rules() []fingerprint.Rule {
	return s.analyzer.Catalogue().Rules()
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrScanNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
