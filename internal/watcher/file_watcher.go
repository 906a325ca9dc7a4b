package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/apk-analysis/apk-fingerprint-go/internal/config"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// FileHandler 文件处理函数
type FileHandler func(ctx context.Context, filePath string) error

// FileWatcher 文件监控器
type FileWatcher struct {
	watcher      *fsnotify.Watcher
	watchDir     string
	pattern      string // 文件匹配模式 (如 "*.apk")
	handler      FileHandler
	logger       *logrus.Logger
	debounce     time.Duration // 防抖时间
	pollInterval time.Duration // 检查写入完成的间隔
	scanExisting bool

	mu         sync.Mutex
	processing map[string]bool
	timers     map[string]*time.Timer
	stopOnce   sync.Once
	stopChan   chan struct{}
}

// NewFileWatcher 创建文件监控器
func NewFileWatcher(cfg *config.WatcherConfig, handler FileHandler, logger *logrus.Logger) (*FileWatcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	pattern := cfg.Pattern
	if pattern == "" {
		pattern = "*.apk"
	}
	debounce := time.Duration(cfg.DebounceMS) * time.Millisecond
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// 确保监控目录存在
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to create watch directory: %w", err)
	}

	if err := watcher.Add(cfg.Dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to add watch directory: %w", err)
	}

	fw := &FileWatcher{
		watcher:      watcher,
		watchDir:     cfg.Dir,
		pattern:      pattern,
		handler:      handler,
		logger:       logger,
		debounce:     debounce,
		pollInterval: 500 * time.Millisecond,
		scanExisting: cfg.ScanExisting,
		processing:   make(map[string]bool),
		timers:       make(map[string]*time.Timer),
		stopChan:     make(chan struct{}),
	}

	logger.WithFields(logrus.Fields{
		"watch_dir": cfg.Dir,
		"pattern":   pattern,
		"debounce":  debounce,
	}).Info("File watcher created")

	return fw, nil
}

// Start 启动文件监控
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.logger.Info("Starting file watcher")

	// 默认不处理已有文件，避免重启后重复扫描
	if fw.scanExisting {
		if err := fw.scanExistingFiles(ctx); err != nil {
			fw.logger.WithError(err).Warn("Failed to scan existing files")
		}
	}

	go fw.eventLoop(ctx)

	fw.logger.Info("File watcher started successfully")
	return nil
}

// scanExistingFiles 扫描现有文件
func (fw *FileWatcher) scanExistingFiles(ctx context.Context) error {
	entries, err := os.ReadDir(fw.watchDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !fw.matchPattern(entry.Name()) {
			continue
		}
		filePath := filepath.Join(fw.watchDir, entry.Name())
		fw.logger.WithField("file", entry.Name()).Info("Found existing file")
		go fw.handleFile(ctx, filePath)
	}

	return nil
}

// eventLoop 事件循环
func (fw *FileWatcher) eventLoop(ctx context.Context) {
	defer fw.stopTimers()

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("File watcher context done")
			return
		case <-fw.stopChan:
			fw.logger.Info("File watcher stopped")
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				fw.logger.Warn("Watcher events channel closed")
				return
			}

			// 只处理创建、写入和移入（rename 到目录内表现为 Create）事件
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			fileName := filepath.Base(event.Name)
			if !fw.matchPattern(fileName) {
				continue
			}

			fw.logger.WithFields(logrus.Fields{
				"event": event.Op.String(),
				"file":  fileName,
			}).Debug("File event detected")

			fw.schedule(ctx, event.Name)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				fw.logger.Warn("Watcher errors channel closed")
				return
			}
			fw.logger.WithError(err).Error("Watcher error")
		}
	}
}

// schedule 防抖: 同一文件在短时间内多次触发只处理一次
func (fw *FileWatcher) schedule(ctx context.Context, path string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if timer, exists := fw.timers[path]; exists {
		timer.Stop()
	}
	fw.timers[path] = time.AfterFunc(fw.debounce, func() {
		fw.mu.Lock()
		delete(fw.timers, path)
		fw.mu.Unlock()
		fw.handleFile(ctx, path)
	})
}

func (fw *FileWatcher) stopTimers() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	for path, timer := range fw.timers {
		timer.Stop()
		delete(fw.timers, path)
	}
}

// handleFile 处理文件
func (fw *FileWatcher) handleFile(ctx context.Context, filePath string) {
	fw.mu.Lock()
	if fw.processing[filePath] {
		fw.mu.Unlock()
		fw.logger.WithField("file", filePath).Debug("File is already being processed")
		return
	}
	fw.processing[filePath] = true
	fw.mu.Unlock()

	defer func() {
		fw.mu.Lock()
		delete(fw.processing, filePath)
		fw.mu.Unlock()
	}()

	if err := fw.waitForFileReady(ctx, filePath); err != nil {
		fw.logger.WithError(err).WithField("file", filePath).Error("File not ready")
		return
	}

	fw.logger.WithField("file", filePath).Info("Processing file")

	if err := fw.handler(ctx, filePath); err != nil {
		fw.logger.WithError(err).WithField("file", filePath).Error("Failed to process file")
		return
	}

	fw.logger.WithField("file", filePath).Debug("File processed successfully")
}

// waitForFileReady 等待文件准备就绪 (大小稳定且非空)
func (fw *FileWatcher) waitForFileReady(ctx context.Context, filePath string) error {
	const maxAttempts = 10

	var lastSize int64 = -1
	for i := 0; i < maxAttempts; i++ {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file does not exist")
			}
			return err
		}

		if info.Size() > 0 && info.Size() == lastSize {
			return nil
		}
		lastSize = info.Size()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(fw.pollInterval):
		}
	}

	return fmt.Errorf("file not ready after %d attempts", maxAttempts)
}

// matchPattern 检查文件名是否匹配模式
func (fw *FileWatcher) matchPattern(fileName string) bool {
	if fw.pattern == "*" {
		return true
	}

	if strings.HasPrefix(fw.pattern, "*.") {
		ext := strings.TrimPrefix(fw.pattern, "*")
		return strings.HasSuffix(strings.ToLower(fileName), strings.ToLower(ext))
	}

	matched, err := filepath.Match(fw.pattern, fileName)
	return err == nil && matched
}

// Stop 停止文件监控
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		fw.logger.Info("Stopping file watcher")
		close(fw.stopChan)
		err = fw.watcher.Close()
	})
	return err
}

// WatchDir 获取监控目录
func (fw *FileWatcher) WatchDir() string {
	return fw.watchDir
}
