package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/apk-analysis/apk-fingerprint-go/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

type collector struct {
	mu    sync.Mutex
	files []string
	ch    chan string
}

func newCollector() *collector {
	return &collector{ch: make(chan string, 16)}
}

func (c *collector) handle(ctx context.Context, path string) error {
	c.mu.Lock()
	c.files = append(c.files, path)
	c.mu.Unlock()
	c.ch <- path
	return nil
}

func (c *collector) wait(t *testing.T) string {
	t.Helper()
	select {
	case path := <-c.ch:
		return path
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for file")
		return ""
	}
}

func newTestWatcher(t *testing.T, cfg *config.WatcherConfig, handler FileHandler) *FileWatcher {
	t.Helper()
	fw, err := NewFileWatcher(cfg, handler, testLogger())
	require.NoError(t, err)
	fw.pollInterval = 20 * time.Millisecond
	t.Cleanup(func() { fw.Stop() })
	return fw
}

// TestFileWatcher_NewFile 新的 APK 防抖后只处理一次
func TestFileWatcher_NewFile(t *testing.T) {
	dir := t.TempDir()
	c := newCollector()
	fw := newTestWatcher(t, &config.WatcherConfig{Dir: dir, Pattern: "*.apk", DebounceMS: 100}, c.handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	path := filepath.Join(dir, "app.apk")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("first and second"), 0644))

	assert.Equal(t, path, c.wait(t))

	time.Sleep(300 * time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, []string{path}, c.files)
}

// TestFileWatcher_ScanExisting 启动时处理已有文件
func TestFileWatcher_ScanExisting(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "old.APK")
	require.NoError(t, os.WriteFile(existing, []byte("apk"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.apk"), 0755))

	c := newCollector()
	fw := newTestWatcher(t, &config.WatcherConfig{Dir: dir, ScanExisting: true, DebounceMS: 50}, c.handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	assert.Equal(t, existing, c.wait(t))
}

// TestFileWatcher_CreatesDir 监控目录不存在时自动创建
func TestFileWatcher_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "incoming")
	fw := newTestWatcher(t, &config.WatcherConfig{Dir: dir}, newCollector().handle)

	assert.DirExists(t, dir)
	assert.Equal(t, dir, fw.WatchDir())
	assert.Equal(t, "*.apk", fw.pattern)
	assert.Equal(t, 2*time.Second, fw.debounce)

	_, err := NewFileWatcher(&config.WatcherConfig{}, nil, testLogger())
	assert.Error(t, err)
}

// TestWaitForFileReady 空文件和不存在的文件
func TestWaitForFileReady(t *testing.T) {
	dir := t.TempDir()
	fw := newTestWatcher(t, &config.WatcherConfig{Dir: dir}, newCollector().handle)
	fw.pollInterval = time.Millisecond

	ready := filepath.Join(dir, "ready.apk")
	require.NoError(t, os.WriteFile(ready, []byte("content"), 0644))
	assert.NoError(t, fw.waitForFileReady(context.Background(), ready))

	empty := filepath.Join(dir, "empty.apk")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	assert.Error(t, fw.waitForFileReady(context.Background(), empty))

	assert.Error(t, fw.waitForFileReady(context.Background(), filepath.Join(dir, "missing.apk")))
}

// TestMatchPattern 文件名匹配
func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*.apk", "app.apk", true},
		{"*.apk", "APP.APK", true},
		{"*.apk", "app.apk.part", false},
		{"*", "anything", true},
		{"release-*.apk", "release-1.apk", true},
		{"release-*.apk", "debug-1.apk", false},
		{"fixed.apk", "fixed.apk", true},
	}

	for _, tt := range tests {
		fw := &FileWatcher{pattern: tt.pattern}
		assert.Equal(t, tt.want, fw.matchPattern(tt.name), "%s ~ %s", tt.pattern, tt.name)
	}
}
