package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults 没有配置文件时使用默认值
func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "*.apk", cfg.Watcher.Pattern)
	assert.Equal(t, 256, cfg.Scan.CacheSize)
	assert.False(t, cfg.Storage.Enabled)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

// TestLoad_File 配置文件覆盖默认值
func TestLoad_File(t *testing.T) {
	t.Chdir(t.TempDir())

	content := `
log:
  level: debug
  format: json
scan:
  workers: 4
  rules_file: rules/extra.yaml
server:
  port: 9090
  api_token: secret
database:
  type: mysql
  host: db.local
storage:
  enabled: true
  endpoint: minio:9000
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Scan.Workers)
	assert.Equal(t, "rules/extra.yaml", cfg.Scan.RulesFile)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.APIToken)
	assert.Equal(t, "mysql", cfg.Database.Type)
	assert.Equal(t, "db.local", cfg.Database.Host)
	assert.True(t, cfg.Storage.Enabled)
	assert.Equal(t, "minio:9000", cfg.Storage.Endpoint)
	assert.Equal(t, "apk-uploads", cfg.Storage.Bucket)
}

// TestLoad_Env 环境变量优先
func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APKSCAN_LOG_LEVEL", "warn")
	t.Setenv("MYSQL_HOST", "mysql.internal")
	t.Setenv("APKSCAN_SERVER_PORT", "7000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "mysql.internal", cfg.Database.Host)
	assert.Equal(t, 7000, cfg.Server.Port)
}

// TestLoad_MissingExplicitFile 显式指定的文件不存在时报错
func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestInitLogger 日志级别和输出
func TestInitLogger(t *testing.T) {
	logger := InitLogger(&LogConfig{Level: "debug", Format: "json", Output: "stderr"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.Equal(t, os.Stderr, logger.Out)
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = InitLogger(&LogConfig{Level: "bogus"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.Equal(t, os.Stdout, logger.Out)
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
