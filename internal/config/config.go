package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPath 未指定 --config 时尝试读取的配置文件
const DefaultPath = "configs/config.yaml"

// EnvPrefix 环境变量前缀，如 APKSCAN_LOG_LEVEL
const EnvPrefix = "APKSCAN"

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, stderr
}

// ScanConfig 指纹扫描配置
type ScanConfig struct {
	RulesFile string `mapstructure:"rules_file"` // 额外的 YAML 规则
	Workers   int    `mapstructure:"workers"`    // 规则并行数
	CacheSize int    `mapstructure:"cache_size"` // 按 SHA-256 缓存的报告数
	UploadDir string `mapstructure:"upload_dir"` // 上传文件暂存目录
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Mode     string `mapstructure:"mode"`      // debug, release
	APIToken string `mapstructure:"api_token"` // 为空时不启用鉴权
}

type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // mysql, sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db_name"` // sqlite 时为文件路径
}

type RabbitMQConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
	Queue    string `mapstructure:"queue"`         // scan.completed 事件队列
	Requests string `mapstructure:"request_queue"` // 扫描请求队列，为空时不消费
}

// StorageConfig S3 兼容对象存储（MinIO）
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// WatcherConfig 目录监控配置
type WatcherConfig struct {
	Dir          string `mapstructure:"dir"`
	Pattern      string `mapstructure:"pattern"`
	DebounceMS   int    `mapstructure:"debounce_ms"`
	ResultDir    string `mapstructure:"result_dir"` // 为空时不落盘 JSON 报告
	ScanExisting bool   `mapstructure:"scan_existing"`
}

type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"` // Worker 数量
	QueueSize   int `mapstructure:"queue_size"`  // 任务队列大小
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("scan.rules_file", "")
	v.SetDefault("scan.workers", 1)
	v.SetDefault("scan.cache_size", 256)
	v.SetDefault("scan.upload_dir", "data/uploads")
	v.SetDefault("scan.max_size_mb", 512)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.api_token", "")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.db_name", "data/apkscan.db")
	v.SetDefault("database.port", 3306)

	v.SetDefault("rabbitmq.enabled", false)
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.vhost", "/")
	v.SetDefault("rabbitmq.queue", "apk_scan_events")
	v.SetDefault("rabbitmq.request_queue", "")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.bucket", "apk-uploads")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.use_ssl", false)

	v.SetDefault("watcher.dir", "data/inbox")
	v.SetDefault("watcher.pattern", "*.apk")
	v.SetDefault("watcher.debounce_ms", 2000)
	v.SetDefault("watcher.result_dir", "")
	v.SetDefault("watcher.scan_existing", false)

	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.queue_size", 100)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load 读取配置。path 为空时尝试 DefaultPath，文件不存在则只使用默认值和环境变量。
func Load(path string) (*Config, error) {
	// .env 可选
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// 环境变量覆盖（支持嵌套配置）
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 绑定常用的服务环境变量
	// Database
	v.BindEnv("database.host", "APKSCAN_DATABASE_HOST", "MYSQL_HOST")
	v.BindEnv("database.port", "APKSCAN_DATABASE_PORT", "MYSQL_PORT")
	v.BindEnv("database.user", "APKSCAN_DATABASE_USER", "MYSQL_USER")
	v.BindEnv("database.password", "APKSCAN_DATABASE_PASSWORD", "MYSQL_PASS")
	v.BindEnv("database.db_name", "APKSCAN_DATABASE_DB_NAME", "MYSQL_DB")

	// RabbitMQ
	v.BindEnv("rabbitmq.host", "APKSCAN_RABBITMQ_HOST", "RABBITMQ_HOST")
	v.BindEnv("rabbitmq.port", "APKSCAN_RABBITMQ_PORT", "RABBITMQ_PORT")
	v.BindEnv("rabbitmq.user", "APKSCAN_RABBITMQ_USER", "RABBITMQ_USER")
	v.BindEnv("rabbitmq.password", "APKSCAN_RABBITMQ_PASSWORD", "RABBITMQ_PASS")

	// MinIO
	v.BindEnv("storage.endpoint", "APKSCAN_STORAGE_ENDPOINT", "MINIO_ENDPOINT")
	v.BindEnv("storage.access_key", "APKSCAN_STORAGE_ACCESS_KEY", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "APKSCAN_STORAGE_SECRET_KEY", "MINIO_SECRET_KEY")

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
