package api

import (
	"time"

	"github.com/apk-analysis/apk-fingerprint-go/internal/api/handlers"
	"github.com/apk-analysis/apk-fingerprint-go/internal/config"
	"github.com/apk-analysis/apk-fingerprint-go/internal/middleware"
	"github.com/apk-analysis/apk-fingerprint-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Version 服务版本
const Version = "1.0.0"

// SetupRouter 注册全部路由。promMetrics 和 events 可以为 nil。
func SetupRouter(cfg *config.Config, logger *logrus.Logger, scanService service.ScanService, promMetrics *middleware.PrometheusMetrics, events *handlers.ScanEventHandler) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger))
	r.Use(CORSMiddleware())

	if promMetrics != nil {
		r.Use(promMetrics.HTTPMiddleware())
		if cfg.Metrics.Enabled {
			path := cfg.Metrics.Path
			if path == "" {
				path = "/metrics"
			}
			r.GET(path, promMetrics.Handler())
		}
	}

	scanHandler := handlers.NewScanHandler(scanService, logger, cfg.Scan.UploadDir, cfg.Scan.MaxSizeMB)

	// 健康检查（无需认证）
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": Version,
			"rules":   len(scanService.Rules()),
		})
	})

	v1 := r.Group("/api")
	if cfg.Server.APIToken != "" {
		v1.Use(middleware.AuthMiddleware(cfg.Server.APIToken))
	}
	{
		v1.GET("/rules", scanHandler.ListRules)

		v1.POST("/scans", scanHandler.UploadScan)
		v1.GET("/scans", scanHandler.ListScans)
		v1.GET("/scans/sha256/:sha", scanHandler.GetScanBySHA256) // 必须在 :id 之前
		v1.GET("/scans/:id", scanHandler.GetScan)
		v1.GET("/scans/:id/report", scanHandler.GetReport)
		v1.DELETE("/scans/:id", scanHandler.DeleteScan)

		v1.GET("/statistics/frameworks", scanHandler.FrameworkStatistics)
	}

	if events != nil {
		ws := r.Group("/ws")
		if cfg.Server.APIToken != "" {
			ws.Use(middleware.AuthMiddleware(cfg.Server.APIToken))
		}
		ws.GET("/scans", events.HandleWebSocket)
	}

	return r
}

// LoggerMiddleware 日志中间件
func LoggerMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		logger.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"latency": time.Since(startTime).Milliseconds(),
		}).Info("HTTP Request")
	}
}

// CORSMiddleware CORS 中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.TokenHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
