package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/apk-analysis/apk-fingerprint-go/internal/api/handlers"
	"github.com/apk-analysis/apk-fingerprint-go/internal/config"
	"github.com/apk-analysis/apk-fingerprint-go/internal/domain"
	"github.com/apk-analysis/apk-fingerprint-go/internal/fingerprint"
	"github.com/apk-analysis/apk-fingerprint-go/internal/middleware"
	"github.com/apk-analysis/apk-fingerprint-go/internal/repository"
	"github.com/apk-analysis/apk-fingerprint-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type stubScanService struct {
	service.ScanService
}

func (stubScanService) Rules() []fingerprint.Rule {
	return fingerprint.BuiltinCatalogue().Rules()
}

func (stubScanService) ListScans(ctx context.Context, filter repository.ScanFilter) ([]domain.ScanRecord, int64, error) {
	return []domain.ScanRecord{}, 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Mode: "test"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestRouter(cfg *config.Config, metrics *middleware.PrometheusMetrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return SetupRouter(cfg, logger, stubScanService{}, metrics, handlers.NewScanEventHandler(logger))
}

// TestSetupRouter_Health 健康检查
func TestSetupRouter_Health(t *testing.T) {
	router := newTestRouter(testConfig(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.0.0","rules":7}`, w.Body.String())
}

// TestSetupRouter_Auth 设置 token 后 API 需要认证，健康检查除外
func TestSetupRouter_Auth(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIToken = "secret"
	router := newTestRouter(cfg, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/scans", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("GET", "/api/scans", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("GET", "/api/scans", nil)
	req.Header.Set("X-API-Token", "secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ws/scans", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestSetupRouter_Metrics Prometheus 端点记录 HTTP 请求
func TestSetupRouter_Metrics(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	router := newTestRouter(testConfig(), middleware.NewPrometheusMetrics(logger, ""))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/rules", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `apkscan_http_requests_total{method="GET",path="/api/rules",status="200"} 1`))
}

// TestCORSMiddleware 预检请求
func TestCORSMiddleware(t *testing.T) {
	router := newTestRouter(testConfig(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/api/scans", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-API-Token")
}
