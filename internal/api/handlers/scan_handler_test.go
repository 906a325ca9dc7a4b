package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apk-analysis/apk-fingerprint-go/internal/analyzer"
	"github.com/apk-analysis/apk-fingerprint-go/internal/apk"
	"github.com/apk-analysis/apk-fingerprint-go/internal/domain"
	"github.com/apk-analysis/apk-fingerprint-go/internal/fingerprint"
	"github.com/apk-analysis/apk-fingerprint-go/internal/manifest"
	"github.com/apk-analysis/apk-fingerprint-go/internal/queue"
	"github.com/apk-analysis/apk-fingerprint-go/internal/repository"
	"github.com/apk-analysis/apk-fingerprint-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockScanService Mock Service
type MockScanService struct {
	mock.Mock
}

func (m *MockScanService) Submit(ctx context.Context, req *service.ScanRequest) (*domain.ScanRecord, *analyzer.Report, error) {
	args := m.Called(req)
	var record *domain.ScanRecord
	if args.Get(0) != nil {
		record = args.Get(0).(*domain.ScanRecord)
	}
	var report *analyzer.Report
	if args.Get(1) != nil {
		report = args.Get(1).(*analyzer.Report)
	}
	return record, report, args.Error(2)
}

func (m *MockScanService) HandleQueueRequest(ctx context.Context, msg *queue.ScanRequestMessage) error {
	return m.Called(msg).Error(0)
}

func (m *MockScanService) GetScan(ctx context.Context, id string) (*domain.ScanRecord, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanRecord), args.Error(1)
}

func (m *MockScanService) GetLatestBySHA256(ctx context.Context, sha256 string) (*domain.ScanRecord, error) {
	args := m.Called(sha256)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanRecord), args.Error(1)
}

func (m *MockScanService) GetReport(ctx context.Context, id string) (json.RawMessage, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockScanService) ListScans(ctx context.Context, filter repository.ScanFilter) ([]domain.ScanRecord, int64, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.ScanRecord), args.Get(1).(int64), args.Error(2)
}

func (m *MockScanService) FrameworkStatistics(ctx context.Context) ([]domain.FrameworkStat, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FrameworkStat), args.Error(1)
}

func (m *MockScanService) DeleteScan(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *MockScanService) Rules() []fingerprint.Rule {
	return m.Called().Get(0).([]fingerprint.Rule)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// setupTestRouter 设置测试路由
func setupTestRouter(t *testing.T, svc service.ScanService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewScanHandler(svc, testLogger(), t.TempDir(), 1)

	r.POST("/api/scans", h.UploadScan)
	r.GET("/api/scans", h.ListScans)
	r.GET("/api/scans/sha256/:sha", h.GetScanBySHA256)
	r.GET("/api/scans/:id", h.GetScan)
	r.GET("/api/scans/:id/report", h.GetReport)
	r.DELETE("/api/scans/:id", h.DeleteScan)
	r.GET("/api/statistics/frameworks", h.FrameworkStatistics)
	r.GET("/api/rules", h.ListRules)
	return r
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

// TestScanHandler_UploadScan 上传并返回扫描记录和报告
func TestScanHandler_UploadScan(t *testing.T) {
	mockService := new(MockScanService)
	router := setupTestRouter(t, mockService)

	record := &domain.ScanRecord{ID: "scan-001", FileName: "hybrid.apk", Status: domain.ScanStatusCompleted}
	report := &analyzer.Report{
		APKInfo: &manifest.Summary{PackageName: "com.example.hybrid", APILevel: 30},
		Results: []fingerprint.DetectionResult{{Name: fingerprint.RuleCordova, Matches: []string{"assets/www/cordova.js"}}},
	}
	mockService.On("Submit", mock.MatchedBy(func(req *service.ScanRequest) bool {
		return req.FileName == "hybrid.apk" && req.Source == domain.SourceUpload && req.Reader != nil && req.Archive
	})).Return(record, report, nil)

	body, contentType := multipartBody(t, "hybrid.apk", []byte("PK\x03\x04"))
	req := httptest.NewRequest("POST", "/api/scans", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Scan   domain.ScanRecord `json:"scan"`
		Report json.RawMessage   `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "scan-001", response.Scan.ID)
	assert.Contains(t, string(response.Report), `"apk_info"`)
	assert.Contains(t, string(response.Report), fingerprint.RuleCordova)
	mockService.AssertExpectations(t)
}

// TestScanHandler_UploadScan_Rejected 扩展名、大小、缺少文件
func TestScanHandler_UploadScan_Rejected(t *testing.T) {
	mockService := new(MockScanService)
	router := setupTestRouter(t, mockService)

	body, contentType := multipartBody(t, "notes.txt", []byte("text"))
	req := httptest.NewRequest("POST", "/api/scans", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, contentType = multipartBody(t, "big.apk", make([]byte, 2<<20))
	req = httptest.NewRequest("POST", "/api/scans", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	req = httptest.NewRequest("POST", "/api/scans", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockService.AssertNotCalled(t, "Submit", mock.Anything)
}

// TestScanHandler_UploadScan_AnalysisFailed 无法解析的 APK 返回 422 和失败记录 ID
func TestScanHandler_UploadScan_AnalysisFailed(t *testing.T) {
	mockService := new(MockScanService)
	router := setupTestRouter(t, mockService)

	failed := &domain.ScanRecord{ID: "scan-failed", Status: domain.ScanStatusFailed}
	mockService.On("Submit", mock.Anything).Return(failed, nil, &apk.IOError{Op: "open", Path: "x.apk", Err: errors.New("zip: not a valid zip file")})

	body, contentType := multipartBody(t, "x.apk", []byte("garbage"))
	req := httptest.NewRequest("POST", "/api/scans", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "scan-failed", response["scan_id"])
}

// TestScanHandler_ListScans 分页参数和过滤条件
func TestScanHandler_ListScans(t *testing.T) {
	mockService := new(MockScanService)
	router := setupTestRouter(t, mockService)

	expected := repository.ScanFilter{Page: 2, Limit: 100, Framework: "Flutter", PackageName: "com.example", Status: domain.ScanStatusCompleted}
	mockService.On("ListScans", expected).Return([]domain.ScanRecord{{ID: "a"}, {ID: "b"}}, int64(102), nil)

	req := httptest.NewRequest("GET", "/api/scans?page=2&page_size=500&framework=Flutter&package=com.example&status=completed", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Scans    []domain.ScanRecord `json:"scans"`
		Total    int64               `json:"total"`
		Page     int                 `json:"page"`
		PageSize int                 `json:"page_size"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Scans, 2)
	assert.Equal(t, int64(102), response.Total)
	assert.Equal(t, 100, response.PageSize)
	mockService.AssertExpectations(t)
}

// TestScanHandler_ListScans_Error 查询失败
func TestScanHandler_ListScans_Error(t *testing.T) {
	mockService := new(MockScanService)
	router := setupTestRouter(t, mockService)
	mockService.On("ListScans", mock.Anything).Return(nil, int64(0), errors.New("database error"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/scans?page=abc", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// TestScanHandler_GetScan 获取记录和不存在的记录
func TestScanHandler_GetScan(t *testing.T) {
	mockService := new(MockScanService)
	router := setupTestRouter(t, mockService)

	mockService.On("GetScan", "scan-001").Return(&domain.ScanRecord{ID: "scan-001", CreatedAt: time.Now()}, nil)
	mockService.On("GetScan", "missing").Return(nil, service.ErrScanNotFound)
	mockService.On("GetScan", "broken").Return(nil, errors.New("database error"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/scans/scan-001", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/scans/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/scans/broken", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// TestScanHandler_GetScanBySHA256 按哈希查询，大小写不敏感
func TestScanHandler_GetScanBySHA256(t *testing.T) {
	mockService := new(MockScanService)
	router := setupTestRouter(t, mockService)
	mockService.On("GetLatestBySHA256", "abcdef").Return(&domain.ScanRecord{ID: "scan-001", SHA256: "abcdef"}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/scans/sha256/ABCDEF", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

// TestScanHandler_GetReport 原样返回两成员报告
func TestScanHandler_GetReport(t *testing.T) {
	mockService := new(MockScanService)
	router := setupTestRouter(t, mockService)

	raw := json.RawMessage(`{"apk_info":{"package_name":"com.example"},"results":[]}`)
	mockService.On("GetReport", "scan-001").Return(raw, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/scans/scan-001/report", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, string(raw), w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

// TestScanHandler_DeleteScan 删除
func TestScanHandler_DeleteScan(t *testing.T) {
	mockService := new(MockScanService)
	router := setupTestRouter(t, mockService)
	mockService.On("DeleteScan", "scan-001").Return(nil)
	mockService.On("DeleteScan", "missing").Return(service.ErrScanNotFound)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/scans/scan-001", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/scans/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestScanHandler_StatisticsAndRules 统计和规则列表
func TestScanHandler_StatisticsAndRules(t *testing.T) {
	mockService := new(MockScanService)
	router := setupTestRouter(t, mockService)
	mockService.On("FrameworkStatistics").Return([]domain.FrameworkStat{{Framework: "Flutter", Count: 3}}, nil)
	mockService.On("Rules").Return(fingerprint.BuiltinCatalogue().Rules())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/statistics/frameworks", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"frameworks":[{"framework":"Flutter","count":3}]}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/rules", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Rules []fingerprint.Rule `json:"rules"`
		Total int                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 7, response.Total)
	assert.Equal(t, fingerprint.RuleVKey, response.Rules[0].Name)
}

// TestScanEventHandler_Broadcast WebSocket 客户端收到扫描事件
func TestScanEventHandler_Broadcast(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewScanEventHandler(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx)

	r := gin.New()
	r.GET("/ws/scans", h.HandleWebSocket)
	server := httptest.NewServer(r)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws/scans", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Notify(service.ScanEvent{Type: queue.EventScanCompleted, Scan: &domain.ScanRecord{ID: "scan-001"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string            `json:"type"`
		Scan domain.ScanRecord `json:"scan"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, queue.EventScanCompleted, msg.Type)
	assert.Equal(t, "scan-001", msg.Scan.ID)

	conn.Close()
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
