package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apk-analysis/apk-fingerprint-go/internal/apk"
	"github.com/apk-analysis/apk-fingerprint-go/internal/domain"
	"github.com/apk-analysis/apk-fingerprint-go/internal/manifest"
	"github.com/apk-analysis/apk-fingerprint-go/internal/repository"
	"github.com/apk-analysis/apk-fingerprint-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ScanHandler 扫描处理器
type ScanHandler struct {
	scanService service.ScanService
	logger      *logrus.Logger
	uploadDir   string // 上传文件暂存目录
	maxSize     int64
}

// NewScanHandler 创建扫描处理器实例
func NewScanHandler(scanService service.ScanService, logger *logrus.Logger, uploadDir string, maxSizeMB int) *ScanHandler {
	if maxSizeMB <= 0 {
		maxSizeMB = 512
	}
	return &ScanHandler{
		scanService: scanService,
		logger:      logger,
		uploadDir:   uploadDir,
		maxSize:     int64(maxSizeMB) << 20,
	}
}

// UploadScan 上传 APK 并同步扫描
// POST /api/scans (multipart: file)
func (h *ScanHandler) UploadScan(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "获取上传文件失败",
		})
		return
	}

	filename := filepath.Base(file.Filename)
	if !strings.HasSuffix(strings.ToLower(filename), ".apk") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "只支持 APK 文件格式",
		})
		return
	}

	if file.Size > h.maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("文件大小超过限制 (最大 %dMB)", h.maxSize>>20),
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		h.logger.WithError(err).Error("Failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "打开上传文件失败",
		})
		return
	}
	defer src.Close()

	// 暂存到上传目录，扫描结束后删除
	tmp, err := h.spool(src)
	if err != nil {
		h.logger.WithError(err).Error("Failed to store uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "文件上传失败",
		})
		return
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	record, report, err := h.scanService.Submit(c.Request.Context(), &service.ScanRequest{
		Reader:   tmp,
		FileName: filename,
		Source:   domain.SourceUpload,
		Archive:  true,
	})
	if err != nil {
		status, msg := scanErrorStatus(err)
		resp := gin.H{"error": msg, "detail": err.Error()}
		if record != nil {
			resp["scan_id"] = record.ID
		}
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"scan":   record,
		"report": report,
	})
}

func (h *ScanHandler) spool(src io.Reader) (*os.File, error) {
	dir := h.uploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(dir, "upload-*.apk")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(tmp, io.LimitReader(src, h.maxSize+1)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	return tmp, nil
}

// scanErrorStatus 无法解析的 APK 属于客户端错误
func scanErrorStatus(err error) (int, string) {
	var ioErr *apk.IOError
	var decErr *apk.DecodeError
	switch {
	case errors.As(err, &ioErr), errors.As(err, &decErr), errors.Is(err, manifest.ErrMalformed):
		return http.StatusUnprocessableEntity, "APK 解析失败"
	default:
		return http.StatusInternalServerError, "扫描失败"
	}
}

// ListScans 获取扫描列表
// GET /api/scans?page=1&page_size=20&framework=Flutter&package=com.example&status=completed
func (h *ScanHandler) ListScans(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page <= 0 {
		page = 1
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	filter := repository.ScanFilter{
		Page:        page,
		Limit:       pageSize,
		Framework:   c.Query("framework"),
		PackageName: c.Query("package"),
		Status:      domain.ScanStatus(c.Query("status")),
	}

	scans, total, err := h.scanService.ListScans(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list scans")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "获取扫描列表失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scans":     scans,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetScan 获取扫描记录
// GET /api/scans/:id
func (h *ScanHandler) GetScan(c *gin.Context) {
	scanID := c.Param("id")

	scan, err := h.scanService.GetScan(c.Request.Context(), scanID)
	if err != nil {
		h.notFoundOrError(c, err, "获取扫描记录失败")
		return
	}

	c.JSON(http.StatusOK, scan)
}

// GetScanBySHA256 按文件哈希获取最近一次成功的扫描
// GET /api/scans/sha256/:sha
func (h *ScanHandler) GetScanBySHA256(c *gin.Context) {
	sha := strings.ToLower(c.Param("sha"))

	scan, err := h.scanService.GetLatestBySHA256(c.Request.Context(), sha)
	if err != nil {
		h.notFoundOrError(c, err, "获取扫描记录失败")
		return
	}

	c.JSON(http.StatusOK, scan)
}

// GetReport 获取原始报告（apk_info + results）
// GET /api/scans/:id/report
func (h *ScanHandler) GetReport(c *gin.Context) {
	scanID := c.Param("id")

	raw, err := h.scanService.GetReport(c.Request.Context(), scanID)
	if err != nil {
		h.notFoundOrError(c, err, "获取扫描报告失败")
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// DeleteScan 删除扫描记录
// DELETE /api/scans/:id
func (h *ScanHandler) DeleteScan(c *gin.Context) {
	scanID := c.Param("id")

	if err := h.scanService.DeleteScan(c.Request.Context(), scanID); err != nil {
		h.notFoundOrError(c, err, "删除扫描记录失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "扫描记录删除成功",
	})
}

// FrameworkStatistics 各框架检测次数
// GET /api/statistics/frameworks
func (h *ScanHandler) FrameworkStatistics(c *gin.Context) {
	stats, err := h.scanService.FrameworkStatistics(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get framework statistics")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "获取框架统计失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"frameworks": stats,
	})
}

// ListRules 当前生效的指纹规则
// GET /api/rules
func (h *ScanHandler) ListRules(c *gin.Context) {
	rules := h.scanService.Rules()
	c.JSON(http.StatusOK, gin.H{
		"rules": rules,
		"total": len(rules),
	})
}

func (h *ScanHandler) notFoundOrError(c *gin.Context, err error, msg string) {
	if errors.Is(err, service.ErrScanNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "扫描记录不存在",
		})
		return
	}

	h.logger.WithError(err).WithField("scan_id", c.Param("id")).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": msg,
	})
}
