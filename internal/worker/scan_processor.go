package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apk-analysis/apk-fingerprint-go/internal/domain"
	"github.com/apk-analysis/apk-fingerprint-go/internal/report"
	"github.com/apk-analysis/apk-fingerprint-go/internal/service"
	"github.com/sirupsen/logrus"
)

// ScanProcessor 监控目录中的 APK 交给扫描服务，报告写到结果目录
type ScanProcessor struct {
	scans     service.ScanService
	resultDir string
	logger    *logrus.Logger
}

// NewScanProcessor resultDir 为空时不写报告文件
func NewScanProcessor(scans service.ScanService, resultDir string, logger *logrus.Logger) (*ScanProcessor, error) {
	if resultDir != "" {
		if err := os.MkdirAll(resultDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create result directory: %w", err)
		}
	}
	return &ScanProcessor{scans: scans, resultDir: resultDir, logger: logger}, nil
}

// Process 执行扫描
func (p *ScanProcessor) Process(ctx context.Context, task *Task) error {
	record, rep, err := p.scans.Submit(ctx, &service.ScanRequest{
		Path:   task.APKPath,
		Source: domain.SourceWatcher,
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", task.APKPath, err)
	}

	if p.resultDir == "" {
		return nil
	}

	out := ReportPath(p.resultDir, task.APKPath)
	if err := report.WriteJSONFile(out, rep); err != nil {
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"scan_id": record.ID,
		"report":  out,
	}).Info("Report written")
	return nil
}

// ReportPath app.apk 的报告为 <dir>/app.json
func ReportPath(resultDir, apkPath string) string {
	base := filepath.Base(apkPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(resultDir, base+".json")
}
