package cli

import (
	"fmt"

	"github.com/apk-analysis/apk-fingerprint-go/internal/analyzer"
	"github.com/apk-analysis/apk-fingerprint-go/internal/domain"
	"github.com/apk-analysis/apk-fingerprint-go/internal/report"
	"github.com/apk-analysis/apk-fingerprint-go/internal/service"
	"github.com/spf13/cobra"
)

type scanOptions struct {
	Output string
	Save   bool
}

// runScan 单次扫描：控制台输出报告，-o 时再写 JSON 文件
func runScan(cmd *cobra.Command, opts *rootOptions, scanOpts *scanOptions, apkPath string) error {
	cfg, logger, err := loadConfig(cmd, opts, true)
	if err != nil {
		return err
	}

	catalogue, err := loadCatalogue(cfg, logger)
	if err != nil {
		return err
	}

	an, err := analyzer.New(catalogue, logger, analyzer.Options{Workers: cfg.Scan.Workers})
	if err != nil {
		return err
	}

	var rep *analyzer.Report
	if scanOpts.Save {
		stack, err := buildStack(cmd.Context(), cfg, logger, an, stackOptions{})
		if err != nil {
			return err
		}
		defer stack.Close()

		record, r, err := stack.scans.Submit(cmd.Context(), &service.ScanRequest{
			Path:   apkPath,
			Source: domain.SourceCLI,
		})
		if err != nil {
			return err
		}
		logger.WithField("scan_id", record.ID).Info("Scan saved")
		rep = r
	} else {
		result, err := an.AnalyzeFile(cmd.Context(), apkPath)
		if err != nil {
			return err
		}
		rep = result.Report
	}

	if err := report.WriteText(cmd.OutOrStdout(), rep); err != nil {
		return err
	}

	if scanOpts.Output != "" {
		if err := report.WriteJSONFile(scanOpts.Output, rep); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		logger.WithField("output", scanOpts.Output).Info("JSON report written")
	}

	return nil
}
