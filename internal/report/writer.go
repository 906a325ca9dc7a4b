package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/apk-analysis/apk-fingerprint-go/internal/analyzer"
	"github.com/apk-analysis/apk-fingerprint-go/internal/fingerprint"
	"github.com/apk-analysis/apk-fingerprint-go/internal/manifest"
)

const separator = "========================================"

// WriteText 控制台输出：先清单摘要，再逐个检测结果
func WriteText(w io.Writer, r *analyzer.Report) error {
	bw := bufio.NewWriter(w)

	if r.APKInfo != nil {
		writeSummary(bw, r.APKInfo)
	}
	for _, res := range r.Results {
		writeDetection(bw, res)
	}

	return bw.Flush()
}

func writeSummary(w *bufio.Writer, s *manifest.Summary) {
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "[+] Package: %s\n", s.PackageName)
	fmt.Fprintf(w, "[+] API level: %d\n", s.APILevel)

	fmt.Fprintln(w, "[+] Permissions:")
	for _, p := range s.Permissions {
		fmt.Fprintln(w, p.String())
	}

	writeSection(w, "Activities", s.Activities)
	writeSection(w, "Services", s.Services)
	writeSection(w, "Receivers", s.Receivers)
	writeSection(w, "Providers", s.Providers)
}

func writeSection(w *bufio.Writer, title string, items []string) {
	fmt.Fprintf(w, "[+] %s:\n", title)
	for _, item := range items {
		fmt.Fprintln(w, item)
	}
}

func writeDetection(w *bufio.Writer, res fingerprint.DetectionResult) {
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "[+] %s detected\n", res.Name)
	writeSection(w, "Files", res.Matches)
}

// WriteJSON 输出 {"apk_info": ..., "results": [...]}
func WriteJSON(w io.Writer, r *analyzer.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteJSONFile 写入 JSON 报告文件，已存在则覆盖
func WriteJSONFile(path string, r *analyzer.Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := WriteJSON(file, r); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
