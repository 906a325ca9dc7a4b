package analyzer

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/apk-analysis/apk-fingerprint-go/internal/apk"
	"github.com/apk-analysis/apk-fingerprint-go/internal/fingerprint"
	"github.com/apk-analysis/apk-fingerprint-go/internal/manifest"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// Report 对外的 JSON 报告，只有 apk_info 和 results 两个成员
type Report struct {
	APKInfo *manifest.Summary             `json:"apk_info"`
	Results []fingerprint.DetectionResult `json:"results"`
}

// DetectedNames 命中的框架名（规则声明顺序）
func (r *Report) DetectedNames() []string {
	names := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		names = append(names, res.Name)
	}
	return names
}

// Artifact 被分析文件的元数据，只用于持久化和日志
type Artifact struct {
	FileName string
	FileSize int64
	MD5      string
	SHA256   string
	Duration time.Duration
	Cached   bool
}

// Result 一次分析的完整输出
type Result struct {
	Report   *Report
	Artifact Artifact
}

// Options 分析器选项
type Options struct {
	Workers   int // 规则并行数，<=1 时串行
	CacheSize int // 按 SHA-256 缓存报告的条目数，<=0 关闭缓存
}

type decodeFunc func(resourceTable, manifestData []byte) (manifest.Element, error)

// Analyzer 报告聚合器：读取归档、解码清单、提取摘要、执行指纹扫描
type Analyzer struct {
	catalogue *fingerprint.Catalogue
	engine    *fingerprint.Engine
	cache     *lru.Cache[string, *Report]
	decode    decodeFunc
	logger    *logrus.Logger
}

// New 创建分析器。catalogue 为 nil 时使用内置规则。
func New(catalogue *fingerprint.Catalogue, logger *logrus.Logger, opts Options) (*Analyzer, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if catalogue == nil {
		catalogue = fingerprint.BuiltinCatalogue()
	}

	a := &Analyzer{
		catalogue: catalogue,
		engine:    fingerprint.NewEngine(logger, opts.Workers),
		decode:    apk.Decode,
		logger:    logger,
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, *Report](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create report cache: %w", err)
		}
		a.cache = cache
	}

	return a, nil
}

// Catalogue 当前使用的规则表
func (a *Analyzer) Catalogue() *fingerprint.Catalogue {
	return a.catalogue
}

// AnalyzeFile 分析磁盘上的 APK
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*Result, error) {
	startTime := time.Now()

	a.logger.WithField("apk_path", path).Debug("Starting APK analysis")

	artifact, err := hashFile(path)
	if err != nil {
		return nil, &apk.IOError{Op: "open", Path: path, Err: err}
	}

	if report, ok := a.cached(artifact.SHA256); ok {
		artifact.Cached = true
		artifact.Duration = time.Since(startTime)
		return &Result{Report: report, Artifact: artifact}, nil
	}

	archive, err := apk.Open(path)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	report, err := a.Analyze(ctx, archive)
	if err != nil {
		return nil, err
	}
	a.store(artifact.SHA256, report)

	artifact.Duration = time.Since(startTime)
	a.logCompleted(artifact, report)

	return &Result{Report: report, Artifact: artifact}, nil
}

// AnalyzeReader 分析上传流中的 APK，name 只用于日志和元数据
func (a *Analyzer) AnalyzeReader(ctx context.Context, r io.ReadSeeker, name string) (*Result, error) {
	startTime := time.Now()

	artifact, err := hashReader(r)
	if err != nil {
		return nil, &apk.IOError{Op: "read", Path: name, Err: err}
	}
	artifact.FileName = filepath.Base(name)

	if report, ok := a.cached(artifact.SHA256); ok {
		artifact.Cached = true
		artifact.Duration = time.Since(startTime)
		return &Result{Report: report, Artifact: artifact}, nil
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, &apk.IOError{Op: "seek", Path: name, Err: err}
	}

	archive, err := apk.OpenReader(r, name)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	report, err := a.Analyze(ctx, archive)
	if err != nil {
		return nil, err
	}
	a.store(artifact.SHA256, report)

	artifact.Duration = time.Since(startTime)
	a.logCompleted(artifact, report)

	return &Result{Report: report, Artifact: artifact}, nil
}

// AnalyzeBytes 分析内存中的 APK
func (a *Analyzer) AnalyzeBytes(ctx context.Context, data []byte, name string) (*Result, error) {
	return a.AnalyzeReader(ctx, bytes.NewReader(data), name)
}

// Analyze 对已打开的归档生成报告。任何一步失败都直接返回错误，不产生部分报告。
func (a *Analyzer) Analyze(ctx context.Context, archive *apk.Archive) (*Report, error) {
	names := archive.EntryNames()

	manifestData, err := archive.ReadEntry(apk.ManifestEntry)
	if err != nil {
		return nil, err
	}

	var resourceTable []byte
	if archive.HasEntry(apk.ResourcesEntry) {
		resourceTable, err = archive.ReadEntry(apk.ResourcesEntry)
		if err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := a.decode(resourceTable, manifestData)
	if err != nil {
		return nil, err
	}

	summary, err := manifest.Extract(root)
	if err != nil {
		return nil, fmt.Errorf("failed to extract manifest of %s: %w", archive.Name(), err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := a.engine.Scan(fingerprint.NewFileNameSet(names), a.catalogue)

	return &Report{APKInfo: summary, Results: results}, nil
}

// cached 命中缓存的报告是共享的，调用方不能修改
func (a *Analyzer) cached(sha string) (*Report, bool) {
	if a.cache == nil || sha == "" {
		return nil, false
	}
	report, ok := a.cache.Get(sha)
	if ok {
		a.logger.WithField("sha256", sha).Debug("Report served from cache")
	}
	return report, ok
}

func (a *Analyzer) store(sha string, report *Report) {
	if a.cache == nil || sha == "" {
		return
	}
	a.cache.Add(sha, report)
}

// PurgeCache 清空报告缓存
func (a *Analyzer) PurgeCache() {
	if a.cache != nil {
		a.cache.Purge()
	}
}

func (a *Analyzer) logCompleted(artifact Artifact, report *Report) {
	a.logger.WithFields(logrus.Fields{
		"file":         artifact.FileName,
		"package_name": report.APKInfo.PackageName,
		"permissions":  len(report.APKInfo.Permissions),
		"detections":   len(report.Results),
		"duration_ms":  artifact.Duration.Milliseconds(),
	}).Info("APK analysis completed")
}

// hashFile 计算文件大小和哈希（MD5 和 SHA256）
func hashFile(path string) (Artifact, error) {
	file, err := os.Open(path)
	if err != nil {
		return Artifact{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Artifact{}, err
	}
	if info.IsDir() {
		return Artifact{}, errors.New("is a directory")
	}

	artifact, err := hashReader(file)
	if err != nil {
		return Artifact{}, err
	}
	artifact.FileName = filepath.Base(path)
	return artifact, nil
}

func hashReader(r io.Reader) (Artifact, error) {
	// 使用 io.MultiWriter 同时计算两个哈希
	md5Hash := md5.New()
	sha256Hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(md5Hash, sha256Hash), r)
	if err != nil {
		return Artifact{}, err
	}

	return Artifact{
		FileSize: n,
		MD5:      hex.EncodeToString(md5Hash.Sum(nil)),
		SHA256:   hex.EncodeToString(sha256Hash.Sum(nil)),
	}, nil
}
