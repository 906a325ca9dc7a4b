package apk

import (
	"errors"
	"fmt"
	"io"

	"github.com/avast/apkparser"
)

// 固定条目名
const (
	ManifestEntry  = "AndroidManifest.xml"
	ResourcesEntry = "resources.arsc"
)

// maxEntrySize 单个条目读取上限，防止 zip bomb
var maxEntrySize int64 = 64 << 20

var (
	// ErrEntryNotFound 条目不存在
	ErrEntryNotFound = errors.New("entry not found")
	// ErrEntryTooLarge 条目超过读取上限
	ErrEntryTooLarge = errors.New("entry exceeds size limit")
)

// IOError APK 无法读取或条目缺失
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("apk %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Archive APK 容器读取器
type Archive struct {
	zip  *apkparser.ZipReader
	name string
}

// Open 打开磁盘上的 APK
func Open(path string) (*Archive, error) {
	zr, err := apkparser.OpenZip(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	return newArchive(zr, path)
}

// OpenReader 从内存或上传流打开 APK
func OpenReader(r io.ReadSeeker, name string) (*Archive, error) {
	zr, err := apkparser.OpenZipReader(r)
	if err != nil {
		return nil, &IOError{Op: "open", Path: name, Err: err}
	}
	return newArchive(zr, name)
}

// newArchive 没有任何条目的 zip 不是合法 APK
func newArchive(zr *apkparser.ZipReader, name string) (*Archive, error) {
	if len(zr.FilesOrdered) == 0 {
		zr.Close()
		return nil, &IOError{Op: "open", Path: name, Err: errors.New("archive has no entries")}
	}
	return &Archive{zip: zr, name: name}, nil
}

// Name 打开时使用的路径或名称
func (a *Archive) Name() string {
	return a.name
}

// EntryNames 返回全部条目名（zip 中的顺序，重复条目只保留一个）
func (a *Archive) EntryNames() []string {
	names := make([]string, 0, len(a.zip.FilesOrdered))
	seen := make(map[string]bool, len(a.zip.FilesOrdered))
	for _, f := range a.zip.FilesOrdered {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		names = append(names, f.Name)
	}
	return names
}

// HasEntry 是否存在条目
func (a *Archive) HasEntry(name string) bool {
	_, ok := a.zip.File[name]
	return ok
}

// ReadEntry 读取条目内容。同名条目有多个时返回第一个可读的。
func (a *Archive) ReadEntry(name string) ([]byte, error) {
	f, ok := a.zip.File[name]
	if !ok || f == nil {
		return nil, &IOError{Op: "read", Path: name, Err: ErrEntryNotFound}
	}

	if err := f.Open(); err != nil {
		return nil, &IOError{Op: "read", Path: name, Err: err}
	}
	defer f.Close()

	lastErr := fmt.Errorf("no readable content")
	for f.Next() {
		data, err := io.ReadAll(io.LimitReader(f, maxEntrySize+1))
		if err != nil {
			lastErr = err
			continue
		}
		if int64(len(data)) > maxEntrySize {
			return nil, &IOError{Op: "read", Path: name, Err: ErrEntryTooLarge}
		}
		return data, nil
	}
	return nil, &IOError{Op: "read", Path: name, Err: lastErr}
}

// Close 关闭底层文件
func (a *Archive) Close() error {
	return a.zip.Close()
}
