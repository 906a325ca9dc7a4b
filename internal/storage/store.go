package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/apk-analysis/apk-fingerprint-go/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("object not found")

// APKContentType 上传 APK 的 Content-Type
const APKContentType = "application/vnd.android.package-archive"

// Store APK 归档存储
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// ObjectKey 按内容哈希生成对象键，相同 APK 只存一份
func ObjectKey(sha256 string) string {
	sha256 = strings.ToLower(strings.TrimSpace(sha256))
	if len(sha256) < 2 {
		return "apks/" + sha256 + ".apk"
	}
	return "apks/" + sha256[:2] + "/" + sha256 + ".apk"
}

// MinioStore S3 兼容存储
type MinioStore struct {
	client     *minio.Client
	bucketName string
	region     string

	mu    sync.Mutex
	ready bool
}

// NewMinioStore 创建存储客户端，不会立即连接
func NewMinioStore(cfg *config.StorageConfig) (*MinioStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("storage access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}

	return &MinioStore{
		client:     client,
		bucketName: bucket,
		region:     region,
	}, nil
}

// Bucket 桶名
func (s *MinioStore) Bucket() string {
	return s.bucketName
}

// ensureBucket 首次成功后不再检查；失败时下次调用重试
func (s *MinioStore) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return err
		}
	}

	s.ready = true
	return nil
}

// Put 上传对象
func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("object key is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}

	_, err := s.client.PutObject(ctx, s.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: APKContentType,
	})
	return err
}

// Get 读取对象，调用方负责关闭
func (s *MinioStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	// GetObject 是惰性的，先 Stat 以便区分不存在
	if _, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Exists 对象是否存在
func (s *MinioStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return false, fmt.Errorf("ensure bucket: %w", err)
	}

	_, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}
