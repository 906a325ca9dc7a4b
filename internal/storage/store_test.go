package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/apk-analysis/apk-fingerprint-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestObjectKey 按哈希前缀分目录
func TestObjectKey(t *testing.T) {
	assert.Equal(t, "apks/ab/abcdef.apk", ObjectKey("ABCDEF"))
	assert.Equal(t, "apks/a.apk", ObjectKey("a"))
}

// TestNewMinioStore_Validation 缺少必需配置时报错
func TestNewMinioStore_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
	}{
		{"missing endpoint", config.StorageConfig{AccessKey: "a", SecretKey: "b", Bucket: "c"}},
		{"missing credentials", config.StorageConfig{Endpoint: "localhost:9000", Bucket: "c"}},
		{"missing bucket", config.StorageConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMinioStore(&tt.cfg)
			assert.Error(t, err)
		})
	}
}

// TestNewMinioStore 客户端创建不需要连接服务端
func TestNewMinioStore(t *testing.T) {
	store, err := NewMinioStore(&config.StorageConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    " apk-uploads ",
	})
	require.NoError(t, err)
	assert.Equal(t, "apk-uploads", store.Bucket())
	assert.Equal(t, "us-east-1", store.region)
}

// TestMinioStore_BucketCheckRetriesAfterFailure 桶检查失败不会被缓存
func TestMinioStore_BucketCheckRetriesAfterFailure(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method == http.MethodHead && strings.Trim(r.URL.Path, "/") == "apk-uploads" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store, err := NewMinioStore(&config.StorageConfig{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "apk-uploads",
	})
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Exists(cancelled, ObjectKey("abcdef"))
	require.Error(t, err)
	assert.Equal(t, int32(0), hits.Load())

	exists, err := store.Exists(context.Background(), ObjectKey("abcdef"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.GreaterOrEqual(t, hits.Load(), int32(2))

	// 成功后不再检查桶
	before := hits.Load()
	_, err = store.Exists(context.Background(), ObjectKey("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, before+1, hits.Load())
}
