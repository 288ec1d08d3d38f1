package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/residentia/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testStorageConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:            "vouchers",
		AccessKey:         "test-key",
		SecretKey:         "test-secret",
		Endpoint:          endpoint,
		UsePathStyle:      true,
		PresignExpiration: 15 * time.Minute,
	}
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(nil)
		assert.ErrorContains(t, err, "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(&config.StorageConfig{AccessKey: "k", SecretKey: "s"})
		assert.ErrorContains(t, err, "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(&config.StorageConfig{Bucket: "b", SecretKey: "s"})
		assert.ErrorContains(t, err, "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(&config.StorageConfig{Bucket: "b", AccessKey: "k"})
		assert.ErrorContains(t, err, "secret key is required")
	})

	t.Run("defaults presign expiration", func(t *testing.T) {
		cfg := testStorageConfig("")
		cfg.PresignExpiration = 0
		storage, err := NewS3ObjectStorage(cfg, WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, defaultPresignExpiration, storage.presignExpiration)
		assert.Equal(t, "vouchers", storage.Bucket())
	})

	t.Run("option overrides presign expiration", func(t *testing.T) {
		storage, err := NewS3ObjectStorage(testStorageConfig(""), WithPresignExpiration(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, storage.presignExpiration)
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"", false, defaultEndpoint},
		{"minio:9000", false, "http://minio:9000"},
		{"minio:9000", true, "https://minio:9000"},
		{"https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tt := range tests {
		got, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestS3ObjectStorage_PresignedURLs(t *testing.T) {
	storage, err := NewS3ObjectStorage(testStorageConfig("http://localhost:9000"))
	require.NoError(t, err)
	ctx := context.Background()

	url, expiresAt, err := storage.GenerateUploadURL(ctx, "communities/c1/payments/v.png", "image/png", 0)
	require.NoError(t, err)
	assert.Contains(t, url, "localhost:9000/vouchers/communities/c1/payments/v.png")
	assert.Contains(t, url, "X-Amz-Signature")
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

	url, _, err = storage.GenerateDownloadURL(ctx, "communities/c1/payments/v.png", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "X-Amz-Expires=3600")

	_, _, err = storage.GenerateDownloadURL(ctx, "", time.Hour)
	assert.ErrorContains(t, err, "storage key is required")
}

// fakeS3 is a path-style S3 endpoint that understands PUT, HEAD and DELETE
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3ObjectStorage_AgainstFakeServer(t *testing.T) {
	fake := &fakeS3{objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	storage, err := NewS3ObjectStorage(testStorageConfig(srv.URL))
	require.NoError(t, err)
	ctx := context.Background()
	key := "communities/c1/cashouts/r.pdf"

	exists, err := storage.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, storage.Upload(ctx, key, []byte("%PDF-1.7"), "application/pdf"))
	fake.mu.Lock()
	assert.Contains(t, string(fake.objects["vouchers/"+key]), "%PDF-1.7")
	fake.mu.Unlock()

	exists, err = storage.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, storage.DeleteObject(ctx, key))
	exists, err = storage.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}
