package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestModelDownloader_EnsureModelExists(t *testing.T) {
	t.Run("should download missing weights and place them atomically", func(t *testing.T) {
		// Arrange
		var requests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			assert.Contains(t, r.URL.Path, "ggml-base.bin")
			_, _ = w.Write([]byte("fake model weights"))
		}))
		defer server.Close()

		modelsDir := t.TempDir()
		downloader := NewModelDownloader(zap.NewNop(), modelsDir)
		downloader.baseURL = server.URL

		// Act
		path, err := downloader.EnsureModelExists(context.Background(), "base")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(modelsDir, "ggml-base.bin"), path)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "fake model weights", string(data))
		assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
	})

	t.Run("should not re-download existing weights", func(t *testing.T) {
		// Arrange
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected download request")
		}))
		defer server.Close()

		modelsDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(modelsDir, "ggml-base.bin"), []byte("weights"), 0644))

		downloader := NewModelDownloader(zap.NewNop(), modelsDir)
		downloader.baseURL = server.URL

		// Act
		path, err := downloader.EnsureModelExists(context.Background(), "base")

		// Assert
		assert.NoError(t, err)
		assert.FileExists(t, path)
	})

	t.Run("should report an HTTP error status", func(t *testing.T) {
		// Arrange
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		downloader := NewModelDownloader(zap.NewNop(), t.TempDir())
		downloader.baseURL = server.URL

		// Act
		_, err := downloader.EnsureModelExists(context.Background(), "base")

		// Assert
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 404")
	})
}
