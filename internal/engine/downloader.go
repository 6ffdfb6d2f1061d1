package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// SupportedModels lists the whisper model sizes the downloader knows how to
// fetch.
var SupportedModels = []string{"tiny", "base", "small", "medium", "large-v2", "large-v3"}

// ModelDownloader fetches whisper model weights from HuggingFace into a
// local models directory. Downloads are atomic (tmp file + rename) and the
// directory is guarded by a file lock so concurrent processes never
// double-download the same weights.
type ModelDownloader struct {
	logger    *zap.Logger
	modelsDir string
	client    *http.Client
	baseURL   string
}

// NewModelDownloader creates a downloader writing into modelsDir.
func NewModelDownloader(logger *zap.Logger, modelsDir string) *ModelDownloader {
	return &ModelDownloader{
		logger:    logger,
		modelsDir: modelsDir,
		client: &http.Client{
			Timeout: 10 * time.Minute, // model weights run to gigabytes
		},
		baseURL: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main",
	}
}

// ModelPath returns where the weights for modelName live on disk.
func (d *ModelDownloader) ModelPath(modelName string) string {
	return filepath.Join(d.modelsDir, fmt.Sprintf("ggml-%s.bin", modelName))
}

// EnsureModelExists returns the local path for modelName, downloading the
// weights first if they are not present.
func (d *ModelDownloader) EnsureModelExists(ctx context.Context, modelName string) (string, error) {
	modelPath := d.ModelPath(modelName)

	if _, err := os.Stat(modelPath); err == nil {
		d.logger.Debug("model already present",
			zap.String("model", modelName),
			zap.String("path", modelPath))
		return modelPath, nil
	}

	if err := os.MkdirAll(d.modelsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create models directory: %w", err)
	}

	// Other whisperscribe processes may be downloading into the same
	// directory; hold the lock for the duration of the download.
	lock := flock.New(filepath.Join(d.modelsDir, ".download.lock"))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("failed to lock models directory: %w", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	// Another process may have finished the download while we waited.
	if _, err := os.Stat(modelPath); err == nil {
		d.logger.Info("model downloaded by another process",
			zap.String("model", modelName))
		return modelPath, nil
	}

	if err := d.downloadModel(ctx, modelName, modelPath); err != nil {
		return "", err
	}

	return modelPath, nil
}

func (d *ModelDownloader) downloadModel(ctx context.Context, modelName, modelPath string) error {
	url := fmt.Sprintf("%s/ggml-%s.bin", d.baseURL, modelName)

	d.logger.Info("downloading model weights",
		zap.String("model", modelName),
		zap.String("url", url),
		zap.String("destination", modelPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", "whisperscribe (Go HTTP Client)")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download model: HTTP %d", resp.StatusCode)
	}

	tempFile := modelPath + ".tmp"
	defer os.Remove(tempFile)

	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	written, err := d.copyWithProgress(out, resp.Body, resp.ContentLength, modelName)
	if err != nil {
		return fmt.Errorf("failed to download model data: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finalize model file: %w", err)
	}

	if err := os.Rename(tempFile, modelPath); err != nil {
		return fmt.Errorf("failed to move downloaded model into place: %w", err)
	}

	d.logger.Info("model download completed",
		zap.String("model", modelName),
		zap.String("path", modelPath),
		zap.Int64("bytes", written))

	return nil
}

// copyWithProgress copies src to dst, logging progress at a fixed interval
// so long downloads stay observable.
func (d *ModelDownloader) copyWithProgress(dst io.Writer, src io.Reader, totalSize int64, modelName string) (int64, error) {
	const bufferSize = 32 * 1024
	buffer := make([]byte, bufferSize)

	var written int64
	lastLog := time.Now()
	logInterval := 10 * time.Second

	for {
		nr, readErr := src.Read(buffer)
		if nr > 0 {
			nw, writeErr := dst.Write(buffer[:nr])
			written += int64(nw)
			if writeErr != nil {
				return written, writeErr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}

			if time.Since(lastLog) >= logInterval {
				if totalSize > 0 {
					d.logger.Info("download progress",
						zap.String("model", modelName),
						zap.Int64("bytes", written),
						zap.Float64("percent", float64(written)/float64(totalSize)*100))
				} else {
					d.logger.Info("download progress",
						zap.String("model", modelName),
						zap.Int64("bytes", written))
				}
				lastLog = time.Now()
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, readErr
		}
	}
}
