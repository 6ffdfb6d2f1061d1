package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"whisperscribe/internal/transcript"
)

// supportedExtensions is the fixed set of input containers the pipeline
// accepts, matched case-insensitively.
var supportedExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".m4a":  {},
	".flac": {},
	".ogg":  {},
	".mp4":  {},
}

// SupportedExtensions returns the accepted audio file extensions in sorted
// order, for error messages and directory walks.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupportedExtension reports whether the path's extension belongs to the
// supported container set.
func IsSupportedExtension(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ValidatePath confirms the audio file exists and carries a supported
// extension. A violation here is fatal for the file.
func ValidatePath(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("audio file not found: %s", path)
		}
		return fmt.Errorf("failed to stat audio file %s: %w", path, err)
	}

	if !IsSupportedExtension(path) {
		return fmt.Errorf("unsupported audio format: %s (supported: %s)",
			filepath.Ext(path), strings.Join(SupportedExtensions(), ", "))
	}

	return nil
}

// Loader converts an audio file path into mono 16 kHz float32 samples.
type Loader interface {
	Load(ctx context.Context, path string) ([]float32, error)
}

// FFmpegLoader decodes audio through an ffmpeg child process. Any supported
// container is resampled to mono 16 kHz float32 PCM on stdout.
type FFmpegLoader struct {
	logger     *zap.Logger
	ffmpegPath string
}

// NewFFmpegLoader creates an FFmpegLoader using the ffmpeg binary on PATH.
func NewFFmpegLoader(logger *zap.Logger) *FFmpegLoader {
	return &FFmpegLoader{
		logger:     logger,
		ffmpegPath: "ffmpeg",
	}
}

// Load decodes the file at path into normalized float32 samples.
func (l *FFmpegLoader) Load(ctx context.Context, path string) ([]float32, error) {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", transcript.SampleRate),
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, l.ffmpegPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	l.logger.Debug("decoding audio with ffmpeg", zap.String("path", path))

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed for %s: %w: %s",
			path, err, strings.TrimSpace(stderr.String()))
	}

	raw := stdout.Bytes()
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}

	l.logger.Debug("audio decoded",
		zap.String("path", path),
		zap.Int("samples", len(samples)),
		zap.Float64("seconds", float64(len(samples))/float64(transcript.SampleRate)))

	return samples, nil
}
