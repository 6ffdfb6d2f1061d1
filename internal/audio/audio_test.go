package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePath(t *testing.T) {
	t.Run("should accept an existing file with supported extension", func(t *testing.T) {
		// Arrange
		tmpDir := t.TempDir()
		path := filepath.Join(tmpDir, "clip.mp3")
		require.NoError(t, os.WriteFile(path, []byte("fake"), 0644))

		// Act
		err := ValidatePath(path)

		// Assert
		assert.NoError(t, err)
	})

	t.Run("should accept upper-case extensions", func(t *testing.T) {
		// Arrange
		tmpDir := t.TempDir()
		path := filepath.Join(tmpDir, "clip.WAV")
		require.NoError(t, os.WriteFile(path, []byte("fake"), 0644))

		// Act
		err := ValidatePath(path)

		// Assert
		assert.NoError(t, err)
	})

	t.Run("should reject a missing file", func(t *testing.T) {
		// Act
		err := ValidatePath(filepath.Join(t.TempDir(), "missing.mp3"))

		// Assert
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "audio file not found")
	})

	t.Run("should reject an unsupported extension and list the supported set", func(t *testing.T) {
		// Arrange
		tmpDir := t.TempDir()
		path := filepath.Join(tmpDir, "clip.aiff")
		require.NoError(t, os.WriteFile(path, []byte("fake"), 0644))

		// Act
		err := ValidatePath(path)

		// Assert
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported audio format: .aiff")
		assert.Contains(t, err.Error(), ".flac")
	})
}

func TestIsSupportedExtension(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"a.mp3", true},
		{"a.wav", true},
		{"a.m4a", true},
		{"a.flac", true},
		{"a.ogg", true},
		{"a.mp4", true},
		{"a.MP3", true},
		{"a.aiff", false},
		{"a", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSupportedExtension(tt.path))
		})
	}
}

func TestWriteWAV(t *testing.T) {
	t.Run("should write a canonical 44-byte header plus PCM16 data", func(t *testing.T) {
		// Arrange
		path := filepath.Join(t.TempDir(), "out.wav")
		samples := []float32{0, 0.5, -0.5, 1, -1}

		// Act
		err := WriteWAV(path, samples)

		// Assert
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Len(t, data, 44+len(samples)*2)
		assert.Equal(t, "RIFF", string(data[0:4]))
		assert.Equal(t, "WAVE", string(data[8:12]))
		assert.Equal(t, "data", string(data[36:40]))
	})

	t.Run("should clamp samples outside the unit range", func(t *testing.T) {
		// Arrange
		path := filepath.Join(t.TempDir(), "out.wav")

		// Act
		err := WriteWAV(path, []float32{2.0, -2.0})

		// Assert
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		// int16 max then min, little endian
		assert.Equal(t, []byte{0xff, 0x7f}, data[44:46])
		assert.Equal(t, []byte{0x01, 0x80}, data[46:48])
	})
}
