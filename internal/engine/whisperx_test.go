package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"whisperscribe/internal/pipeline"
	"whisperscribe/internal/transcript"
)

// writeFakeHelper creates a shell script standing in for the WhisperX
// helper so the adapters can be exercised without any ML runtime.
func writeFakeHelper(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-engine")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func testEngines(t *testing.T, script string) *Engines {
	t.Helper()
	modelsDir := t.TempDir()
	// Pre-seed the weights so no download is attempted.
	require.NoError(t, os.WriteFile(filepath.Join(modelsDir, "ggml-base.bin"), []byte("weights"), 0644))

	return NewEngines(zap.NewNop(), Config{
		Command:   writeFakeHelper(t, script),
		Model:     "base",
		Device:    "cpu",
		HFToken:   "hf_test_token",
		ModelsDir: modelsDir,
		WorkDir:   t.TempDir(),
	}, NewModelCache())
}

func TestASREngine_Transcribe(t *testing.T) {
	t.Run("should parse segments and language from helper output", func(t *testing.T) {
		// Arrange
		engines := testEngines(t, `cat <<'EOF'
{"language":"en","segments":[{"start":0.0,"end":2.5,"text":" hello"},{"start":2.5,"end":5.0,"text":" world"}]}
EOF`)

		// Act
		result, err := engines.ASR().Transcribe(context.Background(), make([]float32, 16000))

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "en", result.Language)
		require.Len(t, result.Segments, 2)
		assert.Equal(t, 0.0, result.Segments[0].Start)
		assert.Equal(t, 2.5, result.Segments[0].End)
		assert.Equal(t, " hello", result.Segments[0].Text)
	})

	t.Run("should surface helper stderr on failure", func(t *testing.T) {
		// Arrange
		engines := testEngines(t, `echo "CUDA out of memory" >&2; exit 1`)

		// Act
		_, err := engines.ASR().Transcribe(context.Background(), make([]float32, 16000))

		// Assert
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "CUDA out of memory")
	})

	t.Run("should reuse the cached model path across invocations", func(t *testing.T) {
		// Arrange
		engines := testEngines(t, `cat <<'EOF'
{"language":"en","segments":[]}
EOF`)
		asr := engines.ASR()

		// Act
		_, err1 := asr.Transcribe(context.Background(), make([]float32, 16000))
		_, err2 := asr.Transcribe(context.Background(), make([]float32, 16000))

		// Assert
		assert.NoError(t, err1)
		assert.NoError(t, err2)
		assert.Equal(t, 1, engines.cache.Len())
	})
}

func TestAlignEngine_Align(t *testing.T) {
	t.Run("should return refined segments from helper output", func(t *testing.T) {
		// Arrange
		engines := testEngines(t, `cat <<'EOF'
{"segments":[{"start":0.12,"end":2.34,"text":" hello"}]}
EOF`)
		segments := []transcript.Segment{{Start: 0, End: 2.5, Text: " hello"}}

		// Act
		aligned, err := engines.Aligner().Align(context.Background(), "en", segments, make([]float32, 16000))

		// Assert
		require.NoError(t, err)
		require.Len(t, aligned, 1)
		assert.Equal(t, 0.12, aligned[0].Start)
		assert.Equal(t, 2.34, aligned[0].End)
	})

	t.Run("should fail when no alignment model exists for the language", func(t *testing.T) {
		// Arrange
		engines := testEngines(t, `echo "no alignment model for language xx" >&2; exit 2`)

		// Act
		_, err := engines.Aligner().Align(context.Background(), "xx", nil, make([]float32, 16000))

		// Assert
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no alignment model")
	})
}

func TestDiarizeEngine_Diarize(t *testing.T) {
	t.Run("should parse speaker turns from helper output", func(t *testing.T) {
		// Arrange
		engines := testEngines(t, `cat <<'EOF'
{"turns":[{"start":0.0,"end":4.5,"speaker":"SPEAKER_00"},{"start":4.5,"end":9.0,"speaker":"SPEAKER_01"}]}
EOF`)

		// Act
		turns, err := engines.Diarizer().Diarize(context.Background(), make([]float32, 16000), pipeline.DiarizationOptions{})

		// Assert
		require.NoError(t, err)
		require.Len(t, turns, 2)
		assert.Equal(t, "SPEAKER_01", turns[1].Speaker)
		assert.Equal(t, 4.5, turns[1].Start)
	})

	t.Run("should be unavailable without a HuggingFace token", func(t *testing.T) {
		// Arrange
		engines := NewEngines(zap.NewNop(), Config{
			Command:   "unused",
			Model:     "base",
			ModelsDir: t.TempDir(),
		}, NewModelCache())

		// Act + Assert
		assert.Nil(t, engines.Diarizer())
	})
}

func TestIsSupportedModel(t *testing.T) {
	assert.True(t, IsSupportedModel("base"))
	assert.True(t, IsSupportedModel("large-v3"))
	assert.False(t, IsSupportedModel("huge"))
	assert.False(t, IsSupportedModel(""))
}
