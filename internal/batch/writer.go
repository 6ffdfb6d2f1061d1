package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"whisperscribe/internal/transcript"
)

// ExpandFormats resolves a requested format name to the list of concrete
// formats to write. "all" expands to every supported format.
func ExpandFormats(format string) []string {
	if strings.ToLower(format) == "all" {
		return []string{"txt", "json", "srt", "vtt"}
	}
	return []string{strings.ToLower(format)}
}

// OutputPath returns where the rendering of audioPath in the given format
// is written: <output-dir>/<audio-stem>.<format>.
func OutputPath(outputDir, audioPath, format string) string {
	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return filepath.Join(outputDir, fmt.Sprintf("%s.%s", stem, format))
}

// Writer persists formatted transcripts to the output directory.
type Writer struct {
	logger    *zap.Logger
	outputDir string
}

// NewWriter creates a Writer targeting outputDir. The directory is created
// on first write if absent.
func NewWriter(logger *zap.Logger, outputDir string) *Writer {
	return &Writer{
		logger:    logger,
		outputDir: outputDir,
	}
}

// WriteOutputs renders the result in every requested format and writes one
// file per format. Returns the written paths. An unsupported format fails
// only the affected write.
func (w *Writer) WriteOutputs(result *transcript.TranscriptionResult, audioPath, format string) ([]string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	for _, f := range ExpandFormats(format) {
		content, err := transcript.FormatOutput(result, f)
		if err != nil {
			return written, err
		}

		outputPath := OutputPath(w.outputDir, audioPath, f)
		if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
			return written, fmt.Errorf("failed to write %s output: %w", f, err)
		}

		w.logger.Info("saved output",
			zap.String("format", f),
			zap.String("path", outputPath))
		written = append(written, outputPath)
	}

	return written, nil
}
