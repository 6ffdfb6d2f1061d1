package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SupportedFormats lists the output formats FormatOutput accepts, in the
// order they are reported in errors.
var SupportedFormats = []string{"json", "txt", "srt", "vtt"}

// UnsupportedFormatError reports a format name outside SupportedFormats.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %s (supported: %s)", e.Format, strings.Join(SupportedFormats, ", "))
}

// FormatOutput renders a TranscriptionResult in the requested format. The
// format name is case-insensitive. Output is deterministic: the same result
// always renders to the same bytes.
func FormatOutput(result *TranscriptionResult, format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		return formatJSON(result)
	case "txt":
		return formatTXT(result), nil
	case "srt":
		return formatSRT(result), nil
	case "vtt":
		return formatVTT(result), nil
	default:
		return "", &UnsupportedFormatError{Format: format}
	}
}

// formatJSON serializes the full result with 2-space indentation. HTML
// escaping is disabled so non-ASCII and markup characters survive literally.
func formatJSON(result *TranscriptionResult) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(result); err != nil {
		return "", fmt.Errorf("failed to encode result as JSON: %w", err)
	}

	return strings.TrimRight(buf.String(), "\n"), nil
}

// formatTXT renders one line per segment:
//
//	[HH:MM:SS.mmm --> HH:MM:SS.mmm] SPEAKER: text
func formatTXT(result *TranscriptionResult) string {
	lines := make([]string, 0, len(result.Segments))
	for _, segment := range result.Segments {
		lines = append(lines, fmt.Sprintf("[%s --> %s] %s: %s",
			FormatTimestamp(segment.Start),
			FormatTimestamp(segment.End),
			speakerLabel(segment),
			strings.TrimSpace(segment.Text)))
	}
	return strings.Join(lines, "\n")
}

// formatSRT renders SubRip subtitles: 1-based sequence numbers and
// comma-separated milliseconds.
func formatSRT(result *TranscriptionResult) string {
	lines := make([]string, 0, len(result.Segments)*4)
	for i, segment := range result.Segments {
		start := strings.ReplaceAll(FormatTimestamp(segment.Start), ".", ",")
		end := strings.ReplaceAll(FormatTimestamp(segment.End), ".", ",")
		lines = append(lines,
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%s --> %s", start, end),
			fmt.Sprintf("%s: %s", speakerLabel(segment), strings.TrimSpace(segment.Text)),
			"")
	}
	return strings.Join(lines, "\n")
}

// formatVTT renders WebVTT subtitles: WEBVTT header and dot-separated
// milliseconds.
func formatVTT(result *TranscriptionResult) string {
	lines := make([]string, 0, len(result.Segments)*3+2)
	lines = append(lines, "WEBVTT", "")
	for _, segment := range result.Segments {
		lines = append(lines,
			fmt.Sprintf("%s --> %s", FormatTimestamp(segment.Start), FormatTimestamp(segment.End)),
			fmt.Sprintf("%s: %s", speakerLabel(segment), strings.TrimSpace(segment.Text)),
			"")
	}
	return strings.Join(lines, "\n")
}

func speakerLabel(segment Segment) string {
	if segment.Speaker == "" {
		return DefaultSpeaker
	}
	return segment.Speaker
}
