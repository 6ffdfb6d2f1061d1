package transcript

import (
	"github.com/shopspring/decimal"
)

// SampleRate is the fixed sample rate the pipeline operates at. Audio
// loading must resample to this rate; duration math depends on it.
const SampleRate = 16000

// Metadata carries the aggregate information computed for one audio file.
type Metadata struct {
	AudioFile        string  `json:"audio_file"`
	Duration         float64 `json:"duration"`
	Model            string  `json:"model"`
	Language         string  `json:"language"`
	SpeakersDetected int     `json:"speakers_detected"`
}

// TranscriptionResult is the pipeline's output for one audio file. It is
// constructed once and never mutated; formatters only read it.
type TranscriptionResult struct {
	Metadata Metadata  `json:"metadata"`
	Segments []Segment `json:"segments"`
}

// NewResult assembles a TranscriptionResult from the final segment list.
// Duration is sampleCount / 16000 rounded to 2 decimal digits for display;
// the distinct-speaker count is always recomputed from the segments so it
// can never drift from the list it describes.
func NewResult(audioFile string, sampleCount int, model, language string, segments []Segment) *TranscriptionResult {
	duration := decimal.NewFromInt(int64(sampleCount)).
		Div(decimal.NewFromInt(SampleRate)).
		Round(2).
		InexactFloat64()

	return &TranscriptionResult{
		Metadata: Metadata{
			AudioFile:        audioFile,
			Duration:         duration,
			Model:            model,
			Language:         language,
			SpeakersDetected: CountSpeakers(segments),
		},
		Segments: segments,
	}
}

// CountSpeakers returns the number of distinct speaker labels across the
// segments. An unlabeled segment counts as DefaultSpeaker.
func CountSpeakers(segments []Segment) int {
	speakers := make(map[string]struct{}, len(segments))
	for _, segment := range segments {
		label := segment.Speaker
		if label == "" {
			label = DefaultSpeaker
		}
		speakers[label] = struct{}{}
	}
	return len(speakers)
}
