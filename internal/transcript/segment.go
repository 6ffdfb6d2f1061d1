package transcript

import "fmt"

// DefaultSpeaker is the sentinel label used when diarization is unavailable
// or no turn overlaps a segment.
const DefaultSpeaker = "SPEAKER_00"

// Segment represents a single transcribed span of speech. Segments are
// produced in chronological order by the ASR engine and keep that order
// through alignment and speaker assignment.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// Validate checks if the Segment has valid values. A zero-duration segment
// is allowed; the ASR engine emits them for short artifacts.
func (s *Segment) Validate() error {
	if s.Start < 0 {
		return fmt.Errorf("start cannot be negative")
	}

	if s.End < s.Start {
		return fmt.Errorf("end must not be before start")
	}

	return nil
}

// DiarizationTurn is a time interval attributed to one speaker by the
// diarization engine. Turns are unordered and may overlap each other.
type DiarizationTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}
