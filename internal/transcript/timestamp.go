package transcript

import "fmt"

// FormatTimestamp converts a non-negative seconds value into a fixed-width
// HH:MM:SS.mmm string. Whole seconds are truncated for the H:M:S portion and
// milliseconds are derived from the fractional remainder, truncated toward
// zero. Negative input is a caller bug, not a recoverable condition.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	millis := int((seconds - float64(total)) * 1000)

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, millis)
}
