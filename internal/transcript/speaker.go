package transcript

// AssignSpeaker picks the speaker whose diarization turn has the greatest
// temporal overlap with the segment range. Ties keep the first turn seen in
// input order: the comparison is strict, so a later turn with equal overlap
// never displaces an earlier one. Returns DefaultSpeaker when no turn
// overlaps the segment at all.
func AssignSpeaker(segmentStart, segmentEnd float64, turns []DiarizationTurn) string {
	bestSpeaker := DefaultSpeaker
	maxOverlap := 0.0

	for _, turn := range turns {
		overlapStart := segmentStart
		if turn.Start > overlapStart {
			overlapStart = turn.Start
		}
		overlapEnd := segmentEnd
		if turn.End < overlapEnd {
			overlapEnd = turn.End
		}

		overlap := overlapEnd - overlapStart
		if overlap > maxOverlap {
			maxOverlap = overlap
			bestSpeaker = turn.Speaker
		}
	}

	return bestSpeaker
}
