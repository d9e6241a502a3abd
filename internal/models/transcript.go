package models

import "time"

// TranscriptSegment is one timed span of transcribed speech.
//
// Start and End are absolute offsets in seconds into the full original media, also for
// segments that were transcribed from a chunk. ID is unique within one transcript but is
// reassigned whenever the transcript is regenerated.
type TranscriptSegment struct {
	ID        string  `json:"id"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
	Timestamp string  `json:"timestamp"`
}

// TranscriptArtifact is the persisted transcript document.
type TranscriptArtifact struct {
	Segments  []TranscriptSegment `json:"segments"`
	CreatedAt time.Time           `json:"createdAt"`
}
