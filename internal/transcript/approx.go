package transcript

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/myrjola/ace/internal/models"
	"github.com/myrjola/ace/internal/timestamp"
)

var sentenceBoundary = regexp.MustCompile(`[.!?]\s+|\n+`)

// SegmentID identifies the index-th segment transcribed from the media starting at offsetSeconds.
func SegmentID(offsetSeconds float64, index int) string {
	return "seg-" + strconv.FormatFloat(offsetSeconds, 'f', -1, 64) + "-" + strconv.Itoa(index)
}

// BuildApproxSegments splits flat transcribed text into sentence-like spans and spreads durationSeconds
// across them in proportion to their length, starting at offsetSeconds.
//
// This is used when the transcription service returned text without per-segment timing. Every span gets at
// least one second, spans are laid out back to back, and the last span always ends exactly at
// offsetSeconds + durationSeconds.
func BuildApproxSegments(text string, offsetSeconds, durationSeconds float64) []models.TranscriptSegment {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	spans := splitSentences(text)
	if len(spans) == 0 {
		spans = []string{text}
	}

	totalChars := 0
	for _, span := range spans {
		totalChars += utf8.RuneCountInString(span)
	}

	var (
		end      = offsetSeconds + durationSeconds
		cursor   = offsetSeconds
		segments = make([]models.TranscriptSegment, 0, len(spans))
	)
	for i, span := range spans {
		share := 1 / float64(len(spans))
		if totalChars > 0 {
			share = float64(utf8.RuneCountInString(span)) / float64(totalChars)
		}
		spanDuration := math.Max(1, math.Round(durationSeconds*share))

		start := cursor
		spanEnd := math.Min(end, cursor+spanDuration)
		if i == len(spans)-1 {
			spanEnd = end
		}
		cursor = spanEnd

		segments = append(segments, models.TranscriptSegment{
			ID:        SegmentID(offsetSeconds, i),
			Start:     start,
			End:       spanEnd,
			Text:      span,
			Timestamp: timestamp.Format(start),
		})
	}
	return segments
}

// splitSentences cuts text at sentence terminators followed by whitespace and at newlines. The terminator
// that ends a span is dropped with the whitespace after it.
func splitSentences(text string) []string {
	var spans []string
	for _, span := range sentenceBoundary.Split(text, -1) {
		spans = appendSpan(spans, span)
	}
	return spans
}

func appendSpan(spans []string, span string) []string {
	if span = strings.TrimSpace(span); span != "" {
		spans = append(spans, span)
	}
	return spans
}
