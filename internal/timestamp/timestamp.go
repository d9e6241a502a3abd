// Package timestamp converts between seconds and the mm:ss display strings used in transcripts and evidence.
package timestamp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Format renders seconds as zero-padded MM:SS. Fractions are floored and negative input is clamped to zero.
// Minutes are not capped at 59, so an hour and a half renders as "90:00".
func Format(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	total := int64(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Parse reads "mm:ss" or "h:mm:ss" into seconds. The boolean is false when text is not a timestamp,
// which callers treat as "no timestamp" rather than an error.
func Parse(text string) (float64, bool) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	values := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, false
		}
		values[i] = v
	}

	switch len(values) {
	case 2: //nolint:mnd // mm:ss
		return values[0]*60 + values[1], true
	case 3: //nolint:mnd // h:mm:ss
		return values[0]*3600 + values[1]*60 + values[2], true
	default:
		return 0, false
	}
}
