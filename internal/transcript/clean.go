// Package transcript turns raw transcription output into display-ready transcript segments.
package transcript

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	bracketNoise = regexp.MustCompile(`(?s)\[.*?\]`)
	// Multi-word fillers accept any whitespace between the words so that collapsing
	// whitespace never turns leftover text into a new filler.
	englishFillers = regexp.MustCompile(`(?i)\b(um+|uh+|erm+|hmm+|like|you\s+know|sort\s+of|kind\s+of|ah+|eh+)\b`)
	// Korean has no ASCII word boundaries, so a filler only counts when it stands as its own token.
	koreanFillers      = regexp.MustCompile(`(^|[\s\p{Z}\p{P}])(어+|음+|저기|그냥|뭐|그래서|그리고)([\s\p{Z}\p{P}]|$)`)
	orphanedSeparators = regexp.MustCompile(`(^|[\s\p{Z}])[,;:]+([\s\p{Z}]|$)`)
	whitespace         = regexp.MustCompile(`[\s\p{Z}]+`)
)

// Clean strips bracketed noise annotations such as "[noise]" and English and Korean filler words from
// transcribed text, then collapses whitespace. The result may be empty.
//
// The text is first normalized to NFC. Some transcription models emit Hangul as decomposed jamo, which the
// Korean filler patterns would otherwise not match.
//
// Clean is idempotent: removing one filler can expose another, so the passes repeat until the text is stable.
func Clean(text string) string {
	text = norm.NFC.String(text)
	for {
		cleaned := cleanOnce(text)
		if cleaned == text {
			return cleaned
		}
		text = cleaned
	}
}

func cleanOnce(text string) string {
	text = bracketNoise.ReplaceAllString(text, " ")
	text = englishFillers.ReplaceAllString(text, " ")
	text = koreanFillers.ReplaceAllString(text, "${1} ${3}")
	text = orphanedSeparators.ReplaceAllString(text, " ")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
