package transcript_test

import (
	"testing"

	"github.com/myrjola/ace/internal/transcript"
	"github.com/stretchr/testify/require"
)

func TestBuildApproxSegments(t *testing.T) {
	t.Run("equal spans share duration", func(t *testing.T) {
		segments := transcript.BuildApproxSegments("Ab. Cd\nEf", 0, 9)
		require.Len(t, segments, 3)
		require.Equal(t, []string{"Ab", "Cd", "Ef"}, []string{segments[0].Text, segments[1].Text, segments[2].Text})
		require.InDelta(t, 0, segments[0].Start, 1e-9)
		require.InDelta(t, 3, segments[0].End, 1e-9)
		require.InDelta(t, 3, segments[1].Start, 1e-9)
		require.InDelta(t, 9, segments[2].End, 1e-9)
		require.Equal(t, "seg-0-0", segments[0].ID)
		require.Equal(t, "00:03", segments[1].Timestamp)
	})

	t.Run("terminators between sentences are dropped", func(t *testing.T) {
		segments := transcript.BuildApproxSegments("Hello there. How are you?", 0, 10)
		require.Len(t, segments, 2)
		require.Equal(t, "Hello there", segments[0].Text)
		require.Equal(t, "How are you?", segments[1].Text)
		// 11 of 23 characters.
		require.InDelta(t, 5, segments[0].End, 1e-9)
	})

	t.Run("offset is applied and last span is pinned to the end", func(t *testing.T) {
		segments := transcript.BuildApproxSegments("Short one! A considerably longer second sentence?\nThird", 300, 37)
		require.Len(t, segments, 3)
		require.InDelta(t, 300, segments[0].Start, 1e-9)
		require.InDelta(t, 337, segments[2].End, 1e-9)
		for i := 1; i < len(segments); i++ {
			require.InDelta(t, segments[i-1].End, segments[i].Start, 1e-9, "segments must be back to back")
		}
		for _, s := range segments {
			require.LessOrEqual(t, s.Start, s.End)
			require.Contains(t, s.ID, "seg-300-")
		}
		require.Equal(t, "05:00", segments[0].Timestamp)
	})

	t.Run("no terminators keeps the text whole", func(t *testing.T) {
		segments := transcript.BuildApproxSegments("no punctuation here", 0, 12.5)
		require.Len(t, segments, 1)
		require.Equal(t, "no punctuation here", segments[0].Text)
		require.InDelta(t, 12.5, segments[0].End, 1e-9)
	})

	t.Run("every span gets at least a second until time runs out", func(t *testing.T) {
		segments := transcript.BuildApproxSegments("A. B. C. D.", 0, 2)
		require.Len(t, segments, 4)
		require.InDelta(t, 1, segments[0].End, 1e-9)
		require.InDelta(t, 2, segments[1].End, 1e-9)
		require.InDelta(t, 2, segments[2].Start, 1e-9)
		require.InDelta(t, 2, segments[3].End, 1e-9)
	})
}
