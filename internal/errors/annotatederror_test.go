package errors

import (
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnnotatedError(t *testing.T) {
	err := New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	// Assert that wrapping sentinel errors work as expected.
	sentinel := NewSentinel("test error")
	require.NotErrorIs(t, err, NewSentinel("test error"))
	wrapped := Wrap(sentinel, "read artifact", slog.String("key", "video1"))
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "read artifact: test error", wrapped.Error())

	var annotated *AnnotatedError
	require.True(t, As(err, &annotated))

	// Ensure log values are coming through.
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	require.GreaterOrEqual(t, sourceIdx, 0)
	require.Contains(t, group[sourceIdx].Value.String(), "annotatederror_test.go")
}

func TestWrapCollectsNestedAttrs(t *testing.T) {
	inner := Wrap(NewSentinel("boom"), "inner", slog.String("chunk", "chunk_001.mp3"))
	outer := Wrap(inner, "outer", slog.String("video", "video1"))

	var annotated *AnnotatedError
	require.True(t, As(outer, &annotated))
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.String("chunk", "chunk_001.mp3"))
	require.Contains(t, group, slog.String("video", "video1"))
	require.Equal(t, "outer: inner: boom", outer.Error())
}

func TestWrapNil(t *testing.T) {
	require.NoError(t, Wrap(nil, "nothing happened"))
}

func TestSlogError(t *testing.T) {
	attr := SlogError(NewSentinel("plain"))
	require.Equal(t, "error", attr.Key)
	require.Equal(t, "plain", attr.Value.String())

	attr = SlogError(New("annotated"))
	require.Equal(t, slog.KindLogValuer, attr.Value.Kind())
}
