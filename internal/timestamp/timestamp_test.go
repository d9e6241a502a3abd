package timestamp_test

import (
	"testing"

	"github.com/myrjola/ace/internal/timestamp"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{seconds: 0, want: "00:00"},
		{seconds: 5.9, want: "00:05"},
		{seconds: 65, want: "01:05"},
		{seconds: 599.99, want: "09:59"},
		{seconds: 5400, want: "90:00"},
		{seconds: 6000, want: "100:00"},
		{seconds: -12, want: "00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, timestamp.Format(tt.seconds))
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   float64
		wantOK bool
	}{
		{name: "mm:ss", text: "01:05", want: 65, wantOK: true},
		{name: "h:mm:ss", text: "1:02:03", want: 3723, wantOK: true},
		{name: "surrounding whitespace", text: " 02:00 ", want: 120, wantOK: true},
		{name: "minutes above 59", text: "90:00", want: 5400, wantOK: true},
		{name: "not numeric", text: "abc", wantOK: false},
		{name: "four parts", text: "1:2:3:4", wantOK: false},
		{name: "empty", text: "", wantOK: false},
		{name: "single number", text: "42", wantOK: false},
		{name: "empty part", text: "1:", wantOK: false},
		{name: "non-numeric part", text: "01:xx", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := timestamp.Parse(tt.text)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for s := 0; s < 3*3600; s += 7 {
		got, ok := timestamp.Parse(timestamp.Format(float64(s)))
		require.True(t, ok)
		require.InDelta(t, float64(s), got, 1e-9, "seconds %d", s)
	}
	got, ok := timestamp.Parse(timestamp.Format(61.75))
	require.True(t, ok)
	require.InDelta(t, 61.0, got, 1e-9)
}
