package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/lampstat/internal/model"
)

func TestScoreRate(t *testing.T) {
	cases := []struct {
		name  string
		score int
		notes int
		want  float64
	}{
		{"zero notes", 1500, 0, 0.0},
		{"three quarters", 1500, 1000, 75.0},
		{"exact two decimals", 39, 40, 48.75},
		{"half rounds down to even", 2469, 10000, 12.34},
		{"half rounds up to even", 2471, 10000, 12.36},
		{"below half", 2, 3, 33.33},
		{"above half", 1, 3, 16.67},
		{"max score", 2000, 1000, 100.0},
		{"zero score", 0, 1234, 0.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ScoreRate(tc.score, tc.notes))
		})
	}
}

func TestParsePlayedAt(t *testing.T) {
	got := ParsePlayedAt("2025-12-20-21-08")
	require.False(t, got.Equal(Unparsed))
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, time.December, got.Month())
	assert.Equal(t, 20, got.Day())
	assert.Equal(t, 21, got.Hour())
	assert.Equal(t, 8, got.Minute())

	for _, raw := range []string{"", "2025-13-40-99-99", "2025/12/20 21:08", "2025-12-20", "25-12-20-21-08", "2025-2-20-21-08", "2025-12-20-9-08", "2025-12-20-21-8", " 2025-12-20-21-08"} {
		assert.True(t, ParsePlayedAt(raw).Equal(Unparsed), "raw %q", raw)
	}
}

func TestNormalize(t *testing.T) {
	view := Normalize(model.PlayRow{
		Level:          "11",
		SongKey:        "Song A",
		DifficultyType: "SPA",
		TotalNotes:     1000,
		ClearType:      "HARD",
		Score:          1500,
		MissCount:      12,
		Option:         "RANDOM",
		PlayedAt:       "2025-12-20-21-08",
	})
	assert.Equal(t, "Song A", view.SongKey)
	assert.Equal(t, "SPA", view.DifficultyType)
	assert.Equal(t, 1000, view.TotalNotes)
	assert.Equal(t, 1500, view.Score)
	assert.Equal(t, 12, view.MissCount)
	assert.Equal(t, "HARD", view.ClearType)
	assert.Equal(t, "2025-12-20-21-08", view.PlayedAtRaw)
	assert.Equal(t, 75.0, view.ScoreRate)
	assert.True(t, HasTimestamp(view))

	bad := Normalize(model.PlayRow{SongKey: "Song B", PlayedAt: "yesterday"})
	assert.False(t, HasTimestamp(bad))
	assert.Equal(t, Unparsed, bad.PlayedAt)
	assert.Equal(t, 0.0, bad.ScoreRate)
}

func TestNormalizeAllKeepsOrder(t *testing.T) {
	views := NormalizeAll([]model.PlayRow{
		{SongKey: "a", PlayedAt: "2025-01-02-03-04"},
		{SongKey: "b", PlayedAt: "bad"},
	})
	require.Len(t, views, 2)
	assert.Equal(t, "a", views[0].SongKey)
	assert.Equal(t, "b", views[1].SongKey)
}
