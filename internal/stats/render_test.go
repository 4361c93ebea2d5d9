package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/lampstat/internal/lamp"
	"github.com/verte-zerg/lampstat/internal/model"
	"github.com/verte-zerg/lampstat/internal/record"
)

func TestRankTableHeaders(t *testing.T) {
	assert.Equal(t, []string{"Rank", "Total", "FC", "EXH", "HARD", "CLEAR", "EASY", "ASSIST", "FAILED", "NO PLAY"}, RankTableHeaders())
}

func TestRenderRankTable(t *testing.T) {
	ranks := Aggregate([]model.CatalogEntry{
		{SongKey: "A", RankLabel: "S+", RankSortKey: 100},
		{SongKey: "B", RankLabel: "A", RankSortKey: 70},
	}, []model.HistoryRow{{SongKey: "A", RawClearToken: "HARD"}})
	report := RankReport{Level: 11, Ranks: ranks, Totals: Totals(ranks)}

	var buf bytes.Buffer
	require.NoError(t, RenderRankTable(&buf, report))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Level 11", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Rank"))
	assert.Equal(t, []string{"S+", "1", "0", "0", "1", "0", "0", "0", "0", "0"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"A", "1", "0", "0", "0", "0", "0", "0", "0", "1"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"ALL", "2", "0", "0", "1", "0", "0", "0", "0", "1"}, strings.Fields(lines[4]))
}

func TestRenderRankTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRankTable(&buf, RankReport{Level: 3}))
	assert.Contains(t, buf.String(), "No songs found")
}

func TestRenderTargets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTargets(&buf, lamp.Hard, []Target{
		{Entry: model.CatalogEntry{SongKey: "Song", RankLabel: "S"}, Lamp: lamp.Easy},
	}))
	out := buf.String()
	assert.Contains(t, out, "Songs below Hard: 1")
	assert.Contains(t, out, "EASY")

	buf.Reset()
	require.NoError(t, RenderTargets(&buf, lamp.Hard, nil))
	assert.Contains(t, buf.String(), "Every song is at Hard or better.")
}

func historyFixture() HistoryReport {
	return HistoryReport{
		Query: model.HistoryQuery{Song: "Song", Difficulty: "SPA"},
		Records: record.NormalizeAll([]model.PlayRow{
			{SongKey: "Song", DifficultyType: "SPA", TotalNotes: 1000, ClearType: "CLEAR", Score: 1400, MissCount: 20, PlayedAt: "2025-12-18-21-00"},
			{SongKey: "Song", DifficultyType: "SPA", TotalNotes: 1000, ClearType: "HARD", Score: 1500, MissCount: 9, PlayedAt: "2025-12-20-21-08"},
			{SongKey: "Song", DifficultyType: "SPA", TotalNotes: 1000, ClearType: "FAILED", Score: 1900, MissCount: 1, PlayedAt: "unknown"},
		}),
	}
}

func TestHistorySeriesDropsUndated(t *testing.T) {
	series := HistorySeries(historyFixture(), 1)
	require.Len(t, series, 2)
	assert.Equal(t, "Score", series[0].Name)
	assert.Equal(t, "Misses", series[1].Name)
	require.Len(t, series[0].Points, 2)
	assert.Equal(t, 1400.0, series[0].Points[0].Value)
	assert.Equal(t, 9.0, series[1].Points[1].Value)
	for _, s := range series {
		for _, p := range s.Points {
			assert.False(t, p.At.Equal(record.Unparsed))
		}
	}
}

func TestHistoryOrdersPlaysByTime(t *testing.T) {
	report := HistoryReport{
		Query: model.HistoryQuery{Song: "Song A", Difficulty: "SPA"},
		Records: record.NormalizeAll([]model.PlayRow{
			{SongKey: "Song A", TotalNotes: 1000, Score: 1600, MissCount: 4, PlayedAt: "2025-12-21-10-00"},
			{SongKey: "Song A", TotalNotes: 1000, Score: 1200, MissCount: 30, PlayedAt: "2025-12-19-10-00"},
			{SongKey: "Song A", TotalNotes: 1000, Score: 1400, MissCount: 12, PlayedAt: "2025-12-20-10-00"},
		}),
	}

	dated := report.Dated()
	require.Len(t, dated, 3)
	assert.Equal(t, 1200, dated[0].Score)
	assert.Equal(t, 1400, dated[1].Score)
	assert.Equal(t, 1600, dated[2].Score)

	series := HistorySeries(report, 2)
	require.Len(t, series, 2)
	assert.Equal(t, []float64{1200, 1300, 1500}, pointValues(series[0].Points))

	now := time.Date(2025, 12, 22, 10, 0, 0, 0, time.Local)
	var buf bytes.Buffer
	require.NoError(t, RenderHistory(&buf, report, HistoryOptions{Width: 60, Height: 4, Now: now}))
	assert.Contains(t, buf.String(), "Latest play: 2025-12-21 10:00 (1 day ago)")
}

func pointValues(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func TestRenderHistory(t *testing.T) {
	now := time.Date(2025, 12, 23, 21, 8, 0, 0, time.Local)
	var buf bytes.Buffer
	require.NoError(t, RenderHistory(&buf, historyFixture(), HistoryOptions{Width: 60, Height: 4, Now: now}))
	out := buf.String()
	assert.Contains(t, out, "Plays: 3")
	assert.Contains(t, out, "Best score: 1900 (95.00%)")
	assert.Contains(t, out, "Latest play: 2025-12-20 21:08 (3 days ago)")
	assert.Contains(t, out, "Undated plays: 1 (not charted)")
	assert.Contains(t, out, "75.00%")
	assert.Contains(t, out, "unknown")
	assert.Contains(t, out, "Score / Misses")
}

func TestRenderHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHistory(&buf, HistoryReport{Query: model.HistoryQuery{Song: "x", Difficulty: "SPA"}}, HistoryOptions{}))
	assert.Contains(t, buf.String(), "No plays found.")
}
