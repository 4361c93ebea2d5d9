package stats

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/lampstat/internal/lamp"
	"github.com/verte-zerg/lampstat/internal/model"
)

func counts(pairs ...any) map[lamp.Tier]int {
	out := map[lamp.Tier]int{}
	for i := 0; i < len(pairs); i += 2 {
		out[pairs[i].(lamp.Tier)] = pairs[i+1].(int)
	}
	return out
}

func TestAggregateEndToEnd(t *testing.T) {
	catalog := []model.CatalogEntry{
		{SongKey: "A", RankLabel: "Rank1", RankSortKey: 10},
		{SongKey: "B", RankLabel: "Rank1", RankSortKey: 10},
		{SongKey: "C", RankLabel: "Rank2", RankSortKey: 5},
	}
	history := []model.HistoryRow{
		{SongKey: "A", RawClearToken: "HARD"},
		{SongKey: "A", RawClearToken: "CLEAR"},
		{SongKey: "B", RawClearToken: "FULLCOMBO"},
	}

	got := Aggregate(catalog, history)
	require.Len(t, got, 2)
	assert.Equal(t, "Rank1", got[0].RankLabel)
	assert.Equal(t, 10, got[0].RankSortKey)
	assert.Equal(t, 2, got[0].Total)
	assert.Equal(t, counts(lamp.FullCombo, 1, lamp.Hard, 1), got[0].Counts)

	assert.Equal(t, "Rank2", got[1].RankLabel)
	assert.Equal(t, 5, got[1].RankSortKey)
	assert.Equal(t, 1, got[1].Total)
	assert.Equal(t, counts(lamp.NoPlay, 1), got[1].Counts)
	for _, tier := range lamp.All {
		if tier != lamp.NoPlay {
			assert.Zero(t, got[1].Count(tier), "tier %s", tier)
		}
	}
}

func TestBestLampsOrderIndependent(t *testing.T) {
	rows := []model.HistoryRow{
		{SongKey: "S", RawClearToken: "CLEAR"},
		{SongKey: "S", RawClearToken: "FAILED"},
		{SongKey: "S", RawClearToken: "HARD"},
	}
	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, perm := range perms {
		ordered := []model.HistoryRow{rows[perm[0]], rows[perm[1]], rows[perm[2]]}
		assert.Equal(t, lamp.Hard, BestLamps(ordered)["S"], "perm %v", perm)
	}
}

func TestBestLampsKeepsUnknownTokensAtNoPlay(t *testing.T) {
	best := BestLamps([]model.HistoryRow{
		{SongKey: "S", RawClearToken: "???"},
		{SongKey: "T", RawClearToken: ""},
	})
	assert.Equal(t, lamp.NoPlay, best["S"])
	assert.Equal(t, lamp.NoPlay, best["T"])
}

func TestAggregateCatalogSongWithoutHistory(t *testing.T) {
	got := Aggregate([]model.CatalogEntry{{SongKey: "X", RankLabel: "R", RankSortKey: 1}}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Total)
	assert.Equal(t, 1, got[0].Count(lamp.NoPlay))
}

func TestAggregateIgnoresHistoryOutsideCatalog(t *testing.T) {
	got := Aggregate(
		[]model.CatalogEntry{{SongKey: "X", RankLabel: "R", RankSortKey: 1}},
		[]model.HistoryRow{{SongKey: "Y", RawClearToken: "FULLCOMBO"}, {SongKey: "x", RawClearToken: "HARD"}},
	)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Total)
	assert.Equal(t, 1, got[0].Count(lamp.NoPlay))
	assert.Zero(t, got[0].Count(lamp.FullCombo))
	assert.Zero(t, got[0].Count(lamp.Hard))
}

func TestAggregateEmptyInputs(t *testing.T) {
	assert.Empty(t, Aggregate(nil, nil))
	assert.Empty(t, Aggregate(nil, []model.HistoryRow{{SongKey: "A", RawClearToken: "HARD"}}))
}

func TestAggregateNoHistoryAllNoPlay(t *testing.T) {
	catalog := []model.CatalogEntry{
		{SongKey: "A", RankLabel: "R1", RankSortKey: 3},
		{SongKey: "B", RankLabel: "R2", RankSortKey: 2},
		{SongKey: "C", RankLabel: "R1", RankSortKey: 3},
	}
	for _, r := range Aggregate(catalog, nil) {
		assert.Equal(t, r.Total, r.Count(lamp.NoPlay), "rank %s", r.RankLabel)
	}
}

func TestAggregateTotalsMatchCounts(t *testing.T) {
	catalog := make([]model.CatalogEntry, 0, 30)
	history := make([]model.HistoryRow, 0, 60)
	tokens := []string{"FULLCOMBO", "EX HARD", "HARD", "CLEAR", "EASY", "ASSIST", "FAILED", "NO PLAY"}
	for i := 0; i < 30; i++ {
		song := fmt.Sprintf("song-%d", i)
		catalog = append(catalog, model.CatalogEntry{SongKey: song, RankLabel: fmt.Sprintf("R%d", i%4), RankSortKey: i % 4})
		history = append(history, model.HistoryRow{SongKey: song, RawClearToken: tokens[i%len(tokens)]})
		history = append(history, model.HistoryRow{SongKey: song, RawClearToken: tokens[(i*3)%len(tokens)]})
	}
	ranks := Aggregate(catalog, history)
	require.Len(t, ranks, 4)
	songs := 0
	for i, r := range ranks {
		sum := 0
		for _, n := range r.Counts {
			sum += n
		}
		assert.Equal(t, r.Total, sum)
		songs += r.Total
		if i > 0 {
			assert.Greater(t, ranks[i-1].RankSortKey, r.RankSortKey)
		}
	}
	assert.Equal(t, len(catalog), songs)
}

func TestAggregateTiesKeepFirstSeenOrder(t *testing.T) {
	catalog := []model.CatalogEntry{
		{SongKey: "A", RankLabel: "low", RankSortKey: 1},
		{SongKey: "B", RankLabel: "tie-first", RankSortKey: 5},
		{SongKey: "C", RankLabel: "tie-second", RankSortKey: 5},
		{SongKey: "D", RankLabel: "top", RankSortKey: 9},
	}
	got := Aggregate(catalog, nil)
	labels := make([]string, len(got))
	for i, r := range got {
		labels[i] = r.RankLabel
	}
	assert.Equal(t, []string{"top", "tie-first", "tie-second", "low"}, labels)
}

func TestAggregateConcurrentCallsAreIndependent(t *testing.T) {
	catalog := []model.CatalogEntry{
		{SongKey: "A", RankLabel: "R", RankSortKey: 1},
		{SongKey: "B", RankLabel: "R", RankSortKey: 1},
	}
	histories := [][]model.HistoryRow{
		{{SongKey: "A", RawClearToken: "HARD"}},
		{{SongKey: "B", RawClearToken: "FULLCOMBO"}, {SongKey: "A", RawClearToken: "EASY"}},
	}
	var wg sync.WaitGroup
	results := make([][]model.RankStats, 40)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Aggregate(catalog, histories[i%2])
		}(i)
	}
	wg.Wait()
	for i, res := range results {
		require.Len(t, res, 1)
		assert.Equal(t, 2, res[0].Total)
		if i%2 == 0 {
			assert.Equal(t, counts(lamp.Hard, 1, lamp.NoPlay, 1), res[0].Counts)
		} else {
			assert.Equal(t, counts(lamp.FullCombo, 1, lamp.Easy, 1), res[0].Counts)
		}
	}
}

func TestTotals(t *testing.T) {
	ranks := []model.RankStats{
		{RankLabel: "a", Total: 2, Counts: counts(lamp.Hard, 1, lamp.NoPlay, 1)},
		{RankLabel: "b", Total: 3, Counts: counts(lamp.Hard, 2, lamp.Failed, 1)},
	}
	total := Totals(ranks)
	assert.Equal(t, TotalsLabel, total.RankLabel)
	assert.Equal(t, 5, total.Total)
	assert.Equal(t, 3, total.Count(lamp.Hard))
	assert.Equal(t, 1, total.Count(lamp.Failed))
	assert.Equal(t, 1, total.Count(lamp.NoPlay))
}

func TestSongsBelow(t *testing.T) {
	catalog := []model.CatalogEntry{
		{SongKey: "low-1", RankLabel: "B", RankSortKey: 50},
		{SongKey: "top-1", RankLabel: "S+", RankSortKey: 100},
		{SongKey: "top-2", RankLabel: "S+", RankSortKey: 100},
		{SongKey: "low-2", RankLabel: "B", RankSortKey: 50},
	}
	best := map[string]lamp.Tier{
		"low-1": lamp.Hard,
		"top-1": lamp.Normal,
		"low-2": lamp.ExHard,
	}
	targets := SongsBelow(catalog, best, lamp.Hard)
	require.Len(t, targets, 2)
	assert.Equal(t, "top-1", targets[0].Entry.SongKey)
	assert.Equal(t, lamp.Normal, targets[0].Lamp)
	assert.Equal(t, "top-2", targets[1].Entry.SongKey)
	assert.Equal(t, lamp.NoPlay, targets[1].Lamp)

	assert.Empty(t, SongsBelow(catalog, best, lamp.NoPlay))
}

func TestMovingAverage(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, MovingAverage([]float64{1, 2, 3}, 1))
	assert.Equal(t, []float64{2, 3, 5}, MovingAverage([]float64{2, 4, 6}, 2))
	assert.Empty(t, MovingAverage(nil, 3))
}
