// Package stats contains lamp aggregation and report rendering.
package stats

import (
	"sort"

	"github.com/verte-zerg/lampstat/internal/lamp"
	"github.com/verte-zerg/lampstat/internal/model"
)

// TotalsLabel is the rank label of the row summing every rank.
const TotalsLabel = "ALL"

// BestLamps folds history into the strongest lamp seen for each song.
// The result does not depend on the order of history.
func BestLamps(history []model.HistoryRow) map[string]lamp.Tier {
	best := make(map[string]lamp.Tier, len(history))
	for _, row := range history {
		current, ok := best[row.SongKey]
		if !ok {
			current = lamp.NoPlay
		}
		best[row.SongKey] = lamp.Max(current, lamp.Classify(row.RawClearToken))
	}
	return best
}

// Aggregate counts the best lamp of every catalog song per rank. Songs
// missing from history count as NoPlay; history for songs outside the
// catalog is ignored. Ranks are ordered by sort key descending, ties in
// first-seen order.
func Aggregate(catalog []model.CatalogEntry, history []model.HistoryRow) []model.RankStats {
	best := BestLamps(history)
	buckets := make(map[string]*model.RankStats)
	order := make([]*model.RankStats, 0)
	for _, entry := range catalog {
		bucket, ok := buckets[entry.RankLabel]
		if !ok {
			bucket = model.NewRankStats(entry.RankLabel, entry.RankSortKey)
			buckets[entry.RankLabel] = bucket
			order = append(order, bucket)
		}
		bucket.RankSortKey = entry.RankSortKey
		tier, ok := best[entry.SongKey]
		if !ok {
			tier = lamp.NoPlay
		}
		bucket.Add(tier)
	}

	out := make([]model.RankStats, len(order))
	for i, bucket := range order {
		out[i] = *bucket
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RankSortKey > out[j].RankSortKey
	})
	return out
}

// Totals sums every rank into a single row.
func Totals(ranks []model.RankStats) model.RankStats {
	total := model.NewRankStats(TotalsLabel, 0)
	for _, r := range ranks {
		total.Total += r.Total
		for tier, n := range r.Counts {
			total.Counts[tier] += n
		}
	}
	return *total
}

// Target is a catalog song whose best lamp is below a goal.
type Target struct {
	Entry model.CatalogEntry
	Lamp  lamp.Tier
}

// SongsBelow lists catalog songs whose best lamp is weaker than goal,
// strongest rank first and catalog order within a rank.
func SongsBelow(catalog []model.CatalogEntry, best map[string]lamp.Tier, goal lamp.Tier) []Target {
	targets := make([]Target, 0)
	for _, entry := range catalog {
		tier, ok := best[entry.SongKey]
		if !ok {
			tier = lamp.NoPlay
		}
		if lamp.Compare(tier, goal) < 0 {
			targets = append(targets, Target{Entry: entry, Lamp: tier})
		}
	}
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Entry.RankSortKey > targets[j].Entry.RankSortKey
	})
	return targets
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}
