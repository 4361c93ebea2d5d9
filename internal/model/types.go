// Package model defines shared data structures.
package model

import (
	"time"

	"github.com/verte-zerg/lampstat/internal/lamp"
)

// Difficulty types accepted by the history filter.
var DifficultyTypes = []string{"SPN", "SPH", "SPA", "SPL", "DPN", "DPH", "DPA", "DPL"}

// CatalogEntry places one song on one rank of the difficulty table.
type CatalogEntry struct {
	SongKey     string
	RankLabel   string
	RankSortKey int
}

// HistoryRow is one raw play attempt as seen by the aggregator.
type HistoryRow struct {
	SongKey       string
	RawClearToken string
}

// PlayRow is a raw play-history row as stored.
type PlayRow struct {
	Level          string
	SongKey        string
	DifficultyType string
	TotalNotes     int
	ClearType      string
	Score          int
	MissCount      int
	Option         string
	PlayedAt       string
	Raw            string
}

// CatalogRecord is a catalog row as imported, before joining with ranks.
type CatalogRecord struct {
	Level   int
	Tag     string
	SongKey string
	RankID  int
}

// PlayRecordView is a normalized play record for charting.
type PlayRecordView struct {
	SongKey        string
	DifficultyType string
	TotalNotes     int
	Score          int
	MissCount      int
	ClearType      string
	Option         string
	PlayedAtRaw    string
	PlayedAt       time.Time
	ScoreRate      float64
}

// RankStats counts best lamps for the songs of one rank.
type RankStats struct {
	RankLabel   string
	RankSortKey int
	Total       int
	Counts      map[lamp.Tier]int
}

// NewRankStats returns an empty bucket for a rank.
func NewRankStats(label string, sortKey int) *RankStats {
	return &RankStats{
		RankLabel:   label,
		RankSortKey: sortKey,
		Counts:      make(map[lamp.Tier]int, len(lamp.All)),
	}
}

// Add counts one song with the given lamp.
func (r *RankStats) Add(t lamp.Tier) {
	if r.Counts == nil {
		r.Counts = make(map[lamp.Tier]int, len(lamp.All))
	}
	r.Total++
	r.Counts[t]++
}

// Count returns the number of songs with the given lamp.
func (r RankStats) Count(t lamp.Tier) int {
	return r.Counts[t]
}

// Rank is one row of the reference rank table.
type Rank struct {
	SortKey     int
	DisplayName string
	SourceLabel string
}

// HistoryQuery selects plays for the history chart.
type HistoryQuery struct {
	Song       string
	Difficulty string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Level       int
	History     HistoryQuery
	Goal        lamp.Tier
	CurveWindow int
}
