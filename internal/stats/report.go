package stats

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/lampstat/internal/lamp"
	"github.com/verte-zerg/lampstat/internal/model"
	"github.com/verte-zerg/lampstat/internal/record"
)

// CatalogFeed provides the difficulty table for one level.
type CatalogFeed interface {
	ListCatalog(ctx context.Context, level int) ([]model.CatalogEntry, error)
}

// HistoryFeed provides every recorded clear lamp.
type HistoryFeed interface {
	ListHistoryLamps(ctx context.Context) ([]model.HistoryRow, error)
}

// PlayFeed provides filtered play rows for charting.
type PlayFeed interface {
	ListPlays(ctx context.Context, q model.HistoryQuery) ([]model.PlayRow, error)
}

// RankReport contains the lamp distribution of one level.
type RankReport struct {
	Level   int
	Ranks   []model.RankStats
	Totals  model.RankStats
	Catalog []model.CatalogEntry
	History []model.HistoryRow
}

// BuildRankReport loads both feeds and aggregates them. A feed error
// aborts the report before any aggregation happens.
func BuildRankReport(ctx context.Context, catalogs CatalogFeed, history HistoryFeed, level int) (RankReport, error) {
	var (
		catalog []model.CatalogEntry
		rows    []model.HistoryRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = catalogs.ListCatalog(gctx, level)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rows, err = history.ListHistoryLamps(gctx)
		if err != nil {
			return fmt.Errorf("failed to load play history: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return RankReport{}, err
	}

	ranks := Aggregate(catalog, rows)
	return RankReport{
		Level:   level,
		Ranks:   ranks,
		Totals:  Totals(ranks),
		Catalog: catalog,
		History: rows,
	}, nil
}

// Targets lists the songs of the report below goal.
func (r RankReport) Targets(goal lamp.Tier) []Target {
	return SongsBelow(r.Catalog, BestLamps(r.History), goal)
}

// HistoryReport contains normalized plays of one chart.
type HistoryReport struct {
	Query   model.HistoryQuery
	Records []model.PlayRecordView
}

// BuildHistoryReport loads and normalizes plays matching q.
func BuildHistoryReport(ctx context.Context, plays PlayFeed, q model.HistoryQuery) (HistoryReport, error) {
	rows, err := plays.ListPlays(ctx, q)
	if err != nil {
		return HistoryReport{}, fmt.Errorf("failed to load plays: %w", err)
	}
	return HistoryReport{Query: q, Records: record.NormalizeAll(rows)}, nil
}

// Dated returns the records that carry a parsed timestamp, oldest first.
// Plays sharing a timestamp keep their feed order.
func (r HistoryReport) Dated() []model.PlayRecordView {
	out := make([]model.PlayRecordView, 0, len(r.Records))
	for _, rec := range r.Records {
		if !record.HasTimestamp(rec) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PlayedAt.Before(out[j].PlayedAt)
	})
	return out
}
