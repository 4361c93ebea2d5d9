// Package importer loads play history and difficulty tables from CSV files.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/verte-zerg/lampstat/internal/model"
)

const (
	historyColumns    = 9
	catalogMinColumns = 3
)

// Writer is the storage used by the importer.
type Writer interface {
	ListRanks(ctx context.Context) ([]model.Rank, error)
	InsertPlays(ctx context.Context, plays []model.PlayRow, replace bool) error
	InsertCatalog(ctx context.Context, records []model.CatalogRecord, replace bool) error
}

// Importer reads CSV files into a Writer.
type Importer struct {
	store  Writer
	logger *slog.Logger
}

// New returns an Importer. A nil logger discards log output.
func New(st Writer, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{store: st, logger: logger}
}

// History imports a play-history CSV file and returns the number of rows
// stored. With replace set, the stored history is replaced by the file.
func (im *Importer) History(ctx context.Context, path string, replace bool) (int, error) {
	plays, err := readFile(path, ReadHistory)
	if err != nil {
		return 0, err
	}
	if err := im.store.InsertPlays(ctx, plays, replace); err != nil {
		return 0, fmt.Errorf("failed to store plays: %w", err)
	}
	im.logger.Info("imported play history", "path", path, "rows", len(plays), "replace", replace)
	return len(plays), nil
}

// Catalog imports a difficulty-table CSV file. With replace set, the
// levels present in the file are cleared first.
func (im *Importer) Catalog(ctx context.Context, path string, replace bool) (int, error) {
	ranks, err := im.store.ListRanks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load ranks: %w", err)
	}
	records, err := readFile(path, func(r io.Reader) ([]model.CatalogRecord, error) {
		return ReadCatalog(r, NewRankResolver(ranks))
	})
	if err != nil {
		return 0, err
	}
	if err := im.store.InsertCatalog(ctx, records, replace); err != nil {
		return 0, fmt.Errorf("failed to store catalog: %w", err)
	}
	im.logger.Info("imported catalog", "path", path, "rows", len(records), "replace", replace)
	return len(records), nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only input.
			_ = cerr
		}
	}()
	rows, err := read(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadHistory parses play-history rows with the columns
// level,song_name,difficulty_type,total_notes,clear_type,score,miss_count,played_option,played_at.
// A header row is skipped.
func ReadHistory(r io.Reader) ([]model.PlayRow, error) {
	var plays []model.PlayRow
	err := eachRecord(r, "level", func(line int, rec []string) error {
		if len(rec) < historyColumns {
			return fmt.Errorf("line %d: expected %d columns, got %d", line, historyColumns, len(rec))
		}
		notes, err := parseCount(rec[3])
		if err != nil {
			return fmt.Errorf("line %d: invalid total_notes: %w", line, err)
		}
		score, err := parseCount(rec[5])
		if err != nil {
			return fmt.Errorf("line %d: invalid score: %w", line, err)
		}
		miss, err := parseCount(rec[6])
		if err != nil {
			return fmt.Errorf("line %d: invalid miss_count: %w", line, err)
		}
		plays = append(plays, model.PlayRow{
			Level:          rec[0],
			SongKey:        rec[1],
			DifficultyType: strings.ToUpper(rec[2]),
			TotalNotes:     notes,
			ClearType:      rec[4],
			Score:          score,
			MissCount:      miss,
			Option:         rec[7],
			PlayedAt:       rec[8],
			Raw:            strings.Join(rec, ","),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plays, nil
}

// ReadCatalog parses difficulty-table rows with the columns
// song_name,rank,level[,tag]. A header row is skipped.
func ReadCatalog(r io.Reader, ranks RankResolver) ([]model.CatalogRecord, error) {
	var records []model.CatalogRecord
	err := eachRecord(r, "song_name", func(line int, rec []string) error {
		if len(rec) < catalogMinColumns {
			return fmt.Errorf("line %d: expected at least %d columns, got %d", line, catalogMinColumns, len(rec))
		}
		if rec[0] == "" {
			return fmt.Errorf("line %d: song_name is empty", line)
		}
		rank, ok := ranks.Resolve(rec[1])
		if !ok {
			return fmt.Errorf("line %d: unknown rank %q", line, rec[1])
		}
		level, err := strconv.Atoi(rec[2])
		if err != nil {
			return fmt.Errorf("line %d: invalid level %q", line, rec[2])
		}
		record := model.CatalogRecord{Level: level, SongKey: rec[0], RankID: rank.SortKey}
		if len(rec) > catalogMinColumns {
			record.Tag = rec[3]
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// eachRecord calls fn with the 1-based line number and trimmed fields of
// every CSV record. A first record whose first field equals header is
// skipped.
func eachRecord(r io.Reader, header string, fn func(line int, rec []string) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	first := true
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line, _ := reader.FieldPos(0)
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if first {
			first = false
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
			if strings.EqualFold(rec[0], header) {
				continue
			}
		}
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		if err := fn(line, rec); err != nil {
			return err
		}
	}
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return n, nil
}
