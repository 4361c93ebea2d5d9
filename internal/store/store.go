// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/verte-zerg/lampstat/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// DefaultRanks is the reference rank table seeded into every database.
// Source labels are the headings used by the community difficulty table.
var DefaultRanks = []model.Rank{
	{SortKey: 100, DisplayName: "S+", SourceLabel: "地力S+"},
	{SortKey: 95, DisplayName: "個人差S+", SourceLabel: "個人差S+"},
	{SortKey: 90, DisplayName: "S", SourceLabel: "地力S"},
	{SortKey: 85, DisplayName: "個人差S", SourceLabel: "個人差S"},
	{SortKey: 80, DisplayName: "A+", SourceLabel: "地力A+"},
	{SortKey: 75, DisplayName: "個人差A+", SourceLabel: "個人差A+"},
	{SortKey: 70, DisplayName: "A", SourceLabel: "地力A"},
	{SortKey: 65, DisplayName: "個人差A", SourceLabel: "個人差A"},
	{SortKey: 60, DisplayName: "B+", SourceLabel: "地力B+"},
	{SortKey: 55, DisplayName: "個人差B+", SourceLabel: "個人差B+"},
	{SortKey: 50, DisplayName: "B", SourceLabel: "地力B"},
	{SortKey: 45, DisplayName: "個人差B", SourceLabel: "個人差B"},
	{SortKey: 40, DisplayName: "C", SourceLabel: "地力C"},
	{SortKey: 35, DisplayName: "個人差C", SourceLabel: "個人差C"},
	{SortKey: 30, DisplayName: "D", SourceLabel: "地力D"},
	{SortKey: 25, DisplayName: "個人差D", SourceLabel: "個人差D"},
	{SortKey: 20, DisplayName: "E", SourceLabel: "地力E"},
	{SortKey: 15, DisplayName: "個人差E", SourceLabel: "個人差E"},
	{SortKey: 10, DisplayName: "F", SourceLabel: "地力F"},
	{SortKey: 5, DisplayName: "特殊", SourceLabel: "特殊"},
	{SortKey: 0, DisplayName: "未定", SourceLabel: "未定"},
}

// Store wraps SQLite access for the difficulty catalog and play history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS play_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT,
			song_name TEXT,
			difficulty_type TEXT,
			total_notes INTEGER,
			clear_type TEXT,
			score INTEGER,
			miss_count INTEGER,
			played_option TEXT,
			played_at TEXT,
			original_data TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS difficulty_ranks (
			rank_id INTEGER PRIMARY KEY,
			display_name TEXT NOT NULL,
			source_label TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS unofficial_difficulty (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tag TEXT,
			song_name TEXT NOT NULL,
			difficulty_rank_id INTEGER NOT NULL,
			level INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_play_history_song ON play_history(song_name);`,
		`CREATE INDEX IF NOT EXISTS idx_unofficial_difficulty_level ON unofficial_difficulty(level);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	for _, r := range DefaultRanks {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO difficulty_ranks (rank_id, display_name, source_label) VALUES (?, ?, ?)`,
			r.SortKey, r.DisplayName, r.SourceLabel,
		); err != nil {
			return err
		}
	}
	return nil
}

// ListRanks returns the rank table ordered from strongest to weakest.
func (s *Store) ListRanks(ctx context.Context) ([]model.Rank, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rank_id, display_name, source_label FROM difficulty_ranks ORDER BY rank_id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.Rank
	for rows.Next() {
		var r model.Rank
		if err := rows.Scan(&r.SortKey, &r.DisplayName, &r.SourceLabel); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListCatalog returns the songs of one level with their rank, strongest
// rank first.
func (s *Store) ListCatalog(ctx context.Context, level int) ([]model.CatalogEntry, error) {
	query := `SELECT ud.song_name, dr.display_name, dr.rank_id
		FROM unofficial_difficulty ud
		JOIN difficulty_ranks dr ON ud.difficulty_rank_id = dr.rank_id
		WHERE ud.level = ?
		ORDER BY dr.rank_id DESC, ud.id ASC`
	rows, err := s.db.QueryContext(ctx, query, level)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.CatalogEntry
	for rows.Next() {
		var e model.CatalogEntry
		if err := rows.Scan(&e.SongKey, &e.RankLabel, &e.RankSortKey); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListLevels returns the distinct levels present in the catalog.
func (s *Store) ListLevels(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT level FROM unofficial_difficulty ORDER BY level ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var levels []int
	for rows.Next() {
		var level int
		if err := rows.Scan(&level); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return levels, nil
}

// ListHistoryLamps returns the song and clear type of every stored play.
func (s *Store) ListHistoryLamps(ctx context.Context) ([]model.HistoryRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT song_name, clear_type FROM play_history`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.HistoryRow
	for rows.Next() {
		var song, clear sql.NullString
		if err := rows.Scan(&song, &clear); err != nil {
			return nil, err
		}
		result = append(result, model.HistoryRow{SongKey: song.String, RawClearToken: clear.String})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListPlays returns plays whose song name contains q.Song and whose
// difficulty type equals q.Difficulty, oldest first.
func (s *Store) ListPlays(ctx context.Context, q model.HistoryQuery) ([]model.PlayRow, error) {
	query := `SELECT level, song_name, difficulty_type, total_notes, clear_type, score, miss_count, played_option, played_at
		FROM play_history
		WHERE song_name LIKE ?
		  AND difficulty_type = ?
		ORDER BY played_at ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query, "%"+q.Song+"%", q.Difficulty)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.PlayRow
	for rows.Next() {
		var (
			level, song, diff, clear, option, playedAt sql.NullString
			notes, score, miss                         sql.NullInt64
		)
		if err := rows.Scan(&level, &song, &diff, &notes, &clear, &score, &miss, &option, &playedAt); err != nil {
			return nil, err
		}
		result = append(result, model.PlayRow{
			Level:          level.String,
			SongKey:        song.String,
			DifficultyType: diff.String,
			TotalNotes:     int(notes.Int64),
			ClearType:      clear.String,
			Score:          int(score.Int64),
			MissCount:      int(miss.Int64),
			Option:         option.String,
			PlayedAt:       playedAt.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// InsertPlays stores play rows in one transaction. With replace set, the
// existing play history is removed first, so re-importing an export does
// not duplicate plays.
func (s *Store) InsertPlays(ctx context.Context, plays []model.PlayRow, replace bool) (err error) {
	if len(plays) == 0 && !replace {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if replace {
		if _, err = tx.ExecContext(ctx, `DELETE FROM play_history`); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO play_history (level, song_name, difficulty_type, total_notes, clear_type, score, miss_count, played_option, played_at, original_data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, p := range plays {
		if _, err = stmt.ExecContext(ctx,
			p.Level, p.SongKey, p.DifficultyType, p.TotalNotes, p.ClearType,
			p.Score, p.MissCount, p.Option, p.PlayedAt, p.Raw,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertCatalog stores catalog records in one transaction. RankID must
// name an existing rank. With replace set, existing entries of every level
// present in records are removed first.
func (s *Store) InsertCatalog(ctx context.Context, records []model.CatalogRecord, replace bool) (err error) {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if replace {
		cleared := map[int]bool{}
		for _, r := range records {
			if cleared[r.Level] {
				continue
			}
			if _, err = tx.ExecContext(ctx, `DELETE FROM unofficial_difficulty WHERE level = ?`, r.Level); err != nil {
				return err
			}
			cleared[r.Level] = true
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO unofficial_difficulty (tag, song_name, difficulty_rank_id, level) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, r := range records {
		if _, err = stmt.ExecContext(ctx, r.Tag, r.SongKey, r.RankID, r.Level); err != nil {
			return err
		}
	}
	return tx.Commit()
}
