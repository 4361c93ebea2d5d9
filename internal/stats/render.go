package stats

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/lampstat/internal/lamp"
	"github.com/verte-zerg/lampstat/internal/model"
	"github.com/verte-zerg/lampstat/internal/record"
)

const historyTimeLayout = "2006-01-02 15:04"

// RankTableHeaders returns the rank table columns: rank, total and one
// column per lamp, strongest first.
func RankTableHeaders() []string {
	headers := []string{"Rank", "Total"}
	for _, tier := range lamp.All {
		headers = append(headers, tier.Label())
	}
	return headers
}

// RankTableRow formats one rank as table cells.
func RankTableRow(r model.RankStats) []string {
	row := []string{r.RankLabel, strconv.Itoa(r.Total)}
	for _, tier := range lamp.All {
		row = append(row, strconv.Itoa(r.Count(tier)))
	}
	return row
}

// RenderRankTable prints the lamp distribution of each rank and a totals row.
func RenderRankTable(w io.Writer, report RankReport) error {
	if _, err := fmt.Fprintf(w, "Level %d\n", report.Level); err != nil {
		return err
	}
	if len(report.Ranks) == 0 {
		_, err := fmt.Fprintln(w, "No songs found for this level.")
		return err
	}
	rows := make([][]string, 0, len(report.Ranks)+1)
	for _, r := range report.Ranks {
		rows = append(rows, RankTableRow(r))
	}
	rows = append(rows, RankTableRow(report.Totals))
	return writeTable(w, RankTableHeaders(), rows, numericColumns(len(lamp.All)+2))
}

// RenderTargets prints songs below a goal lamp.
func RenderTargets(w io.Writer, goal lamp.Tier, targets []Target) error {
	if len(targets) == 0 {
		_, err := fmt.Fprintf(w, "Every song is at %s or better.\n", goal)
		return err
	}
	if _, err := fmt.Fprintf(w, "Songs below %s: %d\n", goal, len(targets)); err != nil {
		return err
	}
	rows := make([][]string, 0, len(targets))
	for _, t := range targets {
		rows = append(rows, []string{t.Entry.RankLabel, t.Entry.SongKey, t.Lamp.Label()})
	}
	return writeTable(w, []string{"Rank", "Song", "Lamp"}, rows, nil)
}

// HistoryOptions controls history rendering.
type HistoryOptions struct {
	Width  int
	Height int
	Window int
	Color  bool
	Now    time.Time
}

// RenderHistory prints a play summary, the play table and the score and
// miss count chart.
func RenderHistory(w io.Writer, report HistoryReport, opts HistoryOptions) error {
	if _, err := fmt.Fprintf(w, "History: %q %s\n", report.Query.Song, report.Query.Difficulty); err != nil {
		return err
	}
	if len(report.Records) == 0 {
		_, err := fmt.Fprintln(w, "No plays found.")
		return err
	}
	if err := renderHistorySummary(w, report, opts.Now); err != nil {
		return err
	}
	if err := renderHistoryTable(w, report.Records); err != nil {
		return err
	}
	return RenderHistoryChart(w, report, opts)
}

func renderHistorySummary(w io.Writer, report HistoryReport, now time.Time) error {
	best := report.Records[0]
	for _, rec := range report.Records[1:] {
		if rec.Score > best.Score {
			best = rec
		}
	}
	lines := []string{
		fmt.Sprintf("Plays: %d", len(report.Records)),
		fmt.Sprintf("Best score: %d (%.2f%%)", best.Score, best.ScoreRate),
	}
	dated := report.Dated()
	if len(dated) > 0 {
		latest := dated[len(dated)-1].PlayedAt
		if now.IsZero() {
			now = time.Now()
		}
		lines = append(lines, fmt.Sprintf("Latest play: %s (%s)", latest.Format(historyTimeLayout), humanize.RelTime(latest, now, "ago", "from now")))
	}
	if skipped := len(report.Records) - len(dated); skipped > 0 {
		lines = append(lines, fmt.Sprintf("Undated plays: %d (not charted)", skipped))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func renderHistoryTable(w io.Writer, records []model.PlayRecordView) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		playedAt := rec.PlayedAtRaw
		if record.HasTimestamp(rec) {
			playedAt = rec.PlayedAt.Format(historyTimeLayout)
		}
		rows = append(rows, []string{
			playedAt,
			rec.ClearType,
			strconv.Itoa(rec.Score),
			fmt.Sprintf("%.2f%%", rec.ScoreRate),
			strconv.Itoa(rec.MissCount),
			rec.Option,
		})
	}
	headers := []string{"Played At", "Clear", "Score", "Rate", "Miss", "Option"}
	return writeTable(w, headers, rows, map[int]bool{2: true, 3: true, 4: true})
}

// HistorySeries builds the Score and Misses series from dated records,
// smoothed over window plays.
func HistorySeries(report HistoryReport, window int) []Series {
	dated := report.Dated()
	if len(dated) == 0 {
		return nil
	}
	scores := make([]float64, len(dated))
	misses := make([]float64, len(dated))
	for i, rec := range dated {
		scores[i] = float64(rec.Score)
		misses[i] = float64(rec.MissCount)
	}
	scores = MovingAverage(scores, window)
	misses = MovingAverage(misses, window)
	scorePoints := make([]Point, len(dated))
	missPoints := make([]Point, len(dated))
	for i, rec := range dated {
		scorePoints[i] = Point{At: rec.PlayedAt, Value: scores[i]}
		missPoints[i] = Point{At: rec.PlayedAt, Value: misses[i]}
	}
	return []Series{
		{Name: "Score", Points: scorePoints},
		{Name: "Misses", Points: missPoints},
	}
}

// RenderHistoryChart plots score and miss count against play time.
// Records without a parsed timestamp are left out.
func RenderHistoryChart(w io.Writer, report HistoryReport, opts HistoryOptions) error {
	series := HistorySeries(report, opts.Window)
	if len(series) == 0 {
		_, err := fmt.Fprintln(w, "No dated plays to chart.")
		return err
	}
	width := 0
	if opts.Width > 0 {
		width = PlotWidthFor(opts.Width)
	}
	return PlotSeries(w, "Score / Misses", series, width, opts.Height, opts.Color)
}

func numericColumns(count int) map[int]bool {
	cols := make(map[int]bool, count)
	for i := 1; i < count; i++ {
		cols[i] = true
	}
	return cols
}
