// Package record normalizes raw play-history rows for charting.
package record

import (
	"time"

	"github.com/verte-zerg/lampstat/internal/model"
)

// PlayedAtLayout is the layout of stored play timestamps, e.g. 2025-12-20-21-08.
const PlayedAtLayout = "2006-01-02-15-04"

// Unparsed is the PlayedAt value of records whose timestamp could not be
// parsed. It is the zero time, the earliest instant time.Time can hold.
var Unparsed = time.Time{}

// Normalize converts a raw play row into a typed view.
func Normalize(row model.PlayRow) model.PlayRecordView {
	return model.PlayRecordView{
		SongKey:        row.SongKey,
		DifficultyType: row.DifficultyType,
		TotalNotes:     row.TotalNotes,
		Score:          row.Score,
		MissCount:      row.MissCount,
		ClearType:      row.ClearType,
		Option:         row.Option,
		PlayedAtRaw:    row.PlayedAt,
		PlayedAt:       ParsePlayedAt(row.PlayedAt),
		ScoreRate:      ScoreRate(row.Score, row.TotalNotes),
	}
}

// NormalizeAll converts rows in order.
func NormalizeAll(rows []model.PlayRow) []model.PlayRecordView {
	out := make([]model.PlayRecordView, len(rows))
	for i, row := range rows {
		out[i] = Normalize(row)
	}
	return out
}

// ParsePlayedAt parses a stored timestamp in local time. Input must be
// exactly PlayedAtLayout wide; malformed input yields Unparsed.
func ParsePlayedAt(raw string) time.Time {
	if len(raw) != len(PlayedAtLayout) {
		return Unparsed
	}
	parsed, err := time.ParseInLocation(PlayedAtLayout, raw, time.Local)
	if err != nil {
		return Unparsed
	}
	return parsed
}

// HasTimestamp reports whether the view carries a parsed timestamp.
func HasTimestamp(v model.PlayRecordView) bool {
	return !v.PlayedAt.Equal(Unparsed)
}

// ScoreRate returns score as a percentage of the chart maximum
// (totalNotes*2), rounded to two decimals half to even. The division is
// done on integers so exact halves are detected without float error.
func ScoreRate(score, totalNotes int) float64 {
	if totalNotes == 0 {
		return 0.0
	}
	// rate*100 = score*100/(notes*2)*100 = score*5000/notes
	num := int64(score) * 5000
	den := int64(totalNotes)
	if den < 0 {
		num, den = -num, -den
	}
	neg := num < 0
	if neg {
		num = -num
	}
	q, r := num/den, num%den
	switch {
	case 2*r > den:
		q++
	case 2*r == den && q%2 == 1:
		q++
	}
	if neg {
		q = -q
	}
	return float64(q) / 100
}
