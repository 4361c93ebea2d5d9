package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestPlotSeries(t *testing.T) {
	base := time.Date(2025, 12, 1, 20, 0, 0, 0, time.UTC)
	points := func(values ...float64) []Point {
		out := make([]Point, len(values))
		for i, v := range values {
			out[i] = Point{At: base.Add(time.Duration(i) * 24 * time.Hour), Value: v}
		}
		return out
	}
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Test Plot", []Series{
		{Name: "A", Points: points(1, 2, 3, 2, 1)},
		{Name: "B", Points: points(1, 1, 2, 3, 4)},
	}, 30, 4, false)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "Scaled per series") {
		t.Fatalf("expected scale note in output")
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
	if !strings.Contains(out, "2025-12-01") || !strings.Contains(out, "2025-12-05") {
		t.Fatalf("expected date axis in output:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expectedMin := 1 + 1 + 2 + 4 + 1 + 1
	if len(lines) < expectedMin {
		t.Fatalf("expected at least %d lines of output, got %d", expectedMin, len(lines))
	}
}

func TestPlotSeriesSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSeries(&buf, "Empty", []Series{{Name: "A"}}, 20, 4, false); err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestTimeBoundsScansAllPoints(t *testing.T) {
	base := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	series := []Series{
		{Name: "A", Points: []Point{
			{At: base.Add(48 * time.Hour)},
			{At: base},
			{At: base.Add(24 * time.Hour)},
		}},
		{Name: "B", Points: []Point{{At: base.Add(72 * time.Hour)}}},
	}
	start, end := timeBounds(series)
	if !start.Equal(base) {
		t.Fatalf("expected start %v, got %v", base, start)
	}
	if !end.Equal(base.Add(72 * time.Hour)) {
		t.Fatalf("expected end %v, got %v", base.Add(72*time.Hour), end)
	}
}

func TestPlotSeriesUnorderedPoints(t *testing.T) {
	base := time.Date(2025, 12, 1, 20, 0, 0, 0, time.UTC)
	ordered := []Point{
		{At: base, Value: 1},
		{At: base.Add(24 * time.Hour), Value: 3},
		{At: base.Add(48 * time.Hour), Value: 2},
	}
	shuffled := []Point{ordered[2], ordered[0], ordered[1]}

	var want, got bytes.Buffer
	if err := PlotSeries(&want, "T", []Series{{Name: "A", Points: ordered}}, 20, 4, false); err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	if err := PlotSeries(&got, "T", []Series{{Name: "A", Points: shuffled}}, 20, 4, false); err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	if want.String() != got.String() {
		t.Fatalf("point order changed the chart:\n%s\nvs\n%s", want.String(), got.String())
	}
}

func TestPlotWidthFor(t *testing.T) {
	axisWidth := utf8.RuneCountInString(axisLabelTop) + utf8.RuneCountInString(axisSeparator)
	total := 80
	expected := total - axisWidth
	if expected < minPlotWidth {
		expected = minPlotWidth
	}
	if got := PlotWidthFor(total); got != expected {
		t.Fatalf("expected width %d, got %d", expected, got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
}

func TestTimeToColumn(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Hour)
	if got := timeToColumn(start, start, end, 21); got != 0 {
		t.Fatalf("expected first column, got %d", got)
	}
	if got := timeToColumn(end, start, end, 21); got != 20 {
		t.Fatalf("expected last column, got %d", got)
	}
	if got := timeToColumn(start.Add(5*time.Hour), start, end, 21); got != 10 {
		t.Fatalf("expected middle column, got %d", got)
	}
	if got := timeToColumn(start, start, start, 21); got != 10 {
		t.Fatalf("expected centered column for a single instant, got %d", got)
	}
}
