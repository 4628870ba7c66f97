package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestRenderLineChart(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	s := RenderLineChart(data, 20, 5, "Test")
	if s == "" {
		t.Error("RenderLineChart returned empty")
	}
	if !strings.Contains(s, "Test") {
		t.Error("caption missing")
	}
}

func TestRenderLineChart_Empty(t *testing.T) {
	s := RenderLineChart(nil, 20, 5, "Test")
	if !strings.Contains(s, NoData) {
		t.Errorf("empty chart = %q, want placeholder", s)
	}
}

func TestRenderLineChart_SinglePoint(t *testing.T) {
	s := RenderLineChart([]float64{42}, 20, 5, "")
	if s == "" {
		t.Error("single point chart returned empty")
	}
}

func TestRenderBaselineChart(t *testing.T) {
	s := RenderBaselineChart([]float64{40, 52, 47}, 46, 20, 5, "HRV")
	if s == "" {
		t.Error("RenderBaselineChart returned empty")
	}
	if !strings.Contains(RenderBaselineChart(nil, 0, 20, 5, ""), NoData) {
		t.Error("empty baseline chart should render the placeholder")
	}
}

func TestRenderBarChart(t *testing.T) {
	values := []float64{0.5, 1}
	labels := []string{"hrv", "sleep"}
	s := RenderBarChart(values, labels, 30)
	lines := strings.Split(s, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if strings.Count(lines[0], "█") >= strings.Count(lines[1], "█") {
		t.Error("larger value should render a longer bar")
	}
	if RenderBarChart(nil, nil, 30) != "" {
		t.Error("empty bar chart should render nothing")
	}
}

func TestRenderSparkline(t *testing.T) {
	s := RenderSparkline([]float64{1, 2, 3}, 10)
	if []rune(s)[0] != '▁' || []rune(s)[2] != '█' {
		t.Errorf("sparkline = %q, want min to max", s)
	}

	flat := RenderSparkline([]float64{5, 5}, 10)
	if len([]rune(flat)) != 2 {
		t.Errorf("flat sparkline = %q", flat)
	}

	if RenderSparkline(nil, 10) != "" {
		t.Error("empty sparkline should render nothing")
	}
}

func TestRenderSparkline_Downsamples(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}
	if n := len([]rune(RenderSparkline(values, 10))); n != 10 {
		t.Errorf("sparkline width = %d, want 10", n)
	}
}

func TestRenderLegend(t *testing.T) {
	items := []LegendItem{
		{Label: "A", Color: lipgloss.Color("#ffffff")},
	}
	s := RenderLegend(items)
	if !strings.Contains(s, "A") {
		t.Error("RenderLegend missing label")
	}
}

func TestScoreBar_View(t *testing.T) {
	bar := NewScoreBar("Sleep", 0.5)
	bar.Width = 10
	view := bar.View()
	if !strings.Contains(view, "Sleep") || !strings.Contains(view, "50%") {
		t.Errorf("view = %q", view)
	}
	if strings.Count(view, "█") != 5 {
		t.Errorf("filled cells = %d, want 5", strings.Count(view, "█"))
	}

	clamped := NewScoreBar("HRV", 1.7)
	clamped.Width = 10
	if !strings.Contains(clamped.View(), "100%") {
		t.Error("score above 1 should clamp")
	}

	absent := ScoreBar{Label: "Activity", Width: 10, Absent: true}
	if !strings.Contains(absent.View(), "n/a") {
		t.Error("absent bar should render n/a")
	}
}
