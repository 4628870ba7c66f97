package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Bluefinee/tempo-ai-sub007/internal/ui/styles"
)

// ScoreBar renders a labelled score in [0, 1] as a filled bar.
type ScoreBar struct {
	Label  string
	Score  float64
	Width  int
	Color  lipgloss.Color
	Absent bool
}

// NewScoreBar creates a bar colored by the score thresholds.
func NewScoreBar(label string, score float64) ScoreBar {
	return ScoreBar{Label: label, Score: score, Width: 24}
}

// View renders the bar.
func (b ScoreBar) View() string {
	width := max(b.Width, 5)
	label := styles.LabelStyle.Render(b.Label)

	if b.Absent {
		return label + styles.HelpStyle.Render(strings.Repeat("·", width)+"   n/a")
	}

	score := min(max(b.Score, 0), 1)
	filled := int(score*float64(width) + 0.5)

	style := styles.GetScoreStyle(score)
	if b.Color != "" {
		style = lipgloss.NewStyle().Foreground(b.Color)
	}

	bar := style.Render(strings.Repeat("█", filled)) +
		styles.HelpStyle.Render(strings.Repeat("░", width-filled))
	percent := fmt.Sprintf(" %3.0f%%", score*100)

	return label + bar + styles.ValueStyle.Render(percent)
}
