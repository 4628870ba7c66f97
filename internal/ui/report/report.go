// Package report renders pipeline results for the terminal.
package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
	"github.com/Bluefinee/tempo-ai-sub007/internal/ui/components"
	"github.com/Bluefinee/tempo-ai-sub007/internal/ui/styles"
)

// DefaultWidth is used when the caller does not know the terminal width.
const DefaultWidth = 60

// Status renders a status card with per-domain score bars.
func Status(result models.StatusResult, snap *models.Snapshot, stale bool) string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Wellbeing"))
	b.WriteString("\n")

	state := styles.GetStateStyle(result.State).Render(strings.ToUpper(string(result.State)))
	b.WriteString(row("State", state))
	b.WriteString(row("Score", styles.GetScoreStyle(result.Score).Render(fmt.Sprintf("%.0f%%", result.Score*100))))
	b.WriteString(row("Confidence", styles.GetConfidenceStyle(result.Confidence).Render(
		fmt.Sprintf("%s (%.0f%% coverage)", result.Confidence, result.Coverage*100))))

	if snap != nil {
		captured := snap.Timestamp.Local().Format("2006-01-02 15:04")
		if stale {
			captured += " " + styles.WarningTextStyle.Render("(stale)")
		}
		b.WriteString(row("Captured", captured))
		if len(snap.Unavailable) > 0 {
			names := make([]string, len(snap.Unavailable))
			for i, c := range snap.Unavailable {
				names[i] = string(c)
			}
			b.WriteString(row("Unavailable", styles.HelpStyle.Render(strings.Join(names, ", "))))
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.SubTitleStyle.Render("Domains"))
	b.WriteString("\n")
	for _, ds := range result.Domains {
		bar := components.NewScoreBar(string(ds.Domain), ds.Score)
		bar.Color = styles.DomainColor(ds.Domain)
		bar.Absent = !ds.Usable
		b.WriteString(bar.View())
		if ds.Usable {
			b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("  w=%.2f", ds.Weight)))
		}
		b.WriteString("\n")
	}

	return styles.CardStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// Advice renders the advisory payload.
func Advice(result *models.AdviceResult) string {
	if result == nil {
		return styles.HelpStyle.Render("No advice yet")
	}

	var b strings.Builder
	title := result.Advice.Title
	if title == "" {
		title = "Advice"
	}
	b.WriteString(styles.SubTitleStyle.Render(title))
	b.WriteString("\n")
	if result.Advice.Summary != "" {
		b.WriteString(lipgloss.NewStyle().Width(DefaultWidth).Render(result.Advice.Summary))
		b.WriteString("\n")
	}
	for _, r := range result.Advice.Recommendations {
		b.WriteString("  • " + r + "\n")
	}
	b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("request %s, %d attempt(s), %s",
		result.RequestID, result.Attempts, result.ReceivedAt.Local().Format(time.DateTime))))

	return styles.CardStyle.Render(b.String())
}

// DeliveryError renders a failed delivery.
func DeliveryError(err error) string {
	return styles.ErrorTextStyle.Render("advice unavailable: " + err.Error())
}

// TrendTable renders one row per metric with its statistics and a sparkline.
func TrendTable(trend models.TrendAggregate) string {
	if trend.Entries == 0 || len(trend.Metrics) == 0 {
		return styles.HelpStyle.Render(components.NoData)
	}

	keys := make([]models.MetricKey, 0, len(trend.Metrics))
	for k := range trend.Metrics {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	nameWidth := 0
	for _, k := range keys {
		nameWidth = max(nameWidth, len(k))
	}

	var b strings.Builder
	header := fmt.Sprintf("%-*s %10s %10s %10s %8s %10s  %s",
		nameWidth, "metric", "mean", "min", "max", "stddev", "delta", "trend")
	b.WriteString(styles.TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, k := range keys {
		m := trend.Metrics[k]
		line := fmt.Sprintf("%-*s %10.1f %10.1f %10.1f %8.2f %+10.1f  %s",
			nameWidth, k, m.Mean, m.Min, m.Max, m.StdDev, m.Delta,
			components.RenderSparkline(trend.Series[k], 14))
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(styles.HelpStyle.Render(fmt.Sprintf("%d day(s), %s to %s", trend.Entries, trend.From, trend.To)))
	return b.String()
}

// TrendChart plots one metric's daily series against its mean.
func TrendChart(trend models.TrendAggregate, key models.MetricKey, width int) string {
	m, ok := trend.Metric(key)
	if !ok {
		return styles.HelpStyle.Render(fmt.Sprintf("No %s data in the last %d day(s)", key, trend.Entries))
	}
	if width <= 0 {
		width = DefaultWidth
	}

	caption := fmt.Sprintf("%s  mean %.1f  stddev %.2f  latest %.1f", key, m.Mean, m.StdDev, m.Latest)
	if m.StdDev == 0 {
		return components.RenderLineChart(trend.Series[key], width, 8, caption)
	}

	chart := components.RenderBaselineChart(trend.Series[key], m.Mean, width, 8, caption)
	legend := components.RenderLegend([]components.LegendItem{
		{Label: string(key), Color: styles.Info},
		{Label: "mean", Color: styles.Error},
	})
	return chart + "\n" + legend
}

// History renders logged statuses oldest first.
func History(entries []models.StatusLogEntry) string {
	if len(entries) == 0 {
		return styles.HelpStyle.Render("No status history")
	}

	var b strings.Builder
	b.WriteString(styles.TableHeaderStyle.Render(fmt.Sprintf("%-10s %-8s %6s %-10s", "day", "state", "score", "confidence")))
	b.WriteString("\n")

	scores := make([]float64, 0, len(entries))
	for _, e := range entries {
		state := styles.GetStateStyle(e.State).Render(fmt.Sprintf("%-8s", e.State))
		fmt.Fprintf(&b, "%-10s %s %5.0f%% %-10s\n", e.Day, state, e.Score*100, e.Confidence)
		scores = append(scores, e.Score)
	}
	b.WriteString(styles.HelpStyle.Render("score " + components.RenderSparkline(scores, len(scores))))
	b.WriteString("\n\n")
	b.WriteString(stateCounts(entries))
	return b.String()
}

// stateCounts charts how many days landed in each state.
func stateCounts(entries []models.StatusLogEntry) string {
	order := []models.State{models.StateOptimal, models.StateGood, models.StateCare, models.StateRest, models.StateUnknown}
	counts := make(map[models.State]float64, len(order))
	for _, e := range entries {
		counts[e.State]++
	}

	var (
		values []float64
		labels []string
	)
	for _, st := range order {
		if counts[st] > 0 {
			values = append(values, counts[st])
			labels = append(labels, string(st))
		}
	}
	return components.RenderBarChart(values, labels, DefaultWidth)
}

func row(label, value string) string {
	return styles.LabelStyle.Render(label) + value + "\n"
}
