// Package styles defines the visual styling for terminal reports.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

// Color definitions for the tempo theme.
var (
	// Primary colors
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Domain colors
	HRV      = lipgloss.Color("141") // Lavender
	Sleep    = lipgloss.Color("39")  // Blue
	Activity = lipgloss.Color("208") // Orange

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue

	// Text colors
	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// SubTitleStyle is used for section headings.
var SubTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary)

// CardStyle creates a bordered card container.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(0, 2).
	MarginBottom(1)

// LabelStyle styles left-hand labels in key/value rows.
var LabelStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Width(14)

// ValueStyle styles values in key/value rows.
var ValueStyle = lipgloss.NewStyle().
	Foreground(TextPrimary)

// HelpStyle is the base style for secondary text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// TableHeaderStyle styles table headers.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	BorderStyle(lipgloss.NormalBorder()).
	BorderBottom(true).
	BorderForeground(Subtle)

// TableCellStyle styles table cells.
var TableCellStyle = lipgloss.NewStyle().
	Padding(0, 1)

// ErrorTextStyle for error messages.
var ErrorTextStyle = lipgloss.NewStyle().
	Foreground(Error)

// SuccessTextStyle for success messages.
var SuccessTextStyle = lipgloss.NewStyle().
	Foreground(Success)

// WarningTextStyle for warning messages.
var WarningTextStyle = lipgloss.NewStyle().
	Foreground(Warning)

// InfoTextStyle for info messages.
var InfoTextStyle = lipgloss.NewStyle().
	Foreground(Info)

// State badge styles.
var (
	StateOptimalStyle = lipgloss.NewStyle().Foreground(Success).Bold(true)
	StateGoodStyle    = lipgloss.NewStyle().Foreground(Info).Bold(true)
	StateCareStyle    = lipgloss.NewStyle().Foreground(Warning).Bold(true)
	StateRestStyle    = lipgloss.NewStyle().Foreground(Error).Bold(true)
	StateUnknownStyle = lipgloss.NewStyle().Foreground(Subtle).Italic(true)
)

// GetStateStyle returns the badge style for a wellbeing state.
func GetStateStyle(state models.State) lipgloss.Style {
	switch state {
	case models.StateOptimal:
		return StateOptimalStyle
	case models.StateGood:
		return StateGoodStyle
	case models.StateCare:
		return StateCareStyle
	case models.StateRest:
		return StateRestStyle
	default:
		return StateUnknownStyle
	}
}

// GetScoreStyle returns the appropriate style for a score in [0, 1].
func GetScoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= 0.6:
		return SuccessTextStyle
	case score >= 0.4:
		return WarningTextStyle
	default:
		return ErrorTextStyle
	}
}

// GetConfidenceStyle returns the style for a confidence level.
func GetConfidenceStyle(c models.Confidence) lipgloss.Style {
	switch c {
	case models.ConfidenceHigh:
		return SuccessTextStyle
	case models.ConfidenceMedium:
		return WarningTextStyle
	default:
		return HelpStyle
	}
}

// DomainColor returns the chart color for a scoring domain.
func DomainColor(d models.Domain) lipgloss.Color {
	switch d {
	case models.DomainHRV:
		return HRV
	case models.DomainSleep:
		return Sleep
	case models.DomainActivity:
		return Activity
	default:
		return Subtle
	}
}
