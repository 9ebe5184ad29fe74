package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the dashboard color scheme
type Theme struct {
	Primary    lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
}

// Styles contains the styled components used by the dashboard
type Styles struct {
	Title       lipgloss.Style
	Normal      lipgloss.Style
	Muted       lipgloss.Style
	Success     lipgloss.Style
	Warning     lipgloss.Style
	Error       lipgloss.Style
	Panel       lipgloss.Style
	PanelTitle  lipgloss.Style
	Footer      lipgloss.Style
	TableHeader lipgloss.Style
}

// DarkTheme returns a dark color theme
func DarkTheme() Theme {
	return Theme{
		Primary:    lipgloss.Color("#7C3AED"), // Purple
		Success:    lipgloss.Color("#10B981"), // Green
		Warning:    lipgloss.Color("#F59E0B"), // Amber
		Error:      lipgloss.Color("#EF4444"), // Red
		Foreground: lipgloss.Color("#F3F4F6"), // Gray-100
		Muted:      lipgloss.Color("#9CA3AF"), // Gray-400
		Border:     lipgloss.Color("#374151"), // Gray-700
	}
}

// LightTheme returns a light color theme
func LightTheme() Theme {
	return Theme{
		Primary:    lipgloss.Color("#7C3AED"), // Purple
		Success:    lipgloss.Color("#059669"), // Green-600
		Warning:    lipgloss.Color("#D97706"), // Amber-600
		Error:      lipgloss.Color("#DC2626"), // Red-600
		Foreground: lipgloss.Color("#111827"), // Gray-900
		Muted:      lipgloss.Color("#6B7280"), // Gray-500
		Border:     lipgloss.Color("#D1D5DB"), // Gray-300
	}
}

// GetThemeByName resolves a theme name, defaulting to dark
func GetThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

// NewStyles creates the styled components for a theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
		Normal: lipgloss.NewStyle().
			Foreground(theme.Foreground),
		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),
		Success: lipgloss.NewStyle().
			Foreground(theme.Success),
		Warning: lipgloss.NewStyle().
			Foreground(theme.Warning),
		Error: lipgloss.NewStyle().
			Foreground(theme.Error),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
		PanelTitle: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			MarginBottom(1),
		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			MarginTop(1),
		TableHeader: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
	}
}
