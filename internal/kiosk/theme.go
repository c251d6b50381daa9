package kiosk

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette of the kiosk, in ANSI 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Accent     lipgloss.Color
	Total      lipgloss.Color
	Notice     lipgloss.Color
	Error      lipgloss.Color
	Border     lipgloss.Color
}

// DefaultTheme suits the dark terminal of the fridge display.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("244"),
	Accent:     lipgloss.Color("39"),
	Total:      lipgloss.Color("214"),
	Notice:     lipgloss.Color("229"),
	Error:      lipgloss.Color("203"),
	Border:     lipgloss.Color("240"),
}
