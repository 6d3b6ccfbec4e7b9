package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/iliyamo/ticketctl/internal/dashboard"
)

// Theme is the color palette of the terminal UI.  Seat colors come
// from the dashboard package so the grid matches the appearance rules
// tested there.
type Theme struct {
	Booked    lipgloss.Color
	Held      lipgloss.Color
	Available lipgloss.Color
	SeatText  lipgloss.Color

	Header lipgloss.Color
	Status lipgloss.Color
	Error  lipgloss.Color
	Faint  lipgloss.Color
	Border lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	Booked:    lipgloss.Color(dashboard.ColorBooked),
	Held:      lipgloss.Color(dashboard.ColorHeld),
	Available: lipgloss.Color(dashboard.ColorAvailable),
	SeatText:  lipgloss.Color("#1A1A1A"),
	Header:    lipgloss.Color("39"),
	Status:    lipgloss.Color("252"),
	Error:     lipgloss.Color("203"),
	Faint:     lipgloss.Color("243"),
	Border:    lipgloss.Color("240"),
}
