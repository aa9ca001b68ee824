package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Primary    = lipgloss.Color("#38bdf8") // Sky blue accent
	Secondary  = lipgloss.Color("#a78bfa") // Violet
	Success    = lipgloss.Color("#10B981") // Emerald
	Warning    = lipgloss.Color("#F59E0B") // Amber
	Error      = lipgloss.Color("#EF4444") // Red
	Muted      = lipgloss.Color("#6B7280") // Gray
	Foreground = lipgloss.Color("#F9FAFB") // Light gray
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(Foreground).
			Background(Primary).
			Padding(0, 1)
)

// Seat grid styles
var (
	SeatEmptyStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Muted).
			Foreground(Muted).
			Width(8).
			Align(lipgloss.Center)

	SeatTakenStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Secondary).
			Foreground(Foreground).
			Width(8).
			Align(lipgloss.Center)

	SeatSelfStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(Primary).
			Foreground(Primary).
			Bold(true).
			Width(8).
			Align(lipgloss.Center)

	SeatSpeakingStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Success).
				Foreground(Success).
				Width(8).
				Align(lipgloss.Center)

	SeatCursorStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Warning).
			Width(8).
			Align(lipgloss.Center)
)

// Icons
const (
	IconError    = "✗"
	IconWarning  = "⚠"
	IconSuccess  = "✓"
	IconInfo     = "ℹ"
	IconMic      = "🎤"
	IconMuted    = "🔇"
	IconSpeaking = "🔊"
	IconRoom     = "🚪"
	IconSeat     = "💺"
)

func PrintError(msg string) {
	fmt.Printf("%s %s\n", ErrorStyle.Render(IconError), ErrorStyle.Render(msg))
}

func PrintErrorf(format string, args ...any) {
	PrintError(fmt.Sprintf(format, args...))
}

func PrintWarning(msg string) {
	fmt.Printf("%s %s\n", WarningStyle.Render(IconWarning), WarningStyle.Render(msg))
}

func PrintSuccess(msg string) {
	fmt.Printf("%s %s\n", SuccessStyle.Render(IconSuccess), msg)
}

func PrintInfo(msg string) {
	fmt.Printf("%s %s\n", IconInfo, msg)
}
