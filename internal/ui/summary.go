package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// SessionSummary is printed after the TUI exits.
type SessionSummary struct {
	Room         string
	Duration     time.Duration
	Participants int
	PeersLinked  int
	VoiceEnabled bool
}

// RenderSessionSummary prints the end-of-session stats table.
func RenderSessionSummary(s SessionSummary) {
	voice := "disabled"
	if s.VoiceEnabled {
		voice = "enabled"
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Session", ""})
	t.AppendRows([]table.Row{
		{"Room", s.Room},
		{"Duration", s.Duration.Round(time.Second).String()},
		{"Participants seen", fmt.Sprintf("%d", s.Participants)},
		{"Voice peers", fmt.Sprintf("%d", s.PeersLinked)},
		{"Voice", voice},
	})
	t.Render()
}
