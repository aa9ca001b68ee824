package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ishaan-arora-1/classroom-live/internal/classroom"
	"github.com/ishaan-arora-1/classroom-live/internal/protocol"
	"github.com/ishaan-arora-1/classroom-live/internal/signaling"
	"github.com/ishaan-arora-1/classroom-live/internal/voice"
)

// ActionKind identifies a user command sent from the TUI to the session
// loop, which owns the controllers.
type ActionKind int

const (
	ActionClaimSeat ActionKind = iota
	ActionStand
	ActionToggleMute
	ActionQuit
)

// Action is a user command.
type Action struct {
	Kind ActionKind
	Seat string
}

// Messages pushed into the TUI by the session loop.
type (
	// ClassroomMsg wraps a reconciler render event.
	ClassroomMsg struct{ Event classroom.Event }

	// VoiceMsg wraps a voice event.
	VoiceMsg struct{ Event voice.Event }

	// ConnMsg wraps a relay connectivity event.
	ConnMsg struct{ Event signaling.Event }
)

type clearNoticeMsg struct{ seq int }

type seatView struct {
	occupantID string
	label      string
}

// App is the classroom TUI: the seat grid, the occupant side list, the
// speaking indicator and a status bar. It holds its own copy of the
// view state, fed exclusively by messages; it never touches controller
// state directly.
type App struct {
	selfID   string
	selfName string
	roomID   string
	voiceOn  bool

	rows, cols int
	seats      map[string]seatView
	roster     []protocol.Participant
	speaking   map[string]bool

	selfState classroom.State
	selfSeat  string
	muted     bool

	cursorRow, cursorCol int

	conn      string
	notice    string
	noticeSeq int

	actions chan<- Action
}

// NewApp creates the TUI model. Actions the user takes are delivered on
// the actions channel.
func NewApp(selfID, selfName, roomID string, voiceOn bool, actions chan<- Action) *App {
	return &App{
		selfID:   selfID,
		selfName: selfName,
		roomID:   roomID,
		voiceOn:  voiceOn,
		seats:    make(map[string]seatView),
		speaking: make(map[string]bool),
		conn:     "connecting",
		actions:  actions,
	}
}

func (a *App) Init() tea.Cmd {
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case ClassroomMsg:
		return a.applyClassroom(msg.Event)

	case VoiceMsg:
		a.applyVoice(msg.Event)
		return a, nil

	case ConnMsg:
		a.applyConn(msg.Event)
		return a, nil

	case clearNoticeMsg:
		if msg.seq == a.noticeSeq {
			a.notice = ""
		}
		return a, nil
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if a.cursorRow > 0 {
			a.cursorRow--
		}
	case "down", "j":
		if a.cursorRow < a.rows-1 {
			a.cursorRow++
		}
	case "left", "h":
		if a.cursorCol > 0 {
			a.cursorCol--
		}
	case "right", "l":
		if a.cursorCol < a.cols-1 {
			a.cursorCol++
		}
	case "enter", " ":
		if a.rows > 0 {
			a.send(Action{Kind: ActionClaimSeat, Seat: protocol.SeatID(a.cursorRow, a.cursorCol)})
		}
	case "s":
		a.send(Action{Kind: ActionStand})
	case "m":
		if a.voiceOn {
			a.send(Action{Kind: ActionToggleMute})
			a.muted = !a.muted
		}
	case "q", "ctrl+c":
		a.send(Action{Kind: ActionQuit})
		return a, tea.Quit
	}
	return a, nil
}

// send forwards an action without ever blocking the render loop.
func (a *App) send(action Action) {
	select {
	case a.actions <- action:
	default:
	}
}

func (a *App) applyClassroom(ev classroom.Event) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case classroom.EventRoomReset:
		a.rows, a.cols = ev.Rows, ev.Cols
		a.roster = ev.Roster
		a.seats = make(map[string]seatView)
		for _, p := range ev.Roster {
			if p.Seat != "" {
				a.seats[p.Seat] = seatView{occupantID: p.ID, label: shortName(p.Name)}
			}
		}

	case classroom.EventSeatChanged:
		if ev.Occupied {
			a.seats[ev.Seat] = seatView{occupantID: ev.Participant.ID, label: shortName(ev.Participant.Name)}
		} else {
			delete(a.seats, ev.Seat)
		}

	case classroom.EventRosterChanged:
		a.roster = ev.Roster

	case classroom.EventSelfChanged:
		a.selfState = ev.State
		a.selfSeat = ev.Seat

	case classroom.EventNotice:
		a.notice = ev.Notice
		a.noticeSeq++
		seq := a.noticeSeq
		return a, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearNoticeMsg{seq: seq}
		})
	}
	return a, nil
}

func (a *App) applyVoice(ev voice.Event) {
	switch ev.Kind {
	case voice.EventSpeakingStart:
		a.speaking[ev.Participant] = true
	case voice.EventSpeakingEnd:
		delete(a.speaking, ev.Participant)
	case voice.EventPeerFailed:
		delete(a.speaking, ev.Participant)
	}
}

func (a *App) applyConn(ev signaling.Event) {
	switch ev.Kind {
	case signaling.EventConnected:
		a.conn = "connected"
	case signaling.EventReconnecting:
		a.conn = fmt.Sprintf("reconnecting (%d/%d)", ev.Attempt, signaling.MaxReconnectAttempts)
	case signaling.EventDisconnected:
		a.conn = "disconnected"
	}
}

func (a *App) View() string {
	var b strings.Builder

	title := fmt.Sprintf("%s Classroom %s", IconRoom, a.roomID)
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(a.statusBar())
	b.WriteString("\n\n")

	if a.rows == 0 {
		b.WriteString(MutedStyle.Render("waiting for room state..."))
		b.WriteString("\n")
	} else {
		grid := a.gridView()
		roster := a.rosterView()
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, grid, "   ", roster))
		b.WriteString("\n")
	}

	if a.notice != "" {
		b.WriteString("\n")
		b.WriteString(NoticeStyle.Render(IconWarning + " " + a.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(MutedStyle.Render("arrows: move · enter: sit · s: stand · m: mute · q: leave"))
	b.WriteString("\n")
	return b.String()
}

func (a *App) statusBar() string {
	mic := IconMic
	if !a.voiceOn {
		mic = MutedStyle.Render("voice off")
	} else if a.muted {
		mic = IconMuted
	} else if a.speaking[a.selfID] {
		mic = IconSpeaking
	}

	state := a.selfState.String()
	if a.selfSeat != "" {
		state = fmt.Sprintf("%s %s", state, a.selfSeat)
	}

	return StatusBarStyle.Render(fmt.Sprintf("%s · %s · %s · %s", a.selfName, state, mic, a.conn))
}

func (a *App) gridView() string {
	rows := make([]string, 0, a.rows)
	for r := 0; r < a.rows; r++ {
		cells := make([]string, 0, a.cols)
		for col := 0; col < a.cols; col++ {
			cells = append(cells, a.seatCell(r, col))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a *App) seatCell(row, col int) string {
	id := protocol.SeatID(row, col)
	view, occupied := a.seats[id]

	label := "·"
	if occupied {
		label = view.label
	}

	style := SeatEmptyStyle
	switch {
	case row == a.cursorRow && col == a.cursorCol:
		style = SeatCursorStyle
	case occupied && view.occupantID == a.selfID:
		style = SeatSelfStyle
	case occupied && a.speaking[view.occupantID]:
		style = SeatSpeakingStyle
	case occupied:
		style = SeatTakenStyle
	}

	return style.Render(label)
}

func (a *App) rosterView() string {
	if len(a.roster) == 0 {
		return MutedStyle.Render("(empty room)")
	}

	sorted := make([]protocol.Participant, len(a.roster))
	copy(sorted, a.roster)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	lines := make([]string, 0, len(sorted)+1)
	lines = append(lines, BoldStyle.Render("In the room"))
	for _, p := range sorted {
		marker := " "
		if a.speaking[p.ID] {
			marker = IconSpeaking
		}
		name := p.Name
		if p.ID == a.selfID {
			name += " (you)"
		}
		if p.Seat != "" {
			name += MutedStyle.Render(" " + p.Seat)
		}
		lines = append(lines, fmt.Sprintf("%s %s", marker, name))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// shortName truncates a display name to fit a seat cell, by runes so
// multibyte names are never split mid-character.
func shortName(name string) string {
	runes := []rune(name)
	if len(runes) <= 6 {
		return name
	}
	return string(runes[:6])
}
