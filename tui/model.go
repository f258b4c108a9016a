package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const maxEvents = 1000

// StateSnapshot is the optimizer state at a point in time
type StateSnapshot struct {
	Title     string
	Mode      string // "split" or "walkforward"
	Symbol    string
	StartTime time.Time

	Side  string
	Fold  int
	Folds int
	Phase string // "train" or "val"

	Done       int
	Total      int
	RatePerSec float64

	BestObjective float64
	BestParams    string
	FoldsDone     int
	CacheSize     int

	CurrentCandidate CandidateInfo
}

type CandidateInfo struct {
	Side      string
	Objective float64
	ReturnPct float64
	MaxDDPct  float64
	Trades    int
	Params    string
	Timestamp time.Time
}

// Event represents a significant event
type Event struct {
	Timestamp time.Time
	Type      string // "BEST", "FOLD", "NONE", "SAVE", "CANCEL", etc.
	Severity  string // "info", "warning", "error"
	Message   string
}

type (
	MsgStateSnapshot StateSnapshot
	MsgEvent         Event
	MsgShutdown      struct{}
	MsgTick          time.Time
)

type Model struct {
	snapshot StateSnapshot
	events   []Event // Ring buffer, max 1000
	paused   bool

	width  int
	height int
	ready  bool

	progress progress.Model
	viewport viewport.Model

	// Track previous best to show ↑ ↓
	prevBest float64
}

func NewModel() Model {
	return Model{
		snapshot: StateSnapshot{StartTime: time.Now()},
		events:   make([]Event, 0, maxEvents),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		viewport: viewport.New(0, 10),
	}
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return MsgTick(t)
	})
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		var cmd tea.Cmd
		m2, keyCmd := m.handleKey(msg)
		m = m2.(Model)
		m.viewport, cmd = m.viewport.Update(msg)
		return m, tea.Batch(cmd, keyCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.viewport.Width = m.width - 4
		m.viewport.Height = 10
		return m, nil

	case MsgStateSnapshot:
		if m.paused {
			return m, nil
		}
		m.prevBest = m.snapshot.BestObjective
		m.snapshot = StateSnapshot(msg)
		return m, nil

	case MsgEvent:
		m.addEvent(Event(msg))
		m.updateViewportContent()
		m.viewport.GotoBottom()
		return m, nil

	case MsgTick:
		return m, tick()

	case MsgShutdown:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "p":
		m.paused = !m.paused
		return m, nil
	}
	return m, nil
}

func (m *Model) addEvent(e Event) {
	m.events = append(m.events, e)
	if len(m.events) > maxEvents {
		m.events = m.events[1:]
	}
}

// updateViewportContent rebuilds events content for viewport
// Call this only when events change (on MsgEvent), not every render
func (m *Model) updateViewportContent() {
	lines := make([]string, 0, len(m.events))
	for _, e := range m.events {
		style := styleEventInfo
		switch e.Severity {
		case "warning":
			style = styleEventWarn
		case "error":
			style = styleEventError
		}

		icon := "•"
		switch {
		case e.Type == "BEST":
			icon = "↗"
		case e.Type == "FOLD":
			icon = "✓"
		case e.Severity == "warning":
			icon = "⚠"
		case e.Severity == "error":
			icon = "✗"
		}

		lines = append(lines, style.Render(
			fmt.Sprintf("[%s] %s %s", e.Timestamp.Format("15:04:05"), icon, e.Message),
		))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}
