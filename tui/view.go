package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleGreen  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleYellow = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	styleRed    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleGray   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	stylePanel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238")).
		Padding(0, 1)

	styleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")).
		Padding(0, 1)

	styleEventInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	styleEventWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	styleEventError = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderProgress(),
		lipgloss.JoinHorizontal(lipgloss.Top, m.renderStats(), m.renderFold()),
		m.renderCandidate(),
		m.renderEvents(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	return styleHeader.Render(fmt.Sprintf(
		"%s │ mode=%s │ symbol=%s │ runtime=%s",
		m.snapshot.Title,
		m.snapshot.Mode,
		m.snapshot.Symbol,
		FormatDuration(time.Since(m.snapshot.StartTime)),
	))
}

func (m Model) renderProgress() string {
	s := m.snapshot
	ratio := 0.0
	if s.Total > 0 {
		ratio = float64(s.Done) / float64(s.Total)
	}
	return stylePanel.Render(fmt.Sprintf("%s %s %d/%d │ %.0f/s",
		m.progress.ViewAs(ratio), s.Phase, s.Done, s.Total, s.RatePerSec))
}

func (m Model) renderStats() string {
	return stylePanel.Width(50).Render(fmt.Sprintf(
		"Best: %s │ cache=%d\n%s",
		m.objectiveChangeColor(m.snapshot.BestObjective),
		m.snapshot.CacheSize,
		styleDim.Render(m.snapshot.BestParams),
	))
}

func (m Model) renderFold() string {
	s := m.snapshot
	if s.Folds == 0 {
		return stylePanel.Width(40).Render(fmt.Sprintf("Side: %s │ single split", s.Side))
	}
	return stylePanel.Width(40).Render(fmt.Sprintf(
		"Side: %s │ fold %d/%d │ done=%d",
		s.Side, s.Fold+1, s.Folds, s.FoldsDone,
	))
}

func (m Model) renderCandidate() string {
	c := m.snapshot.CurrentCandidate
	if c.Timestamp.IsZero() || time.Since(c.Timestamp) > 5*time.Second {
		return stylePanel.Render(fmt.Sprintf("Candidate: %s", styleDim.Render("(idle)")))
	}
	return stylePanel.Render(fmt.Sprintf(
		"Candidate[%s]: obj=%.4f │ ret=%s │ DD=%s │ trades=%d │ %s",
		c.Side,
		c.Objective,
		returnColor(c.ReturnPct),
		ddColor(c.MaxDDPct),
		c.Trades,
		styleDim.Render(c.Params),
	))
}

func (m Model) renderEvents() string {
	if !m.ready || m.width == 0 {
		return stylePanel.Render("Events: initializing...")
	}
	return stylePanel.Render("Events (scroll):") + "\n" + m.viewport.View()
}

func (m Model) renderFooter() string {
	hints := []string{"q: quit", "p: pause"}
	if m.paused {
		hints = append(hints, "(PAUSED)")
	}
	for i, h := range hints {
		hints[i] = styleDim.Render(h)
	}
	return styleGray.Render("│ " + strings.Join(hints, " │ ") + " │")
}

func (m Model) objectiveChangeColor(v float64) string {
	if v > m.prevBest {
		return styleGreen.Render(fmt.Sprintf("%.4f ↑", v))
	}
	if v < m.prevBest {
		return styleRed.Render(fmt.Sprintf("%.4f ↓", v))
	}
	return styleDim.Render(fmt.Sprintf("%.4f =", v))
}

func returnColor(pct float64) string {
	if pct > 0 {
		return styleGreen.Render(fmt.Sprintf("%.2f%%", pct))
	}
	return styleRed.Render(fmt.Sprintf("%.2f%%", pct))
}

// ddColor takes a drawdown percent <= 0
func ddColor(pct float64) string {
	if pct > -10 {
		return styleGreen.Render(fmt.Sprintf("%.2f%%", pct))
	}
	if pct > -20 {
		return styleYellow.Render(fmt.Sprintf("%.2f%%", pct))
	}
	return styleRed.Render(fmt.Sprintf("%.2f%%", pct))
}

func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if minutes > 0 {
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	return fmt.Sprintf("%dh", hours)
}
