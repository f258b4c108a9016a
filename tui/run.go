package tui

import (
	"context"
	"fmt"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

type TUIConfig struct {
	Title  string
	Mode   string
	Symbol string
}

var (
	mu      sync.RWMutex
	program *tea.Program
)

// Start initializes and starts the TUI
// Returns nil if TUI started successfully, error if disabled (non-TTY, TERM=dumb, etc.)
func Start(ctx context.Context, cfg TUIConfig) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("TUI disabled (not a TTY)")
	}
	if os.Getenv("TERM") == "dumb" {
		return fmt.Errorf("TUI disabled (TERM=dumb)")
	}

	m := NewModel()
	m.snapshot.Title = cfg.Title
	m.snapshot.Mode = cfg.Mode
	m.snapshot.Symbol = cfg.Symbol

	p := tea.NewProgram(m, tea.WithContext(ctx))

	mu.Lock()
	program = p
	mu.Unlock()

	go func() {
		_, _ = p.Run()
	}()

	return nil
}

// Stop asks the running program to quit.
func Stop() {
	mu.Lock()
	p := program
	program = nil
	mu.Unlock()
	if p != nil {
		p.Send(MsgShutdown{})
	}
}

// Running reports whether a program has been started and not stopped.
func Running() bool {
	mu.RLock()
	defer mu.RUnlock()
	return program != nil
}

// PushState sends a state snapshot to the TUI (thread-safe)
func PushState(s StateSnapshot) {
	mu.RLock()
	p := program
	mu.RUnlock()
	if p != nil {
		p.Send(MsgStateSnapshot(s))
	}
}

// PushEvent sends an event to the TUI (thread-safe)
func PushEvent(e Event) {
	mu.RLock()
	p := program
	mu.RUnlock()
	if p != nil {
		p.Send(MsgEvent(e))
	}
}
