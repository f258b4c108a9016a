// Package logx prints colored channel-tagged console output, forwards
// notable events to the TUI and owns the process logrus logger.
package logx

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

const (
	reset   = "\x1b[0m"
	bold    = "\x1b[1m"
	gray    = "\x1b[90m"
	cyan    = "\x1b[36m"
	blue    = "\x1b[34m"
	yellow  = "\x1b[33m"
	green   = "\x1b[32m"
	magenta = "\x1b[35m"
	red     = "\x1b[31m"
	white   = "\x1b[37m"
)

var enableColor = true

func init() {
	// Disable color if NO_COLOR is set or stdout is not a terminal
	if os.Getenv("NO_COLOR") != "" {
		enableColor = false
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		enableColor = false
	}
	configureLogger()
}

// SetColor forces color on or off, e.g. from a --no-color flag.
func SetColor(on bool) {
	enableColor = on
}

// C returns a color-coded string (or plain string if color disabled)
func C(color, s string) string {
	if !enableColor {
		return s
	}
	return color + s + reset
}

// Cf returns a color-coded formatted string
func Cf(color, format string, args ...any) string {
	return C(color, fmt.Sprintf(format, args...))
}

// Channel returns a consistently-padded colored channel tag
// All channels are 6 chars: [DATA] [CHAN] [SCOR] [BT  ] [OPT ] [WF  ] [WEB ]
// Pass 4-char channel names; short names are padded with trailing spaces.
func Channel(ch string) string {
	color := map[string]string{
		"DATA": cyan,
		"CHAN": blue,
		"SCOR": yellow,
		"BT  ": green,
		"OPT ": magenta,
		"WF  ": magenta,
		"WEB ": white,
	}[ch]

	label := fmt.Sprintf("[%-4s]", ch)
	return C(color, label)
}

// Line prints a timestamped line on a channel.
func Line(ch, format string, args ...any) {
	fmt.Printf("%s  %s  %s\n",
		C(gray, time.Now().UTC().Format("15:04:05Z")),
		Channel(ch),
		fmt.Sprintf(format, args...),
	)
}

// TS returns a gray UTC timestamp (caller controls time value)
func TS(ts string) string {
	return C(gray, ts)
}

// Colored output helpers for common use cases

// Success returns a green success message (for ✓, PASS, etc.)
func Success(s string) string {
	return C(green, s)
}

// Successf returns a formatted green success message
func Successf(format string, args ...any) string {
	return C(green, fmt.Sprintf(format, args...))
}

// Error returns a red error message (for ✗, FAIL, etc.)
func Error(s string) string {
	return C(red, s)
}

// Errorf returns a formatted red error message
func Errorf(format string, args ...any) string {
	return C(red, fmt.Sprintf(format, args...))
}

// Warn returns a yellow warning message (for ⚠, WARN, etc.)
func Warn(s string) string {
	return C(yellow, s)
}

// Warnf returns a formatted yellow warning message
func Warnf(format string, args ...any) string {
	return C(yellow, fmt.Sprintf(format, args...))
}

// Info returns a cyan info message
func Info(s string) string {
	return C(cyan, s)
}

// Infof returns a formatted cyan info message
func Infof(format string, args ...any) string {
	return C(cyan, fmt.Sprintf(format, args...))
}

// Highlight returns a bold highlighted message
func Highlight(s string) string {
	return C(bold, s)
}

// Highlightf returns a formatted bold highlighted message
func Highlightf(format string, args ...any) string {
	return C(bold, fmt.Sprintf(format, args...))
}

// Dim returns a gray dimmed message (for less important info)
func Dim(s string) string {
	return C(gray, s)
}

// Dimf returns a formatted gray dimmed message
func Dimf(format string, args ...any) string {
	return C(gray, fmt.Sprintf(format, args...))
}

// Checkmark returns a colored checkmark (green) or X (red)
func Checkmark(passed bool) string {
	if passed {
		return Success("✓")
	}
	return Error("✗")
}

// ScoreColor colors a 0..100 formula score against buy/sell thresholds
func ScoreColor(score int, buy, sell float64) string {
	switch {
	case float64(score) >= buy:
		return Success(fmt.Sprintf("%d", score))
	case float64(score) <= sell:
		return Error(fmt.Sprintf("%d", score))
	}
	return Warn(fmt.Sprintf("%d", score))
}

// ObjectiveColor returns color-coded objective value
// Positive values are green, negative are red
func ObjectiveColor(v float64) string {
	if v > 0 {
		return Success(fmt.Sprintf("%.4f", v))
	}
	return Error(fmt.Sprintf("%.4f", v))
}

// ReturnColor takes a percentage, e.g. 12.5 for +12.5%
func ReturnColor(pct float64) string {
	if pct > 0 {
		return Success(fmt.Sprintf("%.2f%%", pct))
	}
	return Error(fmt.Sprintf("%.2f%%", pct))
}

// DDColor takes a drawdown percentage <= 0
// Shallow (> -10%) is green, medium (> -20%) is yellow, deep is red
func DDColor(pct float64) string {
	if pct > -10 {
		return Success(fmt.Sprintf("%.2f%%", pct))
	}
	if pct > -20 {
		return Warn(fmt.Sprintf("%.2f%%", pct))
	}
	return Error(fmt.Sprintf("%.2f%%", pct))
}

// WinRateColor takes a percentage
// High win rate (>50%) is green, medium (>40%) is yellow, low is red
func WinRateColor(pct float64) string {
	if pct > 50 {
		return Success(fmt.Sprintf("%.1f%%", pct))
	}
	if pct > 40 {
		return Warn(fmt.Sprintf("%.1f%%", pct))
	}
	return Error(fmt.Sprintf("%.1f%%", pct))
}

// FormatDuration formats a duration in a human-readable way
// Shows hours, minutes, and seconds (e.g., "1h23m" or "45m" or "23s")
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
