package logx

import (
	"fmt"
	"strings"
	"time"
)

// LogProgress - single line optimizer progress
// side/fold identify the search, phase is "train" or "val"
func LogProgress(side string, fold, folds int, phase string, done, total int, rate, best float64) {
	where := side
	if folds > 0 {
		where = fmt.Sprintf("%s fold %d/%d", side, fold+1, folds)
	}
	fmt.Printf("%s  %s  %s %s %s/%s | Rate: %.0f/s | Best: %s\n",
		C(gray, time.Now().UTC().Format("15:04:05Z")),
		Channel("OPT "),
		where, phase, formatNumber(done), formatNumber(total), rate, ObjectiveColor(best),
	)
}

// ColorPercent returns a color-coded percentage string
// Low (<10%) is green, medium (10-30%) is yellow, high (>30%) is red
func ColorPercent(pct float64) string {
	if pct < 10 {
		return Success(fmt.Sprintf("%.1f%%", pct))
	}
	if pct < 30 {
		return Warn(fmt.Sprintf("%.1f%%", pct))
	}
	return Error(fmt.Sprintf("%.1f%%", pct))
}

// LogReportSaved - report persisted message
func LogReportSaved(path, runID string, elapsed time.Duration) {
	fmt.Printf("%s  %s  report %s saved to %s (runtime: %s)\n",
		C(gray, time.Now().UTC().Format("15:04:05Z")),
		Channel("OPT "),
		runID, path, formatDuration(elapsed),
	)
}

// formatDuration formats a duration in a human-readable way
// Shows hours, minutes, and seconds (e.g., "1h23m" or "45m32s" or "23s")
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}

// BoxHeader creates a top border for a boxed section with title
func BoxHeader(title string, width int) string {
	if width < 20 {
		width = 50
	}
	padding := width - len(title) - 6
	if padding < 2 {
		padding = 2
	}
	return fmt.Sprintf("┌─ %s %s┐\n", C(bold, title), C(gray, strings.Repeat("─", padding)+"─"))
}

// BoxFooter creates a bottom border for a boxed section
func BoxFooter(width int) string {
	if width < 20 {
		width = 50
	}
	return C(gray, "└"+strings.Repeat("─", width-2)+"┘") + "\n"
}

// BoxRow creates a content row for a boxed section (auto-pads to width)
func BoxRow(content string, width int) string {
	if width < 20 {
		width = 50
	}
	padding := width - len(content) - 4
	if padding < 0 {
		padding = 0
	}
	return fmt.Sprintf("│ %s%s │\n", content, strings.Repeat(" ", padding))
}

// formatNumber formats a number with thousands separators (e.g., 12,345)
func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) > 3 {
		var parts []string
		for i := len(s); i > 0; i -= 3 {
			start := i - 3
			if start < 0 {
				start = 0
			}
			parts = append([]string{s[start:i]}, parts...)
		}
		s = strings.Join(parts, ",")
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatNumber is the exported thousands-separator formatter.
func FormatNumber(n int) string {
	return formatNumber(n)
}

// SummarySnapshot holds the headline numbers of one backtest
type SummarySnapshot struct {
	Title       string
	TotalPct    float64
	CAGRPct     float64
	Sharpe      float64
	MaxDDPct    float64
	WinRatePct  float64
	AvgTradePct float64
	Trades      int
	FinalCash   string
}

// LogSummaryBox prints a boxed backtest summary
func LogSummaryBox(m SummarySnapshot) {
	const width = 60
	fmt.Printf("\n%s  %s\n", C(gray, time.Now().UTC().Format("15:04:05Z")), Channel("BT  "))
	fmt.Print(BoxHeader(m.Title, width))
	fmt.Printf("│ Total: %s │ CAGR: %s │ Sharpe: %.2f\n",
		ReturnColor(m.TotalPct), ReturnColor(m.CAGRPct), m.Sharpe)
	fmt.Printf("│ MaxDD: %s │ WR: %s │ Avg: %s │ Trades: %d\n",
		DDColor(m.MaxDDPct), WinRateColor(m.WinRatePct), ReturnColor(m.AvgTradePct), m.Trades)
	if m.FinalCash != "" {
		fmt.Printf("│ Final capital: %s\n", Highlight(m.FinalCash))
	}
	fmt.Print(BoxFooter(width))
}
