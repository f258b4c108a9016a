package logx

import (
	"fmt"
	"time"
)

const eventSep = "═══════════════════════════════════════════════════════════════════"

// LogSignalBlock - structural buy signal block
func LogSignalBlock(kind string, ts time.Time, bar int, price float64, reason string) {
	fmt.Printf("%s\n%s  %s  SIGNAL %s\nTimestamp:    %s\nBar Index:    %d\nPrice:        %.4f\nReason:       %s\n%s\n",
		eventSep,
		C(cyan, time.Now().UTC().Format("15:04:05.000Z")),
		Channel("CHAN"),
		C(bold, kind),
		C(gray, ts.UTC().Format("2006-01-02")),
		bar,
		price,
		reason,
		eventSep,
	)
}

// LogTradeLine - one fill of the trade log
// decision/fill are bar indices; the fill is always the bar after the decision
func LogTradeLine(label string, decisionTs, fillTs time.Time, decision, fill int, price float64, score int, retPct float64, isBuy bool) {
	labelStr := C(green, label)
	retStr := ""
	if !isBuy {
		labelStr = C(yellow, label)
		switch label {
		case "SELL-SL":
			labelStr = C(red, label)
		case "SELL-TP":
			labelStr = C(green, label)
		}
		retStr = "  ret=" + ReturnColor(retPct)
	}
	fmt.Printf("%s  %s  %-10s decided %s (t=%d, score=%d) filled %s (t+1=%d) @ %.4f%s\n",
		C(gray, time.Now().UTC().Format("15:04:05Z")),
		Channel("BT  "),
		labelStr,
		decisionTs.UTC().Format("2006-01-02"), decision, score,
		fillTs.UTC().Format("2006-01-02"), fill, price,
		retStr,
	)
}

// LogFoldBlock - walk-forward fold summary for one side
func LogFoldBlock(side string, fold, folds int, train, val, params string, valObjective float64, status string) {
	statusStr := C(green, status)
	if status != "OK" {
		statusStr = C(yellow, status)
	}
	fmt.Printf("%s\n%s  %s  FOLD %d/%d  side=%s  status=%s\nTrain:        %s\nValidation:   %s\nWinner:       %s\nVal score:    %s\n%s\n",
		eventSep,
		C(cyan, time.Now().UTC().Format("15:04:05.000Z")),
		Channel("WF  "),
		fold+1, folds, C(bold, side), statusStr,
		train,
		val,
		params,
		ObjectiveColor(valObjective),
		eventSep,
	)
}
