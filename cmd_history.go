package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"chanquant/logx"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent saved runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of runs to show")
	historyCmd.Flags().String("file", "", "history file (default runs/history.jsonl)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := cfg.Output.History
	flagString(cmd, "file", &path)
	limit, _ := cmd.Flags().GetInt("limit")

	runs, err := loadRecentRuns(path, limit)
	if errors.Is(err, fs.ErrNotExist) {
		logx.Line("DATA", "no history at %s", path)
		return nil
	}
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		id := r.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, []string{
			r.Started.Local().Format("2006-01-02 15:04"),
			id,
			r.Command,
			r.Symbol,
			r.Status,
			logx.FormatDuration(time.Duration(r.ElapsedMs) * time.Millisecond),
			r.Summary,
		})
	}
	logx.PrintTable([]string{"STARTED", "RUN", "COMMAND", "SYMBOL", "STATUS", "TIME", "SUMMARY"}, rows)
	fmt.Printf("\n%d run(s) from %s\n", len(runs), path)
	return nil
}
