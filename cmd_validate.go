package main

import (
	"errors"
	"fmt"

	"chanquant/logx"
	"chanquant/series"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a data file for malformed rows, duplicates and inconsistent prices",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if cfg.Data.Path == "" {
		return fmt.Errorf("no data file (use --data or %sDATA)", envPrefix)
	}
	fmt.Println("\n=== DATA VALIDATION ===")
	logx.Line("DATA", "loading %s", cfg.Data.Path)

	raw, err := loadRawBars(cfg.Data.Path)
	if err != nil {
		var inv *series.InvalidSeriesError
		if errors.As(err, &inv) {
			logx.Line("DATA", "%s row=%d field=%s: %s", logx.Error("invalid"), inv.Index, inv.Field, inv.Reason)
		}
		return err
	}
	rep, _ := ValidateBars(raw)
	printDataReport(rep)
	if !rep.Passed() {
		return fmt.Errorf("validation failed: %d check(s)", len(rep.FailedChecks))
	}
	return nil
}

func printDataReport(rep DataReport) {
	kv := []string{
		"rows", logx.FormatNumber(rep.RawRows),
		"bars", logx.FormatNumber(rep.Bars),
		"duplicates", logx.FormatNumber(rep.Duplicates),
	}
	if rep.Bars > 0 {
		kv = append(kv, "range", rep.First.Format("2006-01-02")+" .. "+rep.Last.Format("2006-01-02"))
	}
	logx.PrintKV("  ", kv...)

	for _, w := range rep.Warnings {
		fmt.Printf("  %s %s\n", logx.Warn("!"), w)
	}
	if rep.Passed() {
		fmt.Println("\n=== VALIDATION SUMMARY ===")
		fmt.Printf("Status: ALL CHECKS PASSED %s\n", logx.Checkmark(true))
		return
	}
	fmt.Println("\n=== VALIDATION FAILED ===")
	for _, f := range rep.FailedChecks {
		fmt.Printf("  %s %s\n", logx.Checkmark(false), f)
	}
}
