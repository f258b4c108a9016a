package main

import (
	"context"

	"chanquant/logx"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// cfg is loaded once by the root PersistentPreRunE and refined by each
// subcommand's flags.
var cfg Config

var rootCmd = &cobra.Command{
	Use:   "chanquant",
	Short: "Chan-theory structure, formula scoring and walk-forward backtests for A-share daily bars",
	Long: `chanquant decomposes daily OHLCV bars into fractals, strokes and pivots,
scores trailing windows with a weighted formula, simulates a long-only
strategy on those scores and searches its parameters with a train/validation
split or an A/B walk-forward comparison.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd.Context(), cmd)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("env-file", ".env", "dotenv file loaded before reading CHANQUANT_* variables")
	pf.String("data", "", "daily OHLCV CSV file")
	pf.String("symbol", "", "symbol label for reports")
	pf.String("start", "", "first date to use (YYYY-MM-DD)")
	pf.String("end", "", "last date to use (YYYY-MM-DD)")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (text|json)")
	pf.Bool("no-color", false, "disable ANSI colors")
}

// Execute runs the root command under ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(ctx context.Context, cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := loadDotEnv(envFile); err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("config")
	loaded, err := loadConfig(ctx, path, envconfig.OsLookuper())
	if err != nil {
		return err
	}

	flagString(cmd, "data", &loaded.Data.Path)
	flagString(cmd, "symbol", &loaded.Data.Symbol)
	flagString(cmd, "start", &loaded.Data.Start)
	flagString(cmd, "end", &loaded.Data.End)
	flagString(cmd, "log-level", &loaded.Log.Level)
	flagString(cmd, "log-format", &loaded.Log.Format)
	flagBool(cmd, "no-color", &loaded.Log.NoColor)
	if _, err := loaded.dateRange(); err != nil {
		return err
	}

	if loaded.Log.NoColor {
		logx.SetColor(false)
	}
	if err := logx.Init(loaded.Log.Level, loaded.Log.Format); err != nil {
		return err
	}
	cfg = loaded
	logx.With("cli").WithField("command", cmd.Name()).Debug("config loaded")
	return nil
}
