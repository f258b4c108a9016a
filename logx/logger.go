package logx

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide structured logger for operational messages
// (config, I/O, web server). Human-facing results go through the colored
// helpers instead.
var Log = logrus.New()

// configureLogger runs from init once color detection is done.
func configureLogger() {
	Log.SetOutput(os.Stderr)
	Log.SetLevel(logrus.InfoLevel)
	Log.SetFormatter(textFormatter())
}

func textFormatter() *logrus.TextFormatter {
	return &logrus.TextFormatter{
		DisableColors:   !enableColor,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05Z07:00",
	}
}

// Init configures level ("debug", "info", "warn", ...) and format ("text"
// or "json").
func Init(level, format string) error {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	Log.SetLevel(lvl)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		Log.SetFormatter(textFormatter())
	case "json":
		Log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("log format %q: want text or json", format)
	}
	return nil
}

// SetOutput redirects the structured logger, e.g. while the TUI owns stdout.
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}

// With returns an entry tagged with a component field.
func With(component string) *logrus.Entry {
	return Log.WithField("component", component)
}
