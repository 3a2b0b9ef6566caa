package initializer

import (
	"io"
	"log/slog"
	"os"

	"github.com/amirasaad/householdledger/pkg/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var levelColors = map[log.Level]lipgloss.AdaptiveColor{
	log.DebugLevel: {Light: "#7E57C2", Dark: "#7E57C2"},
	log.InfoLevel:  {Light: "#04B575", Dark: "#04B575"},
	log.WarnLevel:  {Light: "#EE6FF8", Dark: "#EE6FF8"},
	log.ErrorLevel: {Light: "#FF6B6B", Dark: "#FF6B6B"},
}

var levelLabels = map[log.Level]string{
	log.DebugLevel: "DEBU",
	log.InfoLevel:  "INFO",
	log.WarnLevel:  "WARN",
	log.ErrorLevel: "ERRO",
}

// ledgerKeys are attribute keys highlighted in text output.
var ledgerKeys = []string{"account_id", "actor", "event_type", "balance"}

func loggerStyles() *log.Styles {
	styles := log.DefaultStyles()
	for level, color := range levelColors {
		styles.Levels[level] = lipgloss.NewStyle().
			SetString(levelLabels[level]).
			Bold(true).
			Padding(0, 1).
			Foreground(color)
	}

	errorColor := levelColors[log.ErrorLevel]
	styles.Keys["error"] = lipgloss.NewStyle().Foreground(errorColor)
	styles.Values["error"] = lipgloss.NewStyle().Bold(true)

	keyColor := levelColors[log.DebugLevel]
	for _, key := range ledgerKeys {
		styles.Keys[key] = lipgloss.NewStyle().Foreground(keyColor)
		styles.Values[key] = lipgloss.NewStyle().Bold(true)
	}
	return styles
}

// NewLogger builds the charmbracelet logger described by cfg and exposes it
// through slog.
func NewLogger(cfg *config.Log, w io.Writer) *slog.Logger {
	formattersMap := map[string]log.Formatter{
		"json":   log.JSONFormatter,
		"text":   log.TextFormatter,
		"logfmt": log.LogfmtFormatter,
	}
	formatter := log.TextFormatter
	if f, ok := formattersMap[cfg.Format]; ok {
		formatter = f
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           log.Level(cfg.Level),
		Prefix:          cfg.Prefix,
		Formatter:       formatter,
	})
	logger.SetStyles(loggerStyles())

	return slog.New(logger)
}

func setupLogger(cfg *config.Log) *slog.Logger {
	slogger := NewLogger(cfg, os.Stdout)
	slog.SetDefault(slogger)
	return slogger
}
