package commands

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"

	"glhost/internal/config"
)

func init() {
	// Silent unless enabled; stdout may carry machine-readable output.
	log.SetOutput(io.Discard)
}

// setupLogging routes logrus to w when logging is enabled by --verbose,
// the DEBUG environment variable or the log_level setting.
func setupLogging(w io.Writer, verbose bool, settings *config.Settings) {
	enabled := verbose || os.Getenv("DEBUG") != "" || settings.LoggingEnabled()
	if !enabled {
		log.SetOutput(io.Discard)
		return
	}

	log.SetOutput(w)
	log.SetLevel(parseLevel(settings.NormalizedLogLevel()))

	colors := false
	if f, ok := w.(*os.File); ok {
		colors = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	log.SetFormatter(&log.TextFormatter{
		ForceColors:   colors,
		DisableColors: !colors,
		FullTimestamp: true,
	})
}

// parseLevel maps a settings log level (case insensitive) to a logrus level.
// Anything unrecognised, including "off" overridden by --verbose, means info.
func parseLevel(level string) log.Level {
	switch level {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}
