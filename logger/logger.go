// Package logger configures the zerolog.Logger shared across the
// gateway: console or JSON output selected by LOG_FORMAT, optional
// rotation to a file via LOG_FILE (gopkg.in/natefinch/lumberjack.v2).
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/salience-gateway/gateway/config"
)

// New returns a configured zerolog.Logger for cfg.
func New(cfg *config.Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if cfg.IsDevelopment() && cfg.LogLevel == "" {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stderr
	if cfg.LogFormat != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	if cfg.LogFile != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, fileWriter)
	}

	return zerolog.New(out).With().Timestamp().Logger()
}
