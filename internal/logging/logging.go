package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	File   string // optional rotated log file
}

// New builds the process logger. A non-empty File adds a size-rotated copy of
// the stream alongside stdout.
func New(opts Options) zerolog.Logger {
	level := zerolog.InfoLevel
	switch opts.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	var console io.Writer = os.Stdout
	if opts.Format == "text" {
		console = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	if opts.File == "" {
		return zerolog.New(console).With().Timestamp().Logger()
	}

	rotated := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    20, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
	}
	return zerolog.New(zerolog.MultiLevelWriter(console, rotated)).With().Timestamp().Logger()
}
