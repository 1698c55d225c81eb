// Package logging configures cmdpilot's package-level structured logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// specificLevelWriter routes log events to Writer only when their level is in Levels.
type specificLevelWriter struct {
	io.Writer
	Levels []zerolog.Level
}

func (w specificLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	for _, l := range w.Levels {
		if l == level {
			return w.Write(p)
		}
	}
	return len(p), nil
}

// Configure rebuilds the package logger for the given level and optional log file.
// With no log file, output is a console writer split stdout(debug/info/warn)/stderr(error+).
// With a log file, that file additionally receives JSON-encoded records at all levels.
func Configure(level string, logFile string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	writers := []io.Writer{
		specificLevelWriter{
			Writer: zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339},
			Levels: []zerolog.Level{zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel},
		},
		specificLevelWriter{
			Writer: zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
			Levels: []zerolog.Level{zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel},
		},
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}

	log = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return nil
}

// L returns the package-level logger.
func L() *zerolog.Logger { return &log }

func Debug(msg string)                          { log.Debug().Msg(msg) }
func Debugf(format string, args ...interface{}) { log.Debug().Msgf(format, args...) }
func Info(msg string)                           { log.Info().Msg(msg) }
func Infof(format string, args ...interface{})  { log.Info().Msgf(format, args...) }
func Warn(msg string)                           { log.Warn().Msg(msg) }
func Warnf(format string, args ...interface{})  { log.Warn().Msgf(format, args...) }
func Error(msg string)                          { log.Error().Msg(msg) }
func Errorf(format string, args ...interface{}) { log.Error().Msgf(format, args...) }
