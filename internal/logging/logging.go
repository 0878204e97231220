// Package logging provides the leveled logger used throughout mirrorsync. It
// is a thin layer over zerolog that writes one record per line with a
// timestamp, a level and a message.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

// LevelIds maps levels to their accepted textual names, for flags and config.
var LevelIds = map[Level][]string{
	Debug: {"debug"},
	Info:  {"info"},
	Warn:  {"warn", "warning"},
	Error: {"error"},
}

func (l Level) String() string {
	if names, ok := LevelIds[l]; ok {
		return names[0]
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case Debug:
		return zerolog.DebugLevel
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type Format int

const (
	JSON Format = iota
	Text
)

var FormatIds = map[Format][]string{
	JSON: {"json"},
	Text: {"text", "console"},
}

func (f Format) String() string {
	if names, ok := FormatIds[f]; ok {
		return names[0]
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseLevel returns the level named by s. An empty string yields Info.
func ParseLevel(s string) (Level, error) {
	if s == "" {
		return Info, nil
	}
	for l, names := range LevelIds {
		for _, n := range names {
			if strings.EqualFold(n, s) {
				return l, nil
			}
		}
	}
	return Info, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat returns the format named by s. An empty string yields JSON.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return JSON, nil
	}
	for f, names := range FormatIds {
		for _, n := range names {
			if strings.EqualFold(n, s) {
				return f, nil
			}
		}
	}
	return JSON, fmt.Errorf("unknown log format %q", s)
}

type Config struct {
	Level  Level
	Format Format
	Output io.Writer // defaults to os.Stdout
}

type Logger struct {
	log zerolog.Logger
}

func NewLogger(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Format == Text {
		out = zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339}
	}

	return &Logger{
		log: zerolog.New(out).Level(cfg.Level.zerolog()).With().Timestamp().Logger(),
	}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{log: zerolog.Nop()}
}

// With returns a child logger that adds the given field to every record.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{log: l.log.With().Interface(key, value).Logger()}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
