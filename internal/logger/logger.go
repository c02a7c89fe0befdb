package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	log  zerolog.Logger
	once sync.Once
)

// Init initializes the package logger writing to stderr. Level accepts the
// usual zerolog names ("debug", "info", "warn", "error"); anything else
// falls back to info.
func Init(level string) {
	once.Do(func() {
		lvl, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil || lvl == zerolog.NoLevel {
			lvl = zerolog.InfoLevel
		}
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(lvl).
			With().Timestamp().Logger()
	})
}

// Get returns the initialized logger, initializing at info level if Init was
// never called.
func Get() zerolog.Logger {
	Init("info")
	return log
}

// With returns a logger tagged with a component name.
func With(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

// Info logs an informational message.
func Info(msg string) {
	l := Get()
	l.Info().Msg(msg)
}

// Warn logs a warning message.
func Warn(msg string) {
	l := Get()
	l.Warn().Msg(msg)
}

// Error logs an error with the message.
func Error(msg string, err error) {
	l := Get()
	l.Error().Err(err).Msg(msg)
}

// Debug logs a debug message.
func Debug(msg string) {
	l := Get()
	l.Debug().Msg(msg)
}
