// Package log provides the zerolog-backed logger shared by gbdata packages.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	scierr "github.com/YuminosukeSato/gbdata/pkg/errors"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

func init() {
	// Route pkg/errors warnings through zerolog.
	scierr.SetZerologWarnFunc(func(warning error) {
		l := Logger()
		ev := l.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev.Object("warning", obj).Msg(warning.Error())
			return
		}
		ev.Msg(warning.Error())
	})
}

// Logger returns the current package logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// SetOutput redirects log output, keeping the current level.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Output(w)
}

// SetLevel changes the minimum emitted level.
func SetLevel(level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(level)
}

// Info logs an informational message.
func Info(msg string) {
	l := Logger()
	l.Info().Msg(msg)
}

// Infof logs a formatted informational message.
func Infof(format string, args ...interface{}) {
	l := Logger()
	l.Info().Msgf(format, args...)
}

// Warnf logs a formatted warning message.
func Warnf(format string, args ...interface{}) {
	l := Logger()
	l.Warn().Msgf(format, args...)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) {
	l := Logger()
	l.Debug().Msgf(format, args...)
}
