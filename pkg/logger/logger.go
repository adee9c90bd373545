package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	std  *logrus.Logger
	once sync.Once
)

// New creates a JSON logger at the given level ("debug", "info", "warn", "error").
// Unknown levels fall back to info.
func New(level string) *logrus.Logger {
	return NewWithOutput(level, os.Stdout)
}

// NewWithOutput is New writing to w
func NewWithOutput(level string, w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}

	l.SetOutput(w)
	return l
}

// Get returns the process-wide logger, configured from LOG_LEVEL on first use
func Get() *logrus.Logger {
	once.Do(func() {
		if std == nil {
			std = New(os.Getenv("LOG_LEVEL"))
		}
	})
	return std
}

// Set replaces the process-wide logger
func Set(l *logrus.Logger) {
	once.Do(func() {})
	std = l
}

// Discard returns a logger that drops everything, for tests
func Discard() *logrus.Logger {
	return NewWithOutput("error", io.Discard)
}
