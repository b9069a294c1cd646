package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns the process logger. Logs go to stderr so they never mix with
// the result box printed on stdout.
func New(debug bool) *logrus.Logger {
	return NewWithOutput(os.Stderr, debug)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(out io.Writer, debug bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// Discard is a logger for tests and quiet one-shot runs.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
