package logging

import (
	"fmt"
	"io"
	"strings"

	prefixed "github.com/BertoldVdb/logrus-prefixed-formatter"
	"github.com/sirupsen/logrus"
)

// New returns the root logger. Components derive their own entry with
// WithField("prefix", name).
func New(level string, out io.Writer) (*logrus.Entry, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	logrus.ErrorKey = "$error"
	logger := logrus.New()
	if out != nil {
		logger.SetOutput(out)
	}
	logger.SetLevel(lvl)

	f := new(prefixed.TextFormatter)
	f.TimestampFormat = "2006-01-02 15:04:05"
	f.FullTimestamp = true
	f.PrefixPadding = 12
	f.SpacePadding = 50
	logger.SetFormatter(f)
	return logrus.NewEntry(logger), nil
}

// Discard is a logger for tests.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
