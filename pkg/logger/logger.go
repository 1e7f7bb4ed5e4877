package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a new logger with the specified log level. The package-level
// logrus logger gets the same settings, so code logging without an injected
// logger formats consistently.
func New(level string) *logrus.Logger {
	logger := logrus.New()
	configure(logger, level)
	configure(logrus.StandardLogger(), level)
	return logger
}

func configure(logger *logrus.Logger, level string) {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logger.SetOutput(os.Stdout)
}

// WithChild creates a logger entry tagged with a child+kindergarten key
func WithChild(logger *logrus.Logger, key string) *logrus.Entry {
	return logger.WithField("child", key)
}
