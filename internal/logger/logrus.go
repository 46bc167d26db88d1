package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	logg *logrus.Logger
)

// GetLogger returns the shared JSON logger, creating it on first use.
func GetLogger() *logrus.Logger {
	if logg != nil {
		return logg
	}
	logg = logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logg.SetLevel(level)
	return logg
}

// LogError emits a structured error entry with enough context to find the
// failing call without a stack trace.
func LogError(log *logrus.Logger, module string, funcName string, context string, data any, err error) {
	log.WithFields(logrus.Fields{
		"module":   module,
		"function": funcName,
		"context":  context,
		"data":     data,
	}).Error(err)
}
