package sdk

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// DebugSink receives human readable diagnostics: the "_console" entries the
// API returns and a summary of every failed request. Level is "log" for
// console output and "error" for failures.
type DebugSink interface {
	Log(level string, args ...any)
}

// DebugSinkFunc adapts a plain function to DebugSink.
type DebugSinkFunc func(level string, args ...any)

// Log calls f(level, args...)
func (f DebugSinkFunc) Log(level string, args ...any) {
	f(level, args...)
}

// LogrusSink writes diagnostics through a logrus logger.
type LogrusSink struct {
	Logger logrus.FieldLogger
}

// NewLogrusSink creates a sink on logger, or on the standard logger when nil.
func NewLogrusSink(logger logrus.FieldLogger) *LogrusSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusSink{Logger: logger}
}

// Log writes args space separated at the matching logrus level
func (s *LogrusSink) Log(level string, args ...any) {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, fmt.Sprint(arg))
	}
	entry := s.Logger.WithField("source", "commerce-debug")
	msg := strings.Join(parts, " ")

	switch strings.ToLower(level) {
	case "error":
		entry.Error(msg)
	case "warn", "warning":
		entry.Warn(msg)
	case "debug":
		entry.Debug(msg)
	default:
		entry.Info(msg)
	}
}

// safeDebug forwards to sink and contains any panic it raises.
func safeDebug(sink DebugSink, logger logrus.FieldLogger, level string, args ...any) {
	if sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Warn("Debug sink panicked")
		}
	}()
	sink.Log(level, args...)
}
