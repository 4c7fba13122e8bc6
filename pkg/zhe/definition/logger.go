// Package definition holds the ambient collaborators the engine is
// configured with but does not itself construct a policy for, chief
// among them the trace logger.
package definition

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the tracing sink the engine logs through. Debug-level
// calls are expected to be cheap to call unconditionally; an
// implementation gates them on its own verbosity flag via
// ToggleDebug, matching the teacher's DefaultLogger shape.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
	Panic(v ...interface{})
	Panicf(format string, v ...interface{})
	// ToggleDebug enables or disables Debug/Debugf output, returning
	// the new state.
	ToggleDebug(enabled bool) bool
}

// DefaultLogger is the logrus-backed Logger used when a driver does
// not supply its own.
type DefaultLogger struct {
	entry *logrus.Logger
	debug bool
}

// NewDefaultLogger builds a DefaultLogger writing to stderr, text
// formatted, debug output disabled until ToggleDebug(true).
func NewDefaultLogger() *DefaultLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return &DefaultLogger{entry: l}
}

func (l *DefaultLogger) Info(v ...interface{})  { l.entry.Info(v...) }
func (l *DefaultLogger) Infof(format string, v ...interface{}) { l.entry.Infof(format, v...) }
func (l *DefaultLogger) Warn(v ...interface{})  { l.entry.Warn(v...) }
func (l *DefaultLogger) Warnf(format string, v ...interface{}) { l.entry.Warnf(format, v...) }
func (l *DefaultLogger) Error(v ...interface{}) { l.entry.Error(v...) }
func (l *DefaultLogger) Errorf(format string, v ...interface{}) { l.entry.Errorf(format, v...) }

func (l *DefaultLogger) Debug(v ...interface{}) {
	if l.debug {
		l.entry.Debug(v...)
	}
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		l.entry.Debugf(format, v...)
	}
}

func (l *DefaultLogger) Fatal(v ...interface{}) { l.entry.Fatal(v...) }
func (l *DefaultLogger) Fatalf(format string, v ...interface{}) { l.entry.Fatalf(format, v...) }
func (l *DefaultLogger) Panic(v ...interface{}) { l.entry.Panic(v...) }
func (l *DefaultLogger) Panicf(format string, v ...interface{}) { l.entry.Panicf(format, v...) }

// ToggleDebug enables or disables Debug/Debugf output.
func (l *DefaultLogger) ToggleDebug(enabled bool) bool {
	l.debug = enabled
	if enabled {
		l.entry.SetLevel(logrus.DebugLevel)
	} else {
		l.entry.SetLevel(logrus.InfoLevel)
	}
	return l.debug
}
