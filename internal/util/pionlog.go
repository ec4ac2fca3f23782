package util

import (
	"fmt"

	"github.com/pion/logging"
	"github.com/pterm/pterm"
)

// PionLoggerFactory routes pion's internal logs (ICE, DTLS, SCTP) onto the
// pterm logger. Trace is folded into pterm's trace level; pion scopes are
// kept as a structured argument.
type PionLoggerFactory struct{}

var _ logging.LoggerFactory = PionLoggerFactory{}

// NewLogger implements logging.LoggerFactory.
func (PionLoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &pionLogger{scope: scope}
}

type pionLogger struct {
	scope string
}

func (l *pionLogger) log(level pterm.LogLevel, msg string) {
	lvl := pterm.DefaultLogger.Level
	if lvl == pterm.LogLevelDisabled || lvl > level {
		return
	}

	args := pterm.DefaultLogger.Args("scope", l.scope)

	switch level {
	case pterm.LogLevelTrace:
		pterm.DefaultLogger.Trace(msg, args)
	case pterm.LogLevelDebug:
		pterm.DefaultLogger.Debug(msg, args)
	case pterm.LogLevelWarn:
		pterm.DefaultLogger.Warn(msg, args)
	default:
		pterm.DefaultLogger.Error(msg, args)
	}
}

func (l *pionLogger) Trace(msg string) { l.log(pterm.LogLevelTrace, msg) }
func (l *pionLogger) Tracef(format string, args ...interface{}) {
	l.log(pterm.LogLevelTrace, fmt.Sprintf(format, args...))
}

func (l *pionLogger) Debug(msg string) { l.log(pterm.LogLevelDebug, msg) }
func (l *pionLogger) Debugf(format string, args ...interface{}) {
	l.log(pterm.LogLevelDebug, fmt.Sprintf(format, args...))
}

// Info is demoted to debug; pion reports every ICE state change at info.
func (l *pionLogger) Info(msg string) { l.log(pterm.LogLevelDebug, msg) }
func (l *pionLogger) Infof(format string, args ...interface{}) {
	l.log(pterm.LogLevelDebug, fmt.Sprintf(format, args...))
}

func (l *pionLogger) Warn(msg string) { l.log(pterm.LogLevelWarn, msg) }
func (l *pionLogger) Warnf(format string, args ...interface{}) {
	l.log(pterm.LogLevelWarn, fmt.Sprintf(format, args...))
}

func (l *pionLogger) Error(msg string) { l.log(pterm.LogLevelError, msg) }
func (l *pionLogger) Errorf(format string, args ...interface{}) {
	l.log(pterm.LogLevelError, fmt.Sprintf(format, args...))
}
