package util

import (
	"fmt"

	"github.com/pion/logging"
)

// PionLoggerFactory returns a pion LoggerFactory that routes pion's internal
// logs through the pterm logger, tagged with the pion scope ("ice", "dtls"...).
// pion's Info level is demoted to debug; it is chatty during ICE gathering.
func PionLoggerFactory() logging.LoggerFactory {
	return pionLoggerFactory{}
}

type pionLoggerFactory struct{}

func (pionLoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &pionLogger{scope: scope}
}

type pionLogger struct {
	scope string
}

func (l *pionLogger) Trace(msg string) { LogTrace("[pion/%s] %s", l.scope, msg) }
func (l *pionLogger) Debug(msg string) { LogDebug("[pion/%s] %s", l.scope, msg) }
func (l *pionLogger) Info(msg string)  { LogDebug("[pion/%s] %s", l.scope, msg) }
func (l *pionLogger) Warn(msg string)  { LogWarning("[pion/%s] %s", l.scope, msg) }
func (l *pionLogger) Error(msg string) { LogError("[pion/%s] %s", l.scope, msg) }

func (l *pionLogger) Tracef(format string, args ...interface{}) { l.Trace(fmt.Sprintf(format, args...)) }
func (l *pionLogger) Debugf(format string, args ...interface{}) { l.Debug(fmt.Sprintf(format, args...)) }
func (l *pionLogger) Infof(format string, args ...interface{})  { l.Info(fmt.Sprintf(format, args...)) }
func (l *pionLogger) Warnf(format string, args ...interface{})  { l.Warn(fmt.Sprintf(format, args...)) }
func (l *pionLogger) Errorf(format string, args ...interface{}) { l.Error(fmt.Sprintf(format, args...)) }
