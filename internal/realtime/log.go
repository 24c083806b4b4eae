package realtime

import (
	"fmt"

	"go.uber.org/zap"
)

// stompLogger routes go-stomp's own logging into zap.
type stompLogger struct{ log *zap.Logger }

func newStompLogger(l *zap.Logger) stompLogger {
	return stompLogger{log: l.With(zap.String("component", "stomp"))}
}

func (l stompLogger) Debugf(format string, v ...interface{})   { l.log.Debug(fmt.Sprintf(format, v...)) }
func (l stompLogger) Infof(format string, v ...interface{})    { l.log.Info(fmt.Sprintf(format, v...)) }
func (l stompLogger) Warningf(format string, v ...interface{}) { l.log.Warn(fmt.Sprintf(format, v...)) }
func (l stompLogger) Errorf(format string, v ...interface{})   { l.log.Error(fmt.Sprintf(format, v...)) }

func (l stompLogger) Debug(msg string)   { l.log.Debug(msg) }
func (l stompLogger) Info(msg string)    { l.log.Info(msg) }
func (l stompLogger) Warning(msg string) { l.log.Warn(msg) }
func (l stompLogger) Error(msg string)   { l.log.Error(msg) }
