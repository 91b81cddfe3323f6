package worker

import (
	"fmt"

	"github.com/jwalitptl/hospital-api/pkg/logger"
)

// AsynqLogger routes asynq server logs through the application logger.
type AsynqLogger struct {
	logger *logger.Logger
}

func NewAsynqLogger(log *logger.Logger) *AsynqLogger {
	return &AsynqLogger{logger: log.WithFields(map[string]interface{}{"component": "asynq"})}
}

func (l *AsynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *AsynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *AsynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *AsynqLogger) Error(args ...interface{}) { l.logger.Error(nil, fmt.Sprint(args...)) }
func (l *AsynqLogger) Fatal(args ...interface{}) { l.logger.Fatal(nil, fmt.Sprint(args...)) }
