package logger

import (
	"context"
	"fmt"
	"log/slog"
)

// LevelSQL sits below debug so statements only show up when asked for
const LevelSQL = slog.LevelDebug - 4

// SlogLogger sends tern messages to a structured logger
type SlogLogger struct {
	lg     *slog.Logger
	target string
}

var _ Logger = (*SlogLogger)(nil)

func NewSlogLogger(lg *slog.Logger) *SlogLogger {
	return &SlogLogger{lg: lg}
}

// WithTarget returns a logger that tags every record with the target name
func (sl *SlogLogger) WithTarget(target string) *SlogLogger {
	return &SlogLogger{lg: sl.lg.With("target", target), target: target}
}

func (sl *SlogLogger) Successf(format string, args ...interface{}) {
	sl.lg.Info(fmt.Sprintf(format, args...))
}

func (sl *SlogLogger) Debugf(format string, args ...interface{}) {
	sl.lg.Debug(fmt.Sprintf(format, args...))
}

func (sl *SlogLogger) Warnf(format string, args ...interface{}) {
	sl.lg.Warn(fmt.Sprintf(format, args...))
}

func (sl *SlogLogger) Error(err error) {
	sl.lg.Error(err.Error())
}

func (sl *SlogLogger) SQL(query string, args ...interface{}) {
	sl.lg.Log(context.Background(), LevelSQL, "running sql", "query", query, "args", args)
}
