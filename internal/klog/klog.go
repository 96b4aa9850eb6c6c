// Package klog provides structured logging for the retrieval pipeline.
// Same interface shape as the donor's rag.Logger/rag.DefaultLogger
// (Debug/Info/Warn/Error, SetLevel, a package-level Global instance), backed
// by github.com/rs/zerolog instead of the donor's stdlib log.Logger.
package klog

import (
	"os"

	"github.com/rs/zerolog"
)

// Level mirrors the donor's rag.LogLevel enum so call sites translate
// directly from the old API.
type Level int

const (
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) zerologLevel() zerolog.Level {
	switch l {
	case LevelOff:
		return zerolog.Disabled
	case LevelError:
		return zerolog.ErrorLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger is the interface every component depends on. Implementations must
// support structured key/value pairs, matching the donor's
// keysAndValues ...interface{} signature (kept unchanged so this is a drop-in
// swap for rag.Logger call sites).
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	SetLevel(level Level)
}

type zlogger struct {
	zl zerolog.Logger
}

// New builds a Logger writing structured JSON to os.Stderr at the given
// level.
func New(level Level) Logger {
	zl := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level.zerologLevel())
	return &zlogger{zl: zl}
}

func withFields(e *zerolog.Event, keysAndValues ...interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, keysAndValues[i+1])
	}
	return e
}

func (l *zlogger) Debug(msg string, kv ...interface{}) { withFields(l.zl.Debug(), kv...).Msg(msg) }
func (l *zlogger) Info(msg string, kv ...interface{})  { withFields(l.zl.Info(), kv...).Msg(msg) }
func (l *zlogger) Warn(msg string, kv ...interface{})  { withFields(l.zl.Warn(), kv...).Msg(msg) }
func (l *zlogger) Error(msg string, kv ...interface{}) { withFields(l.zl.Error(), kv...).Msg(msg) }

func (l *zlogger) SetLevel(level Level) {
	l.zl = l.zl.Level(level.zerologLevel())
}

// Global is the package-level logger instance used by default, mirroring
// rag.GlobalLogger.
var Global Logger = New(LevelInfo)

// SetGlobalLevel sets the level of Global.
func SetGlobalLevel(level Level) {
	Global.SetLevel(level)
}
