// Package plog provides Ponder's structured logging. The Level/Field
// vocabulary mirrors the teacher's bespoke internal/log package, but the
// implementation is backed by logrus so the process boundary emits real
// structured records (text for an interactive terminal, JSON when CI=true)
// instead of hand-rolled "key=value" lines.
package plog

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Level mirrors logrus.Level so callers never import logrus directly.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) logrus() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Field is a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field        { return Field{Key: key, Value: value} }
func Int(key string, value int) Field       { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field   { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field     { return Field{Key: key, Value: value} }

func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Logger is the structured logging interface used throughout internal/...
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithFields(fields ...Field) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

func toLogrusFields(fields []Field) logrus.Fields {
	f := make(logrus.Fields, len(fields))
	for _, field := range fields {
		f[field.Key] = field.Value
	}
	return f
}

func (l *logrusLogger) Debug(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Debug(msg)
}

func (l *logrusLogger) Info(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Info(msg)
}

func (l *logrusLogger) Warn(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Warn(msg)
}

func (l *logrusLogger) Error(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Error(msg)
}

func (l *logrusLogger) WithFields(fields ...Field) Logger {
	return &logrusLogger{entry: l.entry.WithFields(toLogrusFields(fields))}
}

// New builds a Logger writing to out at the given level. When ci is true the
// output is JSON (structured logging forced per spec's CI environment
// variable); otherwise it is logrus's human-readable text formatter.
func New(out *os.File, level Level, ci bool) Logger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(level.logrus())
	if ci {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return &logrusLogger{entry: logrus.NewEntry(base)}
}

var (
	mu      sync.RWMutex
	current Logger = &nullLogger{}
)

type nullLogger struct{}

func (nullLogger) Debug(string, ...Field)      {}
func (nullLogger) Info(string, ...Field)       {}
func (nullLogger) Warn(string, ...Field)       {}
func (nullLogger) Error(string, ...Field)      {}
func (nullLogger) WithFields(...Field) Logger  { return nullLogger{} }

// SetLogger installs the package-level logger used by Debug/Info/Warn/Error.
// Pass nil to disable logging (the zero-overhead default).
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		current = nullLogger{}
		return
	}
	current = l
}

// GetLogger returns the current package-level logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func Debug(msg string, fields ...Field) { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...Field) { GetLogger().Error(msg, fields...) }
