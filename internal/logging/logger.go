// Package logging provides the engine's leveled logger.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level is a logger verbosity threshold.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = map[Level]string{
	Debug: "DEBUG",
	Info:  "INFO",
	Warn:  "WARN",
	Error: "ERROR",
}

// Logger wraps a standard library logger with a level gate and a mutex so
// lines from concurrent callers are written one at a time.
type Logger struct {
	mu     sync.Mutex
	logger *log.Logger
	level  Level
}

// New builds a Logger writing to w at the given level. Passing nil for w
// defaults to os.Stderr.
func New(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{logger: log.New(w, "", log.LstdFlags), level: level}
}

// NewFromDebug builds a Logger at Debug level when debug is true, Info
// otherwise.
func NewFromDebug(debug bool) *Logger {
	level := Info
	if debug {
		level = Debug
	}
	return New(os.Stderr, level)
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Printf("[%s] %s", levelNames[level], fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(Debug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(Info, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(Warn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(Error, format, args...) }
