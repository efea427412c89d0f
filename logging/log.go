// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package logging provides the structured logger used across the snapshot
// engine and its tools.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// A Level is a logging priority. Higher levels are more important.
type Level int8

// Logging levels (matching zap core internals).
const (
	// DebugLevel logs are typically voluminous, and are usually disabled in
	// production.
	DebugLevel Level = -1
	// InfoLevel is the default logging priority.
	InfoLevel Level = 0
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel Level = 1
	// ErrorLevel logs are high-priority.
	ErrorLevel Level = 2
)

// ParseLevel converts a level name like "debug" or "warn" into a Level.
func ParseLevel(name string) (Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return InfoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return Level(level), nil
}

func (l Level) String() string {
	return zapcore.Level(l).String()
}

// Logger is a zap logger whose level can be changed at runtime. Loggers
// derived through Named and With share the level of their parent.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
	name  string
}

// NewLogger creates a logger for the given environment. The "dev" environment
// logs human readable lines starting at debug level, everything else logs
// JSON starting at info level.
func NewLogger(env string) *Logger {
	var encoder zapcore.Encoder
	var level zap.AtomicLevel
	switch env {
	case "dev":
		encoder = zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			CallerKey:      "C",
			EncodeCaller:   zapcore.ShortCallerEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			LevelKey:       "L",
			LineEnding:     "\n",
			MessageKey:     "M",
			NameKey:        "N",
			TimeKey:        "T",
		})
		level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	default:
		encoder = zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			CallerKey:      "caller",
			EncodeCaller:   zapcore.ShortCallerEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeName:     zapcore.FullNameEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			LevelKey:       "level",
			LineEnding:     "\n",
			MessageKey:     "message",
			NameKey:        "logger",
			StacktraceKey:  "stacktrace",
			TimeKey:        "@timestamp",
		})
		level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return &Logger{Logger: zap.New(core, zap.AddCaller()), level: level}
}

// NewDevelopmentLogger creates a human readable logger starting at debug level.
func NewDevelopmentLogger() *Logger {
	return NewLogger("dev")
}

// NewProductionLogger creates a JSON logger starting at info level.
func NewProductionLogger() *Logger {
	return NewLogger("prod")
}

// NewNopLogger creates a logger discarding all output.
func NewNopLogger() *Logger {
	return &Logger{Logger: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// NewTestLogger creates a logger for tests, discarding all output.
func NewTestLogger() *Logger {
	return NewNopLogger()
}

// NewObservedLogger wraps the given core, mostly used by tests inspecting
// the produced log entries.
func NewObservedLogger(core zapcore.Core) *Logger {
	return &Logger{Logger: zap.New(core), level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
}

func (log *Logger) SetLevel(level Level) {
	log.level.SetLevel(zapcore.Level(level))
}

func (log *Logger) GetName() string {
	return log.name
}

// Named creates a child logger with the given name appended to the name of
// this logger.
func (log *Logger) Named(name string) *Logger {
	newName := name
	if log.name != "" {
		newName = log.name + "." + name
	}
	return &Logger{
		Logger: log.Logger.Named(name),
		level:  log.level,
		name:   newName,
	}
}

// With creates a child logger adding the given fields to every entry.
func (log *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		Logger: log.Logger.With(fields...),
		level:  log.level,
		name:   log.name,
	}
}

// AtExit flushes buffered log entries. It is meant to be deferred right after
// creating the logger of an application.
func (log *Logger) AtExit() {
	if log.Logger != nil {
		_ = log.Logger.Sync()
	}
}
