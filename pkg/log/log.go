// Copyright 2026 Meridian Networks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides a key/value based logging API backed by zap. The
// root logger is configured once at startup via Setup; libraries attach
// context with New and log through the Logger interface.
package log

import (
	"fmt"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meridian-sdn/meridian/pkg/private/serrors"
)

// Logger describes the logging interface.
type Logger interface {
	New(ctx ...any) Logger
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Enabled(lvl Level) bool
}

// Level is the log level.
type Level = zapcore.Level

// The log levels supported by Setup.
const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	ErrorLevel = zapcore.ErrorLevel
)

// ParseLevel parses a textual log level.
func ParseLevel(lvl string) (Level, error) {
	switch strings.ToLower(lvl) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, serrors.New("unknown log level", "level", lvl)
	}
}

type logger struct {
	logger *zap.Logger
}

func (l *logger) New(ctx ...any) Logger {
	return &logger{logger: l.logger.With(convertCtx(ctx)...)}
}

func (l *logger) Debug(msg string, ctx ...any) {
	l.logger.Debug(msg, convertCtx(ctx)...)
}

func (l *logger) Info(msg string, ctx ...any) {
	l.logger.Info(msg, convertCtx(ctx)...)
}

func (l *logger) Error(msg string, ctx ...any) {
	l.logger.Error(msg, convertCtx(ctx)...)
}

func (l *logger) Enabled(lvl Level) bool {
	return l.logger.Core().Enabled(lvl)
}

func convertCtx(ctx []any) []zap.Field {
	fields := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		fields = append(fields, zap.Any(fmt.Sprint(ctx[i]), ctx[i+1]))
	}
	return fields
}

var root = &logger{logger: zap.NewNop()}

// Config configures the root logger.
type Config struct {
	// Level of logging: debug, info or error. Empty means info.
	Level string
	// Console switches from JSON to console encoding.
	Console bool
}

// Setup configures the root logger. It must be called before the first use
// of the logging functions, typically from main.
func Setup(cfg Config) error {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.DisableStacktrace = true
	if cfg.Console {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zlog, err := zcfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return serrors.Wrap("creating logger", err)
	}
	root = &logger{logger: zlog}
	return nil
}

// Root returns the root logger. It is never nil.
func Root() Logger {
	return root
}

// New returns a logger derived from the root logger with additional context.
func New(ctx ...any) Logger {
	return root.New(ctx...)
}

// Debug logs at debug level through the root logger.
func Debug(msg string, ctx ...any) {
	root.Debug(msg, ctx...)
}

// Info logs at info level through the root logger.
func Info(msg string, ctx ...any) {
	root.Info(msg, ctx...)
}

// Error logs at error level through the root logger.
func Error(msg string, ctx ...any) {
	root.Error(msg, ctx...)
}

// Flush writes out buffered log entries.
func Flush() {
	_ = root.logger.Sync()
}

// HandlePanic catches panics and logs them before re-raising. Deferred at
// the top of goroutines that must not die silently.
func HandlePanic() {
	if msg := recover(); msg != nil {
		root.logger.Error("Panic", zap.Any("msg", msg),
			zap.ByteString("stack", debug.Stack()))
		_ = root.logger.Sync()
		panic(msg)
	}
}
