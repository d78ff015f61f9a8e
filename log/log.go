package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug
	LevelInfo    = slog.LevelInfo
	LevelWarning = slog.LevelWarn
	LevelError   = slog.LevelError
	LevelStack   = slog.Level(12)
	LevelDump    = slog.Level(16)
	LevelFatal   = slog.Level(20)
)

type Logger struct {
	*slog.Logger
	closer io.Closer
}

var gLogger atomic.Pointer[Logger]

func init() {
	gLogger.Store(NewTextLogger(LevelDebug, os.Stdout, true))
}

// ParseLevel accepts the level names used in config files (case insensitive).
func ParseLevel(strLevel string) (slog.Level, error) {
	switch strings.ToLower(strLevel) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info", "release":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "stack":
		return LevelStack, nil
	case "dump":
		return LevelDump, nil
	case "fatal":
		return LevelFatal, nil
	}

	return LevelDebug, fmt.Errorf("unknown level: %s", strLevel)
}

func NewTextLogger(level slog.Level, w io.Writer, addSource bool) *Logger {
	return &Logger{Logger: slog.New(NewOriginTextHandler(level, w, addSource, defaultReplaceAttr))}
}

func NewJsonLogger(level slog.Level, w io.Writer, addSource bool) *Logger {
	return &Logger{Logger: slog.New(NewOriginJsonHandler(level, w, addSource, defaultReplaceAttr))}
}

// NewFileLogger writes to dir/<prefix>_<start time>.log. format is "text" or "json".
func NewFileLogger(format string, level slog.Level, dir string, prefix string, addSource bool) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	now := time.Now()
	fileName := fmt.Sprintf("%s_%d%02d%02d_%02d_%02d_%02d.log", prefix,
		now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second())
	file, err := os.Create(filepath.Join(dir, fileName))
	if err != nil {
		return nil, err
	}

	var logger *Logger
	if format == "json" {
		logger = NewJsonLogger(level, file, addSource)
	} else {
		logger = NewTextLogger(level, file, addSource)
	}
	logger.closer = file

	return logger, nil
}

// Export replaces the package level logger.
func Export(logger *Logger) {
	if logger != nil {
		gLogger.Store(logger)
	}
}

func Default() *Logger {
	return gLogger.Load()
}

func Close() {
	gLogger.Load().Close()
}

func (logger *Logger) Close() {
	if logger.closer != nil {
		logger.closer.Close()
		logger.closer = nil
	}
}

func (logger *Logger) doLog(level slog.Level, msg string, args ...any) {
	ctx := context.Background()
	if !logger.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	record := slog.NewRecord(time.Now(), level, msg, pcs[0])
	record.Add(args...)
	_ = logger.Handler().Handle(ctx, record)

	if level == LevelFatal {
		os.Exit(1)
	}
}

func (logger *Logger) doSLog(level slog.Level, a ...any) {
	ctx := context.Background()
	if !logger.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	record := slog.NewRecord(time.Now(), level, fmt.Sprint(a...), pcs[0])
	_ = logger.Handler().Handle(ctx, record)

	if level == LevelFatal {
		os.Exit(1)
	}
}

func (logger *Logger) Trace(msg string, args ...any) {
	logger.doLog(LevelTrace, msg, args...)
}

func (logger *Logger) Debug(msg string, args ...any) {
	logger.doLog(LevelDebug, msg, args...)
}

func (logger *Logger) Info(msg string, args ...any) {
	logger.doLog(LevelInfo, msg, args...)
}

func (logger *Logger) Warning(msg string, args ...any) {
	logger.doLog(LevelWarning, msg, args...)
}

func (logger *Logger) Error(msg string, args ...any) {
	logger.doLog(LevelError, msg, args...)
}

func (logger *Logger) Stack(msg string, args ...any) {
	logger.doLog(LevelStack, msg, args...)
}

func (logger *Logger) Dump(dump string, args ...any) {
	logger.doLog(LevelDump, dump, args...)
}

func (logger *Logger) Fatal(msg string, args ...any) {
	logger.doLog(LevelFatal, msg, args...)
}

func Trace(msg string, args ...any) {
	gLogger.Load().doLog(LevelTrace, msg, args...)
}

func Debug(msg string, args ...any) {
	gLogger.Load().doLog(LevelDebug, msg, args...)
}

func Info(msg string, args ...any) {
	gLogger.Load().doLog(LevelInfo, msg, args...)
}

func Warning(msg string, args ...any) {
	gLogger.Load().doLog(LevelWarning, msg, args...)
}

func Error(msg string, args ...any) {
	gLogger.Load().doLog(LevelError, msg, args...)
}

func Stack(msg string, args ...any) {
	gLogger.Load().doLog(LevelStack, msg, args...)
}

// Dump logs a multi-line payload (usually a goroutine stack) verbatim after the record.
func Dump(dump string, args ...any) {
	gLogger.Load().doLog(LevelDump, dump, args...)
}

func Fatal(msg string, args ...any) {
	gLogger.Load().doLog(LevelFatal, msg, args...)
}

func SDebug(a ...any) {
	gLogger.Load().doSLog(LevelDebug, a...)
}

func SInfo(a ...any) {
	gLogger.Load().doSLog(LevelInfo, a...)
}

func SWarning(a ...any) {
	gLogger.Load().doSLog(LevelWarning, a...)
}

func SError(a ...any) {
	gLogger.Load().doSLog(LevelError, a...)
}

func SFatal(a ...any) {
	gLogger.Load().doSLog(LevelFatal, a...)
}

func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

func Int64(key string, value int64) slog.Attr {
	return slog.Int64(key, value)
}

func Uint(key string, value uint) slog.Attr {
	return slog.Uint64(key, uint64(value))
}

func Uint64(key string, value uint64) slog.Attr {
	return slog.Uint64(key, value)
}

func Bool(key string, value bool) slog.Attr {
	return slog.Bool(key, value)
}

func Duration(key string, value time.Duration) slog.Attr {
	return slog.Duration(key, value)
}

func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

func ErrorAttr(key string, value error) slog.Attr {
	if value == nil {
		return slog.String(key, "nil")
	}

	return slog.String(key, value.Error())
}
