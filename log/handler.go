package log

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sync"
)

type IOriginHandler interface {
	slog.Handler
	Lock()
	UnLock()
}

type BaseHandler struct {
	w      io.Writer
	locker *sync.Mutex
}

type OriginTextHandler struct {
	BaseHandler
	*slog.TextHandler
}

type OriginJsonHandler struct {
	BaseHandler
	*slog.JSONHandler
}

func getStrLevel(level slog.Level) string {
	switch level {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelStack:
		return "STACK"
	case LevelDump:
		return "DUMP"
	case LevelFatal:
		return "FATAL"
	}

	return level.String()
}

func defaultReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		a.Value = slog.StringValue(getStrLevel(level))
	} else if a.Key == slog.TimeKey && len(groups) == 0 {
		a.Value = slog.StringValue(a.Value.Time().Format("2006/01/02 15:04:05"))
	} else if a.Key == slog.SourceKey {
		if source, ok := a.Value.Any().(*slog.Source); ok {
			source.File = filepath.Base(source.File)
		}
	}
	return a
}

func NewOriginTextHandler(level slog.Level, w io.Writer, addSource bool, replaceAttr func([]string, slog.Attr) slog.Attr) slog.Handler {
	var textHandler OriginTextHandler
	textHandler.w = w
	textHandler.locker = &sync.Mutex{}
	textHandler.TextHandler = slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   addSource,
		Level:       level,
		ReplaceAttr: replaceAttr,
	})

	return &textHandler
}

func (oh *OriginTextHandler) Handle(ctx context.Context, record slog.Record) error {
	oh.locker.Lock()
	defer oh.locker.Unlock()

	if record.Level == LevelStack || record.Level == LevelFatal {
		err := oh.TextHandler.Handle(ctx, record)
		oh.logStack()
		return err
	} else if record.Level == LevelDump {
		strDump := record.Message
		record.Message = "dump info"
		err := oh.TextHandler.Handle(ctx, record)
		oh.w.Write([]byte(strDump))
		return err
	}

	return oh.TextHandler.Handle(ctx, record)
}

func (oh *OriginTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &OriginTextHandler{BaseHandler: oh.BaseHandler, TextHandler: oh.TextHandler.WithAttrs(attrs).(*slog.TextHandler)}
}

func (oh *OriginTextHandler) WithGroup(name string) slog.Handler {
	return &OriginTextHandler{BaseHandler: oh.BaseHandler, TextHandler: oh.TextHandler.WithGroup(name).(*slog.TextHandler)}
}

func (b *BaseHandler) logStack() {
	b.w.Write(debug.Stack())
}

func (b *BaseHandler) Lock() {
	b.locker.Lock()
}

func (b *BaseHandler) UnLock() {
	b.locker.Unlock()
}

func NewOriginJsonHandler(level slog.Level, w io.Writer, addSource bool, replaceAttr func([]string, slog.Attr) slog.Attr) slog.Handler {
	var jsonHandler OriginJsonHandler
	jsonHandler.w = w
	jsonHandler.locker = &sync.Mutex{}
	jsonHandler.JSONHandler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource:   addSource,
		Level:       level,
		ReplaceAttr: replaceAttr,
	})

	return &jsonHandler
}

func (oh *OriginJsonHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level == LevelStack || record.Level == LevelFatal || record.Level == LevelDump {
		record.Add("stack", string(debug.Stack()))
	}

	oh.locker.Lock()
	defer oh.locker.Unlock()
	return oh.JSONHandler.Handle(ctx, record)
}

func (oh *OriginJsonHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &OriginJsonHandler{BaseHandler: oh.BaseHandler, JSONHandler: oh.JSONHandler.WithAttrs(attrs).(*slog.JSONHandler)}
}

func (oh *OriginJsonHandler) WithGroup(name string) slog.Handler {
	return &OriginJsonHandler{BaseHandler: oh.BaseHandler, JSONHandler: oh.JSONHandler.WithGroup(name).(*slog.JSONHandler)}
}
