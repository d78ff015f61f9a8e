package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestTextLoggerLevels(t *testing.T) {
	var buff bytes.Buffer
	logger := NewTextLogger(LevelInfo, &buff, false)

	logger.Debug("hidden")
	logger.Warning("visible", String("key", "value"), ErrorAttr("err", errors.New("boom")))

	out := buff.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record written below info level: %s", out)
	}
	for _, want := range []string{"level=WARNING", "msg=visible", "key=value", "err=boom"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestDumpWritesPayload(t *testing.T) {
	var buff bytes.Buffer
	logger := NewTextLogger(LevelDebug, &buff, false)
	logger.Dump("goroutine 1 [running]", String("error", "x"))

	out := buff.String()
	if !strings.Contains(out, "msg=\"dump info\"") || !strings.HasSuffix(out, "goroutine 1 [running]") {
		t.Fatalf("unexpected dump output %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]bool{"debug": true, "Release": true, "WARNING": true, "fatal": true, "loud": false}
	for name, ok := range cases {
		_, err := ParseLevel(name)
		if (err == nil) != ok {
			t.Fatalf("ParseLevel(%q) err=%v", name, err)
		}
	}
}

func TestErrorAttrNil(t *testing.T) {
	if ErrorAttr("err", nil).Value.String() != "nil" {
		t.Fatal("nil error should render as nil")
	}
}
