package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func jsonLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return NewWithHandler(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level}))
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	return entry
}

func TestModuleTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, slog.LevelDebug).Module("stream").Info("connected", "url", "wss://x")

	entry := decodeEntry(t, &buf)
	if entry["module"] != "stream" {
		t.Errorf("module = %v, want stream", entry["module"])
	}
	if entry["msg"] != "connected" || entry["url"] != "wss://x" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestWithAccumulatesContext(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, slog.LevelDebug).Module("prover").With("order", "0xff")
	l.Warn("slow proof")

	entry := decodeEntry(t, &buf)
	if entry["module"] != "prover" || entry["order"] != "0xff" {
		t.Errorf("context not carried: %v", entry)
	}
}

func TestLevelGate(t *testing.T) {
	cases := []struct {
		handler slog.Level
		emit    func(l *Logger)
		want    bool
	}{
		{slog.LevelInfo, func(l *Logger) { l.Debug("m") }, false},
		{slog.LevelInfo, func(l *Logger) { l.Info("m") }, true},
		{slog.LevelWarn, func(l *Logger) { l.Info("m") }, false},
		{slog.LevelWarn, func(l *Logger) { l.Error("m") }, true},
		{slog.LevelDebug, func(l *Logger) { l.Debug("m") }, true},
	}
	for i, tc := range cases {
		var buf bytes.Buffer
		tc.emit(jsonLogger(&buf, tc.handler))
		if got := buf.Len() > 0; got != tc.want {
			t.Errorf("case %d: emitted=%v, want %v", i, got, tc.want)
		}
	}
}

func TestDefaultSwap(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	if orig == nil {
		t.Fatal("no default logger")
	}

	var buf bytes.Buffer
	l := jsonLogger(&buf, slog.LevelDebug)
	SetDefault(l)

	Debug("d")
	Info("i")
	Warn("w")
	Error("e")
	out := buf.String()
	for _, msg := range []string{`"d"`, `"i"`, `"w"`, `"e"`} {
		if !strings.Contains(out, msg) {
			t.Errorf("output missing %s: %s", msg, out)
		}
	}

	SetDefault(nil)
	if Default() != l {
		t.Error("SetDefault(nil) replaced the logger")
	}
}
