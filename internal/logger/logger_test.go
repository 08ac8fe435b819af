package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/samvad-hq/samvad-resttemplate/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestZapLoggerWritesStructuredField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapLogger(zap.New(core))

	log.InfoObj("dispatch completed", "dispatch", map[string]any{"status": 200})
	log.DebugObj("service resolved", "resolution", "svc")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "dispatch completed" || entries[0].ContextMap()["dispatch"] == nil {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
}

func TestPackageHelpersNoopBeforeInit(t *testing.T) {
	S = nil
	InfoObj("x", "k", 1)
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestInitWithWritesJSONToSink(t *testing.T) {
	var buf bytes.Buffer
	log, err := initWith(&config.Config{AppName: "rt", Env: "test", LogLevel: "info"}, zapcore.AddSync(&buf))
	if err != nil {
		t.Fatalf("initWith: %v", err)
	}
	t.Cleanup(func() { S = nil })

	log.InfoObj("client ready", "client_meta", map[string]any{"policy": "tick"})
	log.DebugObj("filtered", "x", 1)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "client ready" || entry["app"] != "rt" || entry["env"] != "test" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("missing ts field in %v", entry)
	}
}
