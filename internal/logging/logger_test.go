package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level LogLevel) *Logger {
	return NewLogger(&Config{
		Level:  level,
		Format: "json",
		Output: buf,
		Sync:   true,
	})
}

func TestJSONOutputCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelDebug)

	l.Info("context created", "depth", 32, "flags", 0)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["message"] != "context created" {
		t.Errorf("message = %v", rec["message"])
	}
	if rec["depth"] != float64(32) {
		t.Errorf("depth = %v", rec["depth"])
	}
	if rec["level"] != "info" {
		t.Errorf("level = %v", rec["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelWarn)

	l.Debug("dropped")
	l.Info("dropped")
	l.Warn("kept")
	l.Error("kept too")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("low-severity lines leaked: %q", out)
	}
	if n := strings.Count(out, "kept"); n != 2 {
		t.Errorf("expected 2 kept lines, got %d: %q", n, out)
	}
}

func TestWithHelpersAttachContext(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelInfo).WithEngine("aio").WithOp("commit").WithRequest(7, "read")

	l.Info("submitted")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["engine"] != "aio" || rec["op"] != "commit" {
		t.Errorf("engine/op = %v/%v", rec["engine"], rec["op"])
	}
	if rec["index"] != float64(7) || rec["dir"] != "read" {
		t.Errorf("index/dir = %v/%v", rec["index"], rec["dir"])
	}
}

func TestSetDefault(t *testing.T) {
	var buf bytes.Buffer
	old := Default()
	defer SetDefault(old)

	SetDefault(newTestLogger(&buf, LevelInfo))
	Info("via default")

	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("default logger did not receive line: %q", buf.String())
	}
}

func TestMismatchedKVPairsDoNotPanic(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelInfo)
	l.Info("odd args", "only-a-key")
	if !strings.Contains(buf.String(), "odd args") {
		t.Errorf("message lost: %q", buf.String())
	}
}
