package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(3) // debug level
	l.SetOutput(&buf)
	l.SetTimestamps(false)

	l.Error("e-msg")
	l.Warn("w-msg")
	l.Info("i-msg")
	l.Verbose("v-msg")
	l.Debug("d-msg")

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), output)
	}

	wantMsgs := []string{"e-msg", "w-msg", "i-msg", "v-msg", "d-msg"}
	for i, msg := range wantMsgs {
		if !strings.Contains(lines[i], msg) {
			t.Errorf("line %d %q missing %q", i, lines[i], msg)
		}
	}
}

func TestLogger_QuietMode(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(0)
	l.SetOutput(&buf)
	l.SetTimestamps(false)

	l.Info("should not appear")
	l.Warn("should not appear")
	l.Verbose("should not appear")
	l.Debug("should not appear")
	l.Error("always appears")

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 1 {
		t.Errorf("expected 1 line in quiet mode, got %d:\n%s", len(lines), output)
	}
	if strings.Contains(output, "should not appear") {
		t.Errorf("gated message leaked: %q", output)
	}
}

func TestLogger_VerboseGate(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(2)
	l.SetOutput(&buf)

	l.Verbose("shown")
	l.Debug("hidden")

	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("verbose message missing: %q", buf.String())
	}
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("debug message shown at verbosity 2: %q", buf.String())
	}
}

func TestLogger_Formatting(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(1)
	l.SetOutput(&buf)

	l.Info("sent %d datagrams to %s", 42, "10.0.0.1:53")

	if !strings.Contains(buf.String(), "sent 42 datagrams to 10.0.0.1:53") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(1)
	l.SetOutput(&buf)

	l.With("run", "abc123").Info("started")

	out := buf.String()
	if !strings.Contains(out, "run=abc123") || !strings.Contains(out, "started") {
		t.Errorf("expected key/value prefix, got %q", out)
	}
}
