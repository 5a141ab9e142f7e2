package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(1)
	l.SetOutput(&buf)

	l.Info("info %d", 1)
	l.Verbose("hidden")
	l.Debug("hidden")
	l.Error("boom")

	out := buf.String()
	if !strings.Contains(out, "[INF] info 1") {
		t.Errorf("missing info line: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("verbose/debug leaked at level 1: %q", out)
	}
	if !strings.Contains(out, "[ERR] boom") {
		t.Errorf("missing error line: %q", out)
	}
}

func TestLoggerPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(2)
	l.SetOutput(&buf)

	tcp := l.WithPrefix("tcp")
	tcp.Verbose("listening")

	if !strings.Contains(buf.String(), "tcp: listening") {
		t.Errorf("prefix missing: %q", buf.String())
	}
}

func TestFindFreePort(t *testing.T) {
	p, err := FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	if p < 1 || p > 65535 {
		t.Errorf("port out of range: %d", p)
	}

	up, err := FindFreeUDPPort()
	if err != nil {
		t.Fatal(err)
	}
	if up < 1 || up > 65535 {
		t.Errorf("udp port out of range: %d", up)
	}
}
