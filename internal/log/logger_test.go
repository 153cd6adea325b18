// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	prev := GetLevel()
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(prev)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{" warning ", LevelWarn, true},
		{"Error", LevelError, true},
		{"fatal", LevelFatal, true},
		{"loud", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(LevelWarn)

	Debugf("Analyzer: %s", "hidden")
	Infof("Analyzer: %s", "hidden")
	Warnf("Analyzer: %s", "shown")
	Errorf("Analyzer: %s", "shown too")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below level leaked: %q", out)
	}
	if !strings.Contains(out, "[WARN]  Analyzer: shown") {
		t.Errorf("warn line missing or misaligned: %q", out)
	}
	if !strings.Contains(out, "[ERROR] Analyzer: shown too") {
		t.Errorf("error line missing: %q", out)
	}
}

func TestFatalExits(t *testing.T) {
	buf := captureOutput(t)
	code := -1
	origExit := exit
	exit = func(c int) { code = c }
	defer func() { exit = origExit }()

	Fatalf("Capture: %s", "no device")

	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(buf.String(), "[FATAL] Capture: no device") {
		t.Errorf("fatal line missing: %q", buf.String())
	}
}
