package plog

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T, fn func(out *os.File)) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	fn(w)
	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestNew_JSONFormat(t *testing.T) {
	out := captureOutput(t, func(w *os.File) {
		l := New(w, LevelInfo, true)
		l.Info("hello", String("key", "value"), Int("n", 42))
	})
	var decoded map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, out)
	}
	if decoded["msg"] != "hello" {
		t.Errorf("msg = %v; want hello", decoded["msg"])
	}
	if decoded["key"] != "value" {
		t.Errorf("key = %v; want value", decoded["key"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	out := captureOutput(t, func(w *os.File) {
		l := New(w, LevelInfo, false)
		l.Info("hello text")
	})
	if !strings.Contains(out, "hello text") {
		t.Errorf("output missing message: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	out := captureOutput(t, func(w *os.File) {
		l := New(w, LevelWarn, true)
		l.Info("should not appear")
		l.Warn("should appear")
	})
	if strings.Contains(out, "should not appear") {
		t.Error("Info message leaked through a Warn-level logger")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("Warn message missing")
	}
}

func TestErrField_NilSafe(t *testing.T) {
	f := Err(nil)
	if f.Value != nil {
		t.Errorf("Err(nil).Value = %v; want nil", f.Value)
	}
	f2 := Err(errors.New("boom"))
	if f2.Value != "boom" {
		t.Errorf("Err(err).Value = %v; want boom", f2.Value)
	}
}

func TestWithFields(t *testing.T) {
	out := captureOutput(t, func(w *os.File) {
		l := New(w, LevelInfo, true)
		scoped := l.WithFields(String("component", "test"))
		scoped.Info("scoped message")
	})
	var decoded map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["component"] != "test" {
		t.Errorf("component field missing from scoped logger output: %v", decoded)
	}
}

func TestPackageLevelDefaultsToNullLogger(t *testing.T) {
	// Without SetLogger, package-level calls must not panic.
	Info("no logger installed yet")
	Debug("still fine")
}

func TestSetLoggerNilRestoresNullLogger(t *testing.T) {
	SetLogger(nil)
	Info("should be silently dropped")
	if _, ok := GetLogger().(nullLogger); !ok {
		t.Errorf("GetLogger() = %T; want nullLogger after SetLogger(nil)", GetLogger())
	}
}
