package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestConfigureInvalidLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	if _, err := New(Options{Level: "info", Format: "xml"}); err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestEnvOverridesLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	logger, err := New(Options{Level: "error"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}
}

func TestComponentJSON(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	logger, err := New(Options{Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	Component(logger, "discovery").Info("run finished")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if line["component"] != "discovery" {
		t.Errorf("component field missing: %v", line)
	}
	if line["message"] != "run finished" {
		t.Errorf("message field missing: %v", line)
	}
}

func TestFileOutputWithRotation(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "pumpcards.log")
	if _, err := New(Options{Level: "info", Output: path, MaxAgeDays: 7}); err != nil {
		t.Fatalf("New failed: %v", err)
	}
}
