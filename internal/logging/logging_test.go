package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dial.log")
	logger, closer, err := New(path, "debug")
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("folder restored", "id", "42")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "folder restored") || !strings.Contains(string(data), "id=42") {
		t.Errorf("log file = %q", data)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, _, err := New("-", "loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestLevelFiltersMessages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dial.log")
	logger, closer, err := New(path, "warn")
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	closer.Close()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "shown") {
		t.Errorf("log file = %q", data)
	}
}
