package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"showrenamer/internal/logging"
)

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "app.log")

	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("pipeline started", logging.String("path", "/tmp/x.mkv"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, `"msg":"pipeline started"`) {
		t.Fatalf("expected json record, got %q", body)
	}
	if !strings.Contains(body, `"path":"/tmp/x.mkv"`) {
		t.Fatalf("expected path attribute, got %q", body)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")
	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("visible")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Fatal("debug record should be suppressed at info level")
	}
	if !strings.Contains(string(data), "visible") {
		t.Fatal("info record missing")
	}
}

func TestNewComponentLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")
	base, err := logging.New(logging.Options{Level: "info", Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logging.NewComponentLogger(base, "matcher").Info("resolved")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"component":"matcher"`) {
		t.Fatalf("expected component attribute, got %q", string(data))
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Info("ignored")
	logger.Error("ignored too")
}
