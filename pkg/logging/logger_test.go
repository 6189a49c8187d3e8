package logging

import (
	"os"
	"strings"
	"testing"
)

func TestLoggerWritesToSessionFile(t *testing.T) {
	// Point the home directory at a temp dir so the test never touches the
	// real ~/.proctor tree.
	t.Setenv("HOME", t.TempDir())

	logger, err := NewLogger("test-component")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer logger.Close()

	logger.Infof("hello %s", "world")
	logger.Errorf("boom: %d", 42)

	if logger.LogPath() == "" {
		t.Skip("file logging unavailable in this environment")
	}

	data, err := os.ReadFile(logger.LogPath())
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "[test-component] [INFO] hello world") {
		t.Errorf("missing info line in:\n%s", content)
	}
	if !strings.Contains(content, "[test-component] [ERROR] boom: 42") {
		t.Errorf("missing error line in:\n%s", content)
	}
}

func TestSessionIDIsStable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	a, _ := NewLogger("a")
	defer a.Close()
	b, _ := NewLogger("b")
	defer b.Close()

	if a.SessionID() == "" {
		t.Fatal("expected a session id")
	}
	if a.SessionID() != b.SessionID() {
		t.Error("loggers in one process should share a session id")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	logger, _ := NewLogger("close-test")
	if err := logger.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second close returned error: %v", err)
	}
}
