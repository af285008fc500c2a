package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/config"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	cfg := &config.Config{
		Env: "production",
		Log: config.Log{Level: "info", File: path, MaxSizeMB: 1},
	}

	lg, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	lg.Info("quiz session started")
	lg.Debug("below the configured level")
	_ = lg.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "quiz session started") {
		t.Fatalf("log file misses the info entry: %s", data)
	}
	if strings.Contains(string(data), "below the configured level") {
		t.Fatalf("debug entry must be filtered out")
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(&config.Config{Log: config.Log{Level: "loud"}}); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
}
