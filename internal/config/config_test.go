package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TELEGRAM_API_TOKEN", "DATABASE_URL", "APP_ENV", "QUESTIONS_SOURCE", "QUIZ_PASS_MARK"} {
		t.Setenv(key, "")
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Env != "local" || cfg.Questions.Source != SourceJSON {
		t.Fatalf("unexpected env %q or source %q", cfg.Env, cfg.Questions.Source)
	}
	if cfg.Quiz.PassMark != 75 || cfg.Quiz.Retention != time.Hour {
		t.Fatalf("unexpected pass mark %v or retention %v", cfg.Quiz.PassMark, cfg.Quiz.Retention)
	}
	if cfg.Quiz.Canada.MockTimeLimit != 30*time.Minute || cfg.Quiz.Canada.QuizTimeLimit != 0 {
		t.Fatalf("unexpected canada limits %+v", cfg.Quiz.Canada)
	}
	if cfg.Quiz.UK.MockSize != 24 || cfg.Quiz.UK.QuizTimeLimit != 45*time.Minute {
		t.Fatalf("unexpected uk policy %+v", cfg.Quiz.UK)
	}
}

func TestLoadFrom_FileAndEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yaml := []byte(`
env: dev
http:
  enabled: true
  addr: ":9090"
quiz:
  canada:
    quiz_size: 10
    mock_time_limit: 20m
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TELEGRAM_API_TOKEN", "123:abc")
	t.Setenv("QUIZ_PASS_MARK", "80")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Env != "dev" || !cfg.HTTP.Enabled || cfg.HTTP.Addr != ":9090" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Quiz.Canada.QuizSize != 10 || cfg.Quiz.Canada.MockTimeLimit != 20*time.Minute {
		t.Fatalf("unexpected canada policy %+v", cfg.Quiz.Canada)
	}
	if cfg.Quiz.Canada.MockSize != 20 {
		t.Fatalf("keys missing from the file must keep their defaults, got %d", cfg.Quiz.Canada.MockSize)
	}
	if cfg.Quiz.PassMark != 80 {
		t.Fatalf("environment must override the file, got %v", cfg.Quiz.PassMark)
	}
	if cfg.Telegram.APIToken != "123:abc" {
		t.Fatalf("token not loaded from environment")
	}
}

func TestLoadFrom_Validation(t *testing.T) {
	t.Run("unknown source", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("QUESTIONS_SOURCE", "csv")
		if _, err := LoadFrom(t.TempDir()); !errors.Is(err, ErrUnknownQuestionSource) {
			t.Fatalf("expected ErrUnknownQuestionSource, got %v", err)
		}
	})

	t.Run("postgres without url", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("QUESTIONS_SOURCE", SourcePostgres)
		if _, err := LoadFrom(t.TempDir()); !errors.Is(err, ErrMissingEnvironmentVariables) {
			t.Fatalf("expected ErrMissingEnvironmentVariables, got %v", err)
		}
	})

	t.Run("postgres with url", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("QUESTIONS_SOURCE", SourcePostgres)
		t.Setenv("DATABASE_URL", "postgres://localhost/quiz")
		cfg, err := LoadFrom(t.TempDir())
		if err != nil {
			t.Fatalf("LoadFrom: %v", err)
		}
		if dsn, err := cfg.DB.DSN(); err != nil || dsn != "postgres://localhost/quiz" {
			t.Fatalf("unexpected DSN %q, %v", dsn, err)
		}
	})
}

func TestValidateHosts(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "no host", cfg: Config{}, wantErr: ErrNoHostEnabled},
		{name: "telegram without token", cfg: Config{Telegram: Telegram{Enabled: true}}, wantErr: ErrMissingEnvironmentVariables},
		{name: "telegram with token", cfg: Config{Telegram: Telegram{Enabled: true, APIToken: "t"}}},
		{name: "http only", cfg: Config{HTTP: HTTP{Enabled: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.ValidateHosts(); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
