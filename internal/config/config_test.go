package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "obgram.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123456:AAHdqTcvbXJ9PqQw"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Gateway.Listen != ":8420" {
		t.Errorf("Gateway.Listen = %q, want :8420", cfg.Gateway.Listen)
	}
	if cfg.Store.RetentionDays != 30 {
		t.Errorf("Store.RetentionDays = %d, want 30", cfg.Store.RetentionDays)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Telegram.Mode != "polling" {
		t.Errorf("Telegram.Mode = %q, want polling", cfg.Telegram.Mode)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("OBGRAM_TOKEN", "123456:AAHdqTcvbXJ9PqQw")

	path := writeConfig(t, `
telegram:
  token: "${OBGRAM_TOKEN}"
gateway:
  listen: "${OBGRAM_LISTEN:-:9000}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Telegram.Token != "123456:AAHdqTcvbXJ9PqQw" {
		t.Errorf("Token = %q, want expanded env value", cfg.Telegram.Token)
	}
	if cfg.Gateway.Listen != ":9000" {
		t.Errorf("Listen = %q, want default :9000", cfg.Gateway.Listen)
	}
}

func TestLoadUnresolvedVariable(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "${OBGRAM_NO_SUCH_VAR}"
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unresolved variable: OBGRAM_NO_SUCH_VAR") {
		t.Errorf("Load() error = %v, want unresolved variable", err)
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123456:AAHdqTcvbXJ9PqQw"
log:
  level: verbose
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unknown log level") {
		t.Errorf("Load() error = %v, want unknown log level", err)
	}
}

func TestLoadRejectsMissingToken(t *testing.T) {
	path := writeConfig(t, `
gateway:
  listen: ":8420"
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "token is required") {
		t.Errorf("Load() error = %v, want token is required", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Error("Load() of missing file succeeded")
	}
}
