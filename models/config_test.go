package models

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadConfig_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := LoadConfig(path, false)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("LoadConfig() = %+v, want defaults", cfg)
	}

	if _, err := LoadConfig(path, true); err == nil {
		t.Error("LoadConfig(mustExist) error = nil, want error")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lilypads.yaml")
	data := `
database: /var/lib/lilypads/users.db
server:
  addr: 127.0.0.1:9000
  behind_proxy: true
  session_ttl: 2h
convert:
  workers: 3
  extra_words:
    budapest.csv: [kossuth, deák]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Database != "/var/lib/lilypads/users.db" {
		t.Errorf("Database = %q", cfg.Database)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || !cfg.Server.BehindProxy {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %v, want 2h", cfg.Server.SessionTTL)
	}
	// Unset keys keep their defaults.
	if cfg.Server.DataDir != "data" || cfg.Server.LogBackups != 10 {
		t.Errorf("defaults lost: %+v", cfg.Server)
	}
	if cfg.Convert.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Convert.Workers)
	}

	got := cfg.Convert.ExtraWordsFor("/data/in/budapest.csv")
	if !reflect.DeepEqual(got, []string{"kossuth", "deák"}) {
		t.Errorf("ExtraWordsFor() = %v", got)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not, a, map]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path, true); err == nil {
		t.Error("LoadConfig() error = nil, want parse error")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("LILYPADS_TEST_ADDR=:7000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LILYPADS_TEST_ADDR", "")
	os.Unsetenv("LILYPADS_TEST_ADDR")

	if err := LoadEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := os.Getenv("LILYPADS_TEST_ADDR"); got != ":7000" {
		t.Errorf("LILYPADS_TEST_ADDR = %q, want :7000", got)
	}
}
