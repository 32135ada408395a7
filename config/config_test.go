package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	path := writeConfig(t, `{"jwt":{"secret":"s3cret"},"database":{"driver":"sqlite3","path":"x.db"}}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults not applied: %+v", cfg.Server)
	}
	if cfg.Drive.QuotaBytes != 500*1024*1024 {
		t.Errorf("quota = %d", cfg.Drive.QuotaBytes)
	}
	if cfg.Collections.Entries != "entries" || cfg.Collections.Appointments != "appointments" {
		t.Errorf("collection defaults not applied: %+v", cfg.Collections)
	}
	if got := cfg.JWT.GetExpiration(); got != 24*time.Hour {
		t.Errorf("jwt expiration = %v", got)
	}
	if got := cfg.Database.DSN(); got != "file:x.db?_fk=1&_busy_timeout=5000" {
		t.Errorf("dsn = %q", got)
	}
}

func TestLoadFileEnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"jwt":{"secret":"from-file"},"database":{"driver":"sqlite3"}}`)
	t.Setenv("MEDVAULT_JWT_SECRET", "from-env")
	t.Setenv("MEDVAULT_ENTRIES_TABLE", "drive_entries")
	t.Setenv("MEDVAULT_PORT", "9090")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.JWT.Secret != "from-env" {
		t.Errorf("secret = %q", cfg.JWT.Secret)
	}
	if cfg.Collections.Entries != "drive_entries" {
		t.Errorf("entries table = %q", cfg.Collections.Entries)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoadFileRequiresSecret(t *testing.T) {
	path := writeConfig(t, `{"database":{"driver":"sqlite3"}}`)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for missing JWT secret")
	}
}

func TestLoadFileRejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, `{"jwt":{"secret":"x"},"database":{"driver":"mysql"}}`)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestDurationFallback(t *testing.T) {
	d := DriveConfig{URLExpiration: "not-a-duration"}
	if got := d.GetURLExpiration(); got != time.Hour {
		t.Errorf("GetURLExpiration = %v", got)
	}
	if got := d.GetIndexTTL(); got != time.Minute {
		t.Errorf("GetIndexTTL = %v", got)
	}
}
