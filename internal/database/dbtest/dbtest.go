// Package dbtest opens migrated SQLite databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"medvault-server/config"
	"medvault-server/internal/database"
)

// Tables are the collection names used by tests.
var Tables = config.CollectionsConfig{
	Users:        "users",
	Sessions:     "sessions",
	Entries:      "entries",
	Medications:  "medications",
	Appointments: "appointments",
}

// New returns a migrated client backed by a file in t.TempDir.
func New(t testing.TB) *database.Client {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite3",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}
	client, err := database.Open(cfg, Tables)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}
