// Package storetest provides a migrated embedded database for tests.
package storetest

import (
	"path/filepath"
	"testing"

	"github.com/Rhujeraphorn/web-evana/internal/store"
)

// New opens a fresh SQLite database under t.TempDir with the schema applied.
func New(t testing.TB) *store.DB {
	t.Helper()
	db, err := store.NewSQLite(t.Context(), filepath.Join(t.TempDir(), "evana.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// MustExec runs seed statements, failing the test on error.
func MustExec(t testing.TB, db *store.DB, query string, args ...any) {
	t.Helper()
	if err := db.Exec(t.Context(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
