package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rhujeraphorn/web-evana/internal/store"
)

func TestOpenSQLiteURL(t *testing.T) {
	db, err := store.Open(t.Context(), "sqlite://"+filepath.Join(t.TempDir(), "dev.db"))
	require.NoError(t, err)
	defer db.Close()

	fp, err := db.SegmentFingerprint(t.Context(), "lampang")
	require.NoError(t, err)
	assert.Zero(t, fp.Count)
}

func TestOpenEmptyURL(t *testing.T) {
	_, err := store.Open(t.Context(), "  ")
	assert.ErrorIs(t, err, store.ErrNotConfigured)
}
