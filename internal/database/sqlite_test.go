package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jason-s-yu/chroma/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "chroma.db"))
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store, "SQL001")
}

func TestSQLiteStoreBacksRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chroma.db")
	store, err := OpenSQLite(path)
	require.NoError(t, err)

	ctx := context.Background()
	reg := session.NewRegistry(store)
	s, err := reg.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// a fresh process sees what the first one persisted
	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := session.NewRegistry(reopened).Get(ctx, s.Code)
	require.NoError(t, err)
	assert.Equal(t, s.TargetColor, got.TargetColor)
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}
