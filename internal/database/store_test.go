package database

import (
	"context"
	"testing"

	"github.com/jason-s-yu/chroma/internal/models"
	"github.com/jason-s-yu/chroma/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the create/find/replace contract every session.Store must honor.
func exerciseStore(t *testing.T, store session.Store, code string) {
	t.Helper()
	ctx := context.Background()

	s := &models.Session{
		Code:        code,
		TargetColor: models.Color{R: 1, G: 2, B: 3},
		Members:     []models.Player{},
	}
	require.NoError(t, store.Insert(ctx, s))
	assert.ErrorIs(t, store.Insert(ctx, s), session.ErrCodeTaken)

	got, err := store.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, code, got.Code)
	assert.Equal(t, s.TargetColor, got.TargetColor)
	assert.Empty(t, got.Members)

	got.Members = append(got.Members,
		models.Player{Username: "alice", Color: models.NeutralGray},
		models.Player{Username: "bob", Color: models.Color{R: 255}},
	)
	got.TargetColor = models.Color{R: 30, G: 144, B: 255}
	require.NoError(t, store.Replace(ctx, code, got))

	again, err := store.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	_, err = store.FindByCode(ctx, code+"X")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.ErrorIs(t, store.Replace(ctx, code+"X", got), session.ErrNotFound)
}
