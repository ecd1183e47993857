package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jason-s-yu/chroma/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateRetriesTakenCode(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryStore(), WithCodeGenerator(sequence("AAAAAA", "AAAAAA", "BBBBBB")))

	first, err := reg.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", first.Code)
	assert.Empty(t, first.Members)

	second, err := reg.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", second.Code)
}

func TestRegistryCreateGivesUp(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryStore(), WithCodeGenerator(sequence("SAME00")))

	_, err := reg.Create(ctx)
	require.NoError(t, err)

	_, err = reg.Create(ctx)
	assert.ErrorIs(t, err, ErrCodeExhausted)
}

func TestRegistryGetNotFound(t *testing.T) {
	reg := NewRegistry(NewMemoryStore())
	_, err := reg.Get(context.Background(), "NOPE00")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = reg.Mutate(context.Background(), "NOPE00", func(*models.Session) bool { return true })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryGetFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Insert(ctx, &models.Session{Code: "STORED", Members: []models.Player{{Username: "zed"}}}))

	reg := NewRegistry(store)
	s, err := reg.Get(ctx, "STORED")
	require.NoError(t, err)
	assert.Equal(t, "zed", s.Host())
}

func TestRegistryMutateSerializesConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	reg := NewRegistry(store, WithCodeGenerator(sequence("RACE00")))
	_, err := reg.Create(ctx)
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := reg.Mutate(ctx, "RACE00", func(s *models.Session) bool {
				s.Members = append(s.Members, models.Player{Username: fmt.Sprintf("p%d", i)})
				return true
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	s, err := reg.Get(ctx, "RACE00")
	require.NoError(t, err)
	assert.Len(t, s.Members, n)

	persisted, err := store.FindByCode(ctx, "RACE00")
	require.NoError(t, err)
	assert.Equal(t, s.Members, persisted.Members)
}

func TestRegistryMutateSkipsUnchangedWrites(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: NewMemoryStore()}
	reg := NewRegistry(store, WithCodeGenerator(sequence("QUIET0")))
	_, err := reg.Create(ctx)
	require.NoError(t, err)

	_, err = reg.Mutate(ctx, "QUIET0", func(*models.Session) bool { return false })
	require.NoError(t, err)
	assert.Equal(t, 0, store.replaceCount())
}

func TestRegistryFailedReplaceKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: NewMemoryStore()}
	reg := NewRegistry(store, WithCodeGenerator(sequence("FLAKY0")))
	_, err := reg.Create(ctx)
	require.NoError(t, err)

	_, err = reg.Mutate(ctx, "FLAKY0", func(s *models.Session) bool {
		s.Members = append(s.Members, models.Player{Username: "alice"})
		return true
	})
	require.NoError(t, err)

	store.setFailReplace(true)
	_, err = reg.Mutate(ctx, "FLAKY0", func(s *models.Session) bool {
		s.Members = append(s.Members, models.Player{Username: "bob"})
		s.Members[0].Color = models.Color{R: 1}
		return true
	})
	require.ErrorIs(t, err, errStoreDown)

	s, err := reg.Get(ctx, "FLAKY0")
	require.NoError(t, err)
	require.Len(t, s.Members, 1)
	assert.Equal(t, models.Player{Username: "alice"}, s.Members[0])
}
