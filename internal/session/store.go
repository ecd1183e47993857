package session

import (
	"context"
	"sync"

	"github.com/jason-s-yu/chroma/internal/models"
)

// Store is the durable record of session metadata. Writes are last-write-wins.
type Store interface {
	// Insert persists a new session. It returns ErrCodeTaken if the code exists.
	Insert(ctx context.Context, s *models.Session) error
	// FindByCode returns the stored session or ErrNotFound.
	FindByCode(ctx context.Context, code string) (*models.Session, error)
	// Replace overwrites the session stored under code. It returns ErrNotFound if absent.
	Replace(ctx context.Context, code string, s *models.Session) error
}

// MemoryStore keeps sessions in process memory. It is the default store and the
// one used by tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
	}
}

func (m *MemoryStore) Insert(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.Code]; exists {
		return ErrCodeTaken
	}
	m.sessions[s.Code] = s.Clone()
	return nil
}

func (m *MemoryStore) FindByCode(_ context.Context, code string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[code]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Replace(_ context.Context, code string, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[code]; !ok {
		return ErrNotFound
	}
	m.sessions[code] = s.Clone()
	return nil
}
