package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jason-s-yu/chroma/internal/models"
)

const createAttempts = 8

// Registry is the in-memory authority for live session state. It wraps a Store
// and is the only write path for session members and target color.
type Registry struct {
	store Store
	locks *keyedMutex

	// live caches the last persisted state of every session touched by this process.
	mu   sync.RWMutex
	live map[string]*models.Session

	newCode func() string
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithCodeGenerator replaces the session code generator.
func WithCodeGenerator(fn func() string) RegistryOption {
	return func(r *Registry) { r.newCode = fn }
}

// NewRegistry builds a Registry persisting through store.
func NewRegistry(store Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:   store,
		locks:   newKeyedMutex(),
		live:    make(map[string]*models.Session),
		newCode: RandomCode,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create allocates a fresh code, persists an empty session and returns it.
// Codes already present in the store are retried.
func (r *Registry) Create(ctx context.Context) (*models.Session, error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		s := &models.Session{
			Code:        r.newCode(),
			TargetColor: RandomColor(),
			Members:     []models.Player{},
		}
		err := r.store.Insert(ctx, s)
		if errors.Is(err, ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert session: %w", err)
		}
		r.remember(s)
		return s.Clone(), nil
	}
	return nil, ErrCodeExhausted
}

// Get returns the current state of the session, or ErrNotFound.
func (r *Registry) Get(ctx context.Context, code string) (*models.Session, error) {
	if s, ok := r.cached(code); ok {
		return s, nil
	}
	s, err := r.store.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Mutate atomically reads the session, applies fn to a copy and persists the copy.
// fn reports whether it changed anything; unchanged sessions are not written.
// Calls for the same code are serialized. If persisting fails the previous state
// stays authoritative, so a transformation is never partially applied.
func (r *Registry) Mutate(ctx context.Context, code string, fn func(s *models.Session) bool) (*models.Session, error) {
	unlock := r.locks.Lock(code)
	defer unlock()

	cur, ok := r.cached(code)
	if !ok {
		var err error
		cur, err = r.store.FindByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		r.remember(cur)
	}

	next := cur.Clone()
	if !fn(next) {
		return cur, nil
	}
	if err := r.store.Replace(ctx, code, next); err != nil {
		return nil, fmt.Errorf("replace session %s: %w", code, err)
	}
	r.remember(next)
	return next.Clone(), nil
}

func (r *Registry) cached(code string) (*models.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.live[code]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (r *Registry) remember(s *models.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[s.Code] = s.Clone()
}
