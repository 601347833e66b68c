package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/store"
)

// MockLearnerStore is a mutex-guarded in-memory implementation of
// store.LearnerStore with the same compare-and-swap version semantics as
// the Postgres store. Function fields override individual methods.
type MockLearnerStore struct {
	mu       sync.Mutex
	profiles map[string]domain.LearnerProfile

	CreateFn func(ctx context.Context, profile *domain.LearnerProfile) error
	GetFn    func(ctx context.Context, id string) (*domain.LearnerProfile, error)
	UpdateFn func(ctx context.Context, profile *domain.LearnerProfile) error
	DeleteFn func(ctx context.Context, id string) error
}

var _ store.LearnerStore = (*MockLearnerStore)(nil)

// NewMockLearnerStore creates an empty MockLearnerStore.
func NewMockLearnerStore() *MockLearnerStore {
	return &MockLearnerStore{
		profiles: make(map[string]domain.LearnerProfile),
	}
}

// Seed inserts a profile directly, bypassing validation. Test setup only.
func (m *MockLearnerStore) Seed(profile *domain.LearnerProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.ID] = *profile
}

// Create implements store.LearnerStore.
func (m *MockLearnerStore) Create(ctx context.Context, profile *domain.LearnerProfile) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, profile)
	}

	if err := profile.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[profile.ID]; exists {
		return store.ErrLearnerExists
	}
	m.profiles[profile.ID] = *profile
	return nil
}

// Get implements store.LearnerStore.
func (m *MockLearnerStore) Get(ctx context.Context, id string) (*domain.LearnerProfile, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	profile, exists := m.profiles[id]
	if !exists {
		return nil, store.ErrLearnerNotFound
	}
	copy := profile
	return &copy, nil
}

// Update implements store.LearnerStore with compare-and-swap on Version.
func (m *MockLearnerStore) Update(ctx context.Context, profile *domain.LearnerProfile) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, profile)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.profiles[profile.ID]
	if !exists {
		return store.ErrLearnerNotFound
	}
	if stored.Version != profile.Version {
		return store.ErrConflict
	}

	profile.Version++
	m.profiles[profile.ID] = *profile
	return nil
}

// Delete implements store.LearnerStore.
func (m *MockLearnerStore) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[id]; !exists {
		return store.ErrLearnerNotFound
	}
	delete(m.profiles, id)
	return nil
}

// WithTx returns the store itself; the in-memory implementation has no
// transaction isolation.
func (m *MockLearnerStore) WithTx(tx *sql.Tx) store.LearnerStore {
	return m
}
