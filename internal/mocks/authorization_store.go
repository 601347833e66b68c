package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/lingo-api/internal/store"
)

// MockAuthorizationStore is a mutex-guarded in-memory implementation of
// store.AuthorizationStore. Function fields override individual methods.
type MockAuthorizationStore struct {
	mu     sync.Mutex
	grants map[string]store.Authorization

	AuthorizeFn    func(ctx context.Context, learnerID, grantedBy string) error
	RevokeFn       func(ctx context.Context, learnerID string) error
	IsAuthorizedFn func(ctx context.Context, learnerID string) (bool, error)
}

var _ store.AuthorizationStore = (*MockAuthorizationStore)(nil)

// NewMockAuthorizationStore creates an empty MockAuthorizationStore.
func NewMockAuthorizationStore() *MockAuthorizationStore {
	return &MockAuthorizationStore{
		grants: make(map[string]store.Authorization),
	}
}

// Authorize implements store.AuthorizationStore; re-granting keeps the
// original record.
func (m *MockAuthorizationStore) Authorize(ctx context.Context, learnerID, grantedBy string) error {
	if m.AuthorizeFn != nil {
		return m.AuthorizeFn(ctx, learnerID, grantedBy)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.grants[learnerID]; exists {
		return nil
	}
	m.grants[learnerID] = store.Authorization{
		LearnerID: learnerID,
		GrantedBy: grantedBy,
		GrantedAt: time.Now().UTC(),
	}
	return nil
}

// Revoke implements store.AuthorizationStore.
func (m *MockAuthorizationStore) Revoke(ctx context.Context, learnerID string) error {
	if m.RevokeFn != nil {
		return m.RevokeFn(ctx, learnerID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.grants[learnerID]; !exists {
		return store.ErrAuthorizationNotFound
	}
	delete(m.grants, learnerID)
	return nil
}

// IsAuthorized implements store.AuthorizationStore.
func (m *MockAuthorizationStore) IsAuthorized(ctx context.Context, learnerID string) (bool, error) {
	if m.IsAuthorizedFn != nil {
		return m.IsAuthorizedFn(ctx, learnerID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.grants[learnerID]
	return exists, nil
}

// ListAuthorized implements store.AuthorizationStore, oldest grant first.
func (m *MockAuthorizationStore) ListAuthorized(ctx context.Context) ([]store.Authorization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]store.Authorization, 0, len(m.grants))
	for _, grant := range m.grants {
		out = append(out, grant)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].GrantedAt.Equal(out[j].GrantedAt) {
			return out[i].GrantedAt.Before(out[j].GrantedAt)
		}
		return out[i].LearnerID < out[j].LearnerID
	})
	return out, nil
}

// WithTx returns the store itself; the in-memory implementation has no
// transaction isolation.
func (m *MockAuthorizationStore) WithTx(tx *sql.Tx) store.AuthorizationStore {
	return m
}
