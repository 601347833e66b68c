package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/store"
)

// MockTaskRecordStore is a mutex-guarded in-memory implementation of
// store.TaskRecordStore. Updates use compare-and-swap on Version, and
// Create enforces the one-pending-task-per-learner rule the Postgres
// schema's partial unique index enforces, so race behavior matches the
// real store. Function fields override individual methods.
type MockTaskRecordStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]domain.TaskRecord

	CreateFn     func(ctx context.Context, record *domain.TaskRecord) error
	GetByIDFn    func(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error)
	GetPendingFn func(ctx context.Context, learnerID string) (*domain.TaskRecord, error)
	UpdateFn     func(ctx context.Context, record *domain.TaskRecord) error
}

var _ store.TaskRecordStore = (*MockTaskRecordStore)(nil)

// NewMockTaskRecordStore creates an empty MockTaskRecordStore.
func NewMockTaskRecordStore() *MockTaskRecordStore {
	return &MockTaskRecordStore{
		records: make(map[uuid.UUID]domain.TaskRecord),
	}
}

// Seed inserts a record directly, bypassing validation and the pending
// uniqueness rule. Test setup only.
func (m *MockTaskRecordStore) Seed(record *domain.TaskRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = *record
}

// Create implements store.TaskRecordStore.
func (m *MockTaskRecordStore) Create(ctx context.Context, record *domain.TaskRecord) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, record)
	}

	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[record.ID]; exists {
		return store.ErrDuplicate
	}
	if record.Pending() {
		for _, existing := range m.records {
			if existing.LearnerID == record.LearnerID && existing.State == domain.TaskStatePending {
				return store.ErrDuplicate
			}
		}
	}

	m.records[record.ID] = *record
	return nil
}

// GetByID implements store.TaskRecordStore.
func (m *MockTaskRecordStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.records[id]
	if !exists {
		return nil, store.ErrTaskRecordNotFound
	}
	copy := record
	return &copy, nil
}

// GetPending implements store.TaskRecordStore.
func (m *MockTaskRecordStore) GetPending(ctx context.Context, learnerID string) (*domain.TaskRecord, error) {
	if m.GetPendingFn != nil {
		return m.GetPendingFn(ctx, learnerID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var newest *domain.TaskRecord
	for id := range m.records {
		record := m.records[id]
		if record.LearnerID != learnerID || record.State != domain.TaskStatePending {
			continue
		}
		if newest == nil || record.IssuedAt.After(newest.IssuedAt) {
			copy := record
			newest = &copy
		}
	}

	if newest == nil {
		return nil, store.ErrTaskRecordNotFound
	}
	return newest, nil
}

// Update implements store.TaskRecordStore with compare-and-swap on Version.
func (m *MockTaskRecordStore) Update(ctx context.Context, record *domain.TaskRecord) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, record)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.records[record.ID]
	if !exists {
		return store.ErrTaskRecordNotFound
	}
	if stored.Version != record.Version {
		return store.ErrConflict
	}

	record.Version++
	m.records[record.ID] = *record
	return nil
}

// ListByLearner implements store.TaskRecordStore, newest first.
func (m *MockTaskRecordStore) ListByLearner(
	ctx context.Context,
	learnerID string,
	limit int,
) ([]*domain.TaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.TaskRecord
	for id := range m.records {
		record := m.records[id]
		if record.LearnerID != learnerID {
			continue
		}
		copy := record
		out = append(out, &copy)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountByState implements store.TaskRecordStore.
func (m *MockTaskRecordStore) CountByState(
	ctx context.Context,
	learnerID string,
	state domain.TaskState,
) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, record := range m.records {
		if record.LearnerID == learnerID && record.State == state {
			count++
		}
	}
	return count, nil
}

// WithTx returns the store itself; the in-memory implementation has no
// transaction isolation.
func (m *MockTaskRecordStore) WithTx(tx *sql.Tx) store.TaskRecordStore {
	return m
}
