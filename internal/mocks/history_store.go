package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/store"
)

// historyKey identifies one seen objective.
type historyKey struct {
	learnerID string
	taskType  domain.TaskType
	objective string
}

// MockObjectiveHistoryStore is a mutex-guarded in-memory implementation of
// store.ObjectiveHistoryStore. Record is atomic under the mutex, matching
// the Postgres upsert: concurrent calls for the same key never lose
// increments. Function fields override individual methods.
type MockObjectiveHistoryStore struct {
	mu      sync.Mutex
	entries map[historyKey]domain.ObjectiveHistoryEntry

	HasSeenFn func(ctx context.Context, learnerID string, taskType domain.TaskType, objective string) (bool, error)
	RecordFn  func(ctx context.Context, learnerID string, taskType domain.TaskType, objective string) error
	ResetFn   func(ctx context.Context, learnerID string, taskType domain.TaskType) (int64, error)
}

var _ store.ObjectiveHistoryStore = (*MockObjectiveHistoryStore)(nil)

// NewMockObjectiveHistoryStore creates an empty MockObjectiveHistoryStore.
func NewMockObjectiveHistoryStore() *MockObjectiveHistoryStore {
	return &MockObjectiveHistoryStore{
		entries: make(map[historyKey]domain.ObjectiveHistoryEntry),
	}
}

// Seed inserts an entry directly. Test setup only.
func (m *MockObjectiveHistoryStore) Seed(entry *domain.ObjectiveHistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := historyKey{entry.LearnerID, entry.TaskType, entry.Objective}
	m.entries[key] = *entry
}

// HasSeen implements store.ObjectiveHistoryStore.
func (m *MockObjectiveHistoryStore) HasSeen(
	ctx context.Context,
	learnerID string,
	taskType domain.TaskType,
	objective string,
) (bool, error) {
	if m.HasSeenFn != nil {
		return m.HasSeenFn(ctx, learnerID, taskType, objective)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, seen := m.entries[historyKey{learnerID, taskType, objective}]
	return seen, nil
}

// Record implements store.ObjectiveHistoryStore as an atomic upsert.
func (m *MockObjectiveHistoryStore) Record(
	ctx context.Context,
	learnerID string,
	taskType domain.TaskType,
	objective string,
) error {
	if m.RecordFn != nil {
		return m.RecordFn(ctx, learnerID, taskType, objective)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	key := historyKey{learnerID, taskType, objective}
	if entry, exists := m.entries[key]; exists {
		entry.UseCount++
		entry.LastUsedAt = now
		m.entries[key] = entry
		return nil
	}

	m.entries[key] = domain.ObjectiveHistoryEntry{
		LearnerID:   learnerID,
		TaskType:    taskType,
		Objective:   objective,
		FirstUsedAt: now,
		LastUsedAt:  now,
		UseCount:    1,
	}
	return nil
}

// SeenCount implements store.ObjectiveHistoryStore.
func (m *MockObjectiveHistoryStore) SeenCount(
	ctx context.Context,
	learnerID string,
	taskType domain.TaskType,
) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key := range m.entries {
		if key.learnerID == learnerID && key.taskType == taskType {
			count++
		}
	}
	return count, nil
}

// LeastRecentlyUsed implements store.ObjectiveHistoryStore: LastUsedAt
// ascending, ties by objective.
func (m *MockObjectiveHistoryStore) LeastRecentlyUsed(
	ctx context.Context,
	learnerID string,
	taskType domain.TaskType,
	limit int,
) ([]*domain.ObjectiveHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.ObjectiveHistoryEntry
	for key := range m.entries {
		if key.learnerID != learnerID || key.taskType != taskType {
			continue
		}
		entry := m.entries[key]
		out = append(out, &entry)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUsedAt.Equal(out[j].LastUsedAt) {
			return out[i].LastUsedAt.Before(out[j].LastUsedAt)
		}
		return out[i].Objective < out[j].Objective
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Reset implements store.ObjectiveHistoryStore.
func (m *MockObjectiveHistoryStore) Reset(
	ctx context.Context,
	learnerID string,
	taskType domain.TaskType,
) (int64, error) {
	if m.ResetFn != nil {
		return m.ResetFn(ctx, learnerID, taskType)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for key := range m.entries {
		if key.learnerID == learnerID && key.taskType == taskType {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

// ListRecent implements store.ObjectiveHistoryStore: LastUsedAt descending
// for one learner and task type.
func (m *MockObjectiveHistoryStore) ListRecent(
	ctx context.Context,
	learnerID string,
	taskType domain.TaskType,
	limit int,
) ([]*domain.ObjectiveHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.ObjectiveHistoryEntry
	for key := range m.entries {
		if key.learnerID != learnerID || key.taskType != taskType {
			continue
		}
		entry := m.entries[key]
		out = append(out, &entry)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUsedAt.After(out[j].LastUsedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// WithTx returns the store itself; the in-memory implementation has no
// transaction isolation.
func (m *MockObjectiveHistoryStore) WithTx(tx *sql.Tx) store.ObjectiveHistoryStore {
	return m
}
