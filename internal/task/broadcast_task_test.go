package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/store"
)

// mockAuthLister implements AuthorizationLister for testing
type mockAuthLister struct {
	auths   []store.Authorization
	listErr error
}

func (m *mockAuthLister) ListAuthorized(ctx context.Context) ([]store.Authorization, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.auths, nil
}

// mockDeliveryStore records saves and status flips in memory
type mockDeliveryStore struct {
	mu         sync.Mutex
	saved      []*InviteDelivery
	statuses   map[uuid.UUID]DeliveryStatus
	errorMsgs  map[uuid.UUID]string
	saveErrFor map[string]error
	updateErr  error
}

func newMockDeliveryStore() *mockDeliveryStore {
	return &mockDeliveryStore{
		statuses:  make(map[uuid.UUID]DeliveryStatus),
		errorMsgs: make(map[uuid.UUID]string),
	}
}

func (m *mockDeliveryStore) SaveDelivery(ctx context.Context, delivery *InviteDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.saveErrFor[delivery.LearnerID]; ok {
		return err
	}
	m.saved = append(m.saved, delivery)
	m.statuses[delivery.ID] = delivery.Status
	return nil
}

func (m *mockDeliveryStore) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status DeliveryStatus, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.statuses[id] = status
	m.errorMsgs[id] = errorMsg
	return nil
}

func (m *mockDeliveryStore) ListByBroadcast(ctx context.Context, broadcastID uuid.UUID) ([]*InviteDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*InviteDelivery
	for _, d := range m.saved {
		if d.BroadcastID == broadcastID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDeliveryStore) CountByStatus(ctx context.Context, broadcastID uuid.UUID) (map[DeliveryStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[DeliveryStatus]int)
	for _, d := range m.saved {
		if d.BroadcastID == broadcastID {
			counts[m.statuses[d.ID]]++
		}
	}
	return counts, nil
}

func (m *mockDeliveryStore) WithTx(tx *sql.Tx) DeliveryStore {
	return m
}

// statusForLearner finds the recorded status of a learner's delivery
func (m *mockDeliveryStore) statusForLearner(learnerID string) (DeliveryStatus, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.saved {
		if d.LearnerID == learnerID {
			return m.statuses[d.ID], m.errorMsgs[d.ID], true
		}
	}
	return "", "", false
}

// mockMessenger implements Messenger for testing
type mockMessenger struct {
	mu      sync.Mutex
	sentTo  []string
	text    string
	failFor map[string]error
	onSend  func(learnerID string)
}

func (m *mockMessenger) Send(ctx context.Context, learnerID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onSend != nil {
		m.onSend(learnerID)
	}
	if err, ok := m.failFor[learnerID]; ok {
		return err
	}
	m.sentTo = append(m.sentTo, learnerID)
	m.text = text
	return nil
}

func authList(learnerIDs ...string) []store.Authorization {
	auths := make([]store.Authorization, 0, len(learnerIDs))
	for _, id := range learnerIDs {
		auths = append(auths, store.Authorization{LearnerID: id, GrantedBy: "admin"})
	}
	return auths
}

func TestNewInviteBroadcastTask(t *testing.T) {
	logger := setupTestLogger()
	lister := &mockAuthLister{}
	deliveries := newMockDeliveryStore()
	messenger := &mockMessenger{}
	broadcastID := uuid.New()

	task, err := NewInviteBroadcastTask(broadcastID, lister, deliveries, messenger, logger)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, task.ID())
	assert.Equal(t, TaskTypeInviteBroadcast, task.Type())
	assert.Equal(t, TaskStatusPending, task.Status())

	// Payload carries the broadcast ID
	var payload struct {
		BroadcastID uuid.UUID `json:"broadcast_id"`
	}
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, broadcastID, payload.BroadcastID)
}

func TestNewInviteBroadcastTask_Validation(t *testing.T) {
	logger := setupTestLogger()
	lister := &mockAuthLister{}
	deliveries := newMockDeliveryStore()
	messenger := &mockMessenger{}

	tests := []struct {
		name        string
		broadcastID uuid.UUID
		lister      AuthorizationLister
		deliveries  DeliveryStore
		messenger   Messenger
		logger      *slog.Logger
		wantErr     error
	}{
		{"nil lister", uuid.New(), nil, deliveries, messenger, logger, ErrNilAuthorizationLister},
		{"nil delivery store", uuid.New(), lister, nil, messenger, logger, ErrNilDeliveryStore},
		{"nil messenger", uuid.New(), lister, deliveries, nil, logger, ErrNilMessenger},
		{"nil logger", uuid.New(), lister, deliveries, messenger, nil, ErrNilLogger},
		{"empty broadcast ID", uuid.Nil, lister, deliveries, messenger, logger, ErrEmptyBroadcastID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInviteBroadcastTask(tt.broadcastID, tt.lister, tt.deliveries, tt.messenger, tt.logger)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInviteBroadcastTask_Execute_SendsToAllLearners(t *testing.T) {
	logger := setupTestLogger()
	lister := &mockAuthLister{auths: authList("111", "222", "333")}
	deliveries := newMockDeliveryStore()
	messenger := &mockMessenger{}

	task, err := NewInviteBroadcastTask(uuid.New(), lister, deliveries, messenger, logger)
	require.NoError(t, err)

	err = task.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TaskStatusCompleted, task.Status())

	// Everyone got the invite, in grant order
	assert.Equal(t, []string{"111", "222", "333"}, messenger.sentTo)
	assert.Contains(t, messenger.text, "Time to practice")
	assert.Contains(t, messenger.text, "/task vocabulary - Vocabulary")

	// Every delivery row ended up sent
	require.Len(t, deliveries.saved, 3)
	for _, learnerID := range []string{"111", "222", "333"} {
		status, errMsg, ok := deliveries.statusForLearner(learnerID)
		require.True(t, ok, "missing delivery for learner %s", learnerID)
		assert.Equal(t, DeliveryStatusSent, status)
		assert.Empty(t, errMsg)
	}
}

func TestInviteBroadcastTask_Execute_SendFailureContinues(t *testing.T) {
	logger := setupTestLogger()
	lister := &mockAuthLister{auths: authList("111", "222", "333")}
	deliveries := newMockDeliveryStore()
	messenger := &mockMessenger{
		failFor: map[string]error{"222": errors.New("telegram: forbidden")},
	}

	task, err := NewInviteBroadcastTask(uuid.New(), lister, deliveries, messenger, logger)
	require.NoError(t, err)

	// A single failed send must not abort the broadcast
	err = task.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TaskStatusCompleted, task.Status())

	assert.Equal(t, []string{"111", "333"}, messenger.sentTo)

	status, errMsg, ok := deliveries.statusForLearner("222")
	require.True(t, ok)
	assert.Equal(t, DeliveryStatusFailed, status)
	assert.Contains(t, errMsg, "forbidden")

	status, _, ok = deliveries.statusForLearner("333")
	require.True(t, ok)
	assert.Equal(t, DeliveryStatusSent, status)
}

func TestInviteBroadcastTask_Execute_SaveFailureSkipsSend(t *testing.T) {
	logger := setupTestLogger()
	lister := &mockAuthLister{auths: authList("111", "222", "333")}
	deliveries := newMockDeliveryStore()
	deliveries.saveErrFor = map[string]error{"222": errors.New("connection reset")}
	messenger := &mockMessenger{}

	task, err := NewInviteBroadcastTask(uuid.New(), lister, deliveries, messenger, logger)
	require.NoError(t, err)

	err = task.Execute(context.Background())
	require.NoError(t, err)

	// No delivery row, no send; the rest of the fan-out continues
	assert.Equal(t, []string{"111", "333"}, messenger.sentTo)
	assert.Len(t, deliveries.saved, 2)
}

func TestInviteBroadcastTask_Execute_ListFailure(t *testing.T) {
	logger := setupTestLogger()
	listErr := errors.New("connection refused")
	lister := &mockAuthLister{listErr: listErr}
	deliveries := newMockDeliveryStore()
	messenger := &mockMessenger{}

	task, err := NewInviteBroadcastTask(uuid.New(), lister, deliveries, messenger, logger)
	require.NoError(t, err)

	err = task.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, listErr)
	assert.Contains(t, err.Error(), "failed to list authorized learners")
	assert.Equal(t, TaskStatusFailed, task.Status())

	assert.Empty(t, messenger.sentTo)
	assert.Empty(t, deliveries.saved)
}

func TestInviteBroadcastTask_Execute_EmptyAllowlist(t *testing.T) {
	logger := setupTestLogger()
	lister := &mockAuthLister{}
	deliveries := newMockDeliveryStore()
	messenger := &mockMessenger{}

	task, err := NewInviteBroadcastTask(uuid.New(), lister, deliveries, messenger, logger)
	require.NoError(t, err)

	// Nothing to do is still a successful broadcast
	err = task.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TaskStatusCompleted, task.Status())
	assert.Empty(t, messenger.sentTo)
	assert.Empty(t, deliveries.saved)
}

func TestInviteBroadcastTask_Execute_CanceledBeforeStart(t *testing.T) {
	logger := setupTestLogger()
	lister := &mockAuthLister{auths: authList("111")}
	deliveries := newMockDeliveryStore()
	messenger := &mockMessenger{}

	task, err := NewInviteBroadcastTask(uuid.New(), lister, deliveries, messenger, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = task.Execute(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, TaskStatusFailed, task.Status())
	assert.Empty(t, messenger.sentTo)
}

func TestInviteBroadcastTask_Execute_CanceledMidFanOut(t *testing.T) {
	logger := setupTestLogger()
	lister := &mockAuthLister{auths: authList("111", "222", "333")}
	deliveries := newMockDeliveryStore()

	ctx, cancel := context.WithCancel(context.Background())
	messenger := &mockMessenger{
		// Cancel after the first invite goes out
		onSend: func(learnerID string) {
			if learnerID == "111" {
				cancel()
			}
		},
	}

	task, err := NewInviteBroadcastTask(uuid.New(), lister, deliveries, messenger, logger)
	require.NoError(t, err)

	err = task.Execute(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, TaskStatusFailed, task.Status())

	// The first learner was served before the cancellation took effect
	assert.Equal(t, []string{"111"}, messenger.sentTo)
	assert.Len(t, deliveries.saved, 1)
}

func TestInviteBroadcastTask_Execute_StatusUpdateFailureIsTolerated(t *testing.T) {
	logger := setupTestLogger()
	lister := &mockAuthLister{auths: authList("111", "222")}
	deliveries := newMockDeliveryStore()
	deliveries.updateErr = errors.New("deadlock detected")
	messenger := &mockMessenger{}

	task, err := NewInviteBroadcastTask(uuid.New(), lister, deliveries, messenger, logger)
	require.NoError(t, err)

	// The invites went out; a failed bookkeeping update is not a task failure
	err = task.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TaskStatusCompleted, task.Status())
	assert.Equal(t, []string{"111", "222"}, messenger.sentTo)
}

func TestInviteText(t *testing.T) {
	text := inviteText()

	assert.Contains(t, text, "Time to practice")
	for _, spec := range domain.Catalog() {
		assert.Contains(t, text, "/task "+string(spec.Type)+" - "+spec.Label)
	}
	assert.Contains(t, text, "Or send /task")
}
