package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/store"
)

// Common errors
var (
	ErrNilAuthorizationLister = errors.New("authorization lister cannot be nil")
	ErrNilDeliveryStore       = errors.New("delivery store cannot be nil")
	ErrNilMessenger           = errors.New("messenger cannot be nil")
	ErrNilLogger              = errors.New("logger cannot be nil")
	ErrEmptyBroadcastID       = errors.New("broadcast ID cannot be empty")
)

// AuthorizationLister lists the learners an invite broadcast fans out to
type AuthorizationLister interface {
	// ListAuthorized returns every authorization, oldest grant first
	ListAuthorized(ctx context.Context) ([]store.Authorization, error)
}

// Messenger delivers one text message to a learner's chat
type Messenger interface {
	Send(ctx context.Context, learnerID, text string) error
}

// inviteBroadcastPayload represents the serialized data stored in the task
type inviteBroadcastPayload struct {
	BroadcastID uuid.UUID `json:"broadcast_id"`
}

// InviteBroadcastTask implements the Task interface for the daily invite
// fan-out. It writes one pending delivery row per authorized learner, then
// sends the invite and flips each row to sent or failed. A failed send
// never aborts the broadcast; the remaining learners still get theirs.
type InviteBroadcastTask struct {
	id          uuid.UUID
	broadcastID uuid.UUID
	authLister  AuthorizationLister
	deliveries  DeliveryStore
	messenger   Messenger
	logger      *slog.Logger
	status      TaskStatus
}

// NewInviteBroadcastTask creates a new invite broadcast task
func NewInviteBroadcastTask(
	broadcastID uuid.UUID,
	authLister AuthorizationLister,
	deliveries DeliveryStore,
	messenger Messenger,
	logger *slog.Logger,
) (*InviteBroadcastTask, error) {
	// Validate dependencies
	if authLister == nil {
		return nil, ErrNilAuthorizationLister
	}
	if deliveries == nil {
		return nil, ErrNilDeliveryStore
	}
	if messenger == nil {
		return nil, ErrNilMessenger
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	// Validate broadcast ID
	if broadcastID == uuid.Nil {
		return nil, ErrEmptyBroadcastID
	}

	return &InviteBroadcastTask{
		id:          uuid.New(),
		broadcastID: broadcastID,
		authLister:  authLister,
		deliveries:  deliveries,
		messenger:   messenger,
		logger:      logger.With("task_type", TaskTypeInviteBroadcast, "broadcast_id", broadcastID),
		status:      TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *InviteBroadcastTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *InviteBroadcastTask) Type() string {
	return TaskTypeInviteBroadcast
}

// Payload returns the task data as a byte slice
func (t *InviteBroadcastTask) Payload() []byte {
	payload := inviteBroadcastPayload{
		BroadcastID: t.broadcastID,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// If marshal fails, return an empty payload with error logged
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *InviteBroadcastTask) Status() TaskStatus {
	return t.status
}

// Execute runs the broadcast: list the allow-list, record a pending delivery
// per learner, send the invite, and mark each delivery sent or failed.
// Send failures are recorded and counted but do not stop the fan-out, so
// the task only errors when the learner list itself cannot be loaded or
// the context is canceled mid-run.
func (t *InviteBroadcastTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting invite broadcast")

	// Check for context cancellation
	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("task cancelled by context", "error", err)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	// 1. Load the allow-list
	authorized, err := t.authLister.ListAuthorized(ctx)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("failed to list authorized learners", "error", err)
		return fmt.Errorf("failed to list authorized learners: %w", err)
	}

	if len(authorized) == 0 {
		t.logger.Info("no authorized learners, nothing to broadcast")
		t.status = TaskStatusCompleted
		return nil
	}

	text := inviteText()

	// 2. Fan out one invite per learner
	var sent, failed int
	for _, auth := range authorized {
		if err := ctx.Err(); err != nil {
			t.status = TaskStatusFailed
			t.logger.Error("broadcast cancelled mid fan-out",
				"error", err,
				"sent", sent,
				"failed", failed,
				"remaining", len(authorized)-sent-failed)
			return fmt.Errorf("broadcast cancelled mid fan-out: %w", err)
		}

		delivery := NewInviteDelivery(t.broadcastID, auth.LearnerID)
		if err := t.deliveries.SaveDelivery(ctx, delivery); err != nil {
			// Without a delivery row there is nothing to flip; count the
			// learner as failed and move on
			failed++
			t.logger.Error("failed to save delivery record",
				"learner_id", auth.LearnerID,
				"error", err)
			continue
		}

		if err := t.messenger.Send(ctx, auth.LearnerID, text); err != nil {
			failed++
			t.logger.Warn("failed to send invite",
				"learner_id", auth.LearnerID,
				"error", err)
			if updateErr := t.deliveries.UpdateDeliveryStatus(ctx, delivery.ID, DeliveryStatusFailed, err.Error()); updateErr != nil {
				t.logger.Error("failed to mark delivery failed",
					"delivery_id", delivery.ID,
					"error", updateErr)
			}
			continue
		}

		sent++
		if updateErr := t.deliveries.UpdateDeliveryStatus(ctx, delivery.ID, DeliveryStatusSent, ""); updateErr != nil {
			// The message went out; a stale pending row is a reporting
			// blemish, not a reason to fail the broadcast
			t.logger.Error("failed to mark delivery sent",
				"delivery_id", delivery.ID,
				"error", updateErr)
		}
	}

	t.status = TaskStatusCompleted
	t.logger.Info("invite broadcast completed",
		"learners", len(authorized),
		"sent", sent,
		"failed", failed)
	return nil
}

// inviteText builds the daily invitation listing every task type in
// catalog order so learners can pick by command.
func inviteText() string {
	var b strings.Builder
	b.WriteString("Time to practice! Pick an exercise:\n\n")
	for _, spec := range domain.Catalog() {
		fmt.Fprintf(&b, "/task %s - %s\n", spec.Type, spec.Label)
	}
	b.WriteString("\nOr send /task and I'll choose for you.")
	return b.String()
}
