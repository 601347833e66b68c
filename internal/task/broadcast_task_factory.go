package task

import (
	"log/slog"

	"github.com/google/uuid"
)

// InviteBroadcastTaskFactory creates InviteBroadcastTask instances with
// their dependencies pre-wired, so event handlers only need a broadcast ID
type InviteBroadcastTaskFactory struct {
	authLister AuthorizationLister
	deliveries DeliveryStore
	messenger  Messenger
	logger     *slog.Logger
}

// NewInviteBroadcastTaskFactory creates a new factory for InviteBroadcastTasks
func NewInviteBroadcastTaskFactory(
	authLister AuthorizationLister,
	deliveries DeliveryStore,
	messenger Messenger,
	logger *slog.Logger,
) *InviteBroadcastTaskFactory {
	return &InviteBroadcastTaskFactory{
		authLister: authLister,
		deliveries: deliveries,
		messenger:  messenger,
		logger:     logger.With("component", "invite_broadcast_task_factory"),
	}
}

// CreateTask creates a new InviteBroadcastTask for the specified broadcast
func (f *InviteBroadcastTaskFactory) CreateTask(broadcastID uuid.UUID) (Task, error) {
	task, err := NewInviteBroadcastTask(
		broadcastID,
		f.authLister,
		f.deliveries,
		f.messenger,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}
