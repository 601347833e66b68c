package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/lingo-api/internal/events"
)

// broadcastTaskFactory builds the task for one broadcast request
type broadcastTaskFactory interface {
	CreateTask(broadcastID uuid.UUID) (Task, error)
}

// taskSubmitter hands finished tasks to the runner
type taskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// BroadcastEventHandler implements the events.EventHandler interface.
// It turns invite broadcast request events into InviteBroadcastTasks and
// submits them to the task runner.
type BroadcastEventHandler struct {
	taskFactory broadcastTaskFactory
	taskRunner  taskSubmitter
	logger      *slog.Logger
}

// NewBroadcastEventHandler creates a new event handler that uses the given
// task factory to create tasks, and submits them to the provided task runner.
func NewBroadcastEventHandler(
	taskFactory broadcastTaskFactory,
	taskRunner taskSubmitter,
	logger *slog.Logger,
) *BroadcastEventHandler {
	return &BroadcastEventHandler{
		taskFactory: taskFactory,
		taskRunner:  taskRunner,
		logger:      logger.With("component", "broadcast_event_handler"),
	}
}

// HandleEvent processes invite broadcast request events by creating and
// submitting the fan-out task. Events of any other type are ignored so the
// emitter can stay a broadcast bus.
func (h *BroadcastEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != TaskTypeInviteBroadcast {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	// Extract the broadcast ID from the event payload
	var payload struct {
		BroadcastID string `json:"broadcast_id"`
	}

	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	broadcastID, err := uuid.Parse(payload.BroadcastID)
	if err != nil {
		h.logger.Error("invalid broadcast ID",
			"error", err,
			"broadcast_id", payload.BroadcastID,
			"event_id", event.ID)
		return fmt.Errorf("invalid broadcast ID: %w", err)
	}

	// Create the task
	t, err := h.taskFactory.CreateTask(broadcastID)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"broadcast_id", broadcastID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	// Submit the task to the runner
	if err := h.taskRunner.Submit(ctx, t); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", t.ID(),
			"broadcast_id", broadcastID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("broadcast task submitted",
		"task_id", t.ID(),
		"broadcast_id", broadcastID,
		"event_id", event.ID)
	return nil
}

// Ensure BroadcastEventHandler implements events.EventHandler
var _ events.EventHandler = (*BroadcastEventHandler)(nil)
