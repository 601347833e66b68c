package task

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus represents the current state of one invite delivery
type DeliveryStatus string

// Possible delivery status values
const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// InviteDelivery is the persisted record of one invite sent (or attempted)
// to one learner during a broadcast. A broadcast writes one pending row per
// authorized learner before fanning out, then flips each row to sent or
// failed as the worker pool reports back.
type InviteDelivery struct {
	ID           uuid.UUID
	BroadcastID  uuid.UUID
	LearnerID    string
	Status       DeliveryStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewInviteDelivery creates a pending delivery row for one learner within
// the given broadcast.
func NewInviteDelivery(broadcastID uuid.UUID, learnerID string) *InviteDelivery {
	now := time.Now().UTC()
	return &InviteDelivery{
		ID:          uuid.New(),
		BroadcastID: broadcastID,
		LearnerID:   learnerID,
		Status:      DeliveryStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// DeliveryStore defines the interface for persisting invite deliveries
type DeliveryStore interface {
	// SaveDelivery persists a delivery row
	SaveDelivery(ctx context.Context, delivery *InviteDelivery) error

	// UpdateDeliveryStatus updates the status of a delivery, recording the
	// error message for failed sends (empty otherwise)
	UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status DeliveryStatus, errorMsg string) error

	// ListByBroadcast retrieves all deliveries for a broadcast, oldest first
	ListByBroadcast(ctx context.Context, broadcastID uuid.UUID) ([]*InviteDelivery, error)

	// CountByStatus tallies a broadcast's deliveries per status so the
	// fan-out summary can be reported without loading every row
	CountByStatus(ctx context.Context, broadcastID uuid.UUID) (map[DeliveryStatus]int, error)

	// WithTx returns a new DeliveryStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) DeliveryStore
}
