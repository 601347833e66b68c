package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lingo-api/internal/platform/logger"
	"github.com/phrazzld/lingo-api/internal/store"
	"github.com/phrazzld/lingo-api/internal/task"
)

// PostgresDeliveryStore implements the task.DeliveryStore interface using PostgreSQL
type PostgresDeliveryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDeliveryStore creates a new PostgresDeliveryStore.
// If logger is nil, a default logger is used.
func NewPostgresDeliveryStore(db store.DBTX, log *slog.Logger) *PostgresDeliveryStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresDeliveryStore{
		db:     db,
		logger: log.With(slog.String("component", "delivery_store")),
	}
}

// Ensure PostgresDeliveryStore implements task.DeliveryStore interface
var _ task.DeliveryStore = (*PostgresDeliveryStore)(nil)

// SaveDelivery persists a delivery row
func (s *PostgresDeliveryStore) SaveDelivery(ctx context.Context, delivery *task.InviteDelivery) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO invite_deliveries (id, broadcast_id, learner_id, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		delivery.ID,
		delivery.BroadcastID,
		delivery.LearnerID,
		delivery.Status,
		delivery.ErrorMessage,
		delivery.CreatedAt,
		delivery.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to save invite delivery",
			slog.String("error", err.Error()),
			slog.String("delivery_id", delivery.ID.String()),
			slog.String("learner_id", delivery.LearnerID))
		return MapError(err)
	}

	return nil
}

// UpdateDeliveryStatus updates the status of a delivery row
func (s *PostgresDeliveryStore) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status task.DeliveryStatus, errorMsg string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE invite_deliveries
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query, status, errorMsg, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update delivery status",
			slog.String("error", err.Error()),
			slog.String("delivery_id", id.String()),
			slog.String("status", string(status)))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: invite delivery %s", store.ErrNotFound, id)
	}

	return nil
}

// ListByBroadcast retrieves all deliveries for a broadcast, oldest first
func (s *PostgresDeliveryStore) ListByBroadcast(ctx context.Context, broadcastID uuid.UUID) ([]*task.InviteDelivery, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, broadcast_id, learner_id, status, error_message, created_at, updated_at
		FROM invite_deliveries
		WHERE broadcast_id = $1
		ORDER BY created_at ASC, learner_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, broadcastID)
	if err != nil {
		log.Error("failed to list invite deliveries",
			slog.String("error", err.Error()),
			slog.String("broadcast_id", broadcastID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var deliveries []*task.InviteDelivery
	for rows.Next() {
		var (
			delivery task.InviteDelivery
			status   string
		)
		err := rows.Scan(
			&delivery.ID,
			&delivery.BroadcastID,
			&delivery.LearnerID,
			&status,
			&delivery.ErrorMessage,
			&delivery.CreatedAt,
			&delivery.UpdatedAt,
		)
		if err != nil {
			return nil, MapError(err)
		}
		delivery.Status = task.DeliveryStatus(status)
		deliveries = append(deliveries, &delivery)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return deliveries, nil
}

// CountByStatus tallies a broadcast's deliveries per status
func (s *PostgresDeliveryStore) CountByStatus(ctx context.Context, broadcastID uuid.UUID) (map[task.DeliveryStatus]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT status, COUNT(*)
		FROM invite_deliveries
		WHERE broadcast_id = $1
		GROUP BY status
	`

	rows, err := s.db.QueryContext(ctx, query, broadcastID)
	if err != nil {
		log.Error("failed to count invite deliveries",
			slog.String("error", err.Error()),
			slog.String("broadcast_id", broadcastID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[task.DeliveryStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, MapError(err)
		}
		counts[task.DeliveryStatus(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return counts, nil
}

// WithTx returns a new DeliveryStore instance that uses the provided transaction
func (s *PostgresDeliveryStore) WithTx(tx *sql.Tx) task.DeliveryStore {
	return &PostgresDeliveryStore{
		db:     tx,
		logger: s.logger,
	}
}
