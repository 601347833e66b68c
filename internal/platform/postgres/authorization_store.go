package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/phrazzld/lingo-api/internal/platform/logger"
	"github.com/phrazzld/lingo-api/internal/store"
)

// PostgresAuthorizationStore implements the store.AuthorizationStore
// interface using a PostgreSQL database as the storage backend.
type PostgresAuthorizationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAuthorizationStore creates a new PostgreSQL implementation of
// the AuthorizationStore interface. If logger is nil, a default logger is
// used.
func NewPostgresAuthorizationStore(db store.DBTX, log *slog.Logger) *PostgresAuthorizationStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresAuthorizationStore{
		db:     db,
		logger: log.With(slog.String("component", "authorization_store")),
	}
}

// Ensure PostgresAuthorizationStore implements store.AuthorizationStore interface
var _ store.AuthorizationStore = (*PostgresAuthorizationStore)(nil)

// Authorize implements store.AuthorizationStore.Authorize.
// Re-granting an existing authorization is a no-op; the original grant
// record wins, so the allow-list keeps its first-seen timestamps.
func (s *PostgresAuthorizationStore) Authorize(ctx context.Context, learnerID, grantedBy string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO authorizations (learner_id, granted_by, granted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (learner_id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query, learnerID, grantedBy, time.Now().UTC())
	if err != nil {
		log.Error("failed to authorize learner",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}

	if rowsAffected == 0 {
		log.Debug("learner already authorized", slog.String("learner_id", learnerID))
		return nil
	}

	log.Info("learner authorized",
		slog.String("learner_id", learnerID),
		slog.String("granted_by", grantedBy))
	return nil
}

// Revoke implements store.AuthorizationStore.Revoke.
// Returns store.ErrAuthorizationNotFound if no grant exists. Only the
// allow-list entry goes away; the learner's profile and history stay.
func (s *PostgresAuthorizationStore) Revoke(ctx context.Context, learnerID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM authorizations WHERE learner_id = $1`, learnerID)
	if err != nil {
		log.Error("failed to revoke learner",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rowsAffected == 0 {
		return store.ErrAuthorizationNotFound
	}

	log.Info("learner authorization revoked", slog.String("learner_id", learnerID))
	return nil
}

// IsAuthorized implements store.AuthorizationStore.IsAuthorized.
func (s *PostgresAuthorizationStore) IsAuthorized(ctx context.Context, learnerID string) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var authorized bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM authorizations WHERE learner_id = $1)`,
		learnerID,
	).Scan(&authorized)
	if err != nil {
		log.Error("failed to check authorization",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID))
		return false, MapError(err)
	}

	return authorized, nil
}

// ListAuthorized implements store.AuthorizationStore.ListAuthorized.
// Grants come back oldest first so broadcast fan-out order is stable.
func (s *PostgresAuthorizationStore) ListAuthorized(ctx context.Context) ([]store.Authorization, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT learner_id, granted_by, granted_at
		FROM authorizations
		ORDER BY granted_at ASC, learner_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list authorizations", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var grants []store.Authorization
	for rows.Next() {
		var grant store.Authorization
		if err := rows.Scan(&grant.LearnerID, &grant.GrantedBy, &grant.GrantedAt); err != nil {
			return nil, MapError(err)
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return grants, nil
}

// WithTx implements store.AuthorizationStore.WithTx by rebinding the store
// to the given transaction.
func (s *PostgresAuthorizationStore) WithTx(tx *sql.Tx) store.AuthorizationStore {
	return &PostgresAuthorizationStore{
		db:     tx,
		logger: s.logger,
	}
}
