package store

import (
	"context"
	"database/sql"
	"time"
)

// Authorization records that a chat identity is allowed to use the tutor.
// GrantedBy holds the admin identifier that approved the learner, or
// "bootstrap" for identities seeded from configuration.
type Authorization struct {
	LearnerID string
	GrantedBy string
	GrantedAt time.Time
}

// AuthorizationStore defines the interface for the allow-list of learners.
type AuthorizationStore interface {
	// Authorize grants access for the learner ID. Granting an already
	// authorized learner is a no-op and keeps the original grant record.
	Authorize(ctx context.Context, learnerID, grantedBy string) error

	// Revoke removes the learner from the allow-list.
	// Returns ErrAuthorizationNotFound if the learner was not authorized.
	// The learner's profile and history are kept so a later re-grant
	// resumes where they left off.
	Revoke(ctx context.Context, learnerID string) error

	// IsAuthorized reports whether the learner is currently allowed in.
	IsAuthorized(ctx context.Context, learnerID string) (bool, error)

	// ListAuthorized returns every authorization ordered by grant time,
	// oldest first. Used by the daily invite broadcast to fan out work.
	ListAuthorized(ctx context.Context) ([]Authorization, error)

	// WithTx returns an AuthorizationStore bound to the provided transaction.
	WithTx(tx *sql.Tx) AuthorizationStore
}
