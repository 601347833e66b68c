package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/store"
)

// Profile mutations retry a handful of times on optimistic-concurrency
// conflicts before giving up. Conflicts on a single learner's profile are
// rare (duplicate webhook delivery, double-tap), so a short jittered
// exponential is plenty.
const (
	profileRetryAttempts = 4
	profileRetryBase     = 25 * time.Millisecond
	profileRetryJitter   = 50 // percent
)

// LearnerService provides learner profile and allow-list operations.
type LearnerService interface {
	// EnsureProfile returns the learner's profile, creating a default one
	// (intermediate difficulty, English instructions) on first contact.
	// Safe to call repeatedly and concurrently for the same learner.
	EnsureProfile(ctx context.Context, learnerID string) (*domain.LearnerProfile, error)

	// GetProfile retrieves an existing profile.
	// Returns store.ErrLearnerNotFound if the learner has never interacted.
	GetProfile(ctx context.Context, learnerID string) (*domain.LearnerProfile, error)

	// SetDifficulty updates the learner's difficulty tier. The change applies
	// to tasks issued afterwards only; open tasks keep their issue-time tier.
	// Returns ErrInvalidInput for a tier outside the catalog.
	SetDifficulty(ctx context.Context, learnerID, tier string) (*domain.LearnerProfile, error)

	// SetLanguage updates the language used for instructions and feedback.
	// Returns ErrInvalidInput for an unsupported language code.
	SetLanguage(ctx context.Context, learnerID, code string) (*domain.LearnerProfile, error)

	// Authorize adds a learner to the allow-list on behalf of adminID.
	// Returns ErrNotAdmin unless adminID is a configured admin. Granting an
	// already authorized learner is a no-op.
	Authorize(ctx context.Context, adminID, learnerID string) error

	// Revoke removes a learner from the allow-list on behalf of adminID.
	// Returns ErrNotAdmin unless adminID is a configured admin, and
	// store.ErrAuthorizationNotFound if the learner was not authorized.
	Revoke(ctx context.Context, adminID, learnerID string) error

	// GrantAuthorization adds a learner to the allow-list without an admin
	// check, recording grantedBy. The admin API calls this after its own
	// authentication; chat commands go through Authorize instead.
	GrantAuthorization(ctx context.Context, learnerID, grantedBy string) error

	// RevokeAuthorization removes a learner from the allow-list without an
	// admin check. Counterpart of GrantAuthorization for the admin API.
	RevokeAuthorization(ctx context.Context, learnerID string) error

	// IsAuthorized reports whether the learner may interact with the tutor.
	// Configured admins are implicitly authorized.
	IsAuthorized(ctx context.Context, learnerID string) (bool, error)

	// IsAdmin reports whether the learner is a configured admin.
	IsAdmin(learnerID string) bool
}

// LearnerServiceImpl implements the LearnerService interface.
type LearnerServiceImpl struct {
	learnerStore store.LearnerStore
	authStore    store.AuthorizationStore
	admins       map[string]bool
	logger       *slog.Logger
}

var _ LearnerService = (*LearnerServiceImpl)(nil)

// NewLearnerService creates a new LearnerService. adminIDs lists the chat
// identities allowed to manage the allow-list.
func NewLearnerService(
	learnerStore store.LearnerStore,
	authStore store.AuthorizationStore,
	adminIDs []string,
	logger *slog.Logger,
) LearnerService {
	admins := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}

	return &LearnerServiceImpl{
		learnerStore: learnerStore,
		authStore:    authStore,
		admins:       admins,
		logger:       logger.With("component", "learner_service"),
	}
}

// EnsureProfile returns the learner's profile, creating it on first contact.
func (s *LearnerServiceImpl) EnsureProfile(
	ctx context.Context,
	learnerID string,
) (*domain.LearnerProfile, error) {
	profile, err := s.learnerStore.Get(ctx, learnerID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, store.ErrLearnerNotFound) {
		s.logger.Error("failed to retrieve learner profile",
			"error", err,
			"learner_id", learnerID)
		return nil, fmt.Errorf("failed to retrieve learner profile: %w", err)
	}

	profile, err = domain.NewLearnerProfile(learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create learner profile: %w", err)
	}

	if err := s.learnerStore.Create(ctx, profile); err != nil {
		// A concurrent first contact may have won the insert; their profile
		// is as good as ours.
		if errors.Is(err, store.ErrLearnerExists) {
			return s.learnerStore.Get(ctx, learnerID)
		}
		s.logger.Error("failed to save learner profile",
			"error", err,
			"learner_id", learnerID)
		return nil, fmt.Errorf("failed to save learner profile: %w", err)
	}

	s.logger.Info("learner profile created",
		"learner_id", learnerID,
		"difficulty", profile.Difficulty,
		"language", profile.Language)

	return profile, nil
}

// GetProfile retrieves an existing profile.
func (s *LearnerServiceImpl) GetProfile(
	ctx context.Context,
	learnerID string,
) (*domain.LearnerProfile, error) {
	profile, err := s.learnerStore.Get(ctx, learnerID)
	if err != nil {
		if !errors.Is(err, store.ErrLearnerNotFound) {
			s.logger.Error("failed to retrieve learner profile",
				"error", err,
				"learner_id", learnerID)
		}
		return nil, fmt.Errorf("failed to retrieve learner profile: %w", err)
	}
	return profile, nil
}

// SetDifficulty updates the learner's difficulty tier.
func (s *LearnerServiceImpl) SetDifficulty(
	ctx context.Context,
	learnerID, tier string,
) (*domain.LearnerProfile, error) {
	parsed, err := domain.ParseDifficultyTier(tier)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidInput, tier)
	}

	profile, err := s.updateProfile(ctx, learnerID, func(p *domain.LearnerProfile) error {
		return p.SetDifficulty(parsed)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update difficulty: %w", err)
	}

	s.logger.Info("learner difficulty updated",
		"learner_id", learnerID,
		"difficulty", parsed)

	return profile, nil
}

// SetLanguage updates the learner's instruction language.
func (s *LearnerServiceImpl) SetLanguage(
	ctx context.Context,
	learnerID, code string,
) (*domain.LearnerProfile, error) {
	normalized := domain.NormalizeLanguage(code)
	if !domain.IsSupportedLanguage(normalized) {
		return nil, fmt.Errorf("%w: unsupported language %q", ErrInvalidInput, code)
	}

	profile, err := s.updateProfile(ctx, learnerID, func(p *domain.LearnerProfile) error {
		return p.SetLanguage(normalized)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update language: %w", err)
	}

	s.logger.Info("learner language updated",
		"learner_id", learnerID,
		"language", normalized)

	return profile, nil
}

// updateProfile runs a read-modify-write cycle against the profile with
// compare-and-swap semantics, retrying the full cycle on version conflicts
// with jittered exponential backoff. The mutation is applied to a freshly
// read profile on every attempt so a concurrent writer's change is never
// silently overwritten.
func (s *LearnerServiceImpl) updateProfile(
	ctx context.Context,
	learnerID string,
	mutate func(*domain.LearnerProfile) error,
) (*domain.LearnerProfile, error) {
	var profile *domain.LearnerProfile

	backoff := retry.WithMaxRetries(profileRetryAttempts,
		retry.WithJitterPercent(profileRetryJitter,
			retry.NewExponential(profileRetryBase)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		current, err := s.learnerStore.Get(ctx, learnerID)
		if err != nil {
			return err
		}

		if err := mutate(current); err != nil {
			return err
		}

		if err := s.learnerStore.Update(ctx, current); err != nil {
			if errors.Is(err, store.ErrConflict) {
				s.logger.Debug("profile version conflict, retrying",
					"learner_id", learnerID,
					"version", current.Version)
				return retry.RetryableError(err)
			}
			return err
		}

		profile = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// Authorize adds a learner to the allow-list on behalf of a configured admin.
func (s *LearnerServiceImpl) Authorize(ctx context.Context, adminID, learnerID string) error {
	if !s.IsAdmin(adminID) {
		s.logger.Warn("authorization grant refused",
			"actor_id", adminID,
			"learner_id", learnerID)
		return ErrNotAdmin
	}
	return s.GrantAuthorization(ctx, learnerID, adminID)
}

// Revoke removes a learner from the allow-list on behalf of a configured admin.
func (s *LearnerServiceImpl) Revoke(ctx context.Context, adminID, learnerID string) error {
	if !s.IsAdmin(adminID) {
		s.logger.Warn("authorization revoke refused",
			"actor_id", adminID,
			"learner_id", learnerID)
		return ErrNotAdmin
	}
	return s.RevokeAuthorization(ctx, learnerID)
}

// GrantAuthorization adds the learner to the allow-list.
func (s *LearnerServiceImpl) GrantAuthorization(
	ctx context.Context,
	learnerID, grantedBy string,
) error {
	if err := s.authStore.Authorize(ctx, learnerID, grantedBy); err != nil {
		s.logger.Error("failed to authorize learner",
			"error", err,
			"learner_id", learnerID)
		return fmt.Errorf("failed to authorize learner: %w", err)
	}

	s.logger.Info("learner authorized",
		"learner_id", learnerID,
		"granted_by", grantedBy)

	return nil
}

// RevokeAuthorization removes the learner from the allow-list.
func (s *LearnerServiceImpl) RevokeAuthorization(ctx context.Context, learnerID string) error {
	if err := s.authStore.Revoke(ctx, learnerID); err != nil {
		if errors.Is(err, store.ErrAuthorizationNotFound) {
			s.logger.Debug("revoke of unauthorized learner",
				"learner_id", learnerID)
		} else {
			s.logger.Error("failed to revoke learner",
				"error", err,
				"learner_id", learnerID)
		}
		return fmt.Errorf("failed to revoke learner: %w", err)
	}

	s.logger.Info("learner authorization revoked",
		"learner_id", learnerID)

	return nil
}

// IsAuthorized reports whether the learner may interact with the tutor.
func (s *LearnerServiceImpl) IsAuthorized(ctx context.Context, learnerID string) (bool, error) {
	if s.IsAdmin(learnerID) {
		return true, nil
	}

	ok, err := s.authStore.IsAuthorized(ctx, learnerID)
	if err != nil {
		s.logger.Error("failed to check authorization",
			"error", err,
			"learner_id", learnerID)
		return false, fmt.Errorf("failed to check authorization: %w", err)
	}
	return ok, nil
}

// IsAdmin reports whether the learner is a configured admin.
func (s *LearnerServiceImpl) IsAdmin(learnerID string) bool {
	return s.admins[learnerID]
}
