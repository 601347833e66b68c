package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/lingo-api/internal/api/shared"
	"github.com/phrazzld/lingo-api/internal/config"
	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/domain/progress"
	"github.com/phrazzld/lingo-api/internal/events"
	"github.com/phrazzld/lingo-api/internal/platform/logger"
	"github.com/phrazzld/lingo-api/internal/service"
	"github.com/phrazzld/lingo-api/internal/service/auth"
	"github.com/phrazzld/lingo-api/internal/store"
	"github.com/phrazzld/lingo-api/internal/task"
)

// progressRecordLimit bounds how many task records the progress endpoint
// loads per learner.
const progressRecordLimit = 500

// AdminHandler serves the JWT-protected operator endpoints: allow-list
// management, progress inspection, and the daily invite broadcast trigger.
type AdminHandler struct {
	learners     service.LearnerService
	tasks        store.TaskRecordStore
	jwtService   auth.JWTService
	verifier     auth.SecretVerifier
	eventEmitter events.EventEmitter
	authConfig   config.AuthConfig
	logger       *slog.Logger
	timeFunc     func() time.Time
}

// NewAdminHandler creates a new AdminHandler with the given dependencies.
func NewAdminHandler(
	learners service.LearnerService,
	tasks store.TaskRecordStore,
	jwtService auth.JWTService,
	verifier auth.SecretVerifier,
	eventEmitter events.EventEmitter,
	authConfig config.AuthConfig,
	log *slog.Logger,
) *AdminHandler {
	if learners == nil {
		panic("learners cannot be nil")
	}
	if tasks == nil {
		panic("tasks cannot be nil")
	}
	if jwtService == nil {
		panic("jwtService cannot be nil")
	}
	if verifier == nil {
		panic("verifier cannot be nil")
	}
	if eventEmitter == nil {
		panic("eventEmitter cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &AdminHandler{
		learners:     learners,
		tasks:        tasks,
		jwtService:   jwtService,
		verifier:     verifier,
		eventEmitter: eventEmitter,
		authConfig:   authConfig,
		logger:       log.With(slog.String("component", "admin_handler")),
		timeFunc:     time.Now,
	}
}

// Login handles POST /api/admin/login. It verifies the shared admin secret
// against the configured bcrypt hash and issues a short-lived access token.
// Failed attempts reveal nothing about which part of the payload was wrong.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := h.verifier.Compare(h.authConfig.AdminSecretHash, req.Secret); err != nil {
		log.Warn("admin login rejected",
			slog.String("subject", req.Subject),
			slog.String("remote_addr", r.RemoteAddr))
		shared.RespondWithErrorAndLog(w, r,
			http.StatusUnauthorized, "Invalid credentials",
			auth.ErrInvalidAdminSecret,
			shared.WithElevatedLogLevel())
		return
	}

	token, err := h.jwtService.GenerateToken(r.Context(), req.Subject)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			http.StatusInternalServerError, "Failed to issue token", err)
		return
	}

	expiresAt := h.timeFunc().
		Add(time.Duration(h.authConfig.TokenLifetimeMinutes) * time.Minute).
		UTC().Format(time.RFC3339)

	log.Info("admin login", slog.String("subject", req.Subject))
	shared.RespondWithJSON(w, r, http.StatusOK, LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
	})
}

// GrantAuthorization handles POST /api/admin/learners/{id}/authorization.
// Granting an already authorized learner succeeds idempotently.
func (h *AdminHandler) GrantAuthorization(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	subject, learnerID, ok := handleSubjectAndLearnerID(w, r)
	if !ok {
		return
	}

	if err := h.learners.GrantAuthorization(r.Context(), learnerID, subject); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("authorization granted",
		slog.String("learner_id", learnerID),
		slog.String("granted_by", subject))
	shared.RespondWithJSON(w, r, http.StatusCreated, AuthorizationResponse{
		LearnerID:  learnerID,
		Authorized: true,
	})
}

// RevokeAuthorization handles DELETE /api/admin/learners/{id}/authorization.
func (h *AdminHandler) RevokeAuthorization(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	subject, learnerID, ok := handleSubjectAndLearnerID(w, r)
	if !ok {
		return
	}

	if err := h.learners.RevokeAuthorization(r.Context(), learnerID); err != nil {
		if errors.Is(err, store.ErrAuthorizationNotFound) {
			HandleAPIError(w, r, err, "Learner is not authorized")
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("authorization revoked",
		slog.String("learner_id", learnerID),
		slog.String("revoked_by", subject))
	shared.RespondWithJSON(w, r, http.StatusOK, AuthorizationResponse{
		LearnerID:  learnerID,
		Authorized: false,
	})
}

// GetProgress handles GET /api/admin/learners/{id}/progress, returning the
// learner's derived progress snapshot.
func (h *AdminHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	_, learnerID, ok := handleSubjectAndLearnerID(w, r)
	if !ok {
		return
	}

	// The snapshot is derived on demand; an unknown learner simply yields
	// an empty one, but surface 404 so operators catch typos.
	if _, err := h.learners.GetProfile(r.Context(), learnerID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	records, err := h.tasks.ListByLearner(r.Context(), learnerID, progressRecordLimit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	snapshot := progress.Summarize(learnerID, derefRecords(records), h.timeFunc())
	shared.RespondWithJSON(w, r, http.StatusOK, snapshot)
}

// derefRecords converts the store's pointer slice into the value slice the
// aggregator consumes.
func derefRecords(records []*domain.TaskRecord) []domain.TaskRecord {
	out := make([]domain.TaskRecord, 0, len(records))
	for _, record := range records {
		out = append(out, *record)
	}
	return out
}

// TriggerDailyBroadcast handles POST /api/admin/broadcasts/daily. It emits
// the broadcast-requested event and returns 202; the worker pool does the
// fan-out asynchronously. The external scheduler owns the timing.
func (h *AdminHandler) TriggerDailyBroadcast(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	subject, ok := getSubjectFromContext(r)
	if !ok {
		HandleAPIError(w, r, service.ErrUnauthorized, "Authentication required")
		return
	}

	broadcastID := uuid.New()
	event, err := events.NewTaskRequestEvent(task.TaskTypeInviteBroadcast, map[string]string{
		"broadcast_id": broadcastID.String(),
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.eventEmitter.EmitEvent(r.Context(), event); err != nil {
		HandleAPIError(w, r, err, "Failed to start broadcast")
		return
	}

	log.Info("daily broadcast requested",
		slog.String("broadcast_id", broadcastID.String()),
		slog.String("requested_by", subject))
	shared.RespondWithJSON(w, r, http.StatusAccepted, BroadcastResponse{
		BroadcastID: broadcastID.String(),
		Status:      "accepted",
	})
}
