package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/lingo-api/internal/api/shared"
	"github.com/phrazzld/lingo-api/internal/config"
	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/events"
	"github.com/phrazzld/lingo-api/internal/mocks"
	"github.com/phrazzld/lingo-api/internal/platform/logger"
	"github.com/phrazzld/lingo-api/internal/service"
	"github.com/phrazzld/lingo-api/internal/task"
)

// captureEmitter records emitted events for assertions.
type captureEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
	err    error
}

func (c *captureEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

type adminFixture struct {
	handler  *AdminHandler
	learners *mocks.MockLearnerStore
	auth     *mocks.MockAuthorizationStore
	tasks    *mocks.MockTaskRecordStore
	jwt      *mocks.MockJWTService
	verifier *mocks.MockSecretVerifier
	emitter  *captureEmitter
	router   chi.Router
}

// withSubject simulates the authentication middleware for protected routes.
func withSubject(subject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), shared.SubjectContextKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	log, _ := logger.NewTestLogger(t)

	f := &adminFixture{
		learners: mocks.NewMockLearnerStore(),
		auth:     mocks.NewMockAuthorizationStore(),
		tasks:    mocks.NewMockTaskRecordStore(),
		jwt:      &mocks.MockJWTService{Token: "issued-token"},
		verifier: &mocks.MockSecretVerifier{},
		emitter:  &captureEmitter{},
	}

	learnerSvc := service.NewLearnerService(f.learners, f.auth, nil, log)

	f.handler = NewAdminHandler(
		learnerSvc,
		f.tasks,
		f.jwt,
		f.verifier,
		f.emitter,
		config.AuthConfig{
			JWTSecret:            "0123456789abcdef0123456789abcdef",
			TokenLifetimeMinutes: 60,
			AdminSecretHash:      "$2a$10$fakehashfakehashfakehashfakehash",
		},
		log,
	)

	r := chi.NewRouter()
	r.Post("/api/admin/login", f.handler.Login)
	r.Group(func(r chi.Router) {
		r.Use(withSubject("ops"))
		r.Post("/api/admin/learners/{id}/authorization", f.handler.GrantAuthorization)
		r.Delete("/api/admin/learners/{id}/authorization", f.handler.RevokeAuthorization)
		r.Get("/api/admin/learners/{id}/progress", f.handler.GetProgress)
		r.Post("/api/admin/broadcasts/daily", f.handler.TriggerDailyBroadcast)
	})
	f.router = r

	return f
}

func (f *adminFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)

	rec := f.do(t, http.MethodPost, "/api/admin/login", LoginRequest{
		Subject: "ops",
		Secret:  "correct horse battery staple",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "issued-token", resp.AccessToken)

	expires, err := time.Parse(time.RFC3339, resp.ExpiresAt)
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))
}

func TestLoginWrongSecret(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)
	f.verifier.Err = assert.AnError

	rec := f.do(t, http.MethodPost, "/api/admin/login", LoginRequest{
		Subject: "ops",
		Secret:  "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp shared.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Invalid credentials", resp.Error)
}

func TestLoginValidation(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)

	rec := f.do(t, http.MethodPost, "/api/admin/login", LoginRequest{Subject: "ops"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewBufferString("{not json"))
	rec2 := httptest.NewRecorder()
	f.router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestGrantAuthorizationEndpoint(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)

	rec := f.do(t, http.MethodPost, "/api/admin/learners/1000001/authorization", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp AuthorizationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "1000001", resp.LearnerID)
	assert.True(t, resp.Authorized)

	ok, err := f.auth.IsAuthorized(context.Background(), "1000001")
	require.NoError(t, err)
	assert.True(t, ok)

	// Granting again is idempotent.
	rec = f.do(t, http.MethodPost, "/api/admin/learners/1000001/authorization", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRevokeAuthorizationEndpoint(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)
	require.NoError(t, f.auth.Authorize(context.Background(), "1000001", "ops"))

	rec := f.do(t, http.MethodDelete, "/api/admin/learners/1000001/authorization", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AuthorizationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Authorized)

	// Revoking an unauthorized learner is 404.
	rec = f.do(t, http.MethodDelete, "/api/admin/learners/1000001/authorization", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProgressEndpoint(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)

	profile, err := domain.NewLearnerProfile("1000001")
	require.NoError(t, err)
	f.learners.Seed(profile)

	score := 0.8
	completedAt := time.Now().UTC().Add(-time.Hour)
	f.tasks.Seed(&domain.TaskRecord{
		ID:          uuid.New(),
		LearnerID:   "1000001",
		Type:        domain.TaskTypeVocabulary,
		Objective:   "meticulous",
		Difficulty:  domain.DifficultyIntermediate,
		Language:    "en",
		Content:     "content",
		State:       domain.TaskStateCompleted,
		Score:       &score,
		Feedback:    domain.FeedbackCorrect,
		IssuedAt:    completedAt.Add(-time.Hour),
		CompletedAt: &completedAt,
		Version:     2,
	})

	rec := f.do(t, http.MethodGet, "/api/admin/learners/1000001/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot struct {
		LearnerID      string  `json:"learner_id"`
		TotalAttempts  int     `json:"total_attempts"`
		ScoredAttempts int     `json:"scored_attempts"`
		OverallAverage float64 `json:"overall_average"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snapshot))
	assert.Equal(t, "1000001", snapshot.LearnerID)
	assert.Equal(t, 1, snapshot.TotalAttempts)
	assert.Equal(t, 1, snapshot.ScoredAttempts)
	assert.InDelta(t, 0.8, snapshot.OverallAverage, 1e-9)
}

func TestGetProgressUnknownLearner(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)

	rec := f.do(t, http.MethodGet, "/api/admin/learners/unknown/progress", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerDailyBroadcast(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)

	rec := f.do(t, http.MethodPost, "/api/admin/broadcasts/daily", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp BroadcastResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "accepted", resp.Status)
	require.NotEmpty(t, resp.BroadcastID)

	require.Len(t, f.emitter.events, 1)
	event := f.emitter.events[0]
	assert.Equal(t, task.TaskTypeInviteBroadcast, event.Type)

	var payload struct {
		BroadcastID string `json:"broadcast_id"`
	}
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, resp.BroadcastID, payload.BroadcastID)
}

func TestTriggerDailyBroadcastEmitFailure(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)
	f.emitter.err = assert.AnError

	rec := f.do(t, http.MethodPost, "/api/admin/broadcasts/daily", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProtectedRoutesRequireSubject(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)

	// A route reached without the middleware placing a subject is refused.
	r := chi.NewRouter()
	r.Post("/api/admin/broadcasts/daily", f.handler.TriggerDailyBroadcast)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/broadcasts/daily", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.emitter.events)
}
