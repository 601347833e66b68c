package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/lingo-api/internal/api"
	"github.com/phrazzld/lingo-api/internal/api/middleware"
	"github.com/phrazzld/lingo-api/internal/api/shared"
	"github.com/phrazzld/lingo-api/internal/platform/postgres"
)

// newRouter assembles the HTTP surface: the Telegram webhook, the admin
// API behind JWT authentication, and a health endpoint.
func newRouter(
	app *application,
	webhook *api.WebhookHandler,
	admin *api.AdminHandler,
	authMiddleware *middleware.AuthMiddleware,
) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware)

	r.Get("/healthz", app.handleHealthz)
	r.Post("/webhook/telegram", webhook.HandleUpdate)

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", admin.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/learners/{id}/authorization", admin.GrantAuthorization)
			r.Delete("/learners/{id}/authorization", admin.RevokeAuthorization)
			r.Get("/learners/{id}/progress", admin.GetProgress)
			r.Post("/broadcasts/daily", admin.TriggerDailyBroadcast)
		})
	})

	return r
}

type healthResponse struct {
	Status           string `json:"status"`
	MigrationVersion int64  `json:"migration_version"`
}

// handleHealthz reports readiness: the database must answer a ping and the
// migration version must be readable.
func (app *application) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := app.db.PingContext(ctx); err != nil {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "database unreachable")
		return
	}

	version, err := postgres.MigrationStatus(ctx, app.db)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "migration status unavailable")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, healthResponse{
		Status:           "ok",
		MigrationVersion: version,
	})
}
