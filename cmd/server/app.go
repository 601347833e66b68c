package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/lingo-api/internal/api"
	"github.com/phrazzld/lingo-api/internal/api/middleware"
	"github.com/phrazzld/lingo-api/internal/config"
	"github.com/phrazzld/lingo-api/internal/domain/selection"
	"github.com/phrazzld/lingo-api/internal/events"
	"github.com/phrazzld/lingo-api/internal/platform/gemini"
	"github.com/phrazzld/lingo-api/internal/platform/postgres"
	"github.com/phrazzld/lingo-api/internal/platform/telegram"
	"github.com/phrazzld/lingo-api/internal/service"
	"github.com/phrazzld/lingo-api/internal/service/auth"
	"github.com/phrazzld/lingo-api/internal/service/practice"
	"github.com/phrazzld/lingo-api/internal/task"
)

// application holds the long-lived pieces of the server: the connection
// pool, the broadcast worker pool, and the fully wired HTTP handler.
type application struct {
	cfg        *config.Config
	logger     *slog.Logger
	db         *sql.DB
	taskRunner *task.TaskRunner
	handler    http.Handler
}

// newApplication wires the full dependency graph: database and migrations,
// stores, services, LLM and Telegram clients, the broadcast pipeline, and
// the HTTP router. On any failure it tears down what was already opened.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	db, err := setupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if err := postgres.RunMigrations(ctx, db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	learnerStore := postgres.NewPostgresLearnerStore(db, log)
	taskStore := postgres.NewPostgresTaskRecordStore(db, log)
	historyStore := postgres.NewPostgresObjectiveHistoryStore(db, log)
	authStore := postgres.NewPostgresAuthorizationStore(db, log)
	deliveryStore := postgres.NewPostgresDeliveryStore(db, log)

	learnerSvc := service.NewLearnerService(learnerStore, authStore, cfg.Auth.AdminLearnerIDs, log)

	llm, err := gemini.NewClient(ctx, log, cfg.LLM)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	tg, err := telegram.New(cfg.Telegram, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create Telegram client: %w", err)
	}

	practiceSvc := practice.NewPracticeService(
		db,
		learnerSvc,
		taskStore,
		historyStore,
		selection.NewSelector(nil),
		llm,
		llm,
		llm,
		llm,
		practice.Config{
			AbandonAfter:       time.Duration(cfg.Practice.AbandonAfterMinutes) * time.Minute,
			ExhaustionPolicy:   cfg.Practice.ExhaustionPolicy,
			CandidateBatchSize: cfg.Practice.CandidateBatchSize,
			MaxPickAttempts:    cfg.Practice.MaxPickAttempts,
			HistoryWindow:      time.Duration(cfg.Practice.HistoryWindowDays) * 24 * time.Hour,
		},
		log,
	)

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	// Daily invite broadcasts flow admin request -> event emitter ->
	// broadcast handler -> worker pool, so the HTTP response returns
	// before any Telegram sends happen.
	emitter := events.NewInMemoryEventEmitter(log)
	runner := task.NewTaskRunner(task.TaskRunnerConfig{
		WorkerCount: cfg.Broadcast.WorkerCount,
		QueueSize:   cfg.Broadcast.QueueSize,
	}, log)
	factory := task.NewInviteBroadcastTaskFactory(authStore, deliveryStore, tg, log)
	emitter.RegisterHandler(task.NewBroadcastEventHandler(factory, runner, log))
	runner.Start()

	limiter := api.NewLearnerLimiter(cfg.Practice.RateLimitPer5M, 5*time.Minute)
	webhookHandler := api.NewWebhookHandler(practiceSvc, tg, tg, limiter, log)
	adminHandler := api.NewAdminHandler(learnerSvc, taskStore, jwtService, auth.NewBcryptVerifier(), emitter, cfg.Auth, log)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	app := &application{
		cfg:        cfg,
		logger:     log,
		db:         db,
		taskRunner: runner,
	}
	app.handler = newRouter(app, webhookHandler, adminHandler, authMiddleware)

	return app, nil
}

// cleanup releases resources in reverse dependency order. The task runner
// drains in-flight broadcast work before the database closes underneath it.
func (app *application) cleanup() {
	app.taskRunner.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database connection", slog.String("error", err.Error()))
	}
}
