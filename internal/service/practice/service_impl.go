package practice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/domain/progress"
	"github.com/phrazzld/lingo-api/internal/domain/selection"
	"github.com/phrazzld/lingo-api/internal/generation"
	"github.com/phrazzld/lingo-api/internal/platform/logger"
	"github.com/phrazzld/lingo-api/internal/service"
	"github.com/phrazzld/lingo-api/internal/store"
)

// recordFetchLimit bounds how many task records one interaction loads for
// selection weighting and progress reports. Records beyond the configured
// history window are dropped after the fetch anyway.
const recordFetchLimit = 500

// Compare-and-swap retry tuning for the single pending -> resolved
// transition. Conflicts resolve fast: the second attempt either wins or
// learns the record was settled by the other writer.
const (
	casRetryAttempts = 3
	casRetryBase     = 20 * time.Millisecond
	casRetryJitter   = 50 // percent
)

// Verify interface compliance at compile time
var _ PracticeService = (*practiceServiceImpl)(nil)

// Config carries the coordinator's tunables, resolved from configuration at
// wiring time.
type Config struct {
	// AbandonAfter is the window in which a pending task can still be
	// answered; beyond it the task settles as Abandoned(timeout).
	AbandonAfter time.Duration

	// ExhaustionPolicy decides what happens when a learner has seen the
	// whole candidate pool for a task type: "reuse" serves the least
	// recently used objective again, "reset" clears history and starts over.
	ExhaustionPolicy string

	// CandidateBatchSize is how many objectives to request per candidate
	// batch while looking for an unseen one.
	CandidateBatchSize int

	// MaxPickAttempts bounds how many candidate batches are requested
	// before the exhaustion handling takes over.
	MaxPickAttempts int

	// HistoryWindow bounds how far back task records feed selection
	// weighting and progress reports.
	HistoryWindow time.Duration
}

// practiceServiceImpl implements the PracticeService interface.
type practiceServiceImpl struct {
	db          *sql.DB
	learners    service.LearnerService
	tasks       store.TaskRecordStore
	history     store.ObjectiveHistoryStore
	selector    selection.Selector
	candidates  generation.CandidateSource
	generator   generation.Generator
	evaluator   generation.Evaluator
	transcriber generation.Transcriber
	cfg         Config
	timeFunc    func() time.Time // Injectable for testing
	logger      *slog.Logger
}

// NewPracticeService creates a new PracticeService implementation.
func NewPracticeService(
	db *sql.DB,
	learners service.LearnerService,
	tasks store.TaskRecordStore,
	history store.ObjectiveHistoryStore,
	selector selection.Selector,
	candidates generation.CandidateSource,
	generator generation.Generator,
	evaluator generation.Evaluator,
	transcriber generation.Transcriber,
	cfg Config,
	log *slog.Logger,
) PracticeService {
	if learners == nil {
		panic("learners cannot be nil")
	}
	if tasks == nil {
		panic("tasks cannot be nil")
	}
	if history == nil {
		panic("history cannot be nil")
	}
	if selector == nil {
		panic("selector cannot be nil")
	}
	if candidates == nil {
		panic("candidates cannot be nil")
	}
	if generator == nil {
		panic("generator cannot be nil")
	}
	if evaluator == nil {
		panic("evaluator cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &practiceServiceImpl{
		db:          db,
		learners:    learners,
		tasks:       tasks,
		history:     history,
		selector:    selector,
		candidates:  candidates,
		generator:   generator,
		evaluator:   evaluator,
		transcriber: transcriber,
		cfg:         cfg,
		timeFunc:    time.Now,
		logger:      log.With(slog.String("component", "practice_service")),
	}
}

// HandleCommand implements PracticeService.HandleCommand.
func (s *practiceServiceImpl) HandleCommand(
	ctx context.Context,
	learnerID, command, args string,
) (*Reply, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	command = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(command, "/")))
	args = strings.TrimSpace(args)

	log.Debug("handling command",
		slog.String("learner_id", learnerID),
		slog.String("command", command))

	authorized, err := s.learners.IsAuthorized(ctx, learnerID)
	if err != nil {
		return replyTryAgain(), NewHandleCommandError("authorization check failed", err)
	}
	if !authorized {
		log.Info("interaction from unauthorized learner",
			slog.String("learner_id", learnerID),
			slog.String("command", command))
		return replyNotAuthorized(), nil
	}

	profile, err := s.learners.EnsureProfile(ctx, learnerID)
	if err != nil {
		return replyTryAgain(), NewHandleCommandError("profile lookup failed", err)
	}

	// Settle an over-window pending task before anything else; a stale task
	// must never block the learner.
	if err := s.settleExpired(ctx, learnerID); err != nil {
		log.Warn("lazy abandonment sweep failed",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID))
	}

	switch command {
	case "start":
		return replyWelcome(profile), nil
	case "help":
		return replyHelp(), nil
	case "task", "newtask":
		return s.issueTask(ctx, profile, args)
	case "skip":
		return s.skipPending(ctx, learnerID)
	case "progress":
		return s.progressReport(ctx, learnerID)
	case "difficulty":
		return s.changeDifficulty(ctx, learnerID, args)
	case "language":
		return s.changeLanguage(ctx, learnerID, args)
	case "grant":
		return s.grantAccess(ctx, learnerID, args)
	case "revoke":
		return s.revokeAccess(ctx, learnerID, args)
	default:
		return replyUnknownCommand(), nil
	}
}

// HandleMessage implements PracticeService.HandleMessage.
func (s *practiceServiceImpl) HandleMessage(
	ctx context.Context,
	learnerID string,
	response Response,
) (*Reply, error) {
	authorized, err := s.learners.IsAuthorized(ctx, learnerID)
	if err != nil {
		return replyTryAgain(), NewHandleResponseError("authorization check failed", err)
	}
	if !authorized {
		return replyNotAuthorized(), nil
	}

	pending, err := s.tasks.GetPending(ctx, learnerID)
	if err != nil {
		if errors.Is(err, store.ErrTaskRecordNotFound) {
			return replyNoActiveTask(), nil
		}
		return replyTryAgain(), NewHandleResponseError("pending task lookup failed", err)
	}

	return s.evaluateResponse(ctx, pending, response)
}

// HandleResponse implements PracticeService.HandleResponse.
func (s *practiceServiceImpl) HandleResponse(
	ctx context.Context,
	learnerID string,
	taskID uuid.UUID,
	response Response,
) (*Reply, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	authorized, err := s.learners.IsAuthorized(ctx, learnerID)
	if err != nil {
		return replyTryAgain(), NewHandleResponseError("authorization check failed", err)
	}
	if !authorized {
		return replyNotAuthorized(), nil
	}

	record, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskRecordNotFound) {
			return replyNoActiveTask(), fmt.Errorf("%w: %v", ErrTaskNotFound, taskID)
		}
		return replyTryAgain(), NewHandleResponseError("task lookup failed", err)
	}

	// The reply does not reveal whether the record exists for someone else.
	if record.LearnerID != learnerID {
		log.Warn("response for another learner's task",
			slog.String("learner_id", learnerID),
			slog.String("task_id", taskID.String()))
		return replyNoActiveTask(), fmt.Errorf("%w: %v", ErrNotTaskOwner, taskID)
	}

	return s.evaluateResponse(ctx, record, response)
}

// evaluateResponse drives the completion path for one pending record:
// expiry check, optional transcription, evaluation with the issue-time
// parameters, and the CAS-guarded transition to Completed.
func (s *practiceServiceImpl) evaluateResponse(
	ctx context.Context,
	record *domain.TaskRecord,
	response Response,
) (*Reply, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !record.Pending() {
		return replyTaskResolved(), nil
	}

	now := s.timeFunc()
	if record.ExpiredAt(now, s.cfg.AbandonAfter) {
		if err := s.resolveAbandoned(ctx, record, domain.AbandonTimeout); err != nil {
			log.Warn("failed to abandon expired task",
				slog.String("error", err.Error()),
				slog.String("task_id", record.ID.String()))
		}
		return replyTaskExpired(), nil
	}

	text := response.Text
	if len(response.VoiceAudio) > 0 {
		if s.transcriber == nil {
			return replyVoiceUnsupported(), nil
		}
		transcribed, err := s.transcriber.Transcribe(ctx, response.VoiceAudio, response.VoiceMIMEType)
		if err != nil {
			log.Error("voice transcription failed",
				slog.String("error", err.Error()),
				slog.String("task_id", record.ID.String()))
			return replyTryAgain(), NewHandleResponseError("transcription failed", err)
		}
		text = transcribed
	}

	if strings.TrimSpace(text) == "" {
		return replyEmptyResponse(), nil
	}

	// Evaluation always runs with the parameters recorded at issue time;
	// later profile changes never reach an open task.
	params := domain.ParametersFor(record.Difficulty, record.Language)
	content := &generation.TaskContent{
		TaskType:  record.Type,
		Objective: record.Objective,
		Body:      record.Content,
	}

	evaluation, err := s.evaluator.Evaluate(ctx, content, text, params)
	if err != nil {
		log.Error("evaluation failed",
			slog.String("error", err.Error()),
			slog.String("task_id", record.ID.String()),
			slog.String("task_type", string(record.Type)))
		// The record stays pending: the learner can retry until the
		// abandonment window settles it.
		return replyTryAgain(), NewHandleResponseError("evaluation failed", err)
	}

	spec, ok := domain.SpecFor(record.Type)
	if !ok {
		return replyTryAgain(), NewHandleResponseError("unknown task type on record", domain.ErrInvalidTaskType)
	}

	var score *float64
	feedback := domain.FeedbackUnscored
	if spec.Scored {
		sc := evaluation.Score
		score = &sc
		feedback = domain.FeedbackForScore(sc)
	}

	if err := s.resolveCompleted(ctx, record, score, feedback); err != nil {
		if errors.Is(err, ErrTaskResolved) {
			log.Debug("completion lost the race",
				slog.String("task_id", record.ID.String()))
			return replyTaskResolved(), nil
		}
		return replyTryAgain(), NewHandleResponseError("failed to save outcome", err)
	}

	log.Info("task completed",
		slog.String("learner_id", record.LearnerID),
		slog.String("task_id", record.ID.String()),
		slog.String("task_type", string(record.Type)),
		slog.String("feedback", string(record.Feedback)))

	return replyFeedback(record, evaluation), nil
}

// issueTask drives the issue path: type selection, objective picking,
// generation, and the transactional insert of the pending record plus its
// history entry. A generation failure aborts with no partial state.
func (s *practiceServiceImpl) issueTask(
	ctx context.Context,
	profile *domain.LearnerProfile,
	args string,
) (*Reply, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	learnerID := profile.ID

	// A fresh pending task blocks a second issue; the learner answers or
	// skips first. Expired ones were settled by the sweep above.
	pending, err := s.tasks.GetPending(ctx, learnerID)
	if err == nil {
		return replyPendingReminder(pending), nil
	}
	if !errors.Is(err, store.ErrTaskRecordNotFound) {
		return replyTryAgain(), NewHandleCommandError("pending task lookup failed", err)
	}

	taskType, reply, err := s.selectType(ctx, learnerID, args)
	if reply != nil || err != nil {
		return reply, err
	}

	params := domain.ResolveGenerationParameters(profile)

	objective, err := s.pickObjective(ctx, learnerID, taskType, params)
	if err != nil {
		return replyTryAgain(), NewHandleCommandError("objective picking failed", err)
	}

	content, err := s.generator.Generate(ctx, taskType, objective, params)
	if err != nil {
		log.Error("task generation failed",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID),
			slog.String("task_type", string(taskType)),
			slog.String("objective", objective))
		return replyTryAgain(), NewHandleCommandError("generation failed", err)
	}

	record, err := domain.NewTaskRecord(learnerID, taskType, objective, params, content.Body)
	if err != nil {
		return replyTryAgain(), NewHandleCommandError("invalid task record", err)
	}

	// The pending record and its history entry commit together: a crash
	// between them must not leave an objective burned without a task, or a
	// task invisible to the no-repeat check.
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.tasks.WithTx(tx).Create(ctx, record); err != nil {
			return err
		}
		return s.history.WithTx(tx).Record(ctx, learnerID, taskType, objective)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// A concurrent issue won the insert; point the learner at it.
			if current, perr := s.tasks.GetPending(ctx, learnerID); perr == nil {
				return replyPendingReminder(current), nil
			}
		}
		log.Error("failed to commit issued task",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID),
			slog.String("task_type", string(taskType)))
		return replyTryAgain(), NewHandleCommandError("failed to issue task", err)
	}

	log.Info("task issued",
		slog.String("learner_id", learnerID),
		slog.String("task_id", record.ID.String()),
		slog.String("task_type", string(taskType)),
		slog.String("objective", objective),
		slog.String("difficulty", string(record.Difficulty)))

	return replyTask(record), nil
}

// selectType resolves which task type to issue: an explicit argument wins,
// otherwise the weighted selector chooses from recent history. A non-nil
// reply short-circuits the issue path (unknown type argument).
func (s *practiceServiceImpl) selectType(
	ctx context.Context,
	learnerID, args string,
) (domain.TaskType, *Reply, error) {
	if args != "" {
		taskType, err := domain.ParseTaskType(args)
		if err != nil {
			return "", replyUnknownTaskType(args), nil
		}
		return taskType, nil, nil
	}

	records, err := s.recentRecords(ctx, learnerID)
	if err != nil {
		return "", replyTryAgain(), NewHandleCommandError("task history lookup failed", err)
	}

	taskType, err := s.selector.SelectNext(records, s.timeFunc())
	if err != nil {
		return "", replyTryAgain(), NewHandleCommandError("type selection failed", err)
	}
	return taskType, nil, nil
}

// skipPending abandons the learner's open task on request.
func (s *practiceServiceImpl) skipPending(ctx context.Context, learnerID string) (*Reply, error) {
	pending, err := s.tasks.GetPending(ctx, learnerID)
	if err != nil {
		if errors.Is(err, store.ErrTaskRecordNotFound) {
			return replyNothingToSkip(), nil
		}
		return replyTryAgain(), NewHandleCommandError("pending task lookup failed", err)
	}

	if err := s.resolveAbandoned(ctx, pending, domain.AbandonSkipped); err != nil {
		if errors.Is(err, ErrTaskResolved) {
			return replyTaskResolved(), nil
		}
		return replyTryAgain(), NewHandleCommandError("failed to skip task", err)
	}

	return replySkipped(), nil
}

// progressReport renders the learner's progress snapshot.
func (s *practiceServiceImpl) progressReport(ctx context.Context, learnerID string) (*Reply, error) {
	records, err := s.recentRecords(ctx, learnerID)
	if err != nil {
		return replyTryAgain(), NewHandleCommandError("task history lookup failed", err)
	}

	snapshot := progress.Summarize(learnerID, records, s.timeFunc())
	return replyProgress(snapshot), nil
}

// changeDifficulty updates the learner's difficulty tier, replying with the
// accepted tiers when the argument is not one of them.
func (s *practiceServiceImpl) changeDifficulty(
	ctx context.Context,
	learnerID, args string,
) (*Reply, error) {
	if args == "" {
		return replyDifficultyUsage(), nil
	}

	profile, err := s.learners.SetDifficulty(ctx, learnerID, args)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return replyDifficultyUsage(), nil
		}
		return replyTryAgain(), NewHandleCommandError("difficulty update failed", err)
	}

	return replyDifficultyChanged(profile), nil
}

// changeLanguage updates the learner's instruction language.
func (s *practiceServiceImpl) changeLanguage(
	ctx context.Context,
	learnerID, args string,
) (*Reply, error) {
	if args == "" {
		return replyLanguageUsage(), nil
	}

	profile, err := s.learners.SetLanguage(ctx, learnerID, args)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return replyLanguageUsage(), nil
		}
		return replyTryAgain(), NewHandleCommandError("language update failed", err)
	}

	return replyLanguageChanged(profile), nil
}

// grantAccess handles the admin /grant command. Non-admins get the unknown
// command reply so the command's existence is not disclosed.
func (s *practiceServiceImpl) grantAccess(ctx context.Context, adminID, args string) (*Reply, error) {
	target := strings.TrimSpace(args)
	if !s.learners.IsAdmin(adminID) {
		return replyUnknownCommand(), nil
	}
	if target == "" {
		return replyGrantUsage(), nil
	}

	if err := s.learners.Authorize(ctx, adminID, target); err != nil {
		return replyTryAgain(), NewHandleCommandError("grant failed", err)
	}
	return replyGranted(target), nil
}

// revokeAccess handles the admin /revoke command.
func (s *practiceServiceImpl) revokeAccess(ctx context.Context, adminID, args string) (*Reply, error) {
	target := strings.TrimSpace(args)
	if !s.learners.IsAdmin(adminID) {
		return replyUnknownCommand(), nil
	}
	if target == "" {
		return replyRevokeUsage(), nil
	}

	if err := s.learners.Revoke(ctx, adminID, target); err != nil {
		if errors.Is(err, store.ErrAuthorizationNotFound) {
			return replyNotGranted(target), nil
		}
		return replyTryAgain(), NewHandleCommandError("revoke failed", err)
	}
	return replyRevoked(target), nil
}

// settleExpired abandons the learner's pending task when it has outlived
// the abandonment window. No pending task, or a fresh one, is a no-op.
func (s *practiceServiceImpl) settleExpired(ctx context.Context, learnerID string) error {
	pending, err := s.tasks.GetPending(ctx, learnerID)
	if err != nil {
		if errors.Is(err, store.ErrTaskRecordNotFound) {
			return nil
		}
		return err
	}

	if !pending.ExpiredAt(s.timeFunc(), s.cfg.AbandonAfter) {
		return nil
	}

	err = s.resolveAbandoned(ctx, pending, domain.AbandonTimeout)
	if err != nil {
		if errors.Is(err, ErrTaskResolved) {
			return nil
		}
		return err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("pending task abandoned on timeout",
		slog.String("learner_id", learnerID),
		slog.String("task_id", pending.ID.String()))
	return nil
}

// resolveCompleted commits the pending -> completed transition with
// compare-and-swap semantics. A version conflict triggers a re-read: if the
// record was settled by another writer the loser gets ErrTaskResolved, an
// unsettled conflict retries with jittered backoff.
func (s *practiceServiceImpl) resolveCompleted(
	ctx context.Context,
	record *domain.TaskRecord,
	score *float64,
	feedback domain.FeedbackKind,
) error {
	return s.resolve(ctx, record, func(working *domain.TaskRecord) error {
		return working.Complete(score, feedback, s.timeFunc())
	})
}

// resolveAbandoned commits the pending -> abandoned transition with the
// same conflict handling as resolveCompleted.
func (s *practiceServiceImpl) resolveAbandoned(
	ctx context.Context,
	record *domain.TaskRecord,
	reason domain.AbandonReason,
) error {
	return s.resolve(ctx, record, func(working *domain.TaskRecord) error {
		return working.Abandon(reason, s.timeFunc())
	})
}

// resolve runs one bounded read-modify-write cycle against the record's
// version. transition is applied to a copy of the latest read on every
// attempt, so a retried cycle never sees its own half-applied state.
func (s *practiceServiceImpl) resolve(
	ctx context.Context,
	record *domain.TaskRecord,
	transition func(*domain.TaskRecord) error,
) error {
	current := record

	backoff := retry.WithMaxRetries(casRetryAttempts,
		retry.WithJitterPercent(casRetryJitter,
			retry.NewExponential(casRetryBase)))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		working := *current
		if err := transition(&working); err != nil {
			if errors.Is(err, domain.ErrTaskNotPending) {
				return fmt.Errorf("%w: %v", ErrTaskResolved, current.ID)
			}
			return err
		}

		if err := s.tasks.Update(ctx, &working); err != nil {
			if errors.Is(err, store.ErrConflict) {
				fresh, gerr := s.tasks.GetByID(ctx, current.ID)
				if gerr != nil {
					return gerr
				}
				if !fresh.Pending() {
					return fmt.Errorf("%w: %v", ErrTaskResolved, current.ID)
				}
				current = fresh
				return retry.RetryableError(err)
			}
			return err
		}

		*record = working
		return nil
	})
}

// recentRecords loads the learner's task records inside the history window,
// newest first, as values ready for the selector and the aggregator.
func (s *practiceServiceImpl) recentRecords(
	ctx context.Context,
	learnerID string,
) ([]domain.TaskRecord, error) {
	records, err := s.tasks.ListByLearner(ctx, learnerID, recordFetchLimit)
	if err != nil {
		return nil, err
	}

	cutoff := s.timeFunc().Add(-s.cfg.HistoryWindow)
	out := make([]domain.TaskRecord, 0, len(records))
	for _, record := range records {
		if record.IssuedAt.Before(cutoff) {
			continue
		}
		out = append(out, *record)
	}
	return out, nil
}
