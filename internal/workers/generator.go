package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/moodhome/internal/analytics"
	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
	"github.com/benvon/moodhome/internal/queue"
	"github.com/benvon/moodhome/internal/services/ai"
	"github.com/benvon/moodhome/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CheckInReader loads the check-in a job refers to and the user's recent window.
type CheckInReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.CheckIn, error)
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.CheckIn, error)
}

// SuggestionWriter persists a generated batch.
type SuggestionWriter interface {
	CreateForCheckIn(ctx context.Context, checkIn *models.CheckIn, batch []*models.AutomationSuggestion, replaceInactive bool) (bool, error)
}

// ContactLister lists the people a suggestion may involve.
type ContactLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Contact, error)
}

// SuggestionGenerator processes suggestion generation jobs
type SuggestionGenerator struct {
	generator   ai.SuggestionGenerator
	checkIns    CheckInReader
	suggestions SuggestionWriter
	contacts    ContactLister
	engine      *analytics.Engine
	jobQueue    queue.Enqueuer // For re-enqueueing jobs with delays
	logger      *zap.Logger
}

// NewSuggestionGenerator creates a new suggestion generation worker
func NewSuggestionGenerator(
	generator ai.SuggestionGenerator,
	checkIns CheckInReader,
	suggestions SuggestionWriter,
	contacts ContactLister,
	engine *analytics.Engine,
	jobQueue queue.Enqueuer,
	logger *zap.Logger,
) *SuggestionGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil || engine.Window <= 0 {
		engine = analytics.NewEngine(analytics.DefaultWindow)
	}
	return &SuggestionGenerator{
		generator:   generator,
		checkIns:    checkIns,
		suggestions: suggestions,
		contacts:    contacts,
		engine:      engine,
		jobQueue:    jobQueue,
		logger:      logger,
	}
}

// Generate runs one job to completion. It returns nil when there is nothing
// to do: the check-in is gone, or its generation already completed.
func (g *SuggestionGenerator) Generate(ctx context.Context, job *queue.Job) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "suggestions.generate",
		attribute.String("job.type", string(job.Type)),
		attribute.String("check_in.id", job.CheckInID.String()),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	checkIn, err := g.checkIns.GetByID(ctx, job.CheckInID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			g.logger.Info("suggestion_generation_skipped",
				zap.String("reason", "check_in_deleted"),
				zap.String("check_in_id", job.CheckInID.String()),
			)
			return nil
		}
		return err
	}
	if checkIn.UserID != job.UserID {
		return apperrors.NewInvalidInput("check-in does not belong to job user", map[string]any{
			"check_in_id": job.CheckInID.String(),
		})
	}

	contacts, err := g.contacts.ListByUser(ctx, job.UserID)
	if err != nil {
		// Contacts only enrich the prompt.
		g.logger.Warn("suggestion_contacts_unavailable", zap.String("user_id", job.UserID.String()), zap.Error(err))
		contacts = nil
	}

	mood := g.analyzeRecent(ctx, job.UserID)

	requestID := job.ID.String()
	if rid, ok := job.Metadata["request_id"].(string); ok && rid != "" {
		requestID = rid
	}
	ctx = ai.WithLogFields(ctx, job.UserID, job.CheckInID, requestID)
	batch, err := g.generator.GenerateSuggestions(ctx, ai.GenerationRequest{
		CheckIn:  checkIn,
		Contacts: contacts,
		Mood:     mood,
	})
	if err != nil {
		return err
	}

	replace := job.Type == queue.JobTypeSuggestionRegeneration
	created, err := g.suggestions.CreateForCheckIn(ctx, checkIn, batch, replace)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			// Deleted while the generator was running.
			return nil
		}
		return err
	}
	if !created {
		g.logger.Info("suggestion_generation_skipped",
			zap.String("reason", "already_generated"),
			zap.String("check_in_id", checkIn.ID.String()),
		)
		return nil
	}

	g.logger.Info("suggestions_generated",
		zap.String("user_id", job.UserID.String()),
		zap.String("check_in_id", checkIn.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Int("count", len(batch)),
	)
	return nil
}

func (g *SuggestionGenerator) analyzeRecent(ctx context.Context, userID uuid.UUID) *analytics.Summary {
	recent, err := g.checkIns.ListRecent(ctx, userID, g.engine.Window)
	if err != nil {
		g.logger.Warn("mood_summary_unavailable", zap.String("user_id", userID.String()), zap.Error(err))
		return nil
	}
	_, span := telemetry.StartSpan(ctx, "analytics.analyze", attribute.Int("check_ins", len(recent)))
	summary := g.engine.Analyze(recent)
	telemetry.EndSpan(span, nil)
	return summary
}

// ProcessJob processes a delivered message and settles it. Retryable
// failures are re-enqueued with a delay; the rest go to the DLQ.
func (g *SuggestionGenerator) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	switch job.Type {
	case queue.JobTypeSuggestionGeneration, queue.JobTypeSuggestionRegeneration:
	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			g.logger.Error("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err := g.Generate(ctx, job); err != nil {
		return g.handleJobError(ctx, msg, job, err)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

func retryable(err error) bool {
	return apperrors.Is(err, apperrors.ErrGeneratorFailure) || apperrors.Is(err, apperrors.ErrStoreUnavailable)
}

// handleJobError re-enqueues retryable failures with backoff and
// dead-letters everything else.
func (g *SuggestionGenerator) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("check_in_id", job.CheckInID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(err),
	}

	if !retryable(err) || !job.CanRetry() || g.jobQueue == nil {
		g.logger.Error("suggestion_generation_failed", append(fields, zap.Bool("dead_lettered", true))...)
		if nackErr := msg.Nack(false); nackErr != nil {
			g.logger.Error("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("job failed: %w", err)
	}

	delay := ai.GetRetryDelay(err, job.RetryCount)
	next := job.RetryAfter(delay)

	if enqueueErr := g.jobQueue.Enqueue(ctx, next); enqueueErr != nil {
		g.logger.Error("job_reenqueue_failed", append(fields, zap.NamedError("enqueue_error", enqueueErr))...)
		if nackErr := msg.Nack(true); nackErr != nil {
			g.logger.Error("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("failed to re-enqueue job: %w", enqueueErr)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		g.logger.Warn("job_ack_failed", zap.String("job_id", job.ID.String()), zap.Error(ackErr))
	}

	g.logger.Warn("suggestion_generation_retry",
		append(fields,
			zap.Duration("delay", delay),
			zap.Time("not_before", time.Now().Add(delay)),
			zap.Bool("quota", ai.IsQuotaError(err)),
		)...,
	)
	return nil
}
