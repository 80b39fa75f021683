package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
	"github.com/benvon/moodhome/internal/suggestions"
)

// SuggestionRepository handles automation suggestion database operations.
// Suggestions are never deleted through it; they only change state.
type SuggestionRepository struct {
	changeNotifier
	db    *DB
	order string
}

// NewSuggestionRepository creates a new suggestion repository
func NewSuggestionRepository(db *DB) *SuggestionRepository {
	return &SuggestionRepository{db: db, order: suggestions.OrderByClause("", db.idCollation())}
}

const suggestionColumns = `id, user_id, check_in_id, title, description, suggestion_type, priority, actions,
	reasoning, estimated_duration, state, created_at, executed_at, dismissed_at`

func scanSuggestion(row interface{ Scan(...any) error }) (*models.AutomationSuggestion, error) {
	s := &models.AutomationSuggestion{}
	var actions string
	var created int64
	var executed, dismissed sql.NullInt64
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.CheckInID,
		&s.Title,
		&s.Description,
		&s.Type,
		&s.Priority,
		&actions,
		&s.Reasoning,
		&s.EstimatedDuration,
		&s.State,
		&created,
		&executed,
		&dismissed,
	); err != nil {
		return nil, err
	}
	if err := unmarshalList(actions, &s.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}
	s.CreatedAt = fromMillis(created)
	s.ExecutedAt = timePtr(executed)
	s.DismissedAt = timePtr(dismissed)
	return s, nil
}

func collectSuggestions(rows *sql.Rows) ([]*models.AutomationSuggestion, error) {
	var out []*models.AutomationSuggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, storeErr("scan suggestion", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate suggestions", err)
	}
	return out, nil
}

// CreateForCheckIn persists a generated batch for checkIn in one transaction.
// The batch is skipped, reporting false, when the check-in already has a
// completed generation, or only active suggestions when replaceInactive is set.
// IDs and creation instants are assigned here. A stored batch, even an empty
// one, marks the check-in's generation as completed.
func (r *SuggestionRepository) CreateForCheckIn(ctx context.Context, checkIn *models.CheckIn, batch []*models.AutomationSuggestion, replaceInactive bool) (bool, error) {
	guard := `SELECT COUNT(*) FROM automation_suggestions WHERE check_in_id = $1`
	if replaceInactive {
		guard += ` AND state = 'active'`
	}

	created := false
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var generated sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT suggestions_generated_at FROM check_ins WHERE id = $1 AND user_id = $2`,
			checkIn.ID, checkIn.UserID).Scan(&generated)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFound("check-in", checkIn.ID.String())
		}
		if err != nil {
			return storeErr("check check-in", err)
		}
		if generated.Valid && !replaceInactive {
			return nil
		}

		var existing int
		if err := tx.QueryRowContext(ctx, guard, checkIn.ID).Scan(&existing); err != nil {
			return storeErr("count suggestions", err)
		}
		if existing > 0 {
			return nil
		}

		for _, s := range batch {
			s.ID = uuid.New()
			s.UserID = checkIn.UserID
			s.CheckInID = checkIn.ID
			s.State = models.SuggestionStateActive
			s.CreatedAt = r.db.Now()
			s.ExecutedAt, s.DismissedAt = nil, nil
			actions, err := marshalList(s.Actions)
			if err != nil {
				return fmt.Errorf("failed to marshal actions: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO automation_suggestions (`+suggestionColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULL, NULL)
			`, s.ID, s.UserID, s.CheckInID, s.Title, s.Description, s.Type, s.Priority, actions,
				s.Reasoning, s.EstimatedDuration, s.State, millis(s.CreatedAt))
			if err != nil {
				return storeErr("create suggestion", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE check_ins SET suggestions_generated_at = $2 WHERE id = $1`,
			checkIn.ID, millis(r.db.Now())); err != nil {
			return storeErr("mark suggestions generated", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if created && len(batch) > 0 {
		r.notify(ctx, checkIn.UserID, models.CollectionSuggestions)
	}
	return created, nil
}

// GetByID retrieves a suggestion by ID
func (r *SuggestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AutomationSuggestion, error) {
	return getSuggestion(ctx, r.db, id)
}

func getSuggestion(ctx context.Context, q queryer, id uuid.UUID) (*models.AutomationSuggestion, error) {
	s, err := scanSuggestion(q.QueryRowContext(ctx,
		`SELECT `+suggestionColumns+` FROM automation_suggestions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("suggestion", id.String())
	}
	if err != nil {
		return nil, storeErr("get suggestion", err)
	}
	return s, nil
}

// ListActive returns the user's active suggestions in display order: priority
// rank desc, created_at desc, id asc. limit <= 0 returns all.
func (r *SuggestionRepository) ListActive(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AutomationSuggestion, error) {
	query := `SELECT ` + suggestionColumns + `
		FROM automation_suggestions
		WHERE user_id = $1 AND state = 'active'
		ORDER BY ` + r.order
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list active suggestions", err)
	}
	defer closeRows(rows)
	return collectSuggestions(rows)
}

// ListByCheckIn returns every suggestion generated for a check-in, in any state.
func (r *SuggestionRepository) ListByCheckIn(ctx context.Context, checkInID uuid.UUID) ([]*models.AutomationSuggestion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+suggestionColumns+`
		FROM automation_suggestions
		WHERE check_in_id = $1
		ORDER BY `+r.order, checkInID)
	if err != nil {
		return nil, storeErr("list check-in suggestions", err)
	}
	defer closeRows(rows)
	return collectSuggestions(rows)
}

// Dismiss moves an active suggestion owned by userID to Dismissed. Dismissing
// an already terminal suggestion is a no-op and reports applied=false.
func (r *SuggestionRepository) Dismiss(ctx context.Context, userID, id uuid.UUID) (s *models.AutomationSuggestion, applied bool, err error) {
	err = r.db.WithTx(ctx, func(tx *sql.Tx) error {
		s, err = getOwnedSuggestion(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if !suggestions.Dismiss(s, r.db.Now()) {
			return nil
		}
		applied, err = transition(ctx, tx, s)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if applied {
		r.notify(ctx, userID, models.CollectionSuggestions)
	} else {
		// Lost a race or was already terminal; report what is stored.
		s, err = r.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
	}
	return s, applied, nil
}

// DismissActiveForCheckIn dismisses every active suggestion of a check-in and
// returns how many changed state.
func (r *SuggestionRepository) DismissActiveForCheckIn(ctx context.Context, userID, checkInID uuid.UUID) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE automation_suggestions
		SET state = 'dismissed', dismissed_at = $3
		WHERE check_in_id = $1 AND user_id = $2 AND state = 'active'
	`, checkInID, userID, millis(r.db.Now()))
	if err != nil {
		return 0, storeErr("dismiss check-in suggestions", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, storeErr("dismiss check-in suggestions", err)
	}
	if n > 0 {
		r.notify(ctx, userID, models.CollectionSuggestions)
	}
	return int(n), nil
}

// Execute moves an active suggestion to Executed and appends exactly one
// execution record in the same transaction. Executing a terminal suggestion
// is a no-op: no error and no second record.
func (r *SuggestionRepository) Execute(ctx context.Context, userID, id uuid.UUID, exec *models.AutomationExecution) (s *models.AutomationSuggestion, applied bool, err error) {
	err = r.db.WithTx(ctx, func(tx *sql.Tx) error {
		s, err = getOwnedSuggestion(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if !suggestions.Execute(s, r.db.Now()) {
			return nil
		}
		applied, err = transition(ctx, tx, s)
		if err != nil || !applied {
			return err
		}

		exec.ID = uuid.New()
		exec.UserID = userID
		exec.SuggestionID = s.ID
		exec.CheckInID = s.CheckInID
		exec.ExecutedAt = *s.ExecutedAt
		if exec.CompletionStatus == "" {
			exec.CompletionStatus = models.CompletionStatusCompleted
		}
		return insertExecution(ctx, tx, exec)
	})
	if err != nil {
		return nil, false, err
	}
	if applied {
		r.notify(ctx, userID, models.CollectionSuggestions, models.CollectionExecutions)
	} else {
		s, err = r.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
	}
	return s, applied, nil
}

func getOwnedSuggestion(ctx context.Context, q queryer, userID, id uuid.UUID) (*models.AutomationSuggestion, error) {
	s, err := getSuggestion(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, apperrors.NewNotFound("suggestion", id.String())
	}
	return s, nil
}

// transition writes s's new terminal state only if the row is still active.
func transition(ctx context.Context, tx *sql.Tx, s *models.AutomationSuggestion) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE automation_suggestions
		SET state = $2, executed_at = $3, dismissed_at = $4
		WHERE id = $1 AND state = 'active'
	`, s.ID, s.State, nullMillis(s.ExecutedAt), nullMillis(s.DismissedAt))
	if err != nil {
		return false, storeErr("update suggestion state", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storeErr("update suggestion state", err)
	}
	return n == 1, nil
}
