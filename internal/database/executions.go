package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
)

// ExecutionRepository reads the append-only execution audit log. Records are
// written only by SuggestionRepository.Execute.
type ExecutionRepository struct {
	db *DB
}

// NewExecutionRepository creates a new execution repository
func NewExecutionRepository(db *DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

const executionColumns = `id, user_id, suggestion_id, check_in_id, action_taken, executed_at, was_helpful, feedback, completion_status`

func scanExecution(row interface{ Scan(...any) error }) (*models.AutomationExecution, error) {
	e := &models.AutomationExecution{}
	var executed int64
	var helpful sql.NullBool
	if err := row.Scan(&e.ID, &e.UserID, &e.SuggestionID, &e.CheckInID, &e.ActionTaken, &executed,
		&helpful, &e.Feedback, &e.CompletionStatus); err != nil {
		return nil, err
	}
	e.ExecutedAt = fromMillis(executed)
	if helpful.Valid {
		e.WasHelpful = &helpful.Bool
	}
	return e, nil
}

func insertExecution(ctx context.Context, tx *sql.Tx, e *models.AutomationExecution) error {
	var helpful sql.NullBool
	if e.WasHelpful != nil {
		helpful = sql.NullBool{Bool: *e.WasHelpful, Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO automation_executions (`+executionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.UserID, e.SuggestionID, e.CheckInID, e.ActionTaken, millis(e.ExecutedAt), helpful, e.Feedback, e.CompletionStatus)
	return storeErr("record execution", err)
}

// ListByUser returns the user's execution records, newest first.
func (r *ExecutionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AutomationExecution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+executionColumns+`
		FROM automation_executions
		WHERE user_id = $1
		ORDER BY executed_at DESC, id ASC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, storeErr("list executions", err)
	}
	defer closeRows(rows)

	var out []*models.AutomationExecution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, storeErr("scan execution", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate executions", err)
	}
	return out, nil
}

// GetBySuggestion returns the execution record for a suggestion.
func (r *ExecutionRepository) GetBySuggestion(ctx context.Context, suggestionID uuid.UUID) (*models.AutomationExecution, error) {
	e, err := scanExecution(r.db.QueryRowContext(ctx,
		`SELECT `+executionColumns+` FROM automation_executions WHERE suggestion_id = $1`, suggestionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("execution", suggestionID.String())
	}
	if err != nil {
		return nil, storeErr("get execution", err)
	}
	return e, nil
}
