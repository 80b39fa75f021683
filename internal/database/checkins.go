package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
)

// CheckInRepository handles check-in database operations
type CheckInRepository struct {
	changeNotifier
	db *DB
}

// NewCheckInRepository creates a new check-in repository
func NewCheckInRepository(db *DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

const checkInColumns = `id, user_id, emotions, note, display_timestamp, created_at, updated_at`

func scanCheckIn(row interface{ Scan(...any) error }) (*models.CheckIn, error) {
	c := &models.CheckIn{}
	var emotions string
	var created, updated int64
	if err := row.Scan(&c.ID, &c.UserID, &emotions, &c.Note, &c.Timestamp, &created, &updated); err != nil {
		return nil, err
	}
	if err := unmarshalList(emotions, &c.Emotions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal emotions: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = fromMillis(created), fromMillis(updated)
	return c, nil
}

func unmarshalList(raw string, dst *[]string) error {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return err
	}
	if *dst == nil {
		*dst = []string{}
	}
	return nil
}

func marshalList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Create inserts a check-in and assigns its creation instant.
func (r *CheckInRepository) Create(ctx context.Context, c *models.CheckIn) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	emotions, err := marshalList(c.Emotions)
	if err != nil {
		return fmt.Errorf("failed to marshal emotions: %w", err)
	}

	now := r.db.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO check_ins (`+checkInColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.UserID, emotions, c.Note, c.Timestamp, millis(now), millis(now))
	if err != nil {
		return storeErr("create check-in", err)
	}
	c.CreatedAt, c.UpdatedAt = now, now

	r.notify(ctx, c.UserID, models.CollectionCheckIns)
	return nil
}

// GetByID retrieves a check-in by ID
func (r *CheckInRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CheckIn, error) {
	c, err := scanCheckIn(r.db.QueryRowContext(ctx,
		`SELECT `+checkInColumns+` FROM check_ins WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("check-in", id.String())
	}
	if err != nil {
		return nil, storeErr("get check-in", err)
	}
	return c, nil
}

// ListRecent returns the user's most recent check-ins, newest first.
func (r *CheckInRepository) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.CheckIn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+checkInColumns+`
		FROM check_ins
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, storeErr("list check-ins", err)
	}
	defer closeRows(rows)
	return collectCheckIns(rows)
}

// ListWithoutSuggestions returns check-ins created at or after since whose
// suggestion generation has never completed, oldest first. A generation that
// produced no suggestions still counts as completed.
func (r *CheckInRepository) ListWithoutSuggestions(ctx context.Context, since time.Time, limit int) ([]*models.CheckIn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+checkInColumns+`
		FROM check_ins
		WHERE created_at >= $1 AND suggestions_generated_at IS NULL
		ORDER BY created_at ASC
		LIMIT $2
	`, millis(since), limit)
	if err != nil {
		return nil, storeErr("list check-ins without suggestions", err)
	}
	defer closeRows(rows)
	return collectCheckIns(rows)
}

func collectCheckIns(rows *sql.Rows) ([]*models.CheckIn, error) {
	var out []*models.CheckIn
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, storeErr("scan check-in", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate check-ins", err)
	}
	return out, nil
}

// Update replaces the emotions, note and display timestamp of a check-in
// owned by c.UserID. The creation instant is unchanged.
func (r *CheckInRepository) Update(ctx context.Context, c *models.CheckIn) error {
	emotions, err := marshalList(c.Emotions)
	if err != nil {
		return fmt.Errorf("failed to marshal emotions: %w", err)
	}
	now := r.db.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE check_ins
		SET emotions = $3, note = $4, display_timestamp = $5, updated_at = $6
		WHERE id = $1 AND user_id = $2
	`, c.ID, c.UserID, emotions, c.Note, c.Timestamp, millis(now))
	if err != nil {
		return storeErr("update check-in", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return storeErr("update check-in", err)
	} else if n == 0 {
		return apperrors.NewNotFound("check-in", c.ID.String())
	}
	c.UpdatedAt = now

	r.notify(ctx, c.UserID, models.CollectionCheckIns)
	return nil
}

// Delete removes a check-in. Its suggestions are kept: active ones are
// dismissed, terminal ones are left as they are. Execution records are kept.
func (r *CheckInRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM check_ins WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return storeErr("delete check-in", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return storeErr("delete check-in", err)
		} else if n == 0 {
			return apperrors.NewNotFound("check-in", id.String())
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE automation_suggestions
			SET state = 'dismissed', dismissed_at = $3
			WHERE check_in_id = $1 AND user_id = $2 AND state = 'active'
		`, id, userID, millis(r.db.Now())); err != nil {
			return storeErr("dismiss check-in suggestions", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.notify(ctx, userID, models.CollectionCheckIns, models.CollectionSuggestions)
	return nil
}
