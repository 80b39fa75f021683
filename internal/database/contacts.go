package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
)

// ContactRepository handles contact database operations
type ContactRepository struct {
	changeNotifier
	db *DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *DB) *ContactRepository {
	return &ContactRepository{db: db}
}

const contactColumns = `id, user_id, name, phone_number, relationship, is_frequent, last_contacted_at, created_at, updated_at`

func scanContact(row interface{ Scan(...any) error }) (*models.Contact, error) {
	c := &models.Contact{}
	var last sql.NullInt64
	var created, updated int64
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.PhoneNumber, &c.Relationship, &c.IsFrequent,
		&last, &created, &updated); err != nil {
		return nil, err
	}
	c.LastContactedAt = timePtr(last)
	c.CreatedAt, c.UpdatedAt = fromMillis(created), fromMillis(updated)
	return c, nil
}

// Create inserts a contact
func (r *ContactRepository) Create(ctx context.Context, c *models.Contact) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := r.db.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (`+contactColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.UserID, c.Name, c.PhoneNumber, c.Relationship, c.IsFrequent, nullMillis(c.LastContactedAt),
		millis(now), millis(now))
	if err != nil {
		return storeErr("create contact", err)
	}
	c.CreatedAt, c.UpdatedAt = now, now

	r.notify(ctx, c.UserID, models.CollectionContacts)
	return nil
}

// GetByID retrieves a contact by ID
func (r *ContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("contact", id.String())
	}
	if err != nil {
		return nil, storeErr("get contact", err)
	}
	return c, nil
}

// ListByUser returns the user's contacts, frequent ones first, then by name.
func (r *ContactRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1
		ORDER BY is_frequent DESC, name ASC, id ASC
	`, userID)
	if err != nil {
		return nil, storeErr("list contacts", err)
	}
	defer closeRows(rows)

	var out []*models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, storeErr("scan contact", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate contacts", err)
	}
	return out, nil
}

// Update replaces the editable fields of a contact owned by c.UserID
func (r *ContactRepository) Update(ctx context.Context, c *models.Contact) error {
	now := r.db.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE contacts
		SET name = $3, phone_number = $4, relationship = $5, is_frequent = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2
	`, c.ID, c.UserID, c.Name, c.PhoneNumber, c.Relationship, c.IsFrequent, millis(now))
	if err != nil {
		return storeErr("update contact", err)
	}
	if err := expectOne(result, "update contact", "contact", c.ID); err != nil {
		return err
	}
	c.UpdatedAt = now

	r.notify(ctx, c.UserID, models.CollectionContacts)
	return nil
}

// MarkContacted stamps last_contacted_at with the current instant.
func (r *ContactRepository) MarkContacted(ctx context.Context, userID, id uuid.UUID) (*models.Contact, error) {
	now := r.db.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET last_contacted_at = $3, updated_at = $3
		WHERE id = $1 AND user_id = $2
	`, id, userID, millis(now))
	if err != nil {
		return nil, storeErr("mark contact contacted", err)
	}
	if err := expectOne(result, "mark contact contacted", "contact", id); err != nil {
		return nil, err
	}

	r.notify(ctx, userID, models.CollectionContacts)
	return r.GetByID(ctx, id)
}

// Delete deletes a contact owned by userID
func (r *ContactRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return storeErr("delete contact", err)
	}
	if err := expectOne(result, "delete contact", "contact", id); err != nil {
		return err
	}

	r.notify(ctx, userID, models.CollectionContacts)
	return nil
}

func expectOne(result sql.Result, op, entity string, id uuid.UUID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return storeErr(op, err)
	}
	if n == 0 {
		return apperrors.NewNotFound(entity, id.String())
	}
	return nil
}
