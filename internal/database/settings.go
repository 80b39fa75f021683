package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/moodhome/internal/models"
)

// CorsConfigRepository stores the operator CORS policy.
type CorsConfigRepository struct {
	db *DB
}

func NewCorsConfigRepository(db *DB) *CorsConfigRepository {
	return &CorsConfigRepository{db: db}
}

// Get returns the stored policy, or nil, nil when the operator has not set one.
func (r *CorsConfigRepository) Get(ctx context.Context) (*models.CorsConfig, error) {
	var (
		c                models.CorsConfig
		created, updated int64
	)
	row := r.db.QueryRowContext(ctx, `
		SELECT config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at
		FROM cors_config WHERE config_key = $1
	`, models.SettingsKey)
	if err := row.Scan(&c.ConfigKey, &c.AllowedOrigins, &c.AllowCredentials, &c.MaxAge, &created, &updated); err != nil {
		return nil, settingsErr("cors", err)
	}
	c.CreatedAt, c.UpdatedAt = fromMillis(created), fromMillis(updated)
	return &c, nil
}

// Set replaces the policy. Origins are normalised before they are stored.
func (r *CorsConfigRepository) Set(ctx context.Context, c *models.CorsConfig) error {
	origins := models.SplitOrigins(c.AllowedOrigins)
	if len(origins) == 0 {
		return fmt.Errorf("allowed_origins cannot be empty")
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("max_age cannot be negative")
	}
	c.ConfigKey = models.SettingsKey
	c.AllowedOrigins = strings.Join(origins, ",")
	return r.db.upsertSettings(ctx, "cors_config",
		[]string{"allowed_origins", "allow_credentials", "max_age"},
		c.AllowedOrigins, c.AllowCredentials, c.MaxAge)
}

// RatelimitConfigRepository stores the per-client request rate.
type RatelimitConfigRepository struct {
	db *DB
}

func NewRatelimitConfigRepository(db *DB) *RatelimitConfigRepository {
	return &RatelimitConfigRepository{db: db}
}

// Get returns the stored rate, or nil, nil when unset.
func (r *RatelimitConfigRepository) Get(ctx context.Context) (*models.RatelimitConfig, error) {
	var (
		c                models.RatelimitConfig
		created, updated int64
	)
	row := r.db.QueryRowContext(ctx, `
		SELECT config_key, rate, created_at, updated_at
		FROM ratelimit_config WHERE config_key = $1
	`, models.SettingsKey)
	if err := row.Scan(&c.ConfigKey, &c.Rate, &created, &updated); err != nil {
		return nil, settingsErr("ratelimit", err)
	}
	c.CreatedAt, c.UpdatedAt = fromMillis(created), fromMillis(updated)
	return &c, nil
}

// Set replaces the rate. Format validation is left to the caller, which
// knows the limiter in use.
func (r *RatelimitConfigRepository) Set(ctx context.Context, c *models.RatelimitConfig) error {
	c.Rate = strings.TrimSpace(c.Rate)
	if c.Rate == "" {
		return fmt.Errorf("rate cannot be empty")
	}
	c.ConfigKey = models.SettingsKey
	return r.db.upsertSettings(ctx, "ratelimit_config", []string{"rate"}, c.Rate)
}

// upsertSettings writes the single settings row of table. cols and vals pair
// up; created_at is only set on insert.
func (db *DB) upsertSettings(ctx context.Context, table string, cols []string, vals ...any) error {
	now := millis(db.Now())

	placeholders := make([]string, 0, len(cols)+3)
	updates := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(vals)+3)

	args = append(args, models.SettingsKey)
	placeholders = append(placeholders, "$1")
	for i, col := range cols {
		args = append(args, vals[i])
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	args = append(args, now, now)
	placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)-1), fmt.Sprintf("$%d", len(args)))
	updates = append(updates, "updated_at = EXCLUDED.updated_at")

	query := fmt.Sprintf(
		"INSERT INTO %s (config_key, %s, created_at, updated_at) VALUES (%s) ON CONFLICT (config_key) DO UPDATE SET %s",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "),
	)
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set %s: %w", table, err)
	}
	return nil
}

func settingsErr(kind string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return fmt.Errorf("get %s config: %w", kind, err)
}
