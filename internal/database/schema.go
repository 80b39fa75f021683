package database

import (
	"context"
	"fmt"
)

// Instants are stored as Unix milliseconds so both drivers sort and compare
// them the same way.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		provider_id TEXT UNIQUE,
		name TEXT,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS check_ins (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		emotions TEXT NOT NULL,
		note TEXT,
		display_timestamp TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		suggestions_generated_at BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_check_ins_user_created ON check_ins (user_id, created_at)`,
	// Suggestions are never deleted with their check-in; they only change state.
	`CREATE TABLE IF NOT EXISTS automation_suggestions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		check_in_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		suggestion_type TEXT NOT NULL,
		priority TEXT NOT NULL,
		actions TEXT NOT NULL,
		reasoning TEXT NOT NULL,
		estimated_duration TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'active',
		created_at BIGINT NOT NULL,
		executed_at BIGINT,
		dismissed_at BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_suggestions_user_state ON automation_suggestions (user_id, state)`,
	`CREATE INDEX IF NOT EXISTS idx_suggestions_check_in ON automation_suggestions (check_in_id)`,
	`CREATE TABLE IF NOT EXISTS contacts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		relationship TEXT NOT NULL,
		is_frequent BOOLEAN NOT NULL DEFAULT FALSE,
		last_contacted_at BIGINT,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_user ON contacts (user_id)`,
	// Execution records outlive the check-in and suggestion they describe.
	`CREATE TABLE IF NOT EXISTS automation_executions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		suggestion_id TEXT NOT NULL UNIQUE,
		check_in_id TEXT NOT NULL,
		action_taken TEXT NOT NULL,
		executed_at BIGINT NOT NULL,
		was_helpful BOOLEAN,
		feedback TEXT,
		completion_status TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_user ON automation_executions (user_id, executed_at)`,
	`CREATE TABLE IF NOT EXISTS oidc_config (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL UNIQUE,
		issuer TEXT NOT NULL,
		domain TEXT,
		client_id TEXT NOT NULL,
		client_secret TEXT,
		redirect_uri TEXT NOT NULL,
		jwks_url TEXT,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cors_config (
		config_key TEXT PRIMARY KEY,
		allowed_origins TEXT NOT NULL,
		allow_credentials BOOLEAN NOT NULL DEFAULT FALSE,
		max_age INTEGER NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ratelimit_config (
		config_key TEXT PRIMARY KEY,
		rate TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
}

// migrate creates any missing tables and indexes. Every statement is idempotent.
func (db *DB) migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
