package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users and teams",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(120) NOT NULL,
					email VARCHAR(255) NOT NULL UNIQUE,
					role VARCHAR(32) NOT NULL DEFAULT 'contributor',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS teams (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(120) NOT NULL UNIQUE,
					department VARCHAR(64) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_users_email ON users(email);
				CREATE INDEX idx_teams_department ON teams(department);
			`,
		},
		{
			Version:     2,
			Description: "Create sops",
			SQL: `
				CREATE TABLE IF NOT EXISTS sops (
					id BIGSERIAL PRIMARY KEY,
					sop_key VARCHAR(64) NOT NULL UNIQUE,
					title VARCHAR(255) NOT NULL,
					department VARCHAR(64) NOT NULL,
					status VARCHAR(24) NOT NULL DEFAULT 'draft',
					version INT NOT NULL DEFAULT 1,
					content_md TEXT,
					content_json JSONB,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_sops_department ON sops(department);
				CREATE INDEX idx_sops_status ON sops(status);
			`,
		},
		{
			Version:     3,
			Description: "Create membership and restriction edges",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_teams (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
					UNIQUE(user_id, team_id)
				);

				CREATE TABLE IF NOT EXISTS sop_allowed_teams (
					id BIGSERIAL PRIMARY KEY,
					sop_id BIGINT NOT NULL REFERENCES sops(id) ON DELETE CASCADE,
					team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
					UNIQUE(sop_id, team_id)
				);

				CREATE INDEX idx_user_teams_user_id ON user_teams(user_id);
				CREATE INDEX idx_sop_allowed_teams_sop_id ON sop_allowed_teams(sop_id);
			`,
		},
		{
			Version:     4,
			Description: "Create runs and run steps",
			SQL: `
				CREATE TABLE IF NOT EXISTS runs (
					id BIGSERIAL PRIMARY KEY,
					sop_id BIGINT NOT NULL REFERENCES sops(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL,
					started_at TIMESTAMP NOT NULL DEFAULT NOW(),
					completed_at TIMESTAMP,
					passed BOOLEAN,
					exception_note VARCHAR(500)
				);

				CREATE TABLE IF NOT EXISTS run_steps (
					id BIGSERIAL PRIMARY KEY,
					run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
					step_no INT NOT NULL,
					checked_at TIMESTAMP,
					UNIQUE(run_id, step_no)
				);

				CREATE INDEX idx_runs_sop_id ON runs(sop_id);
				CREATE INDEX idx_runs_user_id ON runs(user_id);
				CREATE INDEX idx_run_steps_run_id ON run_steps(run_id);
			`,
		},
		{
			Version:     5,
			Description: "Create suggestions",
			SQL: `
				CREATE TABLE IF NOT EXISTS suggestions (
					id BIGSERIAL PRIMARY KEY,
					sop_id BIGINT NOT NULL REFERENCES sops(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL,
					raw_text VARCHAR(2000) NOT NULL,
					ai_summary VARCHAR(1000),
					ai_changeset_json JSONB,
					status VARCHAR(16) NOT NULL DEFAULT 'queued',
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_suggestions_sop_id ON suggestions(sop_id);
				CREATE INDEX idx_suggestions_status ON suggestions(status);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := conn.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
