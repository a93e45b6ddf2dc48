package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// runMigrations applies all schema migrations in order.
func (d *Database) runMigrations() error {
	return d.withLock(func() error {
		tx, err := d.db.Begin()
		if err != nil {
			return err
		}
		defer func() {
			if err != nil {
				tx.Rollback()
			}
		}()

		// Bootstrap: create db_meta and schema_migrations tables.
		if _, err = tx.Exec(`CREATE TABLE IF NOT EXISTS db_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`); err != nil {
			return fmt.Errorf("creating db_meta: %w", err)
		}

		if _, err = tx.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL,
			note TEXT
		)`); err != nil {
			return fmt.Errorf("creating schema_migrations: %w", err)
		}

		version := d.getSchemaVersion(tx)

		migrations := []struct {
			version int
			note    string
			fn      func(*sql.Tx) error
		}{
			{1, "initial schema", migrateV1},
			{2, "authentication", migrateV2},
			{3, "uploaded files", migrateV3},
		}

		for _, m := range migrations {
			if version >= m.version {
				continue
			}
			if err = m.fn(tx); err != nil {
				return fmt.Errorf("migration v%d (%s): %w", m.version, m.note, err)
			}
			now := time.Now().UTC().Format(time.RFC3339)
			if _, err = tx.Exec(
				`INSERT OR REPLACE INTO schema_migrations (version, applied_at, note) VALUES (?, ?, ?)`,
				m.version, now, m.note,
			); err != nil {
				return fmt.Errorf("recording migration v%d: %w", m.version, err)
			}
			if _, err = tx.Exec(
				`INSERT OR REPLACE INTO db_meta (key, value) VALUES ('schema_version', ?)`,
				fmt.Sprintf("%d", m.version),
			); err != nil {
				return fmt.Errorf("updating schema_version: %w", err)
			}
		}

		return tx.Commit()
	})
}

func (d *Database) getSchemaVersion(tx *sql.Tx) int {
	var val string
	err := tx.QueryRow(`SELECT value FROM db_meta WHERE key = 'schema_version'`).Scan(&val)
	if err != nil {
		return 0
	}
	var v int
	fmt.Sscanf(val, "%d", &v)
	return v
}

// migrateV1 creates the initial tables.
func migrateV1(tx *sql.Tx) error {
	stmts := []string{
		// Conversation sessions, keyed by user and session id.
		`CREATE TABLE IF NOT EXISTS sessions (
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			messages_json TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_updated ON sessions(user_id, updated_at DESC)`,

		// LLM usage logs
		`CREATE TABLE IF NOT EXISTS llm_usage_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL,
			request_kind TEXT NOT NULL DEFAULT 'agent_loop',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_llm_usage_user_created ON llm_usage_logs(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_llm_usage_created ON llm_usage_logs(created_at)`,
	}

	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:60], err)
		}
	}
	return nil
}

// migrateV2 adds authentication tables.
func migrateV2(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS auth_passwords (
			id INTEGER PRIMARY KEY CHECK(id = 1),
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS auth_sessions (
			session_id TEXT PRIMARY KEY,
			label TEXT,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			last_seen_at TEXT NOT NULL,
			revoked_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_auth_sessions_expires ON auth_sessions(expires_at)`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// migrateV3 adds the uploaded files catalog.
func migrateV3(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS uploaded_files (
			file_id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			stored_name TEXT NOT NULL,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_uploaded_files_created ON uploaded_files(created_at)`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
