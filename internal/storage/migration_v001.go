package storage

import "database/sql"

// migrateV001 creates the initial selection-state schema. Every statement uses
// IF NOT EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS year_orders (
			year       INTEGER PRIMARY KEY,
			size       INTEGER NOT NULL,
			indices    TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS session_offsets (
			date_key       TEXT PRIMARY KEY,
			current_offset INTEGER,
			next_offset    INTEGER NOT NULL DEFAULT 0,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS used_verses (
			year        INTEGER NOT NULL,
			verse_index INTEGER NOT NULL,
			seq         INTEGER NOT NULL,
			used_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (year, verse_index)
		)`,

		`CREATE TABLE IF NOT EXISTS preferences (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// ── Indexes ─────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_used_verses_year_seq ON used_verses(year, seq)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	// ── Default preferences ─────────────────────────────────

	defaults := map[string]string{
		PrefRandomMode:     "true",
		PrefFallbackActive: "false",
	}
	for k, v := range defaults {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO preferences (key, value) VALUES (?, ?)", k, v,
		); err != nil {
			return err
		}
	}

	return nil
}
