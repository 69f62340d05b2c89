package db

import "fmt"

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "create board_posts",
		sql: `
			CREATE TABLE IF NOT EXISTS board_posts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				author TEXT NOT NULL,
				body TEXT NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`,
	},
	{
		name: "create call_log",
		sql: `
			CREATE TABLE IF NOT EXISTS call_log (
				id TEXT PRIMARY KEY,
				username TEXT NOT NULL DEFAULT '',
				remote_addr TEXT NOT NULL,
				connected_at DATETIME NOT NULL,
				disconnected_at DATETIME,
				auth_failures INTEGER NOT NULL DEFAULT 0
			)
		`,
	},
}

func (db *DB) migrate() error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for i, m := range migrations {
		version := i + 1
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if count > 0 {
			continue
		}
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", version, m.name, err)
		}
		if _, err := db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %d: %w", version, err)
		}
	}
	return nil
}
