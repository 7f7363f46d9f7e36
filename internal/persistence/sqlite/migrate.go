package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements creates every table. Each statement is idempotent so
// Migrate can run against an already-migrated store.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_name TEXT NOT NULL,
		endpoint TEXT NOT NULL DEFAULT '',
		node_id TEXT NOT NULL DEFAULT '',
		target_value TEXT NOT NULL DEFAULT '',
		data_type TEXT NOT NULL DEFAULT 'auto',
		rrule_str TEXT NOT NULL,
		category_id INTEGER NOT NULL DEFAULT 1,
		priority INTEGER NOT NULL DEFAULT 1,
		is_enabled INTEGER NOT NULL DEFAULT 1,
		security_policy TEXT NOT NULL DEFAULT '',
		security_mode TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT '',
		password TEXT NOT NULL DEFAULT '',
		timeout_seconds INTEGER NOT NULL DEFAULT 10,
		write_timeout_seconds INTEGER NOT NULL DEFAULT 10,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_exceptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		schedule_id INTEGER NOT NULL,
		occurrence_date TEXT NOT NULL,
		action TEXT NOT NULL,
		override_start TEXT,
		override_end TEXT,
		override_task_name TEXT,
		override_target_value TEXT,
		override_category_id INTEGER,
		note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (schedule_id, occurrence_date)
	)`,
	`CREATE TABLE IF NOT EXISTS holiday_calendars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		is_default INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS holiday_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		calendar_id INTEGER NOT NULL,
		holiday_date TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		is_full_day INTEGER NOT NULL DEFAULT 1,
		start_time TEXT,
		end_time TEXT,
		override_category_id INTEGER,
		override_target_value TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		bg_color TEXT NOT NULL,
		fg_color TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		is_system INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS general_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		profile_name TEXT NOT NULL DEFAULT 'default',
		enable_schedule INTEGER NOT NULL DEFAULT 1,
		scan_rate INTEGER NOT NULL DEFAULT 30,
		refresh_rate INTEGER NOT NULL DEFAULT 60,
		use_active_period INTEGER NOT NULL DEFAULT 0,
		active_from TEXT,
		active_to TEXT,
		output_type TEXT NOT NULL DEFAULT 'value',
		refresh_output INTEGER NOT NULL DEFAULT 0,
		generate_events INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS runtime_override (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		override_value TEXT NOT NULL,
		override_until TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_events (
		id TEXT PRIMARY KEY,
		occurrence_key TEXT NOT NULL,
		schedule_id INTEGER NOT NULL,
		value TEXT NOT NULL,
		status TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		executed_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_exceptions_schedule_date
		ON schedule_exceptions (schedule_id, occurrence_date)`,
	`CREATE INDEX IF NOT EXISTS idx_holiday_entries_date
		ON holiday_entries (holiday_date)`,
	`CREATE INDEX IF NOT EXISTS idx_events_executed_at
		ON schedule_events (executed_at)`,
}

// columnUpgrades lists columns added after the initial schema. Each entry is
// applied only when the column is missing, so re-running is harmless.
var columnUpgrades = []struct {
	table      string
	column     string
	definition string
}{
	{"schedules", "priority", "INTEGER NOT NULL DEFAULT 1"},
	{"schedules", "category_id", "INTEGER NOT NULL DEFAULT 1"},
	{"schedule_exceptions", "override_category_id", "INTEGER"},
	{"schedule_exceptions", "note", "TEXT NOT NULL DEFAULT ''"},
	{"holiday_entries", "override_category_id", "INTEGER"},
	{"holiday_entries", "override_target_value", "TEXT"},
	{"general_settings", "generate_events", "INTEGER NOT NULL DEFAULT 0"},
}

// seedCategories are inserted once, when the category table is empty.
var seedCategories = []struct {
	name string
	bg   string
	fg   string
}{
	{"Red", "#FF0000", "#FFFFFF"},
	{"Pink", "#FF69B4", "#FFFFFF"},
	{"Light Purple", "#DDA0DD", "#000000"},
	{"Green", "#00FF00", "#000000"},
	{"Blue", "#0000FF", "#FFFFFF"},
	{"Yellow", "#FFFF00", "#000000"},
	{"Orange", "#FFA500", "#000000"},
	{"Gray", "#808080", "#FFFFFF"},
}

// Migrate brings the schema up to date and seeds the system categories on
// first start. It is safe to call repeatedly.
func (s *Storage) Migrate(ctx context.Context) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("sqlite: apply schema: %w", err)
			}
		}
		for _, upgrade := range columnUpgrades {
			exists, err := columnExists(ctx, tx, upgrade.table, upgrade.column)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", upgrade.table, upgrade.column, upgrade.definition)
			if _, err := tx.ExecContext(ctx, alter); err != nil {
				return fmt.Errorf("sqlite: add column %s.%s: %w", upgrade.table, upgrade.column, err)
			}
		}
		return s.seedCategoriesLocked(ctx, tx)
	})
}

func columnExists(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("sqlite: inspect table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dflt      sql.NullString
			primaryPK int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &primaryPK); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func (s *Storage) seedCategoriesLocked(ctx context.Context, tx *sql.Tx) error {
	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("sqlite: count categories: %w", err)
	}
	if count > 0 {
		return nil
	}
	stamp := s.formatTime(s.now())
	for i, seed := range seedCategories {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, name, bg_color, fg_color, sort_order, is_system, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
			i+1, seed.name, seed.bg, seed.fg, i+1, stamp, stamp,
		)
		if err != nil {
			return fmt.Errorf("sqlite: seed category %s: %w", seed.name, err)
		}
	}
	return nil
}
