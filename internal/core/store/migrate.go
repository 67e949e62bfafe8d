package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Multi-valued fields (skills, allowed branches) are stored as JSON string
// arrays so set filters can use json_each instead of a join table.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT,
		roll_number TEXT NOT NULL UNIQUE,
		branch TEXT NOT NULL,
		cgpa REAL NOT NULL,
		backlogs INTEGER NOT NULL DEFAULT 0,
		passing_year INTEGER NOT NULL,
		skills TEXT NOT NULL DEFAULT '[]',
		resume_link TEXT,
		placed INTEGER NOT NULL DEFAULT 0,
		placed_company TEXT,
		package REAL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_students_branch ON students(branch);`,
	`CREATE INDEX IF NOT EXISTS idx_students_cgpa ON students(cgpa);`,
	`CREATE INDEX IF NOT EXISTS idx_students_placed ON students(placed);`,
	`CREATE INDEX IF NOT EXISTS idx_students_name ON students(name, id);`,
	`CREATE TABLE IF NOT EXISTS drives (
		id TEXT PRIMARY KEY,
		company_name TEXT NOT NULL,
		role TEXT NOT NULL,
		package REAL NOT NULL,
		min_cgpa REAL NOT NULL DEFAULT 0,
		max_backlogs INTEGER NOT NULL DEFAULT 0,
		branches_allowed TEXT NOT NULL DEFAULT '[]',
		skills_required TEXT NOT NULL DEFAULT '[]',
		recruitment_date INTEGER NOT NULL,
		eligible_count INTEGER NOT NULL DEFAULT 0,
		applied_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'upcoming',
		description TEXT,
		location TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_drives_status ON drives(status);`,
	`CREATE INDEX IF NOT EXISTS idx_drives_date ON drives(recruitment_date, id);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	if err := s.ensureColumn(ctx, "students", "resume_link", "TEXT"); err != nil {
		return err
	}
	if err := s.ensureColumn(ctx, "drives", "location", "TEXT"); err != nil {
		return err
	}

	return nil
}

func (s *Store) ensureColumn(ctx context.Context, table, column, columnDef string) error {
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("inspect %s schema: %w", table, err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("inspect %s columns: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect %s columns: %w", table, err)
	}

	if _, err := s.DB.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, columnDef)); err != nil {
		return fmt.Errorf("add %s.%s column: %w", table, column, err)
	}

	return nil
}
