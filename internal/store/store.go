// Package store persists the caseload roster, logged sessions and backend users in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		grade_level INTEGER,
		disability_category TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS subject_areas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS goals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_area_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		FOREIGN KEY (subject_area_id) REFERENCES subject_areas(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS objectives (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL,
		subject_area_id INTEGER NOT NULL,
		goal_id INTEGER,
		description TEXT NOT NULL,
		objective_type TEXT NOT NULL CHECK (objective_type IN ('binary', 'trial')),
		target_accuracy REAL NOT NULL DEFAULT 0,
		target_consistency_successes INTEGER NOT NULL DEFAULT 0,
		target_consistency_trials INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE,
		FOREIGN KEY (subject_area_id) REFERENCES subject_areas(id) ON DELETE CASCADE,
		FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS session_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL,
		objective_id INTEGER NOT NULL,
		memo TEXT NOT NULL DEFAULT '',
		logged_at DATETIME NOT NULL,
		trials_completed INTEGER NOT NULL,
		trials_total INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE,
		FOREIGN KEY (objective_id) REFERENCES objectives(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_session_logs_student ON session_logs(student_id, logged_at);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'case_manager',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS api_tokens (
		token_hash TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		issued_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		last_used_at DATETIME,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_api_tokens_user ON api_tokens(user_id);

	CREATE TABLE IF NOT EXISTS caseload_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return err
}
