/*
Package sqlite provides a SQLite-backed implementation of roster.Backend.

PURPOSE:
  Same contract as the text-file backend, one database file instead of
  four text files. Useful when the data directory lives on storage where
  many small rewrites are slow, or when other tools want to query the
  data with SQL.

FULL-REPLACE SEMANTICS:
  Save* deletes every row of its table and inserts the given collection
  inside one SQL transaction. Unlike the text backend, a crash mid-save
  leaves the previous collection intact.

KEY TABLES:
  students:    id, name, section (position keeps insertion order)
  subjects:    code, name, credit_hours
  enrollments: (student_id, subject_code) primary key
  records:     student_id, subject_code, grades ("90,88.5"), present, total

ORDER:
  Rows carry a position column so Load* returns collections in the order
  they were saved. Enrollments are loaded sorted by key.

USAGE:
  store, err := sqlite.New("./data/records.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  mgr, err := roster.Open(ctx, store)

SEE ALSO:
  - roster/store.go: Backend contract
  - store/textfile: Default backend
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/student-records/roster"
)

// Store implements roster.Backend using SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *slog.Logger
}

type Option func(*Store)

// WithLogger sets the logger that receives skipped-row warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A ":memory:" database exists per connection.
	db.SetMaxOpenConns(1)

	store := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		position INTEGER NOT NULL,
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		section TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS subjects (
		position INTEGER NOT NULL,
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		credit_hours INTEGER NOT NULL CHECK (credit_hours >= 0)
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		student_id TEXT NOT NULL,
		subject_code TEXT NOT NULL,
		PRIMARY KEY (student_id, subject_code)
	);

	CREATE TABLE IF NOT EXISTS records (
		position INTEGER NOT NULL,
		student_id TEXT NOT NULL,
		subject_code TEXT NOT NULL,
		grades TEXT NOT NULL DEFAULT '',
		present INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (student_id, subject_code)
	);

	CREATE INDEX IF NOT EXISTS idx_students_position ON students(position);
	CREATE INDEX IF NOT EXISTS idx_subjects_position ON subjects(position);
	CREATE INDEX IF NOT EXISTS idx_records_position ON records(position);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOAD
// =============================================================================

func (s *Store) LoadStudents(ctx context.Context) ([]roster.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, section FROM students ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var out []roster.Student
	for rows.Next() {
		var st roster.Student
		if err := rows.Scan(&st.ID, &st.Name, &st.Section); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) LoadSubjects(ctx context.Context) ([]roster.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT code, name, credit_hours FROM subjects ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var out []roster.Subject
	for rows.Next() {
		var sub roster.Subject
		if err := rows.Scan(&sub.Code, &sub.Name, &sub.CreditHours); err != nil {
			return nil, err
		}
		sub.Code = roster.NormalizeCode(sub.Code)
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) LoadEnrollments(ctx context.Context) ([]roster.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT student_id, subject_code FROM enrollments ORDER BY student_id, subject_code")
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	var out []roster.Pair
	for rows.Next() {
		var sid, code string
		if err := rows.Scan(&sid, &code); err != nil {
			return nil, err
		}
		out = append(out, roster.NewPair(sid, code))
	}
	return out, rows.Err()
}

func (s *Store) LoadRecords(ctx context.Context) ([]*roster.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT student_id, subject_code, grades, present, total FROM records ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []*roster.Record
	for rows.Next() {
		var sid, code, grades string
		var present, total int
		if err := rows.Scan(&sid, &code, &grades, &present, &total); err != nil {
			return nil, err
		}
		parsed, ok := roster.ParseGrades(grades)
		if !ok || present < 0 || present > total {
			s.logger.Warn("skipping malformed record row", "student", sid, "subject", code)
			continue
		}
		rec := roster.NewRecord(roster.NewPair(sid, code))
		rec.Grades, rec.Present, rec.Total = parsed, present, total
		out = append(out, rec)
	}
	return out, rows.Err()
}

// =============================================================================
// SAVE (full replace inside one transaction)
// =============================================================================

func (s *Store) SaveStudents(ctx context.Context, students []roster.Student) error {
	return s.replace(ctx, "students", func(tx *sql.Tx) error {
		for i, st := range students {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO students (position, id, name, section) VALUES (?, ?, ?, ?)",
				i, st.ID, st.Name, st.Section,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SaveSubjects(ctx context.Context, subjects []roster.Subject) error {
	return s.replace(ctx, "subjects", func(tx *sql.Tx) error {
		for i, sub := range subjects {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO subjects (position, code, name, credit_hours) VALUES (?, ?, ?, ?)",
				i, sub.Code, sub.Name, sub.CreditHours,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SaveEnrollments(ctx context.Context, pairs []roster.Pair) error {
	return s.replace(ctx, "enrollments", func(tx *sql.Tx) error {
		for _, p := range pairs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO enrollments (student_id, subject_code) VALUES (?, ?)",
				p.StudentID, p.SubjectCode,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SaveRecords(ctx context.Context, records []*roster.Record) error {
	return s.replace(ctx, "records", func(tx *sql.Tx) error {
		for i, r := range records {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO records (position, student_id, subject_code, grades, present, total)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				i, r.StudentID, r.SubjectCode, roster.FormatGrades(r.Grades, ","), r.Present, r.Total,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// replace empties table and runs insert in the same transaction.
// table is always one of the fixed names above.
func (s *Store) replace(ctx context.Context, table string, insert func(*sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return tx.Commit()
}

// Reset clears every table.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"records", "enrollments", "subjects", "students"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}
