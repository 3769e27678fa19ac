/*
Package textfile provides the flat-file implementation of roster.Backend.

FILES (under one data directory):
  students.txt     S1 | Ann Lee | A
  subjects.txt     CS101 | Intro to CS | 3
  enrollments.txt  S1 | CS101
  records.txt      S1 | CS101 | grades=[90,88.5] | attendance=3/5

LOADING:
  New creates the directory and any missing file (empty). Blank lines are
  ignored. Lines that do not decode are skipped and logged at WARN; they
  never fail a load.

WRITING:
  Save* truncates the file and writes the whole collection. The file is
  opened, written, flushed and closed before the call returns. There is
  no temp-file rename, so a crash mid-write can leave a truncated file.

SEE ALSO:
  - roster/codec.go: Line encoding
  - roster/store.go: Backend contract
*/
package textfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/warp/student-records/roster"
)

const (
	StudentsFile    = "students.txt"
	SubjectsFile    = "subjects.txt"
	EnrollmentsFile = "enrollments.txt"
	RecordsFile     = "records.txt"
)

var allFiles = []string{StudentsFile, SubjectsFile, EnrollmentsFile, RecordsFile}

// Store implements roster.Backend over four text files.
type Store struct {
	dir    string
	logger *slog.Logger
}

type Option func(*Store)

// WithLogger sets the logger that receives skipped-line warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New prepares dir for use, creating it and any missing file.
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		dir:    dir,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	for _, name := range allFiles {
		if err := ensureFile(s.Path(name)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the full path of one of the backing files.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

func ensureFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// =============================================================================
// LOAD
// =============================================================================

func (s *Store) LoadStudents(ctx context.Context) ([]roster.Student, error) {
	return load(ctx, s, StudentsFile, roster.DecodeStudent)
}

func (s *Store) LoadSubjects(ctx context.Context) ([]roster.Subject, error) {
	return load(ctx, s, SubjectsFile, roster.DecodeSubject)
}

func (s *Store) LoadEnrollments(ctx context.Context) ([]roster.Pair, error) {
	return load(ctx, s, EnrollmentsFile, roster.DecodePair)
}

func (s *Store) LoadRecords(ctx context.Context) ([]*roster.Record, error) {
	return load(ctx, s, RecordsFile, roster.DecodeRecord)
}

func load[T any](ctx context.Context, s *Store, name string, decode func(string) (T, bool)) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	var out []T
	r := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			if v, ok := decode(trimmed); ok {
				out = append(out, v)
			} else {
				s.logger.Warn("skipping malformed line", "file", name, "line", lineNo)
			}
		}
		if errors.Is(err, io.EOF) {
			return out, nil
		}
	}
}

// =============================================================================
// SAVE
// =============================================================================

func (s *Store) SaveStudents(ctx context.Context, students []roster.Student) error {
	return save(ctx, s, StudentsFile, students, roster.EncodeStudent)
}

func (s *Store) SaveSubjects(ctx context.Context, subjects []roster.Subject) error {
	return save(ctx, s, SubjectsFile, subjects, roster.EncodeSubject)
}

func (s *Store) SaveEnrollments(ctx context.Context, pairs []roster.Pair) error {
	return save(ctx, s, EnrollmentsFile, pairs, roster.EncodePair)
}

func (s *Store) SaveRecords(ctx context.Context, records []*roster.Record) error {
	return save(ctx, s, RecordsFile, records, roster.EncodeRecord)
}

// Reset truncates every backing file.
func (s *Store) Reset(ctx context.Context) error {
	for _, name := range allFiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Truncate(s.Path(name), 0); err != nil {
			return fmt.Errorf("reset %s: %w", name, err)
		}
	}
	return nil
}

func save[T any](ctx context.Context, s *Store, name string, items []T, encode func(T) string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Create(s.Path(name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", name, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	for _, item := range items {
		if _, err := w.WriteString(encode(item)); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
