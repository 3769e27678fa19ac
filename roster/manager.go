/*
manager.go - In-memory state plus validated, persisted mutations

PURPOSE:
  The Manager is the store the rest of the program talks to. It loads
  every collection once in Open, answers reads from memory, and for each
  mutation runs: validate -> mutate -> persist affected collection(s).

CRITICAL INVARIANTS:
  1. Every enrolled Pair referenced an existing student and subject when
     it was enrolled
  2. Grades and attendance are only recorded for enrolled Pairs
  3. Validation happens before any mutation; a rejected call changes
     neither memory nor storage
  4. If the Backend write fails the in-memory change is undone, so memory
     always matches the last successful write

PERSISTENCE:
  Each collection is rewritten in full. Enrollments are written sorted by
  (student ID, subject code); the others in insertion order.

SEE ALSO:
  - store.go: Backend interface
  - report.go: Read-only summaries over the same state
*/
package roster

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
)

// Manager owns the four collections. It is safe for use by concurrent
// callers; operations are serialized.
type Manager struct {
	mu      sync.Mutex
	backend Backend
	logger  *slog.Logger

	students     map[string]Student
	studentOrder []string

	subjects     map[string]Subject
	subjectOrder []string

	enrollments map[Pair]struct{}

	records     map[Pair]*Record
	recordOrder []Pair
}

type Option func(*Manager)

// WithLogger sets the logger used for mutation and rollback messages.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// Open loads every collection from backend and returns a ready Manager.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Manager, error) {
	m := &Manager{
		backend:     backend,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		students:    make(map[string]Student),
		subjects:    make(map[string]Subject),
		enrollments: make(map[Pair]struct{}),
		records:     make(map[Pair]*Record),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.load(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// =============================================================================
// LOAD
// =============================================================================

func (m *Manager) load(ctx context.Context) error {
	students, err := m.backend.LoadStudents(ctx)
	if err != nil {
		return fmt.Errorf("load students: %w", err)
	}
	for _, s := range students {
		m.putStudent(s)
	}

	subjects, err := m.backend.LoadSubjects(ctx)
	if err != nil {
		return fmt.Errorf("load subjects: %w", err)
	}
	for _, s := range subjects {
		m.putSubject(s)
	}

	pairs, err := m.backend.LoadEnrollments(ctx)
	if err != nil {
		return fmt.Errorf("load enrollments: %w", err)
	}
	for _, p := range pairs {
		m.enrollments[p] = struct{}{}
	}

	records, err := m.backend.LoadRecords(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	for _, r := range records {
		m.putRecord(r)
	}

	m.logger.Debug("roster loaded",
		"students", len(m.students),
		"subjects", len(m.subjects),
		"enrollments", len(m.enrollments),
		"records", len(m.records))
	return nil
}

// put* keep the first-seen position when a key repeats; the later value wins.

func (m *Manager) putStudent(s Student) {
	if _, ok := m.students[s.ID]; !ok {
		m.studentOrder = append(m.studentOrder, s.ID)
	}
	m.students[s.ID] = s
}

func (m *Manager) putSubject(s Subject) {
	if _, ok := m.subjects[s.Code]; !ok {
		m.subjectOrder = append(m.subjectOrder, s.Code)
	}
	m.subjects[s.Code] = s
}

func (m *Manager) putRecord(r *Record) {
	k := r.Key()
	if _, ok := m.records[k]; !ok {
		m.recordOrder = append(m.recordOrder, k)
	}
	m.records[k] = r
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AddStudent registers a new student.
func (m *Manager) AddStudent(ctx context.Context, id, name, section string) error {
	id, name, section = normalizeID(id), strings.TrimSpace(name), strings.TrimSpace(section)
	if err := firstError(
		checkKey("student id", id),
		checkText("name", name),
		checkText("section", section),
	); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.students[id]; ok {
		return &DuplicateKeyError{Kind: KindStudent, Key: id}
	}

	m.putStudent(Student{ID: id, Name: name, Section: section})
	if err := m.backend.SaveStudents(ctx, m.studentList()); err != nil {
		delete(m.students, id)
		m.studentOrder = m.studentOrder[:len(m.studentOrder)-1]
		return fmt.Errorf("save students: %w", err)
	}

	m.logger.Info("student added", "id", id)
	return nil
}

// AddSubject registers a new subject. The code is normalized first.
func (m *Manager) AddSubject(ctx context.Context, code, name string, creditHours int) error {
	code, name = NormalizeCode(code), strings.TrimSpace(name)
	if err := firstError(
		checkKey("subject code", code),
		checkText("name", name),
	); err != nil {
		return err
	}
	if creditHours < 0 {
		return &FieldError{Field: "credit hours", Reason: "must not be negative"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subjects[code]; ok {
		return &DuplicateKeyError{Kind: KindSubject, Key: code}
	}

	m.putSubject(Subject{Code: code, Name: name, CreditHours: creditHours})
	if err := m.backend.SaveSubjects(ctx, m.subjectList()); err != nil {
		delete(m.subjects, code)
		m.subjectOrder = m.subjectOrder[:len(m.subjectOrder)-1]
		return fmt.Errorf("save subjects: %w", err)
	}

	m.logger.Info("subject added", "code", code)
	return nil
}

// EnrollStudent enrolls a student in a subject and creates an empty record
// for the pair if none exists yet.
func (m *Manager) EnrollStudent(ctx context.Context, id, code string) error {
	p := NewPair(id, code)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.students[p.StudentID]; !ok {
		return &NotFoundError{Kind: KindStudent, Key: p.StudentID}
	}
	if _, ok := m.subjects[p.SubjectCode]; !ok {
		return &NotFoundError{Kind: KindSubject, Key: p.SubjectCode}
	}
	if _, ok := m.enrollments[p]; ok {
		return &DuplicateKeyError{Kind: KindEnrollment, Key: pairKey(p)}
	}

	m.enrollments[p] = struct{}{}
	_, hadRecord := m.records[p]
	if !hadRecord {
		m.putRecord(NewRecord(p))
	}

	undo := func() {
		delete(m.enrollments, p)
		if !hadRecord {
			delete(m.records, p)
			m.recordOrder = m.recordOrder[:len(m.recordOrder)-1]
		}
	}

	if err := m.backend.SaveEnrollments(ctx, m.enrollmentList()); err != nil {
		undo()
		return fmt.Errorf("save enrollments: %w", err)
	}
	if err := m.backend.SaveRecords(ctx, m.recordList()); err != nil {
		undo()
		if rerr := m.backend.SaveEnrollments(ctx, m.enrollmentList()); rerr != nil {
			m.logger.Warn("enrollment rollback not persisted", "pair", pairKey(p), "error", rerr)
		}
		return fmt.Errorf("save records: %w", err)
	}

	m.logger.Info("student enrolled", "student", p.StudentID, "subject", p.SubjectCode)
	return nil
}

// AddGrade appends a grade to an enrolled pair's record.
func (m *Manager) AddGrade(ctx context.Context, id, code string, grade float64) error {
	if math.IsNaN(grade) || math.IsInf(grade, 0) {
		return &FieldError{Field: "grade", Reason: "must be a finite number"}
	}
	return m.updateRecord(ctx, NewPair(id, code), func(r *Record) {
		r.AddGrade(grade)
	})
}

// MarkAttendance records one session for an enrolled pair.
func (m *Manager) MarkAttendance(ctx context.Context, id, code string, present bool) error {
	return m.updateRecord(ctx, NewPair(id, code), func(r *Record) {
		r.MarkAttendance(present)
	})
}

// updateRecord gates on enrollment, applies fn to the pair's record and
// persists records. The record is created if an enrolled pair lacks one.
func (m *Manager) updateRecord(ctx context.Context, p Pair, fn func(*Record)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.enrollments[p]; !ok {
		return &NotFoundError{Kind: KindEnrollment, Key: pairKey(p)}
	}

	rec, ok := m.records[p]
	var before *Record
	if ok {
		before = rec.Clone()
	} else {
		rec = NewRecord(p)
		m.putRecord(rec)
	}

	fn(rec)

	if err := m.backend.SaveRecords(ctx, m.recordList()); err != nil {
		if before != nil {
			m.records[p] = before
		} else {
			delete(m.records, p)
			m.recordOrder = m.recordOrder[:len(m.recordOrder)-1]
		}
		return fmt.Errorf("save records: %w", err)
	}

	m.logger.Debug("record updated", "student", p.StudentID, "subject", p.SubjectCode)
	return nil
}

// SaveAll rewrites every collection from memory. Lines skipped as
// malformed during load are dropped from storage by this call.
func (m *Manager) SaveAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.backend.SaveStudents(ctx, m.studentList()); err != nil {
		return fmt.Errorf("save students: %w", err)
	}
	if err := m.backend.SaveSubjects(ctx, m.subjectList()); err != nil {
		return fmt.Errorf("save subjects: %w", err)
	}
	if err := m.backend.SaveEnrollments(ctx, m.enrollmentList()); err != nil {
		return fmt.Errorf("save enrollments: %w", err)
	}
	if err := m.backend.SaveRecords(ctx, m.recordList()); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Students returns every student sorted by ID.
func (m *Manager) Students() []Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedStudents()
}

// Subjects returns every subject sorted by code.
func (m *Manager) Subjects() []Subject {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.subjectList()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (m *Manager) Student(id string) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.students[normalizeID(id)]
	if !ok {
		return Student{}, &NotFoundError{Kind: KindStudent, Key: normalizeID(id)}
	}
	return s, nil
}

func (m *Manager) Subject(code string) (Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code = NormalizeCode(code)
	s, ok := m.subjects[code]
	if !ok {
		return Subject{}, &NotFoundError{Kind: KindSubject, Key: code}
	}
	return s, nil
}

// Enrollments returns the subject codes a student is enrolled in, sorted.
func (m *Manager) Enrollments(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enrolledCodes(normalizeID(id))
}

// Record returns a copy of the pair's record.
func (m *Manager) Record(id, code string) (*Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[NewPair(id, code)]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// =============================================================================
// HELPERS (callers hold m.mu)
// =============================================================================

func (m *Manager) studentList() []Student {
	out := make([]Student, 0, len(m.studentOrder))
	for _, id := range m.studentOrder {
		out = append(out, m.students[id])
	}
	return out
}

func (m *Manager) sortedStudents() []Student {
	out := m.studentList()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Manager) subjectList() []Subject {
	out := make([]Subject, 0, len(m.subjectOrder))
	for _, code := range m.subjectOrder {
		out = append(out, m.subjects[code])
	}
	return out
}

func (m *Manager) enrollmentList() []Pair {
	out := make([]Pair, 0, len(m.enrollments))
	for p := range m.enrollments {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func (m *Manager) recordList() []*Record {
	out := make([]*Record, 0, len(m.recordOrder))
	for _, k := range m.recordOrder {
		out = append(out, m.records[k])
	}
	return out
}

func (m *Manager) enrolledCodes(studentID string) []string {
	var codes []string
	for p := range m.enrollments {
		if p.StudentID == studentID {
			codes = append(codes, p.SubjectCode)
		}
	}
	sort.Strings(codes)
	return codes
}

// =============================================================================
// VALIDATION
// =============================================================================

func checkKey(field, v string) error {
	if v == "" {
		return &FieldError{Field: field, Reason: "must not be empty"}
	}
	return checkText(field, v)
}

// checkText rejects values the line format cannot hold.
func checkText(field, v string) error {
	if strings.ContainsAny(v, "|\r\n") {
		return &FieldError{Field: field, Reason: "must not contain '|' or line breaks"}
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
