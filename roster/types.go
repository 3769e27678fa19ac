/*
Package roster provides the student record keeper core.

PURPOSE:
  Holds every student, subject, enrollment and grade/attendance record in
  memory, validates mutations against that state and writes the affected
  collection back through a Backend after each change.

KEY CONCEPTS IN THIS FILE (types.go):
  - Student: a learner identified by a caller-supplied ID
  - Subject: a course identified by a normalized code
  - Pair: the (student, subject) composite key for enrollments and records
  - Record: grade history plus attendance tally for one Pair

DESIGN PRINCIPLES:
  1. Immutability: students and subjects never change after creation
  2. Append-only grades: a grade, once recorded, stays in the list
  3. One normalization point: subject codes only pass through NormalizeCode

SEE ALSO:
  - codec.go: Line encoding of every entity
  - manager.go: Validation and persistence of mutations
  - report.go: Per-student summaries
*/
package roster

import "strings"

// =============================================================================
// ENTITIES
// =============================================================================

type Student struct {
	ID      string
	Name    string
	Section string
}

type Subject struct {
	Code        string
	Name        string
	CreditHours int
}

// NormalizeCode returns the canonical form of a subject code.
// Every lookup and every stored code goes through here.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// normalizeID trims a student ID. Fields are trimmed on load, so an
// untrimmed ID would not survive a round trip.
func normalizeID(id string) string {
	return strings.TrimSpace(id)
}

// =============================================================================
// PAIR - Composite key (student, subject)
// =============================================================================

// Pair identifies an enrollment and the record that belongs to it.
// Pair is comparable and is used directly as a map key.
type Pair struct {
	StudentID   string
	SubjectCode string
}

// NewPair builds a Pair with both halves normalized.
func NewPair(studentID, subjectCode string) Pair {
	return Pair{StudentID: normalizeID(studentID), SubjectCode: NormalizeCode(subjectCode)}
}

// Less orders pairs by student ID, then subject code.
func (p Pair) Less(o Pair) bool {
	if p.StudentID != o.StudentID {
		return p.StudentID < o.StudentID
	}
	return p.SubjectCode < o.SubjectCode
}

// =============================================================================
// RECORD - Grades and attendance for one Pair
// =============================================================================

// Record holds the grade history and attendance tally for one enrollment.
//
// INVARIANT: 0 <= Present <= Total
type Record struct {
	StudentID   string
	SubjectCode string
	Grades      []float64
	Present     int
	Total       int
}

func NewRecord(p Pair) *Record {
	return &Record{StudentID: p.StudentID, SubjectCode: p.SubjectCode}
}

func (r *Record) Key() Pair {
	return Pair{StudentID: r.StudentID, SubjectCode: r.SubjectCode}
}

func (r *Record) AddGrade(grade float64) {
	r.Grades = append(r.Grades, grade)
}

func (r *Record) MarkAttendance(present bool) {
	r.Total++
	if present {
		r.Present++
	}
}

// Clone returns a deep copy so callers cannot alias the grade slice.
func (r *Record) Clone() *Record {
	c := *r
	c.Grades = append([]float64(nil), r.Grades...)
	return &c
}
