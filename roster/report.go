/*
report.go - Per-student summaries and the student listing

PURPOSE:
  Derives reports from in-memory state only. Nothing here touches the
  Backend.

OVERALL SNAPSHOT:
  The "GPA-like average" is the plain mean of each enrolled subject's
  average grade. Subjects without grades do not contribute, and credit
  hours are NOT used as weights.

ROUNDING:
  Averages and percentages are kept unrounded until rendering, then
  rounded to two places (see FormatRounded).
*/
package roster

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinels used in rendered text.
const (
	NotAvailable   = "N/A"
	NoRecord       = "(no record)"
	NoGrades       = "(no grades)"
	NoEnrollments  = "(No subjects enrolled)"
	NoStudents     = "(no students)"
	unknownSubject = "UNKNOWN"
)

// StudentReport is the structured form of a student's report.
type StudentReport struct {
	Student  Student
	Subjects []SubjectReport
	Overall  decimal.NullDecimal
}

// SubjectReport summarizes one enrollment. Record is nil when the pair has
// no record; Known is false when the subject code is not registered.
type SubjectReport struct {
	Subject           Subject
	Known             bool
	Record            *Record
	Average           decimal.NullDecimal
	AttendancePercent decimal.NullDecimal
}

// BuildReport assembles the report for one student, subjects sorted by code.
func (m *Manager) BuildReport(id string) (*StudentReport, error) {
	id = normalizeID(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.students[id]
	if !ok {
		return nil, &NotFoundError{Kind: KindStudent, Key: id}
	}

	rep := &StudentReport{Student: s}
	var averages []decimal.Decimal
	for _, code := range m.enrolledCodes(id) {
		sub, known := m.subjects[code]
		if !known {
			sub = Subject{Code: code}
		}
		sr := SubjectReport{Subject: sub, Known: known}
		if rec, ok := m.records[Pair{StudentID: id, SubjectCode: code}]; ok {
			sr.Record = rec.Clone()
			sr.Average = rec.Average()
			sr.AttendancePercent = rec.AttendancePercent()
			if sr.Average.Valid {
				averages = append(averages, sr.Average.Decimal)
			}
		}
		rep.Subjects = append(rep.Subjects, sr)
	}
	rep.Overall = Mean(averages)
	return rep, nil
}

// StudentReport renders the text report for one student.
func (m *Manager) StudentReport(id string) (string, error) {
	rep, err := m.BuildReport(id)
	if err != nil {
		return "", err
	}
	return rep.String(), nil
}

func (r *StudentReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Student ID: %s\n", r.Student.ID)
	fmt.Fprintf(&b, "Name: %s\n", r.Student.Name)
	fmt.Fprintf(&b, "Section: %s\n", r.Student.Section)
	b.WriteString("\nEnrolled Subjects:\n")
	if len(r.Subjects) == 0 {
		b.WriteString("  " + NoEnrollments + "\n")
	}
	for _, sr := range r.Subjects {
		name, hours := unknownSubject, "?"
		if sr.Known {
			name, hours = sr.Subject.Name, fmt.Sprint(sr.Subject.CreditHours)
		}
		fmt.Fprintf(&b, "  - %s: %s (%s cr)\n", sr.Subject.Code, name, hours)

		if sr.Record == nil {
			b.WriteString("      " + NoRecord + "\n")
			continue
		}
		grades := NoGrades
		if len(sr.Record.Grades) > 0 {
			grades = FormatGrades(sr.Record.Grades, ", ")
		}
		fmt.Fprintf(&b, "      Grades: %s\n", grades)
		fmt.Fprintf(&b, "      Average: %s\n", FormatRounded(sr.Average))
		fmt.Fprintf(&b, "      Attendance: %d/%d -> %s%%\n",
			sr.Record.Present, sr.Record.Total, FormatRounded(sr.AttendancePercent))
	}
	b.WriteString("\nOverall Performance Snapshot:\n")
	fmt.Fprintf(&b, "  GPA-like average: %s", FormatRounded(r.Overall))
	return b.String()
}

// ListAllStudents renders one "id | name | section" line per student,
// sorted by ID.
func (m *Manager) ListAllStudents() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.students) == 0 {
		return NoStudents
	}
	lines := make([]string, 0, len(m.students))
	for _, s := range m.sortedStudents() {
		lines = append(lines, strings.TrimSuffix(EncodeStudent(s), "\n"))
	}
	return strings.Join(lines, "\n")
}
