/*
codec.go - Line encoding for students, subjects, enrollments and records

FORMAT:
  One entity per line, fields joined by " | ", trailing newline.

    Student:    S1 | Ann Lee | A
    Subject:    CS101 | Intro to CS | 3
    Enrollment: S1 | CS101
    Record:     S1 | CS101 | grades=[90,88.5] | attendance=3/5

GRADES:
  Integral grades render without a decimal point (90), the rest in their
  shortest decimal form (88.5). Both parse back to the same float64.

TOLERANCE:
  Decoders never fail loudly. A line with too few fields, or a field that
  does not parse, yields ok == false and the caller skips it. A record
  without a grades= or attendance= prefix decodes as empty grades or 0/0.

ROUND TRIP:
  Encode(Decode(line)) == line for every line this package produced.
*/
package roster

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Separator = " | "

	gradesPrefix     = "grades="
	attendancePrefix = "attendance="
)

// =============================================================================
// GRADES
// =============================================================================

// FormatGrade renders a grade the way it is written to disk and reports.
// Grades must be finite; the Manager rejects NaN and Inf before storage.
func FormatGrade(g float64) string {
	return decimal.NewFromFloat(g).String()
}

// FormatGrades joins grades with sep.
func FormatGrades(grades []float64, sep string) string {
	parts := make([]string, len(grades))
	for i, g := range grades {
		parts[i] = FormatGrade(g)
	}
	return strings.Join(parts, sep)
}

// ParseGrades parses a comma-separated grade list, with or without the
// surrounding brackets. Blank entries are ignored.
func ParseGrades(s string) ([]float64, bool) {
	inner := strings.Trim(strings.TrimSpace(s), "[]")
	var grades []float64
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		g, err := strconv.ParseFloat(part, 64)
		if err != nil || math.IsNaN(g) || math.IsInf(g, 0) {
			return nil, false
		}
		grades = append(grades, g)
	}
	return grades, true
}

func splitFields(line string) []string {
	parts := strings.Split(strings.TrimSpace(line), "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func joinLine(fields ...string) string {
	return strings.Join(fields, Separator) + "\n"
}

// =============================================================================
// STUDENT
// =============================================================================

func EncodeStudent(s Student) string {
	return joinLine(s.ID, s.Name, s.Section)
}

func DecodeStudent(line string) (Student, bool) {
	f := splitFields(line)
	if len(f) < 3 {
		return Student{}, false
	}
	return Student{ID: f[0], Name: f[1], Section: f[2]}, true
}

// =============================================================================
// SUBJECT
// =============================================================================

func EncodeSubject(s Subject) string {
	return joinLine(s.Code, s.Name, strconv.Itoa(s.CreditHours))
}

func DecodeSubject(line string) (Subject, bool) {
	f := splitFields(line)
	if len(f) < 3 {
		return Subject{}, false
	}
	hours, err := strconv.Atoi(f[2])
	if err != nil || hours < 0 {
		return Subject{}, false
	}
	return Subject{Code: NormalizeCode(f[0]), Name: f[1], CreditHours: hours}, true
}

// =============================================================================
// ENROLLMENT
// =============================================================================

func EncodePair(p Pair) string {
	return joinLine(p.StudentID, p.SubjectCode)
}

func DecodePair(line string) (Pair, bool) {
	f := splitFields(line)
	if len(f) < 2 {
		return Pair{}, false
	}
	return NewPair(f[0], f[1]), true
}

// =============================================================================
// RECORD
// =============================================================================

func EncodeRecord(r *Record) string {
	return joinLine(
		r.StudentID,
		r.SubjectCode,
		gradesPrefix+"["+FormatGrades(r.Grades, ",")+"]",
		attendancePrefix+strconv.Itoa(r.Present)+"/"+strconv.Itoa(r.Total),
	)
}

func DecodeRecord(line string) (*Record, bool) {
	f := splitFields(line)
	if len(f) < 4 {
		return nil, false
	}
	rec := NewRecord(NewPair(f[0], f[1]))

	if rest, ok := strings.CutPrefix(f[2], gradesPrefix); ok {
		grades, ok := ParseGrades(rest)
		if !ok {
			return nil, false
		}
		rec.Grades = grades
	}

	if rest, ok := strings.CutPrefix(f[3], attendancePrefix); ok {
		a, b, found := strings.Cut(strings.TrimSpace(rest), "/")
		if found {
			present, err := strconv.Atoi(strings.TrimSpace(a))
			if err != nil {
				return nil, false
			}
			total, err := strconv.Atoi(strings.TrimSpace(b))
			if err != nil {
				return nil, false
			}
			if present < 0 || present > total {
				return nil, false
			}
			rec.Present, rec.Total = present, total
		}
	}
	return rec, true
}
