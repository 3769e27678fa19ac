/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry validator struct tags; handlers call
  Handler.validate before touching the Manager. "linefield" rejects the
  characters the storage line format reserves ('|', CR, LF).

ROUNDED VALUES:
  Averages and percentages are strings rounded to two places, exactly as
  they appear in the text report. null means not available.
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/student-records/roster"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type CreateStudentRequest struct {
	ID      string `json:"id" validate:"required,max=64,linefield"`
	Name    string `json:"name" validate:"required,max=200,linefield"`
	Section string `json:"section" validate:"max=64,linefield"`
}

type CreateSubjectRequest struct {
	Code        string `json:"code" validate:"required,max=32,linefield"`
	Name        string `json:"name" validate:"required,max=200,linefield"`
	CreditHours int    `json:"credit_hours" validate:"min=0,max=100"`
}

type EnrollRequest struct {
	StudentID   string `json:"student_id" validate:"required,linefield"`
	SubjectCode string `json:"subject_code" validate:"required,linefield"`
}

type GradeRequest struct {
	Grade *float64 `json:"grade" validate:"required"`
}

type AttendanceRequest struct {
	Present *bool `json:"present" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type StudentDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Section string `json:"section"`
}

type SubjectDTO struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	CreditHours int    `json:"credit_hours"`
}

type EnrollmentDTO struct {
	StudentID   string `json:"student_id"`
	SubjectCode string `json:"subject_code"`
}

// RecordDTO is the state of one enrollment's record after a write.
type RecordDTO struct {
	StudentID         string    `json:"student_id"`
	SubjectCode       string    `json:"subject_code"`
	Grades            []float64 `json:"grades"`
	Average           *string   `json:"average"`
	Present           int       `json:"present"`
	Total             int       `json:"total"`
	AttendancePercent *string   `json:"attendance_percent"`
}

type ReportDTO struct {
	Student        StudentDTO         `json:"student"`
	Subjects       []SubjectReportDTO `json:"subjects"`
	OverallAverage *string            `json:"overall_average"`
}

// SubjectReportDTO is one enrolled subject. Known is false when the code
// is enrolled but not registered; Record is null when no record exists.
type SubjectReportDTO struct {
	Code        string     `json:"code"`
	Name        string     `json:"name,omitempty"`
	CreditHours *int       `json:"credit_hours,omitempty"`
	Known       bool       `json:"known"`
	Record      *RecordDTO `json:"record"`
}

type ImportResultDTO struct {
	Imported int             `json:"imported"`
	Skipped  []SkippedRowDTO `json:"skipped"`
}

type SkippedRowDTO struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ErrorResponse struct {
	Error   string          `json:"error"`
	Details string          `json:"details,omitempty"`
	Fields  []FieldErrorDTO `json:"fields,omitempty"`
}

type FieldErrorDTO struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toStudentDTO(s roster.Student) StudentDTO {
	return StudentDTO{ID: s.ID, Name: s.Name, Section: s.Section}
}

func toSubjectDTO(s roster.Subject) SubjectDTO {
	return SubjectDTO{Code: s.Code, Name: s.Name, CreditHours: s.CreditHours}
}

func toRecordDTO(r *roster.Record) *RecordDTO {
	grades := r.Grades
	if grades == nil {
		grades = []float64{}
	}
	return &RecordDTO{
		StudentID:         r.StudentID,
		SubjectCode:       r.SubjectCode,
		Grades:            grades,
		Average:           rounded(r.Average()),
		Present:           r.Present,
		Total:             r.Total,
		AttendancePercent: rounded(r.AttendancePercent()),
	}
}

func toReportDTO(rep *roster.StudentReport) ReportDTO {
	dto := ReportDTO{
		Student:        toStudentDTO(rep.Student),
		Subjects:       make([]SubjectReportDTO, 0, len(rep.Subjects)),
		OverallAverage: rounded(rep.Overall),
	}
	for _, sr := range rep.Subjects {
		s := SubjectReportDTO{Code: sr.Subject.Code, Known: sr.Known}
		if sr.Known {
			hours := sr.Subject.CreditHours
			s.Name, s.CreditHours = sr.Subject.Name, &hours
		}
		if sr.Record != nil {
			s.Record = toRecordDTO(sr.Record)
		}
		dto.Subjects = append(dto.Subjects, s)
	}
	return dto
}

func rounded(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := roster.FormatRounded(d)
	return &s
}
