/*
handlers.go - HTTP API handlers for the record keeper

PURPOSE:
  Exposes the roster Manager as a local JSON API. Handles HTTP
  request/response, JSON serialization and validation, and delegates
  every rule to the Manager.

ENDPOINTS:
  Students:
    GET    /api/students                               List students (sorted by ID)
    GET    /api/students/text                          Plain-text listing
    POST   /api/students                               Add student
    GET    /api/students/{id}                          Get student
    GET    /api/students/{id}/report                   Structured report
    GET    /api/students/{id}/report.txt               Text report

  Subjects:
    GET    /api/subjects                               List subjects
    POST   /api/subjects                               Add subject

  Enrollment and records:
    POST   /api/enrollments                            Enroll student
    POST   /api/students/{id}/subjects/{code}/grades     Add grade
    POST   /api/students/{id}/subjects/{code}/attendance Mark attendance

  Import:
    POST   /api/import/students                        .xlsx upload (field "file")

ERROR HANDLING:
  - 400: Invalid body, failed validation, roster.ErrInvalidInput
  - 404: roster.ErrNotFound (student, subject or enrollment)
  - 409: roster.ErrDuplicateKey
  - 413: Upload larger than Handler.MaxUploadBytes
  - 500: Storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/student-records/importer"
	"github.com/warp/student-records/roster"
)

// maxUploadBytes is the default Handler.MaxUploadBytes.
const maxUploadBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Manager  *roster.Manager
	Importer *importer.Importer

	// MaxUploadBytes caps the size of an imported workbook request.
	MaxUploadBytes int64

	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new handler over mgr.
func NewHandler(mgr *roster.Manager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Manager:        mgr,
		Importer:       importer.New(mgr, logger),
		MaxUploadBytes: maxUploadBytes,
		validate:       newValidator(),
		logger:         logger,
	}
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns all students sorted by ID.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students := h.Manager.Students()
	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = toStudentDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListStudentsText returns the plain-text student listing.
func (h *Handler) ListStudentsText(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, h.Manager.ListAllStudents())
}

// CreateStudent adds a student.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.Manager.AddStudent(r.Context(), req.ID, req.Name, req.Section); err != nil {
		h.writeDomainError(w, "Failed to add student", err)
		return
	}

	s, err := h.Manager.Student(req.ID)
	if err != nil {
		h.writeDomainError(w, "Failed to add student", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(s))
}

// GetStudent returns a single student.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	s, err := h.Manager.Student(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get student", err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(s))
}

// GetReport returns the structured report for a student.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Manager.BuildReport(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rep))
}

// GetReportText returns the text report for a student.
func (h *Handler) GetReportText(w http.ResponseWriter, r *http.Request) {
	text, err := h.Manager.StudentReport(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to build report", err)
		return
	}
	writeText(w, http.StatusOK, text)
}

// =============================================================================
// SUBJECT HANDLERS
// =============================================================================

// ListSubjects returns all subjects sorted by code.
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects := h.Manager.Subjects()
	dtos := make([]SubjectDTO, len(subjects))
	for i, s := range subjects {
		dtos[i] = toSubjectDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSubject adds a subject.
func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var req CreateSubjectRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.Manager.AddSubject(r.Context(), req.Code, req.Name, req.CreditHours); err != nil {
		h.writeDomainError(w, "Failed to add subject", err)
		return
	}

	s, err := h.Manager.Subject(req.Code)
	if err != nil {
		h.writeDomainError(w, "Failed to add subject", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubjectDTO(s))
}

// =============================================================================
// ENROLLMENT AND RECORD HANDLERS
// =============================================================================

// Enroll enrolls a student in a subject.
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.Manager.EnrollStudent(r.Context(), req.StudentID, req.SubjectCode); err != nil {
		h.writeDomainError(w, "Failed to enroll", err)
		return
	}

	p := roster.NewPair(req.StudentID, req.SubjectCode)
	writeJSON(w, http.StatusCreated, EnrollmentDTO{StudentID: p.StudentID, SubjectCode: p.SubjectCode})
}

// AddGrade appends a grade to an enrolled pair.
func (h *Handler) AddGrade(w http.ResponseWriter, r *http.Request) {
	var req GradeRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, code := chi.URLParam(r, "id"), chi.URLParam(r, "code")
	if err := h.Manager.AddGrade(r.Context(), id, code, *req.Grade); err != nil {
		h.writeDomainError(w, "Failed to add grade", err)
		return
	}
	h.writeRecord(w, id, code)
}

// MarkAttendance records one session for an enrolled pair.
func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req AttendanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, code := chi.URLParam(r, "id"), chi.URLParam(r, "code")
	if err := h.Manager.MarkAttendance(r.Context(), id, code, *req.Present); err != nil {
		h.writeDomainError(w, "Failed to mark attendance", err)
		return
	}
	h.writeRecord(w, id, code)
}

func (h *Handler) writeRecord(w http.ResponseWriter, id, code string) {
	rec, ok := h.Manager.Record(id, code)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Record missing after write", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(rec))
}

// =============================================================================
// IMPORT HANDLERS
// =============================================================================

// ImportStudents adds students from an uploaded .xlsx workbook.
func (h *Handler) ImportStudents(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit), err)
			return
		}
		writeError(w, http.StatusBadRequest, "Missing upload field \"file\"", err)
		return
	}
	defer file.Close()

	res, err := h.Importer.Students(r.Context(), file)
	if err != nil {
		if res == nil {
			writeError(w, http.StatusBadRequest, "Unreadable workbook", err)
			return
		}
		h.writeDomainError(w, "Import stopped", err)
		return
	}

	dto := ImportResultDTO{Imported: res.Imported, Skipped: make([]SkippedRowDTO, 0, len(res.Skipped))}
	for _, s := range res.Skipped {
		dto.Skipped = append(dto.Skipped, SkippedRowDTO{Row: s.Row, Reason: s.Reason})
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads and validates a JSON body. On failure it writes the 400
// response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Details: err.Error(),
			Fields:  fieldErrors(err),
		})
		return false
	}
	return true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case roster.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case roster.IsDuplicate(err):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, roster.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.logger.Error(message, "error", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(text + "\n"))
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
