/*
handlers_test.go - HTTP tests for the API

Tests for:
- Student and subject creation, including 400/409 mapping
- Enrollment gate on grades and attendance (404)
- Structured and text reports
- Workbook import, including the 413 upload cap
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/student-records/roster"
	"github.com/warp/student-records/store/sqlite"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mgr, err := roster.Open(context.Background(), store)
	require.NoError(t, err)
	return NewHandler(mgr, nil)
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(newTestHandler(t))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// seedRoster creates S1 and CS101 and enrolls S1.
func seedRoster(t *testing.T, h http.Handler) {
	t.Helper()
	require.Equal(t, http.StatusCreated,
		do(t, h, "POST", "/api/students", `{"id":"S1","name":"Ann","section":"A"}`).Code)
	require.Equal(t, http.StatusCreated,
		do(t, h, "POST", "/api/subjects", `{"code":"cs101","name":"Intro to CS","credit_hours":3}`).Code)
	require.Equal(t, http.StatusCreated,
		do(t, h, "POST", "/api/enrollments", `{"student_id":"S1","subject_code":"CS101"}`).Code)
}

// =============================================================================
// STUDENTS AND SUBJECTS
// =============================================================================

func TestCreateStudent(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, "POST", "/api/students", `{"id":"S1","name":" Ann ","section":"A"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, StudentDTO{ID: "S1", Name: "Ann", Section: "A"}, decodeBody[StudentDTO](t, rec))

	rec = do(t, h, "GET", "/api/students/S1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ann", decodeBody[StudentDTO](t, rec).Name)
}

func TestCreateStudent_Duplicate(t *testing.T) {
	h := newTestServer(t)
	do(t, h, "POST", "/api/students", `{"id":"S1","name":"Ann","section":"A"}`)

	rec := do(t, h, "POST", "/api/students", `{"id":"S1","name":"Other","section":"B"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "student already exists: S1", resp.Details)
}

func TestCreateStudent_Validation(t *testing.T) {
	h := newTestServer(t)

	// WHEN: The name contains the field separator
	rec := do(t, h, "POST", "/api/students", `{"id":"S1","name":"Ann | Lee"}`)

	// THEN: 400 naming the JSON field and failed rule
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "Validation failed", resp.Error)
	assert.Contains(t, resp.Fields, FieldErrorDTO{Field: "name", Rule: "linefield"})

	rec = do(t, h, "POST", "/api/students", `{"name":"Ann"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Fields, FieldErrorDTO{Field: "id", Rule: "required"})

	rec = do(t, h, "POST", "/api/students", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStudent_NotFound(t *testing.T) {
	h := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/students/S9", "").Code)
}

func TestListStudents(t *testing.T) {
	h := newTestServer(t)
	do(t, h, "POST", "/api/students", `{"id":"S2","name":"Bob","section":"B"}`)
	do(t, h, "POST", "/api/students", `{"id":"S1","name":"Ann","section":"A"}`)

	rec := do(t, h, "GET", "/api/students", "")
	require.Equal(t, http.StatusOK, rec.Code)
	students := decodeBody[[]StudentDTO](t, rec)
	require.Len(t, students, 2)
	assert.Equal(t, "S1", students[0].ID)

	rec = do(t, h, "GET", "/api/students/text", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "S1 | Ann | A\nS2 | Bob | B\n", rec.Body.String())
}

func TestCreateSubject(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, "POST", "/api/subjects", `{"code":" ma101 ","name":"Calculus","credit_hours":4}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "MA101", decodeBody[SubjectDTO](t, rec).Code)

	rec = do(t, h, "POST", "/api/subjects", `{"code":"PH101","name":"  Physics  ","credit_hours":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, SubjectDTO{Code: "PH101", Name: "Physics", CreditHours: 2}, decodeBody[SubjectDTO](t, rec))

	rec = do(t, h, "POST", "/api/subjects", `{"code":"MA101","name":"Again","credit_hours":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, "POST", "/api/subjects", `{"code":"CH101","name":"Chemistry","credit_hours":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	subjects := decodeBody[[]SubjectDTO](t, do(t, h, "GET", "/api/subjects", ""))
	assert.Equal(t, []SubjectDTO{
		{Code: "MA101", Name: "Calculus", CreditHours: 4},
		{Code: "PH101", Name: "Physics", CreditHours: 2},
	}, subjects)
}

// =============================================================================
// ENROLLMENT AND RECORDS
// =============================================================================

func TestEnroll_Errors(t *testing.T) {
	h := newTestServer(t)
	seedRoster(t, h)

	rec := do(t, h, "POST", "/api/enrollments", `{"student_id":"S1","subject_code":"XX999"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no such subject: XX999", decodeBody[ErrorResponse](t, rec).Details)

	rec = do(t, h, "POST", "/api/enrollments", `{"student_id":"S1","subject_code":"cs101"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAddGrade(t *testing.T) {
	h := newTestServer(t)
	seedRoster(t, h)

	do(t, h, "POST", "/api/students/S1/subjects/CS101/grades", `{"grade":90}`)
	rec := do(t, h, "POST", "/api/students/S1/subjects/cs101/grades", `{"grade":85.5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[RecordDTO](t, rec)
	assert.Equal(t, []float64{90, 85.5}, got.Grades)
	require.NotNil(t, got.Average)
	assert.Equal(t, "87.75", *got.Average)
	assert.Nil(t, got.AttendancePercent)
}

func TestAddGrade_NotEnrolled(t *testing.T) {
	h := newTestServer(t)
	seedRoster(t, h)
	do(t, h, "POST", "/api/students", `{"id":"S2","name":"Bob","section":"B"}`)

	rec := do(t, h, "POST", "/api/students/S2/subjects/CS101/grades", `{"grade":70}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not enrolled: S2/CS101", decodeBody[ErrorResponse](t, rec).Details)

	rec = do(t, h, "POST", "/api/students/S1/subjects/CS101/grades", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkAttendance(t *testing.T) {
	h := newTestServer(t)
	seedRoster(t, h)

	do(t, h, "POST", "/api/students/S1/subjects/CS101/attendance", `{"present":true}`)
	do(t, h, "POST", "/api/students/S1/subjects/CS101/attendance", `{"present":false}`)
	rec := do(t, h, "POST", "/api/students/S1/subjects/CS101/attendance", `{"present":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[RecordDTO](t, rec)
	assert.Equal(t, 2, got.Present)
	assert.Equal(t, 3, got.Total)
	require.NotNil(t, got.AttendancePercent)
	assert.Equal(t, "66.67", *got.AttendancePercent)
	assert.Empty(t, got.Grades)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestReport(t *testing.T) {
	h := newTestServer(t)
	seedRoster(t, h)
	do(t, h, "POST", "/api/students/S1/subjects/CS101/grades", `{"grade":90}`)

	// WHEN: Fetching the structured report
	rec := do(t, h, "GET", "/api/students/S1/report", "")

	// THEN: Values match the text report's rounding
	require.Equal(t, http.StatusOK, rec.Code)
	rep := decodeBody[ReportDTO](t, rec)
	assert.Equal(t, "S1", rep.Student.ID)
	require.Len(t, rep.Subjects, 1)
	assert.True(t, rep.Subjects[0].Known)
	require.NotNil(t, rep.Subjects[0].Record)
	assert.Equal(t, "90", *rep.Subjects[0].Record.Average)
	require.NotNil(t, rep.OverallAverage)
	assert.Equal(t, "90", *rep.OverallAverage)

	rec = do(t, h, "GET", "/api/students/S1/report.txt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Student ID: S1\n"))
	assert.Contains(t, rec.Body.String(), "  GPA-like average: 90\n")

	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/students/S9/report", "").Code)
}

// =============================================================================
// IMPORT
// =============================================================================

// upload posts content as the multipart field "file".
func upload(t *testing.T, h http.Handler, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "students.xlsx")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/import/students", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestImportStudents(t *testing.T) {
	h := newTestServer(t)

	// GIVEN: A workbook with one good row and one duplicate
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"ID", "Name", "Section"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"S1", "Ann", "A"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"S1", "Ann again", "A"}))
	xlsx, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// WHEN: Uploading it
	rec := upload(t, h, xlsx.Bytes())

	// THEN: One row imported, one reported
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[ImportResultDTO](t, rec)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, []SkippedRowDTO{{Row: 3, Reason: "student already exists: S1"}}, res.Skipped)
}

func TestImportStudents_TooLarge(t *testing.T) {
	// GIVEN: A handler accepting at most 1 KiB per upload
	handler := newTestHandler(t)
	handler.MaxUploadBytes = 1 << 10
	h := NewRouter(handler)

	// WHEN: Uploading a larger file
	rec := upload(t, h, bytes.Repeat([]byte("x"), 4<<10))

	// THEN: 413 naming the limit, nothing imported
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Upload exceeds 1024 bytes", decodeBody[ErrorResponse](t, rec).Error)
	assert.Empty(t, handler.Manager.Students())
}

func TestImportStudents_MissingFile(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, "POST", "/api/import/students", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
