package importer_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/student-records/importer"
	"github.com/warp/student-records/roster"
	"github.com/warp/student-records/roster/store"
)

// workbook builds an .xlsx with the given rows on the default sheet.
func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func newImporter(t *testing.T) (*importer.Importer, *roster.Manager, *store.Memory) {
	t.Helper()
	backend := store.NewMemory()
	mgr, err := roster.Open(context.Background(), backend)
	require.NoError(t, err)
	return importer.New(mgr, nil), mgr, backend
}

func TestStudents_ImportsValidRows(t *testing.T) {
	im, mgr, _ := newImporter(t)
	ctx := context.Background()
	require.NoError(t, mgr.AddStudent(ctx, "S0", "Existing", "Z"))

	// GIVEN: A sheet with good rows, a row without a name and a duplicate ID
	buf := workbook(t, [][]any{
		{"ID", "Name", "Section"},
		{"S1", "Ann Lee", "A"},
		{"S2", "", "B"},
		{"S0", "Dup", "Z"},
		{" S3 ", "Cy", ""},
		{"S4", "Bad | Name", "C"},
	})

	// WHEN: Importing
	res, err := im.Students(ctx, buf)

	// THEN: Valid rows are added, the rest are reported with their row number
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Skipped, 3)
	assert.Equal(t, importer.SkippedRow{Row: 3, Reason: "missing student ID or name"}, res.Skipped[0])
	assert.Equal(t, 4, res.Skipped[1].Row)
	assert.Equal(t, "student already exists: S0", res.Skipped[1].Reason)
	assert.Equal(t, 6, res.Skipped[2].Row)

	s, err := mgr.Student("S3")
	require.NoError(t, err)
	assert.Equal(t, "Cy", s.Name)
	assert.Empty(t, s.Section)
	assert.Len(t, mgr.Students(), 3)
}

func TestStudents_HeaderOnly(t *testing.T) {
	im, mgr, _ := newImporter(t)

	res, err := im.Students(context.Background(), workbook(t, [][]any{{"ID", "Name", "Section"}}))
	require.NoError(t, err)
	assert.Zero(t, res.Imported)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, mgr.Students())
}

func TestStudents_StorageFailureStops(t *testing.T) {
	im, mgr, backend := newImporter(t)
	backend.SetSaveError(errors.New("disk full"))

	buf := workbook(t, [][]any{
		{"ID", "Name", "Section"},
		{"S1", "Ann", "A"},
		{"S2", "Bob", "B"},
	})

	res, err := im.Students(context.Background(), buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	require.NotNil(t, res)
	assert.Zero(t, res.Imported)
	assert.Empty(t, mgr.Students())
}

func TestStudents_NotAWorkbook(t *testing.T) {
	im, _, _ := newImporter(t)

	res, err := im.Students(context.Background(), strings.NewReader("S1 | Ann | A\n"))
	require.Error(t, err)
	assert.Nil(t, res)
}
