package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/student-records/roster"
	"github.com/warp/student-records/roster/store"
)

func runScript(t *testing.T, mgr *roster.Manager, lines ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newShell(mgr, strings.NewReader(strings.Join(lines, "\n")+"\n"), &out).run(context.Background())
	return out.String(), err
}

func openMemory(t *testing.T) (*roster.Manager, *store.Memory) {
	t.Helper()
	backend := store.NewMemory()
	mgr, err := roster.Open(context.Background(), backend)
	require.NoError(t, err)
	return mgr, backend
}

func TestShell_FullSession(t *testing.T) {
	mgr, _ := openMemory(t)

	// GIVEN: A scripted session covering every menu option
	out, err := runScript(t, mgr,
		"1", "S1", "Ann Lee", "A",
		"2", "cs101", "Intro to CS", "3",
		"3", "S1", "CS101",
		"4", "S1", "CS101", "90",
		"4", "S1", "cs101", "85.5",
		"5", "S1", "CS101", "y",
		"5", "S1", "CS101", "n",
		"6", "S1",
		"7",
		"8",
	)

	// THEN: Every step succeeded and the state is in the Manager
	require.NoError(t, err)
	for _, msg := range []string{
		"Student added.",
		"Subject added.",
		"Enrollment done.",
		"Grade recorded.",
		"Attendance recorded.",
		"      Attendance: 1/2 -> 50%",
		"      Average: 87.75",
		"S1 | Ann Lee | A",
		"Saving and exiting...",
	} {
		assert.Contains(t, out, msg)
	}
	assert.NotContains(t, out, "Error:")

	rec, ok := mgr.Record("S1", "CS101")
	require.True(t, ok)
	assert.Equal(t, []float64{90, 85.5}, rec.Grades)
}

func TestShell_ReportsErrors(t *testing.T) {
	mgr, _ := openMemory(t)

	out, err := runScript(t, mgr,
		"1", "S1", "Ann", "A",
		"1", "S1", "Ann", "A",
		"2", "CS101", "Intro", "three",
		"4", "S1", "CS101", "90",
		"4", "S1", "CS101", "ninety",
		"6", "S9",
		"9",
		"8",
	)

	require.NoError(t, err)
	assert.Contains(t, out, "Error: failed to add student: student already exists: S1")
	assert.Contains(t, out, "Error: failed to add subject: credit hours must be an integer")
	assert.Contains(t, out, "Error: failed to add grade: not enrolled: S1/CS101")
	assert.Contains(t, out, "Error: failed to add grade: grade must be a number")
	assert.Contains(t, out, "Error: failed to get report: no such student: S9")
	assert.Contains(t, out, "Invalid choice.")
}

func TestShell_EmptyRoster(t *testing.T) {
	mgr, _ := openMemory(t)

	out, err := runScript(t, mgr, "7", "8")
	require.NoError(t, err)
	assert.Contains(t, out, roster.NoStudents)
}

func TestShell_EOFSaves(t *testing.T) {
	mgr, backend := openMemory(t)

	// Input ends in the middle of adding a student.
	var out bytes.Buffer
	err := newShell(mgr, strings.NewReader("1\nS1\n"), &out).run(context.Background())

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Saving and exiting...")
	assert.Empty(t, mgr.Students())
	assert.Equal(t, 4, backend.Saves())
}

func TestShell_SaveFailureOnExit(t *testing.T) {
	mgr, backend := openMemory(t)
	backend.SetSaveError(errors.New("disk full"))

	_, err := runScript(t, mgr, "8")
	assert.ErrorContains(t, err, "disk full")
}
