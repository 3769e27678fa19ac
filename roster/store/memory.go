// Package store provides Backend implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/student-records/roster"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	students    []roster.Student
	subjects    []roster.Subject
	enrollments []roster.Pair
	records     []*roster.Record

	saveErr error
	saves   int
}

func NewMemory() *Memory {
	return &Memory{}
}

// SetSaveError makes every following Save* call fail with err until it is
// reset with nil. Stored collections are left untouched on failure.
func (m *Memory) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// Saves returns how many Save* calls succeeded.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func (m *Memory) LoadStudents(_ context.Context) ([]roster.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]roster.Student(nil), m.students...), nil
}

func (m *Memory) LoadSubjects(_ context.Context) ([]roster.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]roster.Subject(nil), m.subjects...), nil
}

func (m *Memory) LoadEnrollments(_ context.Context) ([]roster.Pair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]roster.Pair(nil), m.enrollments...), nil
}

func (m *Memory) LoadRecords(_ context.Context) ([]*roster.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneRecords(m.records), nil
}

func (m *Memory) SaveStudents(_ context.Context, students []roster.Student) error {
	return m.save(func() {
		m.students = append([]roster.Student(nil), students...)
	})
}

func (m *Memory) SaveSubjects(_ context.Context, subjects []roster.Subject) error {
	return m.save(func() {
		m.subjects = append([]roster.Subject(nil), subjects...)
	})
}

func (m *Memory) SaveEnrollments(_ context.Context, pairs []roster.Pair) error {
	return m.save(func() {
		m.enrollments = append([]roster.Pair(nil), pairs...)
	})
}

// SaveRecords stores deep copies so later Manager mutations do not leak in.
func (m *Memory) SaveRecords(_ context.Context, records []*roster.Record) error {
	return m.save(func() {
		m.records = cloneRecords(records)
	})
}

func (m *Memory) save(apply func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	apply()
	m.saves++
	return nil
}

func cloneRecords(in []*roster.Record) []*roster.Record {
	out := make([]*roster.Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
