/*
store.go - Persistence interface for the four collections

PURPOSE:
  Defines the boundary between the Manager and durable storage. The
  Manager owns all state in memory; a Backend only loads a whole
  collection at startup and replaces a whole collection after a change.

FULL-REPLACE CONTRACT:
  Every Save* call receives the complete collection and overwrites what
  was stored before. There is no incremental append and no journal, so a
  crash mid-write may leave a truncated collection.

ORDERING:
  Load* returns entities in stored order. Save* stores them in the order
  given. The Manager passes enrollments sorted and everything else in
  insertion order.

IMPLEMENTATIONS:
  - store/textfile: Four flat text files (default)
  - store/sqlite: One SQLite database
  - roster/store: In-memory, for tests

SEE ALSO:
  - manager.go: The only caller
  - codec.go: Line format used by the text backend
*/
package roster

import "context"

// Backend loads and replaces whole collections.
type Backend interface {
	LoadStudents(ctx context.Context) ([]Student, error)
	LoadSubjects(ctx context.Context) ([]Subject, error)
	LoadEnrollments(ctx context.Context) ([]Pair, error)
	LoadRecords(ctx context.Context) ([]*Record, error)

	SaveStudents(ctx context.Context, students []Student) error
	SaveSubjects(ctx context.Context, subjects []Subject) error
	SaveEnrollments(ctx context.Context, pairs []Pair) error
	SaveRecords(ctx context.Context, records []*Record) error
}
