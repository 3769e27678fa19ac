package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/warp/student-records/roster"
)

const menu = `
--- Student Management System ---
1. Add Student
2. Add Subject
3. Enroll Student
4. Add Grade
5. Mark Attendance
6. View Student Report
7. View All Students
8. Exit`

// shell is the interactive menu over a Manager. Input ends the loop at
// option 8 or EOF.
type shell struct {
	mgr *roster.Manager
	in  *bufio.Reader
	out io.Writer
}

func newShell(mgr *roster.Manager, in io.Reader, out io.Writer) *shell {
	return &shell{mgr: mgr, in: bufio.NewReader(in), out: out}
}

func (s *shell) run(ctx context.Context) error {
	for {
		fmt.Fprintln(s.out, menu)
		choice, ok := s.prompt("Choose an option: ")
		if !ok {
			return s.exit(ctx)
		}

		var err error
		switch choice {
		case "1":
			err = s.addStudent(ctx)
		case "2":
			err = s.addSubject(ctx)
		case "3":
			err = s.enroll(ctx)
		case "4":
			err = s.addGrade(ctx)
		case "5":
			err = s.markAttendance(ctx)
		case "6":
			err = s.viewReport()
		case "7":
			fmt.Fprintln(s.out, s.mgr.ListAllStudents())
		case "8":
			return s.exit(ctx)
		default:
			fmt.Fprintln(s.out, "Invalid choice.")
		}
		if err != nil {
			fmt.Fprintln(s.out, "Error:", err)
		}
	}
}

func (s *shell) exit(ctx context.Context) error {
	fmt.Fprintln(s.out, "Saving and exiting...")
	return s.mgr.SaveAll(ctx)
}

// prompt prints label and reads one trimmed line. ok is false at EOF with
// nothing read.
func (s *shell) prompt(label string) (string, bool) {
	fmt.Fprint(s.out, label)
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}

func (s *shell) prompts(labels ...string) ([]string, bool) {
	values := make([]string, len(labels))
	for i, l := range labels {
		v, ok := s.prompt(l)
		if !ok {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func (s *shell) addStudent(ctx context.Context) error {
	v, ok := s.prompts("Student ID: ", "Full name: ", "Section/Batch: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	if err := s.mgr.AddStudent(ctx, v[0], v[1], v[2]); err != nil {
		return fmt.Errorf("failed to add student: %w", err)
	}
	fmt.Fprintln(s.out, "Student added.")
	return nil
}

func (s *shell) addSubject(ctx context.Context) error {
	v, ok := s.prompts("Subject code (e.g. CS101): ", "Subject name: ", "Credit hours (integer): ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	hours, err := strconv.Atoi(v[2])
	if err != nil {
		return errors.New("failed to add subject: credit hours must be an integer")
	}
	if err := s.mgr.AddSubject(ctx, v[0], v[1], hours); err != nil {
		return fmt.Errorf("failed to add subject: %w", err)
	}
	fmt.Fprintln(s.out, "Subject added.")
	return nil
}

func (s *shell) enroll(ctx context.Context) error {
	v, ok := s.prompts("Student ID: ", "Subject code: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	if err := s.mgr.EnrollStudent(ctx, v[0], v[1]); err != nil {
		return fmt.Errorf("failed to enroll: %w", err)
	}
	fmt.Fprintln(s.out, "Enrollment done.")
	return nil
}

func (s *shell) addGrade(ctx context.Context) error {
	v, ok := s.prompts("Student ID: ", "Subject code: ", "Grade (number): ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	grade, err := strconv.ParseFloat(v[2], 64)
	if err != nil {
		return errors.New("failed to add grade: grade must be a number")
	}
	if err := s.mgr.AddGrade(ctx, v[0], v[1], grade); err != nil {
		return fmt.Errorf("failed to add grade: %w", err)
	}
	fmt.Fprintln(s.out, "Grade recorded.")
	return nil
}

func (s *shell) markAttendance(ctx context.Context) error {
	v, ok := s.prompts("Student ID: ", "Subject code: ", "Present? (y/n): ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	present := false
	switch strings.ToLower(v[2]) {
	case "y", "yes", "1":
		present = true
	}
	if err := s.mgr.MarkAttendance(ctx, v[0], v[1], present); err != nil {
		return fmt.Errorf("failed to mark attendance: %w", err)
	}
	fmt.Fprintln(s.out, "Attendance recorded.")
	return nil
}

func (s *shell) viewReport() error {
	id, ok := s.prompt("Student ID: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	text, err := s.mgr.StudentReport(id)
	if err != nil {
		return fmt.Errorf("failed to get report: %w", err)
	}
	fmt.Fprintln(s.out, "\n"+text)
	return nil
}
