// Package importer loads students in bulk from an Excel roster.
//
// The first sheet is read. Row 1 is a header. Columns are:
//
//	A: student ID   B: name   C: section (optional)
//
// Rows missing an ID or a name are skipped, as are rows the store rejects
// (duplicate IDs, invalid characters). A storage failure stops the import.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/warp/student-records/roster"
)

// StudentAdder is the part of roster.Manager the importer needs.
type StudentAdder interface {
	AddStudent(ctx context.Context, id, name, section string) error
}

type Importer struct {
	dst    StudentAdder
	logger *slog.Logger
}

func New(dst StudentAdder, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{dst: dst, logger: logger}
}

// Result summarizes one import.
type Result struct {
	Imported int
	Skipped  []SkippedRow
}

// SkippedRow names a spreadsheet row (1-based) that was not imported.
type SkippedRow struct {
	Row    int
	Reason string
}

// Students reads an .xlsx workbook from r and adds every valid row.
func (im *Importer) Students(ctx context.Context, r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			im.logger.Warn("closing excel file", "error", err)
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheet, err)
	}

	res := &Result{}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		rowNum := i + 1
		id, name, section := cell(row, 0), cell(row, 1), cell(row, 2)
		if id == "" && name == "" && section == "" {
			continue
		}
		if id == "" || name == "" {
			res.skip(rowNum, "missing student ID or name")
			continue
		}

		if err := im.dst.AddStudent(ctx, id, name, section); err != nil {
			if !roster.IsClientError(err) {
				return res, fmt.Errorf("row %d: %w", rowNum, err)
			}
			res.skip(rowNum, err.Error())
			continue
		}
		res.Imported++
	}

	im.logger.Info("student import finished",
		"sheet", sheet, "imported", res.Imported, "skipped", len(res.Skipped))
	return res, nil
}

func (r *Result) skip(row int, reason string) {
	r.Skipped = append(r.Skipped, SkippedRow{Row: row, Reason: reason})
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
