// Package workbook loads and saves per-employee timeline workbooks.
package workbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"minutebook/timeline"
)

var ErrSheetNotFound = errors.New("sheet not found")

// Workbook is an .xlsx file read into one timeline.Sheet per worksheet, in
// file order. The file stays open so Save only touches the cells that
// changed; formulas, number cells, styles and column widths elsewhere are
// kept as they are.
type Workbook struct {
	Sheets []*timeline.Sheet

	file   *excelize.File
	stored map[string]*snapshot
}

// snapshot holds a sheet as it was last read from or written to the file.
type snapshot struct {
	header []string
	rows   map[*timeline.Row][]string
}

// Open reads every worksheet. The first row of each sheet is its header.
// Date and time cells stored as Excel serials are converted to
// "2006-01-02" and "15:04". The caller must Close the workbook.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	wb := &Workbook{file: f}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}

		s := timeline.NewSheet(name)
		if len(rows) > 0 {
			s.Header = rows[0]
		}
		for _, cells := range rowsAfterHeader(rows) {
			r := timeline.NewRow(len(cells))
			for col, v := range cells {
				switch col {
				case timeline.DateCol:
					v = DateCell(v)
				case timeline.TimeCol:
					v = ClockCell(v)
				}
				r.Set(col, v)
			}
			s.Rows = append(s.Rows, r)
		}
		wb.Sheets = append(wb.Sheets, s)
	}
	wb.remember()
	return wb, nil
}

func rowsAfterHeader(rows [][]string) [][]string {
	if len(rows) < 2 {
		return nil
	}
	return rows[1:]
}

// Close releases the underlying file. It is safe to call on a workbook
// that was never saved.
func (wb *Workbook) Close() error {
	if wb.file == nil {
		return nil
	}
	err := wb.file.Close()
	wb.file = nil
	wb.stored = nil
	return err
}

// Sheet returns the worksheet with the given name.
func (wb *Workbook) Sheet(name string) (*timeline.Sheet, error) {
	for _, s := range wb.Sheets {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
}

func (wb *Workbook) SheetNames() []string {
	names := make([]string, 0, len(wb.Sheets))
	for _, s := range wb.Sheets {
		names = append(names, s.Name)
	}
	return names
}

// Save writes the workbook next to path and renames it into place, so a
// failed save leaves the previous file intact.
//
// Rows are only ever added to sheets, so every row missing from the last
// snapshot is inserted into the file at its position, shifting the rows
// below together with the formulas that point at them. Rows already in the
// file are rewritten cell by cell, and only where they changed.
func (wb *Workbook) Save(path string) error {
	if len(wb.Sheets) == 0 {
		return errors.New("workbook has no sheets")
	}

	fresh := wb.file == nil
	if fresh {
		wb.file = excelize.NewFile()
	}
	f := wb.file

	for i, s := range wb.Sheets {
		if err := wb.ensureSheet(i, s.Name, fresh); err != nil {
			return err
		}
		if err := wb.writeSheet(s); err != nil {
			return err
		}
	}
	if fresh {
		f.SetActiveSheet(0)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".minutebook-*.xlsx")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace workbook: %w", err)
	}

	wb.remember()
	return nil
}

// ensureSheet creates the worksheet if the file does not have it yet. A new
// file starts with one default sheet, which takes the first name.
func (wb *Workbook) ensureSheet(pos int, name string, fresh bool) error {
	f := wb.file
	if fresh && pos == 0 {
		if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
			return fmt.Errorf("failed to name sheet %q: %w", name, err)
		}
		return nil
	}
	if idx, err := f.GetSheetIndex(name); err == nil && idx >= 0 {
		return nil
	}
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", name, err)
	}
	return nil
}

func (wb *Workbook) writeSheet(s *timeline.Sheet) error {
	f := wb.file
	snap, loaded := wb.stored[s.Name]
	if !loaded {
		snap = &snapshot{}
	}

	if err := writeCells(f, s.Name, 1, snap.header, s.Header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", s.Name, err)
	}

	for i, r := range s.Rows {
		row := timeline.RowNumber(i)
		old, stored := snap.rows[r]
		if !stored && loaded {
			if err := f.InsertRows(s.Name, row, 1); err != nil {
				return fmt.Errorf("failed to insert row %d of %q: %w", row, s.Name, err)
			}
		}
		if err := writeCells(f, s.Name, row, old, r.Cells); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", row, s.Name, err)
		}
	}
	return nil
}

// writeCells sets the cells of one physical row that differ from old. A
// cell that became empty is cleared.
func writeCells(f *excelize.File, sheet string, row int, old, cur []string) error {
	for col := 0; col < max(len(old), len(cur)); col++ {
		v := cellAt(cur, col)
		if v == cellAt(old, col) {
			continue
		}
		name, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		var value interface{}
		if v != "" {
			value = v
		}
		if err := f.SetCellValue(sheet, name, value); err != nil {
			return err
		}
	}
	return nil
}

func cellAt(cells []string, col int) string {
	if col < len(cells) {
		return cells[col]
	}
	return ""
}

// remember records every sheet as it now stands in the file.
func (wb *Workbook) remember() {
	wb.stored = make(map[string]*snapshot, len(wb.Sheets))
	for _, s := range wb.Sheets {
		snap := &snapshot{
			header: append([]string(nil), s.Header...),
			rows:   make(map[*timeline.Row][]string, len(s.Rows)),
		}
		for _, r := range s.Rows {
			snap.rows[r] = append([]string(nil), r.Cells...)
		}
		wb.stored[s.Name] = snap
	}
}
