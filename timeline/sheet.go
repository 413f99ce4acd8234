package timeline

import (
	"slices"
	"strings"
)

const (
	// FirstDataRow is the physical row number of the first row below the header.
	FirstDataRow = 2

	DateCol = 0
	TimeCol = 1
)

// Row is one data row of an employee sheet. Rows are referenced by pointer,
// which stays valid while rows are inserted around them.
type Row struct {
	Cells []string
}

func NewRow(width int) *Row {
	return &Row{Cells: make([]string, width)}
}

func (r *Row) Cell(col int) string {
	if col < 0 || col >= len(r.Cells) {
		return ""
	}
	return r.Cells[col]
}

func (r *Row) Set(col int, v string) {
	for len(r.Cells) <= col {
		r.Cells = append(r.Cells, "")
	}
	r.Cells[col] = v
}

// Sheet is an employee's day timeline: a header row followed by data rows,
// where column 0 holds the date of the first row of each day and column 1 the
// minute.
type Sheet struct {
	Name   string
	Header []string
	Rows   []*Row
}

func NewSheet(name string, header ...string) *Sheet {
	return &Sheet{Name: name, Header: header}
}

// Column returns the index of the header cell named name, or -1.
func (s *Sheet) Column(name string) int {
	for i, h := range s.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// EnsureColumn returns the column named name, appending it to the header if
// it does not exist. The date and time columns are never reused.
func (s *Sheet) EnsureColumn(name string) int {
	if col := s.Column(name); col > TimeCol {
		return col
	}
	for len(s.Header) <= TimeCol {
		s.Header = append(s.Header, "")
	}
	s.Header = append(s.Header, name)
	return len(s.Header) - 1
}

// Append adds a row at the bottom of the sheet.
func (s *Sheet) Append(cells ...string) *Row {
	r := &Row{Cells: cells}
	s.Rows = append(s.Rows, r)
	return r
}

// RowNumber converts a zero-based position in Rows to a physical row number.
func RowNumber(pos int) int {
	return pos + FirstDataRow
}

func (s *Sheet) insertAt(pos int, r *Row) {
	s.Rows = slices.Insert(s.Rows, pos, r)
}

// position finds r scanning from the bottom, where most inserts land.
func (s *Sheet) position(r *Row) int {
	for i := len(s.Rows) - 1; i >= 0; i-- {
		if s.Rows[i] == r {
			return i
		}
	}
	return -1
}

func (s *Sheet) width() int {
	w := len(s.Header)
	if w <= TimeCol {
		w = TimeCol + 1
	}
	return w
}
