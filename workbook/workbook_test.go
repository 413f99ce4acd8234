package workbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"minutebook/timeline"
)

func TestParseDepartments(t *testing.T) {
	in := "Sales:\nAlice\n  Bob  \n\nSupport:\nCarol\nEmpty:\n"
	deps, err := ParseDepartments(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []Department{
		{Name: "Sales", Employees: []string{"Alice", "Bob"}},
		{Name: "Support", Employees: []string{"Carol"}},
		{Name: "Empty"},
	}, deps)
}

func TestParseDepartmentsEmployeeFirst(t *testing.T) {
	_, err := ParseDepartments(strings.NewReader("Alice\nSales:\n"))
	assert.Error(t, err)
}

func TestNewWorkbook(t *testing.T) {
	deps := []Department{
		{Name: "Sales", Employees: []string{"Alice", "Bob"}},
		{Name: "Support", Employees: []string{"Carol", "Alice"}},
		{Name: "Empty"},
	}
	wb, summaries := New(deps, []string{"Date", "Time", "Calls"})

	assert.Equal(t, []string{"Sales", "Support"}, summaries)
	assert.Equal(t, []string{"Sales", "Alice", "Bob", "Support", "Carol"}, wb.SheetNames())

	sales, err := wb.Sheet("Sales")
	require.NoError(t, err)
	assert.Equal(t, []string{EmployeesHeader}, sales.Header)
	require.Len(t, sales.Rows, 2)
	assert.Equal(t, "Bob", sales.Rows[1].Cell(0))

	alice, err := wb.Sheet("Alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Time", "Calls"}, alice.Header)
	assert.Empty(t, alice.Rows)

	_, err = wb.Sheet("Dave")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestSaveAndOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	wb, _ := New([]Department{{Name: "Sales", Employees: []string{"Alice"}}}, []string{"Date", "Time", "Calls"})
	defer wb.Close()
	alice, err := wb.Sheet("Alice")
	require.NoError(t, err)
	alice.Append("2024-06-01", "09:00", "Incoming call with ACME")
	alice.Append("", "09:01", "Continuation of call: Incoming call with ACME")

	require.NoError(t, wb.Save(path))

	loaded, err := Open(path)
	require.NoError(t, err)
	defer loaded.Close()
	assert.Equal(t, []string{"Sales", "Alice"}, loaded.SheetNames())

	got, err := loaded.Sheet("Alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Time", "Calls"}, got.Header)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "2024-06-01", got.Rows[0].Cell(timeline.DateCol))
	assert.Equal(t, "", got.Rows[1].Cell(timeline.DateCol))
	assert.Equal(t, "09:01", got.Rows[1].Cell(timeline.TimeCol))
	assert.Equal(t, "Continuation of call: Incoming call with ACME", got.Rows[1].Cell(2))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestOpenConvertsSerials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serials.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Date", "Time", "Sites"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{45444, 0.375, "mail.example.com"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	wb, err := Open(path)
	require.NoError(t, err)
	defer wb.Close()
	s, err := wb.Sheet("Sheet1")
	require.NoError(t, err)
	require.Len(t, s.Rows, 1)
	assert.Equal(t, "2024-06-01", s.Rows[0].Cell(timeline.DateCol))
	assert.Equal(t, "09:00", s.Rows[0].Cell(timeline.TimeCol))

	ix, err := timeline.BuildIndex(s)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ix.Rows(timeline.Key{Date: "2024-06-01", Time: "09:00"}))
}

func TestSaveKeepsUntouchedCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Alice"))
	require.NoError(t, f.SetSheetRow("Alice", "A1", &[]interface{}{"Date", "Time", "Program", "Score"}))
	require.NoError(t, f.SetSheetRow("Alice", "A2", &[]interface{}{45444, 0.375, "Excel", 5}))
	require.NoError(t, f.SetSheetRow("Alice", "B3", &[]interface{}{"09:05", "Chrome"}))
	require.NoError(t, f.SetCellFormula("Alice", "D3", "SUM(D2:D2)"))
	require.NoError(t, f.SetColWidth("Alice", "C", "C", 40))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	wb, err := Open(path)
	require.NoError(t, err)
	defer wb.Close()

	report := timeline.Dispatch(wb.Sheets, []timeline.Call{{
		Type:     "Incoming",
		Client:   "ACME",
		Employee: "Alice",
		Start:    time.Date(2024, 6, 1, 9, 2, 0, 0, time.UTC),
		Minutes:  1,
	}}, timeline.DispatchOptions{})
	require.Equal(t, 1, report.TotalInserted())
	require.NoError(t, wb.Save(path))

	got, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer got.Close()

	raw := func(cell string) string {
		v, err := got.GetCellValue("Alice", cell, excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		return v
	}

	// the new minute lands between the two existing rows
	assert.Equal(t, "Calls", raw("E1"))
	assert.Equal(t, "", raw("A3"))
	assert.Equal(t, "09:02", raw("B3"))
	assert.Equal(t, "Incoming call with ACME", raw("E3"))
	assert.Equal(t, "09:05", raw("B4"))
	assert.Equal(t, "Chrome", raw("C4"))

	formula, err := got.GetCellFormula("Alice", "D4")
	require.NoError(t, err)
	assert.Equal(t, "SUM(D2:D2)", formula)

	assert.Equal(t, "5", raw("D2"))
	typ, err := got.GetCellType("Alice", "D2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)

	assert.Equal(t, "45444", raw("A2"))
	assert.Equal(t, "0.375", raw("B2"))

	width, err := got.GetColWidth("Alice", "C")
	require.NoError(t, err)
	assert.Equal(t, 40.0, width)
}

func TestSaveMovesDateToInsertedRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Alice"))
	require.NoError(t, f.SetSheetRow("Alice", "A1", &[]interface{}{"Date", "Time", "Calls"}))
	require.NoError(t, f.SetSheetRow("Alice", "A2", &[]interface{}{45444, 0.375, "Incoming call with B"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	wb, err := Open(path)
	require.NoError(t, err)
	defer wb.Close()

	timeline.Dispatch(wb.Sheets, []timeline.Call{{
		Type:     "Incoming",
		Client:   "A",
		Employee: "Alice",
		Start:    time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC),
		Minutes:  1,
	}}, timeline.DispatchOptions{})
	require.NoError(t, wb.Save(path))

	reloaded, err := Open(path)
	require.NoError(t, err)
	defer reloaded.Close()

	s, err := reloaded.Sheet("Alice")
	require.NoError(t, err)
	require.Len(t, s.Rows, 2)
	assert.Equal(t, []string{"2024-06-01", "08:30", "Incoming call with A"}, s.Rows[0].Cells)
	assert.Equal(t, "", s.Rows[1].Cell(timeline.DateCol))
	assert.Equal(t, "09:00", s.Rows[1].Cell(timeline.TimeCol))
	assert.Equal(t, "Incoming call with B", s.Rows[1].Cell(2))
}

func TestSaveFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing", "report.xlsx")

	wb, _ := New([]Department{{Name: "Sales", Employees: []string{"Alice"}}}, []string{"Date", "Time"})
	assert.Error(t, wb.Save(path))
	assert.Error(t, (&Workbook{}).Save(filepath.Join(dir, "empty.xlsx")))
}

func TestCells(t *testing.T) {
	assert.Equal(t, "2024-06-01", DateCell("45444"))
	assert.Equal(t, "2024-06-01", DateCell("45444.5"))
	assert.Equal(t, "01.06.2024", DateCell("01.06.2024"))
	assert.Equal(t, "", DateCell(""))

	assert.Equal(t, "12:00", ClockCell("0.5"))
	assert.Equal(t, "18:30", ClockCell("45444.7708333333"))
	assert.Equal(t, "00:00", ClockCell("0.99999"))
	assert.Equal(t, "09:15", ClockCell("09:15"))
}

func TestCreateMarksSummarySheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "employees.xlsx")
	deps := []Department{{Name: "Sales", Employees: []string{"Alice"}}}

	summaries, err := Create(path, deps, []string{"Date", "Time", "Calls"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Sales"}, summaries)

	wb, err := Open(path)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"Sales", "Alice"}, wb.SheetNames())
	assert.Equal(t, []string{"Sales"}, wb.SummarySheets())

	_, err = Create(filepath.Join(t.TempDir(), "none.xlsx"), []Department{{Name: "Empty"}}, nil)
	assert.Error(t, err)
}
