// Package calllog reads PBX call-log exports into timeline calls.
package calllog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"minutebook/timeline"
	"minutebook/workbook"
)

type field int

const (
	fieldType field = iota
	fieldClient
	fieldEmployee
	fieldVia
	fieldDate
	fieldTime
	fieldDuration
	fieldCount
)

// headerNames lists the column titles recognised for each field, in English
// and as the PBX writes them.
var headerNames = map[string]field{
	"type":         fieldType,
	"call type":    fieldType,
	"тип":          fieldType,
	"тип звонка":   fieldType,
	"client":       fieldClient,
	"клиент":       fieldClient,
	"employee":     fieldEmployee,
	"сотрудник":    fieldEmployee,
	"via":          fieldVia,
	"through":      fieldVia,
	"через":        fieldVia,
	"date":         fieldDate,
	"дата":         fieldDate,
	"time":         fieldTime,
	"время":        fieldTime,
	"duration":     fieldDuration,
	"длительность": fieldDuration,
}

// headerScanRows bounds how far down the header row is searched; exports
// carry a block of report metadata above it.
const headerScanRows = 20

var DefaultSkipTypes = []string{"missed", "пропущенный"}

type Options struct {
	// SkipTypes lists call types that are not merged, compared case-insensitively.
	SkipTypes []string
	// Aliases renames employees to their sheet names.
	Aliases map[string]string
}

type Result struct {
	Calls []timeline.Call
	// Skipped counts calls of a skipped type.
	Skipped int
	// Invalid counts rows whose date or time could not be read.
	Invalid int
}

// table holds an export's cells twice: as displayed, and as stored where
// the two differ (Excel serials).
type table struct {
	formatted [][]string
	raw       [][]string
}

func (t table) cell(row, col int, raw bool) string {
	rows := t.formatted
	if raw && t.raw != nil {
		rows = t.raw
	}
	if row >= len(rows) || col < 0 || col >= len(rows[row]) {
		return ""
	}
	return strings.TrimSpace(rows[row][col])
}

// ReadFile reads an .xlsx (first sheet) or .csv call log.
func ReadFile(path string, opts Options) (Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path, opts)
	case ".csv", ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return Result{}, fmt.Errorf("failed to read call log: %w", err)
		}
		return ReadCSV(bytes.NewReader(data), opts)
	default:
		return Result{}, fmt.Errorf("unsupported call log format: %s", filepath.Ext(path))
	}
}

func readXLSX(path string, opts Options) (Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open call log: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{}, fmt.Errorf("call log has no sheets")
	}
	formatted, err := f.GetRows(sheets[0])
	if err != nil {
		return Result{}, fmt.Errorf("failed to read call log: %w", err)
	}
	raw, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Result{}, fmt.Errorf("failed to read call log: %w", err)
	}
	return parse(table{formatted: formatted, raw: raw}, opts), nil
}

// ReadCSV reads a call log separated by ';' or ','.
func ReadCSV(r io.Reader, opts Options) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read call log: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectComma(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse call log: %w", err)
	}
	return parse(table{formatted: records}, opts), nil
}

func detectComma(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

// columns finds the header row. Without one, the first row is taken as a
// header and fields are read by position.
func columns(t table) (cols [fieldCount]int, first int) {
	for i := 0; i < len(t.formatted) && i < headerScanRows; i++ {
		for f := range cols {
			cols[f] = -1
		}
		found := 0
		for c, v := range t.formatted[i] {
			f, ok := headerNames[strings.ToLower(strings.TrimSpace(v))]
			if ok && cols[f] < 0 {
				cols[f] = c
				found++
			}
		}
		if found >= 3 && cols[fieldDate] >= 0 && cols[fieldEmployee] >= 0 {
			return cols, i + 1
		}
	}

	for f := range cols {
		cols[f] = f
	}
	return cols, 1
}

func parse(t table, opts Options) Result {
	if opts.SkipTypes == nil {
		opts.SkipTypes = DefaultSkipTypes
	}
	skip := make(map[string]bool, len(opts.SkipTypes))
	for _, s := range opts.SkipTypes {
		skip[strings.ToLower(strings.TrimSpace(s))] = true
	}

	var res Result
	cols, first := columns(t)
	for i := first; i < len(t.formatted); i++ {
		get := func(f field, raw bool) string {
			return t.cell(i, cols[f], raw)
		}

		if isBlank(t.formatted[i]) {
			continue
		}

		callType := get(fieldType, false)
		if skip[strings.ToLower(callType)] {
			res.Skipped++
			continue
		}

		dateCell := workbook.DateCell(get(fieldDate, true))
		date, ok := timeline.ParseDate(dateCell)
		if !ok {
			log.Printf("call log row %d: unreadable date %q, skipping", i+1, dateCell)
			res.Invalid++
			continue
		}

		clockCell := workbook.ClockCell(get(fieldTime, true))
		if clockCell == "" {
			clockCell = workbook.ClockCell(get(fieldDate, true))
		}
		hour, minute, ok := timeline.ParseClock(clockCell)
		if !ok {
			log.Printf("call log row %d: unreadable time %q, skipping", i+1, clockCell)
			res.Invalid++
			continue
		}

		employee := get(fieldEmployee, false)
		if alias, ok := opts.Aliases[employee]; ok {
			employee = alias
		}

		res.Calls = append(res.Calls, timeline.NewCall(
			callType,
			get(fieldClient, false),
			employee,
			get(fieldVia, false),
			timeline.Combine(date, hour, minute),
			timeline.ParseDuration(get(fieldDuration, false)),
		))
	}
	return res
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
