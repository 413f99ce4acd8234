package workbook

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"

	"minutebook/timeline"
)

const EmployeesHeader = "Employees"

type Department struct {
	Name      string
	Employees []string
}

// ParseDepartments reads a staff list where a line ending in ':' opens a
// department and every following non-blank line names one of its employees.
func ParseDepartments(r io.Reader) ([]Department, error) {
	var (
		deps    []Department
		current = -1
		lineNo  int
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, ":") {
			deps = append(deps, Department{Name: strings.TrimSpace(strings.TrimSuffix(line, ":"))})
			current = len(deps) - 1
			continue
		}
		if current < 0 {
			return nil, fmt.Errorf("line %d: employee %q listed before any department", lineNo, line)
		}
		deps[current].Employees = append(deps[current].Employees, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read departments: %w", err)
	}
	return deps, nil
}

// New builds a workbook with one sheet per department listing its employees,
// followed by one empty timeline sheet per employee. It returns the names of
// the department sheets, which never receive calls.
func New(deps []Department, header []string) (*Workbook, []string) {
	wb := &Workbook{}
	seen := make(map[string]bool)
	var summaries []string

	for _, d := range deps {
		if len(d.Employees) == 0 {
			log.Printf("department %q has no employees, skipping", d.Name)
			continue
		}

		name := timeline.SheetName(d.Name)
		if seen[name] {
			log.Printf("duplicate sheet %q, skipping", name)
		} else {
			seen[name] = true
			s := timeline.NewSheet(name, EmployeesHeader)
			for _, e := range d.Employees {
				s.Append(e)
			}
			wb.Sheets = append(wb.Sheets, s)
			summaries = append(summaries, name)
		}

		for _, e := range d.Employees {
			name := timeline.SheetName(e)
			if seen[name] {
				log.Printf("duplicate sheet %q, skipping", name)
				continue
			}
			seen[name] = true
			wb.Sheets = append(wb.Sheets, timeline.NewSheet(name, append([]string(nil), header...)...))
		}
	}
	return wb, summaries
}

// Create builds the workbook for deps and saves it at path.
func Create(path string, deps []Department, header []string) ([]string, error) {
	wb, summaries := New(deps, header)
	defer wb.Close()
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("no employees found")
	}
	if err := wb.Save(path); err != nil {
		return nil, err
	}
	return summaries, nil
}

// SummarySheets names the department sheets, recognised by their header.
func (wb *Workbook) SummarySheets() []string {
	var names []string
	for _, s := range wb.Sheets {
		if len(s.Header) > 0 && s.Header[0] == EmployeesHeader {
			names = append(names, s.Name)
		}
	}
	return names
}
