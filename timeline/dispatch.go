package timeline

import (
	"log"
	"time"
	"unicode/utf8"
)

// MaxSheetName is the longest sheet name a workbook accepts.
const MaxSheetName = 31

const DefaultLabelHeader = "Calls"

type DispatchOptions struct {
	// LabelHeader names the column that receives call labels.
	LabelHeader string
	// Exclude lists sheets that never receive calls, such as department summaries.
	Exclude []string
	// Offsets shifts each employee's calls into the company's time zone.
	Offsets map[string]time.Duration
}

// Report is the outcome of one dispatch.
type Report struct {
	// Inserted counts rows added per sheet.
	Inserted map[string]int
	// Dropped counts calls per employee that had no sheet.
	Dropped map[string]int
	// Failed holds sheets that could not be merged.
	Failed map[string]error
}

func (r Report) TotalInserted() int {
	n := 0
	for _, v := range r.Inserted {
		n += v
	}
	return n
}

func (r Report) TotalDropped() int {
	n := 0
	for _, v := range r.Dropped {
		n += v
	}
	return n
}

// SheetName truncates an employee name to the sheet name limit.
func SheetName(name string) string {
	if utf8.RuneCountInString(name) <= MaxSheetName {
		return name
	}
	return string([]rune(name)[:MaxSheetName])
}

// Dispatch routes calls to the sheet named after their employee and merges
// each sheet independently. Calls for employees without a sheet are counted
// in the report; a sheet that fails does not stop the others.
func Dispatch(sheets []*Sheet, calls []Call, opts DispatchOptions) Report {
	if opts.LabelHeader == "" {
		opts.LabelHeader = DefaultLabelHeader
	}

	report := Report{
		Inserted: make(map[string]int),
		Dropped:  make(map[string]int),
		Failed:   make(map[string]error),
	}

	excluded := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		excluded[name] = true
	}

	byName := make(map[string]*Sheet, len(sheets))
	for _, s := range sheets {
		if !excluded[s.Name] {
			byName[s.Name] = s
		}
	}

	grouped := make(map[string][]Call)
	for _, c := range calls {
		s, ok := byName[c.Employee]
		if !ok {
			s, ok = byName[SheetName(c.Employee)]
		}
		if !ok {
			report.Dropped[c.Employee]++
			continue
		}
		if d := opts.Offsets[c.Employee]; d != 0 {
			c = c.Shift(d)
		}
		grouped[s.Name] = append(grouped[s.Name], c)
	}

	for _, s := range sheets {
		sheetCalls := grouped[s.Name]
		if len(sheetCalls) == 0 {
			continue
		}
		if len(s.Header) == 0 {
			report.Failed[s.Name] = ErrNoHeader
			log.Printf("skipping sheet %q: %v", s.Name, ErrNoHeader)
			continue
		}

		labelCol := s.EnsureColumn(opts.LabelHeader)
		ix, err := BuildIndex(s)
		if err != nil {
			report.Failed[s.Name] = err
			log.Printf("skipping sheet %q: %v", s.Name, err)
			continue
		}
		report.Inserted[s.Name] = MergeCalls(ix, labelCol, sheetCalls)
	}

	for employee, n := range report.Dropped {
		log.Printf("%d call(s) for %q have no sheet", n, employee)
	}
	return report
}
