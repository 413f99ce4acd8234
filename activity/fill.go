package activity

import (
	"log"
	"sort"

	"minutebook/timeline"
)

const (
	ProgramHeader = "Program"
	SiteHeader    = "Site"
)

type FillOptions struct {
	// Exclude lists sheets that never receive activity.
	Exclude []string
}

// Fill writes entries into the sheet named after their employee. Each entry
// becomes one row placed by minute among the rows already there, with the
// date shown only on the first row of a day. Every row keeps its time so
// later merges can still place rows after it. A sheet without a header gets
// "Date", "Time", "Program", "Site".
func Fill(sheets []*timeline.Sheet, entries []Entry, opts FillOptions) timeline.Report {
	report := timeline.Report{
		Inserted: make(map[string]int),
		Dropped:  make(map[string]int),
		Failed:   make(map[string]error),
	}

	excluded := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		excluded[name] = true
	}
	byName := make(map[string]*timeline.Sheet, len(sheets))
	for _, s := range sheets {
		if !excluded[s.Name] {
			byName[s.Name] = s
		}
	}

	grouped := make(map[string][]Entry)
	for _, e := range entries {
		s, ok := byName[timeline.SheetName(e.Employee)]
		if !ok {
			report.Dropped[e.Employee]++
			continue
		}
		grouped[s.Name] = append(grouped[s.Name], e)
	}

	for _, s := range sheets {
		sheetEntries := grouped[s.Name]
		if len(sheetEntries) == 0 {
			continue
		}
		n, err := fillSheet(s, sheetEntries)
		if err != nil {
			report.Failed[s.Name] = err
			log.Printf("skipping sheet %q: %v", s.Name, err)
			continue
		}
		report.Inserted[s.Name] = n
	}

	for employee, n := range report.Dropped {
		log.Printf("%d activity entries for %q have no sheet", n, employee)
	}
	return report
}

func fillSheet(s *timeline.Sheet, entries []Entry) (int, error) {
	if len(s.Header) == 0 {
		s.Header = []string{"Date", "Time"}
	}
	programCol := s.EnsureColumn(ProgramHeader)
	siteCol := s.EnsureColumn(SiteHeader)

	ix, err := timeline.BuildIndex(s)
	if err != nil {
		return 0, err
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Key.Less(entries[j].Key) })

	for _, e := range entries {
		ix.InsertRow(e.Key, map[int]string{programCol: e.Program, siteCol: e.Site})
	}
	return len(entries), nil
}
