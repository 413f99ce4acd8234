// Package activity reads PC-monitoring exports of program and site usage and
// writes them into employee timelines.
package activity

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"golang.org/x/net/html/charset"

	"minutebook/timeline"
)

// Report names as the monitoring tool writes them.
const (
	ProgramsReport = "Программы"
	SitesReport    = "Сайты"
)

// DefaultSkipEmployees drops the desk phones the monitoring agent reports
// as users.
var DefaultSkipEmployees = []string{"Телефон"}

var ErrNoReports = errors.New("no programs or sites report found")

// Entry is one minute an employee spent in a program or on a site.
type Entry struct {
	Employee string
	Key      timeline.Key
	Program  string
	Site     string
}

type Options struct {
	// SkipEmployees drops users whose name contains any of these.
	SkipEmployees []string
	// Aliases renames employees to their sheet names.
	Aliases map[string]string
}

type Result struct {
	Entries []Entry
	// Skipped counts items of skipped users.
	Skipped int
	// Invalid counts items whose start time could not be read.
	Invalid int
}

type (
	xmlItem struct {
		Desc  string `xml:"desc"`
		URL   string `xml:"url"`
		STime string `xml:"stime"`
	}

	xmlUser struct {
		Fio   string    `xml:"fio"`
		Items []xmlItem `xml:"item"`
	}
)

// ReadFile parses an activity export.
func ReadFile(path string, opts Options) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open activity export: %w", err)
	}
	defer f.Close()

	res, err := Parse(f, opts)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Parse reads every <report> named "Программы" or "Сайты" and turns each
// <item> of its users into an Entry. Reports may sit anywhere in the
// document and other reports are ignored. Entries come back ordered by
// minute, programs before sites within a minute.
func Parse(r io.Reader, opts Options) (Result, error) {
	if opts.SkipEmployees == nil {
		opts.SkipEmployees = DefaultSkipEmployees
	}

	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var (
		res   Result
		found bool
		// name and users of the report being read
		name  string
		users []xmlUser
		depth int
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("failed to parse activity export: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "report":
				depth++
				if depth == 1 {
					name, users = "", nil
				}
			case depth == 0:
			case t.Name.Local == "name" && name == "":
				var v string
				if err := dec.DecodeElement(&v, &t); err != nil {
					return Result{}, fmt.Errorf("failed to read report name: %w", err)
				}
				name = strings.TrimSpace(v)
			case t.Name.Local == "user":
				var u xmlUser
				if err := dec.DecodeElement(&u, &t); err != nil {
					return Result{}, fmt.Errorf("failed to read user: %w", err)
				}
				users = append(users, u)
			}
		case xml.EndElement:
			if t.Name.Local != "report" || depth == 0 {
				continue
			}
			depth--
			if depth > 0 {
				continue
			}
			switch name {
			case ProgramsReport, SitesReport:
				found = true
				res.add(users, name == SitesReport, opts)
			default:
				log.Printf("skipping report %q", name)
			}
		}
	}

	if !found {
		return Result{}, ErrNoReports
	}

	sort.SliceStable(res.Entries, func(i, j int) bool {
		a, b := res.Entries[i], res.Entries[j]
		if a.Key != b.Key {
			return a.Key.Less(b.Key)
		}
		return a.Site == "" && b.Site != ""
	})
	return res, nil
}

func (res *Result) add(users []xmlUser, sites bool, opts Options) {
	for _, u := range users {
		employee := strings.TrimSpace(u.Fio)
		if skipped(employee, opts.SkipEmployees) {
			res.Skipped += len(u.Items)
			continue
		}
		if alias, ok := opts.Aliases[employee]; ok {
			employee = alias
		}

		for _, it := range u.Items {
			k, ok := startKey(it.STime)
			if !ok {
				res.Invalid++
				log.Printf("%s: unreadable start time %q", employee, it.STime)
				continue
			}
			e := Entry{Employee: employee, Key: k, Program: strings.TrimSpace(it.Desc)}
			if sites {
				e.Site = strings.TrimSpace(it.URL)
			}
			res.Entries = append(res.Entries, e)
		}
	}
}

func skipped(employee string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(employee, p) {
			return true
		}
	}
	return false
}

// startKey reads an item start time, "2024-06-01 09:15:30", down to the
// minute.
func startKey(stime string) (timeline.Key, bool) {
	date, clock, ok := strings.Cut(strings.TrimSpace(stime), " ")
	if !ok {
		return timeline.Key{}, false
	}
	k := timeline.Key{
		Date: timeline.CanonicalDate(date),
		Time: timeline.CanonicalClock(strings.TrimSpace(clock)),
	}
	if k.Date == "" || k.Time == "" {
		return timeline.Key{}, false
	}
	return k, true
}
