package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minutebook/timeline"
)

func entry(employee, date, clock, program, site string) Entry {
	return Entry{Employee: employee, Key: timeline.Key{Date: date, Time: clock}, Program: program, Site: site}
}

func rows(s *timeline.Sheet) [][]string {
	var out [][]string
	for _, r := range s.Rows {
		cells := make([]string, len(s.Header))
		copy(cells, r.Cells)
		out = append(out, cells)
	}
	return out
}

func TestFillShowsDateOncePerDay(t *testing.T) {
	alice := timeline.NewSheet("Alice", "Date", "Time", "Calls")

	report := Fill([]*timeline.Sheet{alice}, []Entry{
		entry("Alice", "2024-06-02", "08:00", "1C", ""),
		entry("Alice", "2024-06-01", "09:00", "Excel", ""),
		entry("Alice", "2024-06-01", "09:00", "Почта", "mail.example.com"),
		entry("Alice", "2024-06-01", "09:01", "Excel", ""),
	}, FillOptions{})

	assert.Equal(t, map[string]int{"Alice": 4}, report.Inserted)
	assert.Equal(t, []string{"Date", "Time", "Calls", ProgramHeader, SiteHeader}, alice.Header)
	assert.Equal(t, [][]string{
		{"2024-06-01", "09:00", "", "Excel", ""},
		{"", "09:00", "", "Почта", "mail.example.com"},
		{"", "09:01", "", "Excel", ""},
		{"2024-06-02", "08:00", "", "1C", ""},
	}, rows(alice))
}

func TestFillHeaderlessSheet(t *testing.T) {
	bob := &timeline.Sheet{Name: "Bob"}

	Fill([]*timeline.Sheet{bob}, []Entry{entry("Bob", "2024-06-01", "10:00", "Word", "")}, FillOptions{})

	assert.Equal(t, []string{"Date", "Time", ProgramHeader, SiteHeader}, bob.Header)
	assert.Equal(t, [][]string{{"2024-06-01", "10:00", "Word", ""}}, rows(bob))
}

func TestFillAmongCalls(t *testing.T) {
	alice := timeline.NewSheet("Alice", "Date", "Time", "Calls")
	alice.Append("2024-06-01", "09:00", "Incoming call with ACME")

	Fill([]*timeline.Sheet{alice}, []Entry{
		entry("Alice", "2024-06-01", "08:59", "Excel", ""),
		entry("Alice", "2024-06-01", "09:00", "CRM", ""),
	}, FillOptions{})

	assert.Equal(t, [][]string{
		{"2024-06-01", "08:59", "", "Excel", ""},
		{"", "09:00", "Incoming call with ACME", "", ""},
		{"", "09:00", "", "CRM", ""},
	}, rows(alice))

	// a later call merge still finds every minute
	ix, err := timeline.BuildIndex(alice)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, ix.Rows(timeline.Key{Date: "2024-06-01", Time: "09:00"}))
}

func TestFillDropsAndExcludes(t *testing.T) {
	alice := timeline.NewSheet("Alice", "Date", "Time", "Calls")
	sales := timeline.NewSheet("Sales", "Employees")

	report := Fill([]*timeline.Sheet{alice, sales}, []Entry{
		entry("Sales", "2024-06-01", "09:00", "Excel", ""),
		entry("Carol", "2024-06-01", "09:00", "Excel", ""),
		entry("Carol", "2024-06-01", "09:01", "Excel", ""),
	}, FillOptions{Exclude: []string{"Sales"}})

	assert.Empty(t, report.Inserted)
	assert.Equal(t, map[string]int{"Sales": 1, "Carol": 2}, report.Dropped)
	assert.Empty(t, alice.Rows)
	assert.Empty(t, sales.Rows)
	assert.Equal(t, []string{"Employees"}, sales.Header)
}
