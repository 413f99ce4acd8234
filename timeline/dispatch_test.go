package timeline

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch(t *testing.T) {
	alice := NewSheet("Alice", "Date", "Time")
	bob := NewSheet("Bob", "Date", "Time", "Calls")
	sales := NewSheet("Sales", "Employees")
	dave := &Sheet{Name: "Dave"}

	start := at("2024-06-01", 9, 0)
	calls := []Call{
		{Type: "Incoming", Client: "X", Employee: "Alice", Start: start, Minutes: 2},
		{Type: "Outgoing", Client: "Y", Employee: "Bob", Start: start, Minutes: 1},
		{Type: "Outgoing", Client: "Z", Employee: "Carol", Start: start, Minutes: 1},
		{Type: "Outgoing", Client: "Z", Employee: "Sales", Start: start, Minutes: 1},
		{Type: "Outgoing", Client: "Z", Employee: "Dave", Start: start, Minutes: 1},
	}

	report := Dispatch([]*Sheet{alice, bob, sales, dave}, calls, DispatchOptions{Exclude: []string{"Sales"}})

	assert.Equal(t, map[string]int{"Alice": 2, "Bob": 1}, report.Inserted)
	assert.Equal(t, map[string]int{"Carol": 1, "Sales": 1}, report.Dropped)
	require.Contains(t, report.Failed, "Dave")
	assert.ErrorIs(t, report.Failed["Dave"], ErrNoHeader)
	assert.Equal(t, 3, report.TotalInserted())
	assert.Equal(t, 2, report.TotalDropped())

	assert.Equal(t, []string{"Date", "Time", "Calls"}, alice.Header)
	require.Len(t, alice.Rows, 2)
	assert.Equal(t, "Incoming call with X", alice.Rows[0].Cell(2))
	assert.Empty(t, sales.Rows)
}

func TestDispatchAppliesOffsets(t *testing.T) {
	alice := NewSheet("Alice", "Date", "Time", "Calls")
	calls := []Call{{Type: "Incoming", Client: "X", Employee: "Alice", Start: at("2024-06-01", 23, 0), Minutes: 1}}

	report := Dispatch([]*Sheet{alice}, calls, DispatchOptions{
		Offsets: map[string]time.Duration{"Alice": 2 * time.Hour},
	})

	assert.Equal(t, 1, report.Inserted["Alice"])
	require.Len(t, alice.Rows, 1)
	assert.Equal(t, "2024-06-02", alice.Rows[0].Cell(DateCol))
	assert.Equal(t, "01:00", alice.Rows[0].Cell(TimeCol))
}

func TestDispatchMatchesTruncatedSheetName(t *testing.T) {
	long := "Konstantinopolskaya Aleksandra Vladimirovna"
	s := NewSheet(SheetName(long), "Date", "Time", "Calls")
	require.Len(t, []rune(s.Name), MaxSheetName)

	report := Dispatch([]*Sheet{s}, []Call{{Type: "Incoming", Client: "X", Employee: long, Start: at("2024-06-01", 9, 0), Minutes: 1}}, DispatchOptions{})

	assert.Equal(t, 1, report.Inserted[s.Name])
	assert.Empty(t, report.Dropped)
}

func TestDispatchCustomLabelHeader(t *testing.T) {
	s := NewSheet("Alice", "Date", "Time", "Programs")
	Dispatch([]*Sheet{s}, []Call{{Type: "Incoming", Client: "X", Employee: "Alice", Start: at("2024-06-01", 9, 0), Minutes: 1}}, DispatchOptions{LabelHeader: "Звонки"})

	assert.Equal(t, []string{"Date", "Time", "Programs", "Звонки"}, s.Header)
	assert.True(t, strings.HasPrefix(s.Rows[0].Cell(3), "Incoming"))
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Alice", SheetName("Alice"))
	assert.Equal(t, strings.Repeat("я", MaxSheetName), SheetName(strings.Repeat("я", 40)))
}
