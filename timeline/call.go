package timeline

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	continuationPrefix = "Continuation of call: "
)

// Key identifies one minute of one day. Both fields are zero-padded, so
// comparing them as strings orders keys chronologically.
type Key struct {
	Date string
	Time string
}

func KeyOf(t time.Time) Key {
	return Key{Date: t.Format(DateLayout), Time: t.Format(ClockLayout)}
}

func (k Key) Less(o Key) bool {
	if k.Date != o.Date {
		return k.Date < o.Date
	}
	return k.Time < o.Time
}

func (k Key) String() string {
	return k.Date + " " + k.Time
}

// Call is one answered call from a call log.
type Call struct {
	Type     string
	Client   string
	Employee string
	Via      string
	// Start is the wall-clock minute the call began, stored in UTC.
	Start   time.Time
	Minutes int
}

// NewCall truncates start to the minute and resolves the duration.
func NewCall(callType, client, employee, via string, start time.Time, d Duration) Call {
	wall := time.Date(start.Year(), start.Month(), start.Day(), start.Hour(), start.Minute(), 0, 0, time.UTC)
	return Call{
		Type:     callType,
		Client:   client,
		Employee: employee,
		Via:      via,
		Start:    wall,
		Minutes:  d.Minutes(),
	}
}

func (c Call) Description() string {
	return fmt.Sprintf("%s call with %s", c.Type, c.Client)
}

// Shift moves the call by a time-zone difference.
func (c Call) Shift(d time.Duration) Call {
	c.Start = c.Start.Add(d)
	return c
}

// SubEvent is one minute of a call, materialised as one sheet row.
type SubEvent struct {
	Key   Key
	Label string
	Call  *Call
}

// SubEvents expands the call into one event per minute.
func (c *Call) SubEvents() []SubEvent {
	n := c.Minutes
	if n < 1 {
		n = 1
	}

	desc := c.Description()
	events := make([]SubEvent, 0, n)
	for k := 0; k < n; k++ {
		label := desc
		if k > 0 {
			label = continuationPrefix + desc
		}
		events = append(events, SubEvent{
			Key:   KeyOf(c.Start.Add(time.Duration(k) * time.Minute)),
			Label: label,
			Call:  c,
		})
	}
	return events
}
