// Package event marks calendar holidays so that forecast days falling on them can be
// annotated in reports.
package event

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

var (
	ErrStartAfterEnd = errors.New("event start time is after end time")
	ErrUnsetTime     = errors.New("unset event start or end time")
	ErrNoEventName   = errors.New("no event name")
)

// USHolidays are the federal holidays that shift rental demand
var USHolidays = []*cal.Holiday{
	us.NewYear,
	us.MlkDay,
	us.PresidentsDay,
	us.MemorialDay,
	us.IndependenceDay,
	us.LaborDay,
	us.ColumbusDay,
	us.VeteransDay,
	us.ThanksgivingDay,
	us.ChristmasDay,
}

// Event represents a named time span, start inclusive and end exclusive
type Event struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewEvent(name string, start, end time.Time) Event {
	return Event{
		Name:  name,
		Start: start,
		End:   end,
	}
}

func (e *Event) Valid() error {
	if e.Start.IsZero() || e.End.IsZero() {
		return ErrUnsetTime
	}
	if e.Start.After(e.End) {
		return ErrStartAfterEnd
	}
	if e.Name == "" {
		return ErrNoEventName
	}
	return nil
}

// Contains reports whether t falls within the event
func (e *Event) Contains(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

// Holiday returns one day long events for each observed date of the holiday between start and
// end inclusive. Days are aligned to midnight in the location of start.
func Holiday(hol *cal.Holiday, start, end time.Time) []Event {
	loc := start.Location()

	events := []Event{}
	for i := start.Year(); i <= end.Year(); i++ {
		_, observed := hol.Calc(i)
		if observed.IsZero() {
			continue
		}
		day := time.Date(observed.Year(), observed.Month(), observed.Day(), 0, 0, 0, 0, loc)
		next := day.AddDate(0, 0, 1)

		// keep any holiday whose day overlaps the range
		if next.After(start) && !day.After(end) {
			events = append(events, Event{
				Name:  strings.ReplaceAll(fmt.Sprintf("%s_%d", hol.Name, i), " ", "_"),
				Start: day,
				End:   next,
			})
		}
	}
	return events
}

// Calendar is a set of holiday events looked up by time
type Calendar struct {
	events []Event
}

// NewCalendar expands the holidays over the range. If no holidays are provided the US federal
// holidays are used.
func NewCalendar(start, end time.Time, holidays ...*cal.Holiday) *Calendar {
	if len(holidays) == 0 {
		holidays = USHolidays
	}
	c := &Calendar{}
	for _, hol := range holidays {
		c.events = append(c.events, Holiday(hol, start, end)...)
	}
	return c
}

// Lookup returns the name of the first holiday containing t
func (c *Calendar) Lookup(t time.Time) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, e := range c.events {
		if e.Contains(t) {
			return e.Name, true
		}
	}
	return "", false
}

func (c *Calendar) Events() []Event {
	if c == nil {
		return nil
	}
	return append([]Event(nil), c.events...)
}
