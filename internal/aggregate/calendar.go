package aggregate

import (
	"fmt"
	"time"

	"area710/internal/model"
)

var (
	weekdayLabels = [7]string{"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"}
	monthNames    = [12]string{"Januar", "Februar", "März", "April", "Mai", "Juni", "Juli", "August", "September", "Oktober", "November", "Dezember"}
)

// Cell is one day of a month grid. Cells outside the month carry no records
// and are rendered dimmed.
type Cell struct {
	Date    string               `json:"date"`
	Day     int                  `json:"day"`
	InMonth bool                 `json:"in_month"`
	Today   bool                 `json:"today"`
	Past    bool                 `json:"past"`
	Events  []*model.PublicEvent `json:"events"`
	Blocked []*model.BlockedSlot `json:"blocked"`
}

// Month is a 7-column calendar grid.
type Month struct {
	Year     int        `json:"year"`
	Month    time.Month `json:"month"`
	Title    string     `json:"title"`
	Weekdays []string   `json:"weekdays"`
	Cells    []Cell     `json:"cells"`
}

// Rows splits the cells into weeks.
func (m Month) Rows() [][]Cell {
	var rows [][]Cell
	for i := 0; i+7 <= len(m.Cells); i += 7 {
		rows = append(rows, m.Cells[i:i+7])
	}
	return rows
}

// CalendarMonth lays out month of year starting weeks on weekStart. Every
// in-month cell lists the public events and blocked slots dated that day.
// With onlyFuture, public events on days before today are left out; blocked
// slots are always shown.
func CalendarMonth(events model.Events, year int, month time.Month, today time.Time, onlyFuture bool, weekStart time.Weekday) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	year, month = first.Year(), first.Month()
	days := first.AddDate(0, 1, -1).Day()
	lead := (int(first.Weekday()) - int(weekStart) + 7) % 7
	todayDay := dayOf(today)

	m := Month{
		Year:     year,
		Month:    month,
		Title:    fmt.Sprintf("%s %d", monthNames[month-1], year),
		Weekdays: make([]string, 7),
	}
	for i := range m.Weekdays {
		m.Weekdays[i] = weekdayLabels[(int(weekStart)+i)%7]
	}

	public := map[string][]*model.PublicEvent{}
	blocked := map[string][]*model.BlockedSlot{}
	for _, rec := range events {
		switch e := rec.(type) {
		case *model.PublicEvent:
			public[e.Date] = append(public[e.Date], e)
		case *model.BlockedSlot:
			blocked[e.Date] = append(blocked[e.Date], e)
		}
	}

	for i := lead; i > 0; i-- {
		m.Cells = append(m.Cells, outside(first.AddDate(0, 0, -i)))
	}
	for d := 1; d <= days; d++ {
		at := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		key := at.Format(model.DateLayout)
		c := Cell{
			Date:    key,
			Day:     d,
			InMonth: true,
			Today:   at.Equal(todayDay),
			Past:    at.Before(todayDay),
			Events:  public[key],
			Blocked: blocked[key],
		}
		if onlyFuture && c.Past {
			c.Events = nil
		}
		if c.Events == nil {
			c.Events = []*model.PublicEvent{}
		}
		if c.Blocked == nil {
			c.Blocked = []*model.BlockedSlot{}
		}
		m.Cells = append(m.Cells, c)
	}
	next := first.AddDate(0, 1, 0)
	for i := 0; len(m.Cells)%7 != 0; i++ {
		m.Cells = append(m.Cells, outside(next.AddDate(0, 0, i)))
	}
	return m
}

func outside(at time.Time) Cell {
	return Cell{
		Date:    at.Format(model.DateLayout),
		Day:     at.Day(),
		Events:  []*model.PublicEvent{},
		Blocked: []*model.BlockedSlot{},
	}
}
