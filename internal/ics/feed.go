// Package ics bridges the events collection and iCalendar: it publishes
// events as a feed, expands recurrence rules into blocked-slot series, and
// imports remote calendars as blocked slots.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"area710/internal/model"
)

// FeedOptions controls Feed.
type FeedOptions struct {
	ProductID string
	Name      string
	// Location interprets record dates and times; nil means time.Local.
	Location *time.Location
	// IncludeBlocked adds blocked slots as private, busy entries.
	IncludeBlocked bool
	// Stamp is written as DTSTAMP on every entry.
	Stamp time.Time
}

// Feed renders events as an iCalendar document. Records without a parsable
// date are skipped. Public events without a time become all-day entries.
func Feed(events model.Events, opt FeedOptions) string {
	loc := opt.Location
	if loc == nil {
		loc = time.Local
	}
	if opt.Stamp.IsZero() {
		opt.Stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	if opt.ProductID != "" {
		cal.SetProductId(opt.ProductID)
	}
	if opt.Name != "" {
		cal.SetName(opt.Name)
		cal.SetXWRCalName(opt.Name)
	}
	cal.SetXWRTimezone(loc.String())

	for _, rec := range events {
		switch e := rec.(type) {
		case *model.PublicEvent:
			addPublic(cal, e, loc, opt.Stamp)
		case *model.BlockedSlot:
			if opt.IncludeBlocked {
				addBlocked(cal, e, loc, opt.Stamp)
			}
		}
	}
	return cal.Serialize()
}

func addPublic(cal *ical.Calendar, e *model.PublicEvent, loc *time.Location, stamp time.Time) {
	day, ok := model.ParseDate(e.Date)
	if !ok {
		return
	}
	ve := cal.AddEvent(fmt.Sprintf("event-%d@area710", e.ID))
	ve.SetDtStampTime(stamp)
	ve.SetSummary(firstNonEmpty(e.Title.DE, e.Title.EN))
	if d := joinNonEmpty("\n\n", e.Description.DE, e.Description.EN); d != "" {
		ve.SetDescription(d)
	}
	if e.Category != "" {
		ve.AddCategory(e.Category)
	}
	if e.TicketURL != "" {
		ve.SetURL(e.TicketURL)
	}
	ve.SetStatus(ical.ObjectStatusConfirmed)

	if start, ok := clockOn(day, e.Time, loc); ok {
		ve.SetStartAt(start)
		return
	}
	ve.SetAllDayStartAt(day)
	ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
}

func addBlocked(cal *ical.Calendar, b *model.BlockedSlot, loc *time.Location, stamp time.Time) {
	day, ok := model.ParseDate(b.Date)
	if !ok {
		return
	}
	ve := cal.AddEvent(fmt.Sprintf("blocked-%d@area710", b.ID))
	ve.SetDtStampTime(stamp)
	ve.SetSummary(joinNonEmpty(": ", "Blockiert", b.Reason))
	ve.SetClass(ical.ClassificationPrivate)
	if b.Status == model.StatusReserved {
		ve.SetStatus(ical.ObjectStatusTentative)
	} else {
		ve.SetStatus(ical.ObjectStatusConfirmed)
	}
	if len(b.Rooms) > 0 {
		rooms := make([]string, len(b.Rooms))
		for i, r := range b.Rooms {
			rooms[i] = string(r)
		}
		ve.SetLocation(strings.Join(rooms, ", "))
	}

	start, okStart := clockOn(day, b.StartTime, loc)
	end, okEnd := clockOn(day, b.EndTime, loc)
	if !okStart || !okEnd || end.Before(start) {
		ve.SetAllDayStartAt(day)
		ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
		return
	}
	ve.SetStartAt(start)
	ve.SetEndAt(end)
}

// clockOn combines a date with an "HH:MM" clock in loc.
func clockOn(day time.Time, clock string, loc *time.Location) (time.Time, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, vals ...string) string {
	var parts []string
	for _, v := range vals {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}
