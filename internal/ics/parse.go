package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "area710/internal/log"
)

// Entry is a VEVENT of an imported calendar, recurrence not yet expanded.
type Entry struct {
	UID      string
	Summary  string
	Location string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule      string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID of an overriding instance
}

// Parse reads an iCalendar payload. VEVENTs without UID or DTSTART are
// logged and skipped.
func Parse(src Source, body []byte) ([]Entry, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID)
		return nil, err
	}

	var out []Entry
	for _, ve := range cal.Events() {
		e, err := parseVEvent(ve)
		if err != nil {
			appLog.Warn("ics vevent skipped", "id", src.ID, "reason", err.Error())
			continue
		}
		out = append(out, e)
	}
	appLog.Info("ics parse completed", "id", src.ID, "event_count", len(out))
	return out, nil
}

func parseVEvent(ve *ical.VEvent) (Entry, error) {
	var e Entry

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return e, errors.New("missing UID")
	}
	e.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		e.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		e.Location = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return e, errors.New("missing DTSTART")
	}
	if vs := dtStart.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		e.AllDay = true
	}
	if !strings.Contains(dtStart.Value, "T") {
		e.AllDay = true
	}

	var err error
	if e.AllDay {
		e.Start, err = ve.GetAllDayStartAt()
		if err != nil {
			return e, err
		}
		e.End, err = ve.GetAllDayEndAt()
		if err != nil || !e.End.After(e.Start) {
			e.End = e.Start.AddDate(0, 0, 1)
		}
	} else {
		e.Start, err = ve.GetStartAt()
		if err != nil {
			return e, err
		}
		e.End, err = ve.GetEndAt()
		if err != nil || e.End.Before(e.Start) {
			e.End = e.Start
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		e.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, e.Start.Location()); err == nil {
				e.ExDates = append(e.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		if t, err := parseICSTime(p.Value, e.Start.Location()); err == nil {
			e.Recurrence = &t
		}
	}
	return e, nil
}

// parseICSTime handles the DATE, local DATE-TIME and UTC forms used by
// EXDATE and RECURRENCE-ID.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
