package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "area710/internal/log"
)

// DefaultMaxOccurrences caps every recurrence expansion.
const DefaultMaxOccurrences = 500

// Occurrence is one concrete instance of an imported entry.
type Occurrence struct {
	UID     string
	Summary string
	AllDay  bool
	Start   time.Time
	End     time.Time
}

// Window bounds an expansion.
type Window struct {
	From time.Time
	To   time.Time
	// Location the occurrences are converted to; nil means time.Local.
	Location *time.Location
	// Max occurrences per entry; zero means DefaultMaxOccurrences.
	Max int
}

// Expand turns entries into occurrences intersecting w. Recurring entries are
// expanded with their EXDATEs applied and RECURRENCE-ID overrides swapped in.
func Expand(entries []Entry, w Window) ([]Occurrence, error) {
	if w.To.Before(w.From) {
		return nil, errors.New("expand: window end is before start")
	}
	if w.Location == nil {
		w.Location = time.Local
	}
	if w.Max <= 0 {
		w.Max = DefaultMaxOccurrences
	}

	overrides := map[string][]Entry{}
	var bases []Entry
	for _, e := range entries {
		if e.Recurrence != nil {
			overrides[e.UID] = append(overrides[e.UID], e)
			continue
		}
		bases = append(bases, e)
	}

	var out []Occurrence
	for _, e := range bases {
		if e.RRule == "" {
			if overlaps(e.Start, e.End, w.From, w.To) {
				out = append(out, occurrence(e, e.Start, e.End, w.Location))
			}
			continue
		}

		occ, truncated := expandRecurring(e, overrides[e.UID], w)
		if truncated {
			appLog.Warn("expand: occurrences truncated", "uid", e.UID, "cap", w.Max)
		}
		out = append(out, occ...)
	}
	return out, nil
}

func expandRecurring(e Entry, overrides []Entry, w Window) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(trimRulePrefix(e.RRule))
	if err != nil {
		appLog.Error("expand: invalid RRULE", err, "uid", e.UID, "rrule", e.RRule)
		return nil, false
	}
	r.DTStart(e.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range e.ExDates {
		set.ExDate(ex.In(e.Start.Location()))
	}

	starts := set.Between(w.From.In(e.Start.Location()), w.To.In(e.Start.Location()), true)
	truncated := false
	if len(starts) > w.Max {
		starts = starts[:w.Max]
		truncated = true
	}

	dur := e.End.Sub(e.Start)
	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		inst, start, end := e, s, s.Add(dur)
		for _, ov := range overrides {
			if ov.Recurrence.Equal(s) {
				inst, start, end = ov, ov.Start, ov.End
				break
			}
		}
		out = append(out, occurrence(inst, start, end, w.Location))
	}
	return out, truncated
}

// Series returns the dates a rule produces starting at first (inclusive),
// at most limit of them. The rule must be bounded by COUNT or UNTIL unless
// limit cuts it off; a rule yielding more than limit dates is an error.
func Series(rule string, first time.Time, limit int) ([]time.Time, error) {
	if limit <= 0 {
		limit = DefaultMaxOccurrences
	}
	r, err := rrule.StrToRRule(trimRulePrefix(rule))
	if err != nil {
		return nil, fmt.Errorf("invalid recurrence rule: %w", err)
	}
	r.DTStart(time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC))

	next := r.Iterator()
	var out []time.Time
	for {
		t, ok := next()
		if !ok {
			return out, nil
		}
		if len(out) == limit {
			return nil, fmt.Errorf("recurrence rule yields more than %d dates", limit)
		}
		out = append(out, t)
	}
}

func trimRulePrefix(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 6 && strings.EqualFold(s[:6], "RRULE:") {
		return s[6:]
	}
	return s
}

func occurrence(e Entry, start, end time.Time, loc *time.Location) Occurrence {
	if e.AllDay {
		// Dates stay on their calendar day regardless of zone.
		return Occurrence{UID: e.UID, Summary: e.Summary, AllDay: true,
			Start: time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc),
			End:   time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc),
		}
	}
	return Occurrence{UID: e.UID, Summary: e.Summary, Start: start.In(loc), End: end.In(loc)}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
