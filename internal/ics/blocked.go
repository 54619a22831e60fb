package ics

import (
	"slices"
	"time"

	"area710/internal/model"
)

// BlockTemplate carries the fields copied into every generated slot.
type BlockTemplate struct {
	StartTime string
	EndTime   string
	Reason    string
	Status    model.Status
	Rooms     []model.Room
}

// SeriesSlots builds one blocked slot per date, ids left zero.
func SeriesSlots(dates []time.Time, tmpl BlockTemplate) []model.BlockedSlot {
	out := make([]model.BlockedSlot, 0, len(dates))
	for _, d := range dates {
		out = append(out, model.BlockedSlot{
			Date:      d.Format(model.DateLayout),
			StartTime: tmpl.StartTime,
			EndTime:   tmpl.EndTime,
			Reason:    tmpl.Reason,
			Status:    tmpl.Status,
			Rooms:     slices.Clone(tmpl.Rooms),
		})
	}
	return out
}

// ImportSlots converts imported occurrences to blocked slots. All-day
// occurrences block 00:00 to 23:59 on every covered day. Timed occurrences
// block their start day; one running past midnight ends at 23:59. An empty
// template reason is replaced by the occurrence summary.
func ImportSlots(occs []Occurrence, tmpl BlockTemplate) []model.BlockedSlot {
	var out []model.BlockedSlot
	add := func(day time.Time, start, end, summary string) {
		reason := tmpl.Reason
		if reason == "" {
			reason = summary
		}
		out = append(out, model.BlockedSlot{
			Date:      day.Format(model.DateLayout),
			StartTime: start,
			EndTime:   end,
			Reason:    reason,
			Status:    tmpl.Status,
			Rooms:     slices.Clone(tmpl.Rooms),
		})
	}

	for _, o := range occs {
		if o.AllDay {
			for d := o.Start; d.Before(o.End); d = d.AddDate(0, 0, 1) {
				add(d, "00:00", "23:59", o.Summary)
			}
			continue
		}
		end := o.End.Format("15:04")
		if !sameDay(o.Start, o.End) {
			end = "23:59"
		}
		add(o.Start, o.Start.Format("15:04"), end, o.Summary)
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
