// Package aggregate derives read-only views from the collections: dashboard
// statistics, calendar months and filtered listings.
package aggregate

import (
	"slices"
	"time"

	"area710/internal/model"
)

const (
	nextEventsLimit = 5
	recentPastLimit = 3
)

// EventSummary is the short form of a public event used on the dashboard.
type EventSummary struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Category string `json:"category"`
}

// Stats is the dashboard.
type Stats struct {
	TotalEvents    int            `json:"total_events"`
	UpcomingEvents int            `json:"upcoming_events"`
	PastEvents     int            `json:"past_events"`
	BlockedDates   int            `json:"blocked_dates"`
	GalleryItems   int            `json:"gallery_items"`
	Categories     map[string]int `json:"categories"`
	NextEvents     []EventSummary `json:"next_events"`
	RecentPast     []EventSummary `json:"recent_past"`
}

// DashboardStats computes the dashboard for the given day. Public events
// dated today or later are upcoming; events without a parsable date count
// towards the total and categories only.
func DashboardStats(events model.Events, gallery []model.GalleryItem, today time.Time) Stats {
	st := Stats{
		GalleryItems: len(gallery),
		Categories:   map[string]int{},
		NextEvents:   []EventSummary{},
		RecentPast:   []EventSummary{},
	}
	day := dayOf(today)

	type dated struct {
		EventSummary
		at time.Time
	}
	var upcoming, past []dated

	for _, rec := range events {
		switch e := rec.(type) {
		case *model.PublicEvent:
			st.TotalEvents++
			// An absent key and "" decode alike; both count as unknown.
			cat := e.Category
			if cat == "" {
				cat = "unknown"
			}
			st.Categories[cat]++

			at, ok := model.ParseDate(e.Date)
			if !ok {
				continue
			}
			d := dated{EventSummary{ID: e.ID, Title: e.Title.DE, Date: e.Date, Category: e.Category}, at}
			if at.Before(day) {
				past = append(past, d)
			} else {
				upcoming = append(upcoming, d)
			}
		case *model.BlockedSlot:
			st.BlockedDates++
		}
	}

	st.UpcomingEvents = len(upcoming)
	st.PastEvents = len(past)

	slices.SortStableFunc(upcoming, func(a, b dated) int { return a.at.Compare(b.at) })
	slices.SortStableFunc(past, func(a, b dated) int { return b.at.Compare(a.at) })
	for _, d := range upcoming[:min(len(upcoming), nextEventsLimit)] {
		st.NextEvents = append(st.NextEvents, d.EventSummary)
	}
	for _, d := range past[:min(len(past), recentPastLimit)] {
		st.RecentPast = append(st.RecentPast, d.EventSummary)
	}
	return st
}

// dayOf maps t to midnight UTC of its calendar day, the zone record dates
// are parsed in.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// compareDates orders parsable dates first, ascending.
func compareDates(a, b string) int {
	ta, okA := model.ParseDate(a)
	tb, okB := model.ParseDate(b)
	switch {
	case okA && okB:
		return ta.Compare(tb)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return 0
	}
}
