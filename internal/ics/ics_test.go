package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"area710/internal/model"
)

func TestFeed(t *testing.T) {
	events := model.Events{
		&model.PublicEvent{ID: 1, Title: model.Bilingual{DE: "Sommerfest", EN: "Summer party"}, Category: "party", Date: "2026-07-12", Time: "18:00"},
		&model.PublicEvent{ID: 2, Title: model.Bilingual{EN: "Flohmarkt"}, Date: "2026-07-13"},
		&model.PublicEvent{ID: 3, Title: model.Bilingual{DE: "Ohne Datum"}, Date: "bald"},
		&model.BlockedSlot{ID: 4, Date: "2026-07-14", StartTime: "10:00", EndTime: "12:00", Reason: "Soundcheck", Status: model.StatusReserved},
	}

	tests := []struct {
		name           string
		includeBlocked bool
		wantEvents     int
	}{
		{"public only", false, 2},
		{"with blocked", true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Feed(events, FeedOptions{
				ProductID:      "-//area710//editor//DE",
				Name:           "Area 710",
				Location:       time.UTC,
				IncludeBlocked: tt.includeBlocked,
				Stamp:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			})
			cal, err := ical.ParseCalendar(strings.NewReader(out))
			if err != nil {
				t.Fatalf("feed does not parse: %v\n%s", err, out)
			}
			if got := len(cal.Events()); got != tt.wantEvents {
				t.Fatalf("events = %d, want %d\n%s", got, tt.wantEvents, out)
			}

			first := cal.Events()[0]
			if first.Id() != "event-1@area710" {
				t.Errorf("uid = %q", first.Id())
			}
			start, err := first.GetStartAt()
			if err != nil || !start.Equal(time.Date(2026, 7, 12, 18, 0, 0, 0, time.UTC)) {
				t.Errorf("start = %v, %v", start, err)
			}
			if p := cal.Events()[1].GetProperty(ical.ComponentPropertySummary); p == nil || p.Value != "Flohmarkt" {
				t.Errorf("summary fallback to english title failed: %+v", p)
			}
			if !strings.Contains(out, "DTSTART;VALUE=DATE:20260713") {
				t.Errorf("event without time should be all-day:\n%s", out)
			}
		})
	}
}

func TestSeries(t *testing.T) {
	first := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	dates, err := Series("RRULE:FREQ=WEEKLY;COUNT=3", first, 10)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	want := []string{"2026-01-05", "2026-01-12", "2026-01-19"}
	if len(dates) != len(want) {
		t.Fatalf("dates = %v", dates)
	}
	for i, d := range dates {
		if d.Format(model.DateLayout) != want[i] {
			t.Errorf("dates[%d] = %s, want %s", i, d.Format(model.DateLayout), want[i])
		}
	}

	if _, err := Series("FREQ=DAILY", first, 10); err == nil {
		t.Error("unbounded rule should exceed the limit")
	}
	if _, err := Series("FREQ=SOMETIMES", first, 10); err == nil {
		t.Error("invalid rule should fail")
	}
}

func TestSeriesSlots(t *testing.T) {
	dates := []time.Time{time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)}
	rooms := []model.Room{model.RoomLab}
	slots := SeriesSlots(dates, BlockTemplate{StartTime: "09:00", EndTime: "11:00", Reason: "Kurs", Rooms: rooms})
	if len(slots) != 2 || slots[1].Date != "2026-02-08" || slots[0].Reason != "Kurs" {
		t.Fatalf("slots = %+v", slots)
	}
	slots[0].Rooms[0] = model.RoomHall
	if slots[1].Rooms[0] != model.RoomLab || rooms[0] != model.RoomLab {
		t.Error("slots share the room slice")
	}
}

func TestExpandRecurringWithExDateAndOverride(t *testing.T) {
	start := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
	moved := time.Date(2026, 3, 16, 19, 0, 0, 0, time.UTC)
	entries := []Entry{
		{
			UID: "chor", Summary: "Chorprobe",
			Start: start, End: start.Add(2 * time.Hour),
			RRule:   "FREQ=WEEKLY;COUNT=4",
			ExDates: []time.Time{time.Date(2026, 3, 9, 19, 0, 0, 0, time.UTC)},
		},
		{
			UID: "chor", Summary: "Chorprobe (verschoben)",
			Start: moved.Add(time.Hour), End: moved.Add(3 * time.Hour),
			Recurrence: &moved,
		},
		{UID: "fest", Summary: "Fest", Start: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC), AllDay: true},
	}

	occs, err := Expand(entries, Window{
		From:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Location: time.UTC,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(occs) != 3 {
		t.Fatalf("occurrences = %+v", occs)
	}
	if occs[1].Summary != "Chorprobe (verschoben)" || occs[1].Start.Hour() != 20 {
		t.Errorf("override not applied: %+v", occs[1])
	}

	if _, err := Expand(entries, Window{From: time.Now(), To: time.Now().Add(-time.Hour)}); err == nil {
		t.Error("inverted window should fail")
	}
}

func TestImportSlots(t *testing.T) {
	occs := []Occurrence{
		{Summary: "Messe", AllDay: true, Start: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)},
		{Summary: "Party", Start: time.Date(2026, 5, 9, 22, 0, 0, 0, time.UTC), End: time.Date(2026, 5, 10, 3, 0, 0, 0, time.UTC)},
		{Summary: "Soundcheck", Start: time.Date(2026, 5, 11, 18, 30, 0, 0, time.UTC), End: time.Date(2026, 5, 11, 20, 0, 0, 0, time.UTC)},
	}
	slots := ImportSlots(occs, BlockTemplate{Status: model.StatusConfirmed})

	want := []model.BlockedSlot{
		{Date: "2026-05-01", StartTime: "00:00", EndTime: "23:59", Reason: "Messe", Status: model.StatusConfirmed},
		{Date: "2026-05-02", StartTime: "00:00", EndTime: "23:59", Reason: "Messe", Status: model.StatusConfirmed},
		{Date: "2026-05-09", StartTime: "22:00", EndTime: "23:59", Reason: "Party", Status: model.StatusConfirmed},
		{Date: "2026-05-11", StartTime: "18:30", EndTime: "20:00", Reason: "Soundcheck", Status: model.StatusConfirmed},
	}
	if len(slots) != len(want) {
		t.Fatalf("slots = %+v", slots)
	}
	for i := range want {
		s := slots[i]
		if s.Date != want[i].Date || s.StartTime != want[i].StartTime || s.EndTime != want[i].EndTime || s.Reason != want[i].Reason || s.Status != want[i].Status {
			t.Errorf("slots[%d] = %+v, want %+v", i, s, want[i])
		}
	}
}

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:a1\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"SUMMARY:Hochzeit\r\n" +
	"DTSTART:20260606T140000Z\r\n" +
	"DTEND:20260606T230000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"SUMMARY:no uid\r\n" +
	"DTSTART:20260607T140000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParse(t *testing.T) {
	entries, err := Parse(Source{ID: "test"}, []byte(sampleICS))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v", entries)
	}
	e := entries[0]
	if e.UID != "a1" || e.Summary != "Hochzeit" || e.AllDay {
		t.Errorf("entry = %+v", e)
	}
	if !e.End.Equal(time.Date(2026, 6, 6, 23, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", e.End)
	}

	if _, err := Parse(Source{}, nil); err == nil {
		t.Error("empty body should fail")
	}
}

func TestFetcherUsesCache(t *testing.T) {
	var calls, fail atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if fail.Load() == 1 {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(sampleICS))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	src := Source{ID: "rooms", URL: srv.URL + "/private.ics?token=secret"}
	ctx := context.Background()

	first, err := f.Fetch(ctx, src)
	if err != nil || first.FromCache || string(first.Body) != sampleICS {
		t.Fatalf("first fetch = %+v, %v", first, err)
	}

	second, err := f.Fetch(ctx, src)
	if err != nil || !second.FromCache || string(second.Body) != sampleICS {
		t.Fatalf("conditional fetch = %+v, %v", second, err)
	}

	fail.Store(1)
	third, err := f.Fetch(ctx, src)
	if err != nil || !third.FromCache {
		t.Fatalf("fallback fetch = %+v, %v", third, err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d", calls.Load())
	}

	if _, err := NewFetcher(t.TempDir(), srv.Client()).Fetch(ctx, src); err == nil {
		t.Error("failing source without cache should error")
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://cal.example.org/private/abc.ics?token=x"); got != "https://cal.example.org/...(redacted)" {
		t.Errorf("redactURL = %q", got)
	}
}

func TestImport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleICS))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	src := Source{ID: "venue", URL: srv.URL + "/venue.ics"}
	tmpl := BlockTemplate{Status: model.StatusConfirmed, Rooms: []model.Room{model.RoomHall}}

	june := Window{
		From:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Location: time.UTC,
	}
	slots, err := f.Import(context.Background(), src, june, tmpl)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 1 {
		t.Fatalf("slots = %+v", slots)
	}
	s := slots[0]
	if s.Date != "2026-06-06" || s.StartTime != "14:00" || s.EndTime != "23:00" || s.Reason != "Hochzeit" || s.Status != model.StatusConfirmed || len(s.Rooms) != 1 {
		t.Errorf("slot = %+v", s)
	}

	july := june
	july.From, july.To = june.To, june.To.AddDate(0, 1, 0)
	if slots, err := f.Import(context.Background(), src, july, tmpl); err != nil || len(slots) != 0 {
		t.Errorf("outside window = %+v, %v", slots, err)
	}
}
