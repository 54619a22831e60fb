package model

import (
	"encoding/json"
	"strings"
	"testing"
)

const sampleEvents = `[
    {
        "id": 1,
        "type": "event",
        "title": {"de": "Sommerfest", "en": "Summer party"},
        "description": {"de": "Grillen & Musik", "en": "BBQ & music"},
        "category": "party",
        "date": "2025-07-12",
        "time": "18:00",
        "price": "10€",
        "ticketUrl": "https://tickets.example/1",
        "image": "img/sommer.jpg"
    },
    {
        "id": 2,
        "type": "blocked",
        "date": "2025-07-13",
        "startTime": "10:00",
        "endTime": "14:00",
        "status": "reserved",
        "room": ["hall", "lab"]
    },
    {
        "id": 7,
        "type": "festival",
        "date": "2025-08-01",
        "headliner": "Ärzte"
    },
    null
]`

func TestDecodeEventsVariants(t *testing.T) {
	var evs Events
	if err := json.Unmarshal([]byte(sampleEvents), &evs); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(evs) != 3 {
		t.Fatalf("len = %d, want 3 (null skipped)", len(evs))
	}

	pe, ok := evs[0].(*PublicEvent)
	if !ok {
		t.Fatalf("evs[0] is %T, want *PublicEvent", evs[0])
	}
	if pe.Title.DE != "Sommerfest" || pe.TicketURL != "https://tickets.example/1" {
		t.Errorf("unexpected public event: %+v", pe)
	}

	b, ok := evs[1].(*BlockedSlot)
	if !ok {
		t.Fatalf("evs[1] is %T, want *BlockedSlot", evs[1])
	}
	if b.Status != StatusReserved || len(b.Rooms) != 2 {
		t.Errorf("unexpected blocked slot: %+v", b)
	}
	if !b.Blocks(RoomLab) || b.Blocks(RoomOutdoor) {
		t.Errorf("Blocks mismatch for rooms %v", b.Rooms)
	}

	u, ok := evs[2].(*UnknownEvent)
	if !ok {
		t.Fatalf("evs[2] is %T, want *UnknownEvent", evs[2])
	}
	if u.RecordID() != 7 || u.Kind() != "festival" || u.EventDate() != "2025-08-01" {
		t.Errorf("unknown record accessors: id=%d kind=%q date=%q", u.RecordID(), u.Kind(), u.EventDate())
	}
}

func TestMarshalKeepsTagAndNonASCII(t *testing.T) {
	evs := Events{
		&PublicEvent{ID: 3, Title: Bilingual{DE: "Größe & Weite", EN: "Size"}},
		&BlockedSlot{ID: 4, Date: "2025-01-01", StartTime: "09:00", EndTime: "10:00"},
	}
	data, err := json.Marshal(evs)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	if !strings.HasPrefix(s, `[{"id":3,"type":"event","title":`) {
		t.Errorf("public event should start with id then type: %s", s)
	}
	if !strings.Contains(s, `{"id":4,"type":"blocked","date":"2025-01-01"`) {
		t.Errorf("blocked slot tag missing: %s", s)
	}
	if strings.Contains(s, `"reason"`) || strings.Contains(s, `"room"`) {
		t.Errorf("empty optional blocked fields should be omitted: %s", s)
	}
	if !strings.Contains(s, "Größe") {
		t.Errorf("non-ASCII text should be kept literally: %s", s)
	}
}

func TestUnknownEventRoundTrip(t *testing.T) {
	raw := json.RawMessage(`{"type":"festival","id":7,"headliner":"Ärzte"}`)
	rec, err := DecodeEvent(raw)
	if err != nil {
		t.Fatal(err)
	}
	u := rec.(*UnknownEvent)
	u.SetID(9)

	out, err := json.Marshal(u)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"headliner":"Ärzte","id":9,"type":"festival"}`
	if string(out) != want {
		t.Errorf("got %s, want %s", out, want)
	}
}

func TestMistypedPayloadFallsBackToUnknown(t *testing.T) {
	rec, err := DecodeEvent(json.RawMessage(`{"id":5,"type":"event","title":"just a string"}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rec.(*UnknownEvent); !ok {
		t.Fatalf("got %T, want *UnknownEvent", rec)
	}
	if rec.RecordID() != 5 {
		t.Errorf("RecordID = %d", rec.RecordID())
	}
}

func TestCloneIsDeep(t *testing.T) {
	eventID := 1
	c := Collections{
		Events:  Events{&BlockedSlot{ID: 1, Rooms: []Room{RoomHall}}},
		Gallery: []GalleryItem{{ID: 1, EventID: &eventID}},
	}
	cp := c.Clone()

	cp.Events[0].(*BlockedSlot).Rooms[0] = RoomLab
	*cp.Gallery[0].EventID = 99

	if c.Events[0].(*BlockedSlot).Rooms[0] != RoomHall {
		t.Error("clone shares room slice")
	}
	if *c.Gallery[0].EventID != 1 {
		t.Error("clone shares eventId pointer")
	}
}

func TestGalleryNullEventID(t *testing.T) {
	data, err := json.Marshal(GalleryItem{ID: 1, Title: Bilingual{DE: "a", EN: "b"}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"eventId":null`) {
		t.Errorf("missing null eventId: %s", data)
	}
}

func TestLinkedEventIsWeak(t *testing.T) {
	id := 3
	item := GalleryItem{ID: 1, EventID: &id}
	events := Events{&PublicEvent{ID: 3, Title: Bilingual{DE: "x"}}}

	if pe, ok := item.LinkedEvent(events); !ok || pe.ID != 3 {
		t.Fatalf("LinkedEvent = %v, %v", pe, ok)
	}
	if _, ok := item.LinkedEvent(Events{}); ok {
		t.Error("dangling reference should not resolve")
	}
	if *item.EventID != 3 {
		t.Error("lookup must not modify the reference")
	}
}

func TestParseCollection(t *testing.T) {
	if c, err := ParseCollection(""); err != nil || c != CollectionEvents {
		t.Errorf("empty -> %q, %v", c, err)
	}
	if c, err := ParseCollection("gallery"); err != nil || c != CollectionGallery {
		t.Errorf("gallery -> %q, %v", c, err)
	}
	if _, err := ParseCollection("photos"); err == nil {
		t.Error("expected error for unknown collection")
	}
}
