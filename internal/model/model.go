// Package model defines the records stored in a project's collection files.
//
// events.json holds a single ordered sequence mixing two variants, told apart
// by the "type" discriminant: public events ("event") and private blocked
// slots ("blocked"). EventRecord is the sum type over them; consumers switch
// on the concrete type. gallery.json holds GalleryItem records.
package model

import (
	"fmt"
	"time"
)

// Kind is the variant tag of an events.json record.
type Kind string

const (
	KindEvent   Kind = "event"
	KindBlocked Kind = "blocked"
)

// Collection names one of the two collection files of a project.
type Collection string

const (
	CollectionEvents  Collection = "events"
	CollectionGallery Collection = "gallery"
)

// ParseCollection accepts "events" or "gallery"; empty means events.
func ParseCollection(s string) (Collection, error) {
	switch Collection(s) {
	case "", CollectionEvents:
		return CollectionEvents, nil
	case CollectionGallery:
		return CollectionGallery, nil
	default:
		return "", fmt.Errorf("unknown collection %q", s)
	}
}

// Known categories. Free text is tolerated in stored records.
const (
	CategoryParty    = "party"
	CategoryWorkshop = "workshop"
	CategoryCulture  = "culture"
	CategoryBusiness = "business"
)

// Room identifies a bookable area of the venue.
type Room string

const (
	RoomHall    Room = "hall"
	RoomLab     Room = "lab"
	RoomOutdoor Room = "outdoor"
	RoomBarClub Room = "barclub"
)

// AllRooms lists every room in display order.
func AllRooms() []Room {
	return []Room{RoomHall, RoomLab, RoomOutdoor, RoomBarClub}
}

// Status is the booking state of a blocked slot.
type Status string

const (
	StatusReserved  Status = "reserved"
	StatusConfirmed Status = "confirmed"
)

// Bilingual is a German/English text pair.
type Bilingual struct {
	DE string `json:"de"`
	EN string `json:"en"`
}

// DateLayout is the on-disk format of record dates.
const DateLayout = "2006-01-02"

// ParseDate parses a record date. ok is false for empty or malformed values.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Collections is the full working set of a project.
type Collections struct {
	Events  Events        `json:"events"`
	Gallery []GalleryItem `json:"gallery"`
}

// Clone returns a deep copy.
func (c Collections) Clone() Collections {
	return Collections{
		Events:  c.Events.Clone(),
		Gallery: CloneGallery(c.Gallery),
	}
}
