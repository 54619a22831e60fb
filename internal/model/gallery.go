package model

// GalleryItem is one picture shown in the website gallery.
//
// EventID is a weak reference to an EventRecord id: it is only looked up,
// never validated, and left dangling when the event is deleted.
type GalleryItem struct {
	ID       int       `json:"id"`
	Title    Bilingual `json:"title"`
	Category string    `json:"category"`
	Date     string    `json:"date"`
	EventID  *int      `json:"eventId"`
	Image    string    `json:"image"`
}

func (g GalleryItem) RecordID() int { return g.ID }

// Clone returns a copy that shares no memory with g.
func (g GalleryItem) Clone() GalleryItem {
	if g.EventID != nil {
		id := *g.EventID
		g.EventID = &id
	}
	return g
}

// CloneGallery deep-copies a gallery collection.
func CloneGallery(items []GalleryItem) []GalleryItem {
	if items == nil {
		return nil
	}
	out := make([]GalleryItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// LinkedEvent resolves the weak reference against events. ok is false when
// the item has no reference or the referenced event no longer exists.
func (g GalleryItem) LinkedEvent(events Events) (*PublicEvent, bool) {
	if g.EventID == nil {
		return nil, false
	}
	for _, pe := range events.Public() {
		if pe.ID == *g.EventID {
			return pe, true
		}
	}
	return nil, false
}
