package aggregate

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"area710/internal/model"
)

// SortKey selects a listing order. The zero value keeps collection order.
type SortKey string

const (
	SortNone     SortKey = ""
	SortDate     SortKey = "date"
	SortTitle    SortKey = "title"
	SortCategory SortKey = "category"
)

// ParseSortKey validates a sort key from a request.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortNone, SortDate, SortTitle, SortCategory:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

// CategoryAll disables category filtering.
const CategoryAll = "all"

// defaultBlockedReason is what the editor shows for a slot without reason.
const defaultBlockedReason = "Private Veranstaltung"

// Filter narrows a listing. Search matches case-insensitively.
type Filter struct {
	Search   string
	Category string
	Sort     SortKey
}

// Indexed pairs a record with its position in the collection, which is what
// update and delete operations address.
type Indexed[T any] struct {
	Index  int `json:"index"`
	Record T   `json:"record"`
}

// ListEvents lists public events matching f. Search covers titles and
// descriptions in both languages.
func ListEvents(events model.Events, f Filter) []Indexed[*model.PublicEvent] {
	out := []Indexed[*model.PublicEvent]{}
	for i, rec := range events {
		e, ok := rec.(*model.PublicEvent)
		if !ok || !matchCategory(f.Category, e.Category) {
			continue
		}
		if !matchAny(f.Search, e.Title.DE, e.Title.EN, e.Description.DE, e.Description.EN) {
			continue
		}
		out = append(out, Indexed[*model.PublicEvent]{Index: i, Record: e})
	}
	sortBy(out, f.Sort, func(e *model.PublicEvent) (string, string, string) {
		return e.Date, e.Title.DE, e.Category
	})
	return out
}

// ListGallery lists gallery items matching f. Search covers both titles.
func ListGallery(items []model.GalleryItem, f Filter) []Indexed[model.GalleryItem] {
	out := []Indexed[model.GalleryItem]{}
	for i, g := range items {
		if !matchCategory(f.Category, g.Category) || !matchAny(f.Search, g.Title.DE, g.Title.EN) {
			continue
		}
		out = append(out, Indexed[model.GalleryItem]{Index: i, Record: g})
	}
	sortBy(out, f.Sort, func(g model.GalleryItem) (string, string, string) {
		return g.Date, g.Title.DE, g.Category
	})
	return out
}

// ListBlocked lists blocked slots whose date or reason contains search.
// Slots without reason match on the editor's placeholder text.
func ListBlocked(events model.Events, search string) []Indexed[*model.BlockedSlot] {
	out := []Indexed[*model.BlockedSlot]{}
	for i, rec := range events {
		b, ok := rec.(*model.BlockedSlot)
		if !ok {
			continue
		}
		reason := b.Reason
		if reason == "" {
			reason = defaultBlockedReason
		}
		if !matchAny(search, b.Date, reason) {
			continue
		}
		out = append(out, Indexed[*model.BlockedSlot]{Index: i, Record: b})
	}
	return out
}

func matchCategory(want, got string) bool {
	return want == "" || want == CategoryAll || want == got
}

func matchAny(search string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// sortBy orders entries stably. Dates sort ascending with unparsable ones
// last; titles and categories use German collation.
func sortBy[T any](entries []Indexed[T], key SortKey, fields func(T) (date, title, category string)) {
	if key == SortNone {
		return
	}
	col := collate.New(language.German, collate.IgnoreCase)
	slices.SortStableFunc(entries, func(a, b Indexed[T]) int {
		da, ta, ca := fields(a.Record)
		db, tb, cb := fields(b.Record)
		switch key {
		case SortDate:
			return compareDates(da, db)
		case SortTitle:
			return col.CompareString(ta, tb)
		case SortCategory:
			return col.CompareString(ca, cb)
		}
		return 0
	})
}
