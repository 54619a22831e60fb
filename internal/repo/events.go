package repo

import (
	"fmt"
	"slices"

	"area710/internal/asset"
	"area710/internal/ics"
	appLog "area710/internal/log"
	"area710/internal/model"
)

// CreateEvent appends a public event with a fresh id. When img is given it is
// stored under img/ and becomes the event image.
func (r *Repository) CreateEvent(in model.PublicEvent, img *asset.Upload) (*model.PublicEvent, error) {
	e := in
	err := r.mutateEvents(func(evs model.Events) (model.Events, error) {
		e.ID = NextID(evs)
		e.Image = r.image(img, asset.EventImageDir, in.Image)
		return append(evs, &e), nil
	})
	if err != nil {
		return nil, err
	}
	appLog.Info("event created", "id", e.ID, "date", e.Date)
	return &e, nil
}

// UpdateEvent replaces the public event at index. The id is kept, and so is
// the image unless img is given.
func (r *Repository) UpdateEvent(index int, in model.PublicEvent, img *asset.Upload) (*model.PublicEvent, error) {
	e := in
	err := r.mutateEvents(func(evs model.Events) (model.Events, error) {
		if err := checkIndex(model.CollectionEvents, index, len(evs)); err != nil {
			return nil, err
		}
		cur, ok := evs[index].(*model.PublicEvent)
		if !ok {
			return nil, fmt.Errorf("%w: index %d holds a %q record", ErrVariantMismatch, index, evs[index].Kind())
		}
		e.ID = cur.ID
		e.Image = r.image(img, asset.EventImageDir, cur.Image)
		evs[index] = &e
		return evs, nil
	})
	if err != nil {
		return nil, err
	}
	appLog.Info("event updated", "id", e.ID, "index", index)
	return &e, nil
}

// CreateBlocked appends a blocked slot with a fresh id.
func (r *Repository) CreateBlocked(in model.BlockedSlot) (*model.BlockedSlot, error) {
	added, err := r.AppendBlocked([]model.BlockedSlot{in})
	if err != nil {
		return nil, err
	}
	return added[0], nil
}

// AppendBlocked appends slots in order, assigning consecutive fresh ids.
func (r *Repository) AppendBlocked(slots []model.BlockedSlot) ([]*model.BlockedSlot, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: no blocked slots to add", ErrInvalidInput)
	}
	added := make([]*model.BlockedSlot, 0, len(slots))
	err := r.mutateEvents(func(evs model.Events) (model.Events, error) {
		id := NextID(evs)
		for _, s := range slots {
			b := s
			b.ID = id
			b.Rooms = slices.Clone(s.Rooms)
			id++
			evs = append(evs, &b)
			added = append(added, &b)
		}
		return evs, nil
	})
	if err != nil {
		return nil, err
	}
	appLog.Info("blocked slots added", "count", len(added), "first_id", added[0].ID)
	return added, nil
}

// CreateBlockedSeries adds one blocked slot per date produced by rule, which
// starts at tmpl.Date. At most limit slots are created; a rule producing
// more is rejected.
func (r *Repository) CreateBlockedSeries(tmpl model.BlockedSlot, rule string, limit int) ([]*model.BlockedSlot, error) {
	first, ok := model.ParseDate(tmpl.Date)
	if !ok {
		return nil, fmt.Errorf("%w: series start date %q", ErrInvalidInput, tmpl.Date)
	}
	dates, err := ics.Series(rule, first, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	slots := ics.SeriesSlots(dates, ics.BlockTemplate{
		StartTime: tmpl.StartTime,
		EndTime:   tmpl.EndTime,
		Reason:    tmpl.Reason,
		Status:    tmpl.Status,
		Rooms:     tmpl.Rooms,
	})
	return r.AppendBlocked(slots)
}

// UpdateBlocked replaces the blocked slot at index, keeping its id.
func (r *Repository) UpdateBlocked(index int, in model.BlockedSlot) (*model.BlockedSlot, error) {
	b := in
	err := r.mutateEvents(func(evs model.Events) (model.Events, error) {
		if err := checkIndex(model.CollectionEvents, index, len(evs)); err != nil {
			return nil, err
		}
		cur, ok := evs[index].(*model.BlockedSlot)
		if !ok {
			return nil, fmt.Errorf("%w: index %d holds a %q record", ErrVariantMismatch, index, evs[index].Kind())
		}
		b.ID = cur.ID
		evs[index] = &b
		return evs, nil
	})
	if err != nil {
		return nil, err
	}
	appLog.Info("blocked slot updated", "id", b.ID, "index", index)
	return &b, nil
}

// DeleteEvent removes the record at index, whatever its variant.
func (r *Repository) DeleteEvent(index int) (model.EventRecord, error) {
	var removed model.EventRecord
	err := r.mutateEvents(func(evs model.Events) (model.Events, error) {
		if err := checkIndex(model.CollectionEvents, index, len(evs)); err != nil {
			return nil, err
		}
		removed = evs[index]
		return slices.Delete(evs, index, index+1), nil
	})
	if err != nil {
		return nil, err
	}
	appLog.Info("event deleted", "id", removed.RecordID(), "kind", string(removed.Kind()))
	return removed, nil
}

// DuplicateEvent appends a deep copy of the record at index under a fresh id.
// Public event titles always get " (Kopie)" and " (Copy)" appended, empty
// parts included.
func (r *Repository) DuplicateEvent(index int) (model.EventRecord, error) {
	var dup model.EventRecord
	err := r.mutateEvents(func(evs model.Events) (model.Events, error) {
		if err := checkIndex(model.CollectionEvents, index, len(evs)); err != nil {
			return nil, err
		}
		id := NextID(evs)
		switch c := evs[index].CloneRecord().(type) {
		case *model.PublicEvent:
			c.ID = id
			c.Title = copyTitle(c.Title)
			dup = c
		case *model.BlockedSlot:
			c.ID = id
			dup = c
		case *model.UnknownEvent:
			c.SetID(id)
			dup = c
		}
		return append(evs, dup), nil
	})
	if err != nil {
		return nil, err
	}
	appLog.Info("event duplicated", "source_index", index, "id", dup.RecordID())
	return dup, nil
}
