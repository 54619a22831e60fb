package ics

import (
	"context"
	"fmt"

	appLog "area710/internal/log"
	"area710/internal/model"
)

// Import fetches src and turns every occurrence inside w into a blocked slot
// built from tmpl. Slot ids are left zero for the repository to assign.
func (f *Fetcher) Import(ctx context.Context, src Source, w Window, tmpl BlockTemplate) ([]model.BlockedSlot, error) {
	res, err := f.Fetch(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", src.ID, err)
	}
	entries, err := Parse(src, res.Body)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", src.ID, err)
	}
	occs, err := Expand(entries, w)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", src.ID, err)
	}
	slots := ImportSlots(occs, tmpl)
	appLog.Info("ics import expanded",
		"id", src.ID,
		"entries", len(entries),
		"occurrences", len(occs),
		"slots", len(slots),
		"from_cache", res.FromCache,
	)
	return slots, nil
}
