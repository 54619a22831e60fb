// Package repo implements the typed operations on a project's collections.
//
// Every mutation loads the collection fresh from disk, applies the change and
// saves it back. There is no locking and no cross-collection transaction.
package repo

import (
	"fmt"
	"slices"
	"time"

	"area710/internal/asset"
	appLog "area710/internal/log"
	"area710/internal/metrics"
	"area710/internal/model"
	"area710/internal/project"
	"area710/internal/store"
)

// Repository operates on the collections of one project.
type Repository struct {
	proj             project.Project
	overwriteCorrupt bool
	metrics          *metrics.Metrics
	storeAsset       func(up asset.Upload, destFolder, projectRoot string) (string, error)
}

// Option configures a Repository.
type Option func(*Repository)

// WithOverwriteCorrupt lets mutations treat a corrupt collection file as
// empty and replace it. The previous bytes still end up in the backup.
func WithOverwriteCorrupt(ok bool) Option {
	return func(r *Repository) { r.overwriteCorrupt = ok }
}

// WithMetrics records save timings.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// New returns a Repository for p.
func New(p project.Project, opts ...Option) *Repository {
	r := &Repository{proj: p, storeAsset: asset.Store}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Project returns the project the repository works on.
func (r *Repository) Project() project.Project { return r.proj }

// Status tells how each collection was read by Collections.
type Status struct {
	Events  store.Result
	Gallery store.Result
}

// Corrupt reports whether either file exists but could not be decoded.
func (s Status) Corrupt() bool {
	return s.Events.Outcome == store.OutcomeCorrupt || s.Gallery.Outcome == store.OutcomeCorrupt
}

// Collections reads both collections. Missing or unreadable files come back
// empty; Status says which case applied.
func (r *Repository) Collections() (model.Collections, Status) {
	var c model.Collections
	st := Status{
		Events:  store.LoadOrEmpty(r.proj.EventsPath(), &c.Events),
		Gallery: store.LoadOrEmpty(r.proj.GalleryPath(), &c.Gallery),
	}
	if c.Events == nil {
		c.Events = model.Events{}
	}
	if c.Gallery == nil {
		c.Gallery = []model.GalleryItem{}
	}
	return c, st
}

// Snapshot reads both collections for the undo history. Unlike Collections
// it fails with ErrCorrupt when a file could not be decoded and corrupt files
// may not be overwritten, since the empty stand-in is not the file's content.
func (r *Repository) Snapshot() (model.Collections, error) {
	c, st := r.Collections()
	if err := r.writable(st); err != nil {
		return model.Collections{}, err
	}
	return c, nil
}

// ReplaceAll writes a full working set, events first. The first failure is
// returned and may leave the two files out of step. Nothing is written while
// either file is corrupt, unless corrupt files may be overwritten.
func (r *Repository) ReplaceAll(c model.Collections) error {
	if _, err := r.Snapshot(); err != nil {
		return err
	}
	if c.Events == nil {
		c.Events = model.Events{}
	}
	if c.Gallery == nil {
		c.Gallery = []model.GalleryItem{}
	}
	if err := r.save(model.CollectionEvents, c.Events, len(c.Events)); err != nil {
		return err
	}
	return r.save(model.CollectionGallery, c.Gallery, len(c.Gallery))
}

// DeleteMany removes the records at indices from collection c and returns
// how many were removed. Indices are applied highest first so earlier
// removals do not shift pending ones; out-of-range and repeated indices are
// skipped.
func (r *Repository) DeleteMany(c model.Collection, indices []int) (int, error) {
	var n int
	switch c {
	case model.CollectionEvents:
		err := r.mutateEvents(func(evs model.Events) (model.Events, error) {
			var out model.Events
			out, n = deleteIndices(evs, indices)
			return out, nil
		})
		return n, err
	case model.CollectionGallery:
		err := r.mutateGallery(func(items []model.GalleryItem) ([]model.GalleryItem, error) {
			var out []model.GalleryItem
			out, n = deleteIndices(items, indices)
			return out, nil
		})
		return n, err
	default:
		return 0, fmt.Errorf("%w: unknown collection %q", ErrInvalidInput, c)
	}
}

// Reorder moves the records whose ids are listed to the front in the given
// order; the rest follow in their previous relative order. Unknown ids are
// ignored and no record is dropped.
func (r *Repository) Reorder(c model.Collection, ids []int) error {
	switch c {
	case model.CollectionEvents:
		return r.mutateEvents(func(evs model.Events) (model.Events, error) {
			return reorderByID(evs, ids), nil
		})
	case model.CollectionGallery:
		return r.mutateGallery(func(items []model.GalleryItem) ([]model.GalleryItem, error) {
			return reorderByID(items, ids), nil
		})
	default:
		return fmt.Errorf("%w: unknown collection %q", ErrInvalidInput, c)
	}
}

func (r *Repository) mutateEvents(fn func(model.Events) (model.Events, error)) error {
	var evs model.Events
	if err := r.load(model.CollectionEvents, &evs); err != nil {
		return err
	}
	if evs == nil {
		evs = model.Events{}
	}
	out, err := fn(evs)
	if err != nil {
		return err
	}
	return r.save(model.CollectionEvents, out, len(out))
}

func (r *Repository) mutateGallery(fn func([]model.GalleryItem) ([]model.GalleryItem, error)) error {
	var items []model.GalleryItem
	if err := r.load(model.CollectionGallery, &items); err != nil {
		return err
	}
	if items == nil {
		items = []model.GalleryItem{}
	}
	out, err := fn(items)
	if err != nil {
		return err
	}
	return r.save(model.CollectionGallery, out, len(out))
}

// writable reports ErrCorrupt for the first corrupt file in st.
func (r *Repository) writable(st Status) error {
	if r.overwriteCorrupt {
		return nil
	}
	for _, f := range []struct {
		path string
		res  store.Result
	}{
		{r.proj.EventsPath(), st.Events},
		{r.proj.GalleryPath(), st.Gallery},
	} {
		if f.res.Outcome == store.OutcomeCorrupt {
			return fmt.Errorf("%w: %s: %v", ErrCorrupt, f.path, f.res.Err)
		}
	}
	return nil
}

func (r *Repository) path(c model.Collection) string {
	if c == model.CollectionGallery {
		return r.proj.GalleryPath()
	}
	return r.proj.EventsPath()
}

func (r *Repository) load(c model.Collection, v any) error {
	path := r.path(c)
	res := store.LoadOrEmpty(path, v)
	if res.Outcome == store.OutcomeCorrupt && !r.overwriteCorrupt {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, res.Err)
	}
	return nil
}

func (r *Repository) save(c model.Collection, v any, count int) error {
	path := r.path(c)
	start := time.Now()
	if err := store.Save(path, v); err != nil {
		appLog.Error("collection save failed", err, "collection", string(c), "path", path)
		return &StorageError{Op: "save", Path: path, Err: err}
	}
	r.metrics.Saved(string(c), time.Since(start), count)
	appLog.Debug("collection saved", "collection", string(c), "records", count)
	return nil
}

// image stores an optional upload and returns its relative path, or keep
// when there is no upload or storing it failed.
func (r *Repository) image(up *asset.Upload, folder, keep string) string {
	if up == nil {
		return keep
	}
	rel, err := r.storeAsset(*up, folder, r.proj.Root)
	if err != nil {
		// Logged by the asset store; the record is saved without the new image.
		return keep
	}
	return rel
}

func deleteIndices[S ~[]T, T any](items S, indices []int) (S, int) {
	idx := slices.Clone(indices)
	slices.Sort(idx)
	idx = slices.Compact(idx)

	n := 0
	for i := len(idx) - 1; i >= 0; i-- {
		k := idx[i]
		if k < 0 || k >= len(items) {
			continue
		}
		items = slices.Delete(items, k, k+1)
		n++
	}
	return items, n
}

func reorderByID[S ~[]T, T Identified](items S, ids []int) S {
	out := make(S, 0, len(items))
	used := make([]bool, len(items))
	for _, id := range ids {
		for i, it := range items {
			if !used[i] && it.RecordID() == id {
				out = append(out, it)
				used[i] = true
				break
			}
		}
	}
	for i, it := range items {
		if !used[i] {
			out = append(out, it)
		}
	}
	return out
}

func copyTitle(t model.Bilingual) model.Bilingual {
	t.DE += " (Kopie)"
	t.EN += " (Copy)"
	return t
}

func checkIndex(c model.Collection, index, n int) error {
	if index < 0 || index >= n {
		return notFound(string(c), index, n)
	}
	return nil
}

