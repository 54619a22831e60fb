package repo

import (
	"slices"

	"area710/internal/asset"
	appLog "area710/internal/log"
	"area710/internal/model"
)

// CreateGallery appends a gallery item with a fresh id. When img is given it
// is stored under gallery-images/.
func (r *Repository) CreateGallery(in model.GalleryItem, img *asset.Upload) (model.GalleryItem, error) {
	g := in.Clone()
	err := r.mutateGallery(func(items []model.GalleryItem) ([]model.GalleryItem, error) {
		g.ID = NextID(items)
		g.Image = r.image(img, asset.GalleryImageDir, in.Image)
		return append(items, g), nil
	})
	if err != nil {
		return model.GalleryItem{}, err
	}
	appLog.Info("gallery item created", "id", g.ID)
	return g, nil
}

// UpdateGallery replaces the item at index, keeping its id and, unless img is
// given, its image. The event reference is taken from in as submitted.
func (r *Repository) UpdateGallery(index int, in model.GalleryItem, img *asset.Upload) (model.GalleryItem, error) {
	g := in.Clone()
	err := r.mutateGallery(func(items []model.GalleryItem) ([]model.GalleryItem, error) {
		if err := checkIndex(model.CollectionGallery, index, len(items)); err != nil {
			return nil, err
		}
		cur := items[index]
		g.ID = cur.ID
		g.Image = r.image(img, asset.GalleryImageDir, cur.Image)
		items[index] = g
		return items, nil
	})
	if err != nil {
		return model.GalleryItem{}, err
	}
	appLog.Info("gallery item updated", "id", g.ID, "index", index)
	return g, nil
}

// DeleteGallery removes the item at index.
func (r *Repository) DeleteGallery(index int) (model.GalleryItem, error) {
	var removed model.GalleryItem
	err := r.mutateGallery(func(items []model.GalleryItem) ([]model.GalleryItem, error) {
		if err := checkIndex(model.CollectionGallery, index, len(items)); err != nil {
			return nil, err
		}
		removed = items[index].Clone()
		return slices.Delete(items, index, index+1), nil
	})
	if err != nil {
		return model.GalleryItem{}, err
	}
	appLog.Info("gallery item deleted", "id", removed.ID)
	return removed, nil
}

// DuplicateGallery appends a copy of the item at index under a fresh id with
// the copy markers added to its title.
func (r *Repository) DuplicateGallery(index int) (model.GalleryItem, error) {
	var dup model.GalleryItem
	err := r.mutateGallery(func(items []model.GalleryItem) ([]model.GalleryItem, error) {
		if err := checkIndex(model.CollectionGallery, index, len(items)); err != nil {
			return nil, err
		}
		dup = items[index].Clone()
		dup.ID = NextID(items)
		dup.Title = copyTitle(dup.Title)
		return append(items, dup), nil
	})
	if err != nil {
		return model.GalleryItem{}, err
	}
	appLog.Info("gallery item duplicated", "source_index", index, "id", dup.ID)
	return dup, nil
}

// Duplicate dispatches to DuplicateEvent or DuplicateGallery and returns the
// new record.
func (r *Repository) Duplicate(c model.Collection, index int) (any, error) {
	if c == model.CollectionGallery {
		return r.DuplicateGallery(index)
	}
	return r.DuplicateEvent(index)
}
