// Package project describes the project directory being edited and holds the
// currently selected one.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"area710/internal/asset"
)

const (
	EventsFile  = "events.json"
	GalleryFile = "gallery.json"
)

// ErrNoProject is returned by Workspace.Current before a project is selected.
var ErrNoProject = errors.New("no project selected")

// Project is a project directory. The zero value is not usable.
type Project struct {
	Root string
}

// Open validates root and returns the project rooted there.
func Open(root string) (Project, error) {
	if root == "" {
		return Project{}, errors.New("project path is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Project{}, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return Project{}, fmt.Errorf("project path %s: %w", abs, err)
	}
	if !fi.IsDir() {
		return Project{}, fmt.Errorf("project path %s is not a directory", abs)
	}
	return Project{Root: abs}, nil
}

func (p Project) EventsPath() string  { return filepath.Join(p.Root, EventsFile) }
func (p Project) GalleryPath() string { return filepath.Join(p.Root, GalleryFile) }

// ImageDir is where event images are uploaded.
func (p Project) ImageDir() string { return filepath.Join(p.Root, asset.EventImageDir) }

// GalleryImageDir is where gallery images are uploaded.
func (p Project) GalleryImageDir() string { return filepath.Join(p.Root, asset.GalleryImageDir) }

// Workspace holds the active project. Selecting a new one replaces it for all
// later operations; nothing already written is rolled back.
type Workspace struct {
	mu  sync.RWMutex
	cur *Project
}

// Select validates root and makes it the active project.
func (w *Workspace) Select(root string) (Project, error) {
	p, err := Open(root)
	if err != nil {
		return Project{}, err
	}
	w.mu.Lock()
	w.cur = &p
	w.mu.Unlock()
	return p, nil
}

// Current returns the active project or ErrNoProject.
func (w *Workspace) Current() (Project, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.cur == nil {
		return Project{}, ErrNoProject
	}
	return *w.cur, nil
}
