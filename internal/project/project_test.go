package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWorkspaceSelect(t *testing.T) {
	var w Workspace
	if _, err := w.Current(); !errors.Is(err, ErrNoProject) {
		t.Fatalf("Current before select: err = %v", err)
	}

	dir := t.TempDir()
	p, err := w.Select(dir)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if p.EventsPath() != filepath.Join(dir, "events.json") {
		t.Errorf("EventsPath = %q", p.EventsPath())
	}
	if p.GalleryImageDir() != filepath.Join(dir, "gallery-images") {
		t.Errorf("GalleryImageDir = %q", p.GalleryImageDir())
	}

	cur, err := w.Current()
	if err != nil || cur.Root != p.Root {
		t.Errorf("Current = %+v, %v", cur, err)
	}
}

func TestSelectRejectsInvalidPaths(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "events.json")
	if err := os.WriteFile(file, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	var w Workspace
	good, err := w.Select(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, bad := range []string{"", filepath.Join(dir, "missing"), file} {
		if _, err := w.Select(bad); err == nil {
			t.Errorf("Select(%q) succeeded", bad)
		}
	}
	// A failed selection keeps the previous project.
	if cur, _ := w.Current(); cur.Root != good.Root {
		t.Errorf("Current = %q, want %q", cur.Root, good.Root)
	}
}
