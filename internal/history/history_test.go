package history

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"area710/internal/model"
)

func state(ids ...int) model.Collections {
	c := model.Collections{Events: model.Events{}, Gallery: []model.GalleryItem{}}
	for _, id := range ids {
		c.Events = append(c.Events, &model.BlockedSlot{ID: id, Date: "2026-01-01"})
	}
	return c
}

func TestEmptyStacks(t *testing.T) {
	h := New(0)
	if _, err := h.Undo(state()); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo err = %v", err)
	}
	if _, err := h.Redo(state()); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo err = %v", err)
	}
}

func TestUndoRedoDuality(t *testing.T) {
	h := New(DefaultDepth)
	s0, s1, s2 := state(), state(1), state(1, 2)

	h.Record("create 1", s0)
	h.Record("create 2", s1)

	undone, err := h.Undo(s2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(undone.State, s1) || undone.Label != "create 2" {
		t.Fatalf("undo = %+v", undone)
	}

	redone, err := h.Redo(undone.State)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(redone.State, s2) {
		t.Errorf("redo state = %+v, want state before undo", redone.State)
	}

	// Undo once more returns to s1 again.
	again, err := h.Undo(redone.State)
	if err != nil || !reflect.DeepEqual(again.State, s1) {
		t.Errorf("second undo = %+v, %v", again.State, err)
	}
}

func TestRecordClearsRedo(t *testing.T) {
	h := New(5)
	h.Record("a", state())
	if _, err := h.Undo(state(1)); err != nil {
		t.Fatal(err)
	}
	if !h.CanRedo() {
		t.Fatal("expected redo entry")
	}
	h.Record("b", state())
	if h.CanRedo() {
		t.Error("record must clear redo")
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	h := New(5)
	s := state(1)
	h.Record("edit", s)
	s.Events[0].(*model.BlockedSlot).Date = "changed"

	e, _ := h.Undo(state())
	if got := e.State.Events[0].(*model.BlockedSlot).Date; got != "2026-01-01" {
		t.Errorf("snapshot aliased caller state: date = %q", got)
	}
}

func TestDepthBound(t *testing.T) {
	h := New(20)
	for i := 0; i < 25; i++ {
		h.Record(fmt.Sprintf("action %d", i), state(i))
	}
	entries := h.Entries()
	if len(entries) != 20 {
		t.Fatalf("entries = %d, want 20", len(entries))
	}
	if entries[0].Label != "action 24" || entries[19].Label != "action 5" {
		t.Errorf("newest/oldest = %q/%q", entries[0].Label, entries[19].Label)
	}

	n := 0
	for {
		if _, err := h.Undo(state()); err != nil {
			break
		}
		n++
	}
	if n != 20 {
		t.Errorf("undo steps = %d, want 20", n)
	}
}

func TestSessions(t *testing.T) {
	s := NewSessions(3)

	h1, id1 := s.Get("")
	if id1 == "" {
		t.Fatal("no id issued")
	}
	h1.Record("x", state())

	again, id := s.Get(id1)
	if again != h1 || id != id1 {
		t.Error("known id should return its history")
	}
	if h2, id2 := s.Get("not-a-uuid"); h2 == h1 || id2 == id1 {
		t.Error("malformed id should start a new session")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d", s.Len())
	}

	s.Reset()
	if h, _ := s.Get(id1); h == h1 || h.CanUndo() {
		t.Error("Reset should drop histories")
	}
}

func TestSessionsLookupAndEviction(t *testing.T) {
	s := NewSessions(3)
	s.max = 2

	if _, ok := s.Lookup(""); ok || s.Len() != 0 {
		t.Fatal("Lookup must not create a session")
	}

	h1, id1 := s.Get("")
	_, id2 := s.Get("")
	if h, ok := s.Lookup(id1); !ok || h != h1 {
		t.Fatal("Lookup should find a known session")
	}

	// id2 is now the least recently used.
	_, id3 := s.Get("")
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	if _, ok := s.Lookup(id2); ok {
		t.Error("least recently used session should be evicted")
	}
	for _, id := range []string{id1, id3} {
		if _, ok := s.Lookup(id); !ok {
			t.Errorf("session %s should survive", id)
		}
	}
}
