// Package history keeps bounded undo/redo stacks of full working-set
// snapshots. Histories live in memory only and are never persisted.
package history

import (
	"errors"
	"sync"
	"time"

	"area710/internal/model"
)

// DefaultDepth bounds each stack when New is given a non-positive depth.
const DefaultDepth = 20

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Entry is a snapshot tagged with the action that replaced it.
type Entry struct {
	Label string
	At    time.Time
	State model.Collections
}

// Summary describes an entry without its snapshot.
type Summary struct {
	Label string    `json:"label"`
	At    time.Time `json:"timestamp"`
}

// History is one session's undo/redo state. It is safe for concurrent use.
type History struct {
	mu    sync.Mutex
	depth int
	undo  []Entry
	redo  []Entry
	now   func() time.Time
}

// New returns an empty History keeping at most depth entries per stack.
func New(depth int) *History {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &History{depth: depth, now: time.Now}
}

// Record pushes the state from before an action labelled label. The oldest
// entry is evicted when the stack is full, and the redo stack is cleared.
func (h *History) Record(label string, before model.Collections) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = h.push(h.undo, Entry{Label: label, At: h.now(), State: before.Clone()})
	h.redo = nil
}

// Undo pops the most recent snapshot and returns it for the caller to
// install and persist. current is kept on the redo stack.
func (h *History) Undo(current model.Collections) (Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undo) == 0 {
		return Entry{}, ErrNothingToUndo
	}
	e := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = h.push(h.redo, Entry{Label: e.Label, At: h.now(), State: current.Clone()})
	return e, nil
}

// Redo is the inverse of Undo.
func (h *History) Redo(current model.Collections) (Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redo) == 0 {
		return Entry{}, ErrNothingToRedo
	}
	e := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = h.push(h.undo, Entry{Label: e.Label, At: h.now(), State: current.Clone()})
	return e, nil
}

// Entries lists the undo stack, newest first.
func (h *History) Entries() []Summary {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Summary, 0, len(h.undo))
	for i := len(h.undo) - 1; i >= 0; i-- {
		out = append(out, Summary{Label: h.undo[i].Label, At: h.undo[i].At})
	}
	return out
}

// CanUndo and CanRedo report whether the stacks are non-empty.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

func (h *History) push(stack []Entry, e Entry) []Entry {
	stack = append(stack, e)
	if over := len(stack) - h.depth; over > 0 {
		clear(stack[:over])
		stack = stack[over:]
	}
	return stack
}
