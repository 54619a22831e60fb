package history

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultMaxSessions bounds a Sessions registry.
const DefaultMaxSessions = 64

// Sessions hands out one History per client session. When full, the least
// recently used session is dropped.
type Sessions struct {
	mu    sync.Mutex
	depth int
	max   int
	seq   uint64
	byID  map[string]*session
}

type session struct {
	h    *History
	used uint64
}

// NewSessions returns an empty registry whose histories use depth.
func NewSessions(depth int) *Sessions {
	return &Sessions{depth: depth, max: DefaultMaxSessions, byID: map[string]*session{}}
}

// Get returns the History of session id. Empty, malformed or unknown ids get
// a fresh session; the id actually used is returned.
func (s *Sessions) Get(id string) (*History, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.lookup(id); ok {
		return h, id
	}
	if len(s.byID) >= s.max {
		s.evictOldest()
	}
	id = uuid.NewString()
	h := New(s.depth)
	s.seq++
	s.byID[id] = &session{h: h, used: s.seq}
	return h, id
}

// Lookup returns the History of an existing session without creating one.
func (s *Sessions) Lookup(id string) (*History, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(id)
}

func (s *Sessions) lookup(id string) (*History, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	sess, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	s.seq++
	sess.used = s.seq
	return sess.h, true
}

func (s *Sessions) evictOldest() {
	var oldest string
	var oldestUse uint64
	for id, sess := range s.byID {
		if oldest == "" || sess.used < oldestUse {
			oldest, oldestUse = id, sess.used
		}
	}
	delete(s.byID, oldest)
}

// Reset drops every history. Snapshots belong to one project, so this runs
// when another project is selected.
func (s *Sessions) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.byID)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
