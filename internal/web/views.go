package web

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"time"

	"area710/internal/aggregate"
	"area710/internal/archive"
	"area710/internal/asset"
	"area710/internal/history"
	"area710/internal/ics"
	appLog "area710/internal/log"
	"area710/internal/model"
)

type selectProjectRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleGetProject(w http.ResponseWriter, _ *http.Request) {
	p, err := s.ws.Current()
	if err != nil {
		writeOK(w, response{"path": ""})
		return
	}
	writeOK(w, response{"path": p.Root})
}

// handleSelectProject switches the active project. Histories are dropped
// when the project actually changes.
func (s *Server) handleSelectProject(w http.ResponseWriter, r *http.Request) {
	const op = "select_project"
	var req selectProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, op, err)
		return
	}

	s.editMu.Lock()
	defer s.editMu.Unlock()

	prev, _ := s.ws.Current()
	p, err := s.ws.Select(req.Path)
	if err != nil {
		s.fail(w, op, invalid("%v", err))
		return
	}
	if p.Root != prev.Root {
		s.sessions.Reset()
	}
	appLog.Info("project selected", "path", p.Root)
	s.metrics.Operation(op, "ok")
	writeOK(w, response{"path": p.Root})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	rp, err := s.repository()
	if err != nil {
		s.fail(w, "get_data", err)
		return
	}
	c, st := rp.Collections()
	writeOK(w, response{
		"events":  c.Events,
		"gallery": c.Gallery,
		"status": map[string]string{
			"events":  st.Events.Outcome.String(),
			"gallery": st.Gallery.Outcome.String(),
		},
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rp, err := s.repository()
	if err != nil {
		s.fail(w, "dashboard", err)
		return
	}
	c, _ := rp.Collections()
	writeOK(w, response{"stats": aggregate.DashboardStats(c.Events, c.Gallery, s.now())})
}

// handleCalendar renders one month.
//
// GET /api/calendar?year=2026&month=1&future=1
//   - year, month: default to the current month; month may overflow
//   - future:      hide public events before today
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	rp, err := s.repository()
	if err != nil {
		s.fail(w, "calendar", err)
		return
	}
	now := s.now()
	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), now.Year())
	month := parseIntDefault(q.Get("month"), int(now.Month()))
	onlyFuture := q.Get("future") == "1" || q.Get("future") == "true"

	weekStart := time.Monday
	if s.cfg.WeekStart == "sunday" {
		weekStart = time.Sunday
	}

	c, _ := rp.Collections()
	m := aggregate.CalendarMonth(c.Events, year, time.Month(month), now, onlyFuture, weekStart)
	writeOK(w, response{"calendar": m, "rows": m.Rows()})
}

// handleList serves the filtered listings.
//
// GET /api/list/{events|blocked|gallery}?q=&category=&sort=
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	const op = "list"
	q := r.URL.Query()
	key, err := aggregate.ParseSortKey(q.Get("sort"))
	if err != nil {
		s.fail(w, op, invalid("%v", err))
		return
	}
	f := aggregate.Filter{Search: q.Get("q"), Category: q.Get("category"), Sort: key}

	rp, err := s.repository()
	if err != nil {
		s.fail(w, op, err)
		return
	}
	c, _ := rp.Collections()

	switch r.PathValue("kind") {
	case "events":
		writeOK(w, response{"items": aggregate.ListEvents(c.Events, f)})
	case "blocked":
		writeOK(w, response{"items": aggregate.ListBlocked(c.Events, f.Search)})
	case "gallery":
		writeOK(w, response{"items": aggregate.ListGallery(c.Gallery, f)})
	default:
		writeError(w, http.StatusNotFound, "unknown listing")
	}
}

// handleExport streams a zip of the project as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	const op = "export"
	p, err := s.ws.Current()
	if err != nil {
		s.fail(w, op, err)
		return
	}
	data, err := archive.Export(p)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	s.metrics.Operation(op, "ok")
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+archive.FileName(s.now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleFeed publishes the events as iCalendar. blocked=1 adds blocked slots
// as private entries.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	rp, err := s.repository()
	if err != nil {
		s.fail(w, "feed", err)
		return
	}
	c, _ := rp.Collections()
	body := ics.Feed(c.Events, ics.FeedOptions{
		ProductID:      s.cfg.ICS.ProductID,
		Name:           s.cfg.ICS.Name,
		Location:       resolveLocationOrLocal(s.cfg.ICS.Timezone),
		IncludeBlocked: r.URL.Query().Get("blocked") == "1",
		Stamp:          s.now(),
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// handleProjectFile serves images and other files from the project
// directory. Paths leaving the project answer 403.
func (s *Server) handleProjectFile(w http.ResponseWriter, r *http.Request) {
	p, err := s.ws.Current()
	if err != nil {
		http.Error(w, "no project selected", http.StatusNotFound)
		return
	}
	full, err := asset.Resolve(p.Root, r.PathValue("path"))
	if err != nil {
		http.Error(w, "access denied", http.StatusForbidden)
		return
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			appLog.Warn("project file stat failed", "path", full, "err", err)
		}
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, full)
}

// sessionHistory returns the caller's undo history, issuing a session
// cookie when the request has none or an unknown one. Only mutations call it.
func (s *Server) sessionHistory(w http.ResponseWriter, r *http.Request) *history.History {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	h, got := s.sessions.Get(id)
	if got != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    got,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return h
}

// knownHistory returns the caller's history without starting a session.
// Requests without one see an empty history.
func (s *Server) knownHistory(r *http.Request) *history.History {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if h, ok := s.sessions.Lookup(c.Value); ok {
			return h
		}
	}
	return history.New(1)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	h := s.knownHistory(r)
	writeOK(w, response{
		"entries":  h.Entries(),
		"can_undo": h.CanUndo(),
		"can_redo": h.CanRedo(),
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.travel(w, r, "undo", (*history.History).Undo)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.travel(w, r, "redo", (*history.History).Redo)
}

// travel applies one undo or redo step and writes the resulting working set
// to disk.
func (s *Server) travel(w http.ResponseWriter, r *http.Request, op string, step func(*history.History, model.Collections) (history.Entry, error)) {
	rp, err := s.repository()
	if err != nil {
		s.fail(w, op, err)
		return
	}
	h := s.knownHistory(r)

	s.editMu.Lock()
	defer s.editMu.Unlock()

	cur, err := rp.Snapshot()
	if err != nil {
		s.fail(w, op, err)
		return
	}
	e, err := step(h, cur)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	if err := rp.ReplaceAll(e.State); err != nil {
		s.fail(w, op, err)
		return
	}
	appLog.Info("history step applied", "operation", op, "action", e.Label)
	s.metrics.Operation(op, "ok")
	writeOK(w, response{
		"action":   e.Label,
		"events":   e.State.Events,
		"gallery":  e.State.Gallery,
		"can_undo": h.CanUndo(),
		"can_redo": h.CanRedo(),
	})
}

// sessionCookie carries the history session id.
const sessionCookie = "area710_session"
