package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"area710/internal/ics"
	appLog "area710/internal/log"
	"area710/internal/model"
	"area710/internal/repo"
)

// mutate runs fn against the active project. On success the working set as
// it was before fn is recorded in the caller's history under label. A working
// set read from a corrupt file is not recorded, so undo can never write its
// empty stand-in over that file.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op, label string, fn func(*repo.Repository) (response, error)) {
	rp, err := s.repository()
	if err != nil {
		s.fail(w, op, err)
		return
	}
	h := s.sessionHistory(w, r)

	s.editMu.Lock()
	defer s.editMu.Unlock()

	before, snapErr := rp.Snapshot()
	out, err := fn(rp)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	if snapErr == nil {
		h.Record(label, before)
	} else {
		appLog.Warn("change not undoable", "operation", op, "err", snapErr)
	}
	s.metrics.Operation(op, "ok")
	writeOK(w, out)
}

func (s *Server) handleSaveEvent(w http.ResponseWriter, r *http.Request) {
	const op = "save_event"
	if err := s.parseForm(w, r); err != nil {
		s.fail(w, op, err)
		return
	}
	index, update, err := formIndex(r)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	img, release, err := formUpload(r)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	defer release()

	in := eventFromForm(r)
	label := "Event erstellt"
	if update {
		label = "Event bearbeitet"
	}
	s.mutate(w, r, op, label, func(rp *repo.Repository) (response, error) {
		var e *model.PublicEvent
		var err error
		if update {
			e, err = rp.UpdateEvent(index, in, img)
		} else {
			e, err = rp.CreateEvent(in, img)
		}
		if err != nil {
			return nil, err
		}
		return response{"event": e}, nil
	})
}

func (s *Server) handleSaveBlocked(w http.ResponseWriter, r *http.Request) {
	const op = "save_blocked"
	if err := s.parseForm(w, r); err != nil {
		s.fail(w, op, err)
		return
	}
	index, update, err := formIndex(r)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	in, err := blockedFromForm(r)
	if err != nil {
		s.fail(w, op, err)
		return
	}

	label := "Sperrtermin erstellt"
	if update {
		label = "Sperrtermin bearbeitet"
	}
	s.mutate(w, r, op, label, func(rp *repo.Repository) (response, error) {
		var b *model.BlockedSlot
		var err error
		if update {
			b, err = rp.UpdateBlocked(index, in)
		} else {
			b, err = rp.CreateBlocked(in)
		}
		if err != nil {
			return nil, err
		}
		return response{"blocked": b}, nil
	})
}

func (s *Server) handleBlockedSeries(w http.ResponseWriter, r *http.Request) {
	const op = "blocked_series"
	if err := s.parseForm(w, r); err != nil {
		s.fail(w, op, err)
		return
	}
	tmpl, err := blockedFromForm(r)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	rule := strings.TrimSpace(r.FormValue("rrule"))
	if rule == "" {
		s.fail(w, op, invalid("rrule is required"))
		return
	}
	limit := parseIntDefault(r.FormValue("limit"), ics.DefaultMaxOccurrences)
	if limit <= 0 || limit > ics.DefaultMaxOccurrences {
		limit = ics.DefaultMaxOccurrences
	}

	s.mutate(w, r, op, "Sperrtermin-Serie erstellt", func(rp *repo.Repository) (response, error) {
		added, err := rp.CreateBlockedSeries(tmpl, rule, limit)
		if err != nil {
			return nil, err
		}
		return response{"added": added}, nil
	})
}

// importRequest is the body of POST /api/blocked/import.
type importRequest struct {
	URL    string       `json:"url"`
	From   string       `json:"from"`
	To     string       `json:"to"`
	Reason string       `json:"reason"`
	Status model.Status `json:"status"`
	Rooms  []model.Room `json:"rooms"`
}

// handleImportBlocked fetches a remote calendar and adds its occurrences in
// [from, to) as blocked slots. The window defaults to the coming year.
func (s *Server) handleImportBlocked(w http.ResponseWriter, r *http.Request) {
	const op = "import_blocked"
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, op, err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.fail(w, op, invalid("url is required"))
		return
	}
	win, err := s.importWindow(req.From, req.To)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	if _, err := s.ws.Current(); err != nil {
		s.fail(w, op, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	slots, err := s.fetcher.Import(ctx, ics.Source{ID: "import", URL: req.URL}, win, ics.BlockTemplate{
		Reason: req.Reason,
		Status: req.Status,
		Rooms:  req.Rooms,
	})
	if err != nil {
		s.fail(w, op, fmt.Errorf("%w: %v", errUpstream, err))
		return
	}
	if len(slots) == 0 {
		s.metrics.Operation(op, "ok")
		writeOK(w, response{"added": []*model.BlockedSlot{}})
		return
	}

	s.mutate(w, r, op, "Kalender importiert", func(rp *repo.Repository) (response, error) {
		added, err := rp.AppendBlocked(slots)
		if err != nil {
			return nil, err
		}
		return response{"added": added}, nil
	})
}

func (s *Server) importWindow(from, to string) (ics.Window, error) {
	loc := resolveLocationOrLocal(s.cfg.ICS.Timezone)
	y, m, d := s.now().In(loc).Date()
	win := ics.Window{From: time.Date(y, m, d, 0, 0, 0, 0, loc), Location: loc}
	win.To = win.From.AddDate(1, 0, 0)

	if from != "" {
		t, err := time.ParseInLocation(model.DateLayout, from, loc)
		if err != nil {
			return ics.Window{}, invalid("from %q: %v", from, err)
		}
		win.From = t
	}
	if to != "" {
		t, err := time.ParseInLocation(model.DateLayout, to, loc)
		if err != nil {
			return ics.Window{}, invalid("to %q: %v", to, err)
		}
		win.To = t
	}
	if !win.To.After(win.From) {
		return ics.Window{}, invalid("window end must be after its start")
	}
	return win, nil
}

func (s *Server) handleSaveGallery(w http.ResponseWriter, r *http.Request) {
	const op = "save_gallery"
	if err := s.parseForm(w, r); err != nil {
		s.fail(w, op, err)
		return
	}
	index, update, err := formIndex(r)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	in, err := galleryFromForm(r)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	img, release, err := formUpload(r)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	defer release()

	label := "Galerie-Eintrag erstellt"
	if update {
		label = "Galerie-Eintrag bearbeitet"
	}
	s.mutate(w, r, op, label, func(rp *repo.Repository) (response, error) {
		var g model.GalleryItem
		var err error
		if update {
			g, err = rp.UpdateGallery(index, in, img)
		} else {
			g, err = rp.CreateGallery(in, img)
		}
		if err != nil {
			return nil, err
		}
		return response{"item": g}, nil
	})
}

// indexRequest is the body of the single-record delete and duplicate calls.
type indexRequest struct {
	Index *int   `json:"index"`
	Type  string `json:"type"`
}

func (req indexRequest) index() (int, error) {
	if req.Index == nil {
		return 0, invalid("index is required")
	}
	return *req.Index, nil
}

// handleDeleteRecord deletes one events.json record of either variant.
func (s *Server) handleDeleteRecord(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req indexRequest
		if err := decodeJSON(r, &req); err != nil {
			s.fail(w, op, err)
			return
		}
		index, err := req.index()
		if err != nil {
			s.fail(w, op, err)
			return
		}
		s.mutate(w, r, op, "Eintrag gelöscht", func(rp *repo.Repository) (response, error) {
			rec, err := rp.DeleteEvent(index)
			if err != nil {
				return nil, err
			}
			return response{"deleted": rec}, nil
		})
	}
}

func (s *Server) handleDeleteGallery(w http.ResponseWriter, r *http.Request) {
	const op = "delete_gallery"
	var req indexRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, op, err)
		return
	}
	index, err := req.index()
	if err != nil {
		s.fail(w, op, err)
		return
	}
	s.mutate(w, r, op, "Galerie-Eintrag gelöscht", func(rp *repo.Repository) (response, error) {
		g, err := rp.DeleteGallery(index)
		if err != nil {
			return nil, err
		}
		return response{"deleted": g}, nil
	})
}

func (s *Server) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	const op = "duplicate"
	var req indexRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, op, err)
		return
	}
	index, err := req.index()
	if err != nil {
		s.fail(w, op, err)
		return
	}
	c, err := model.ParseCollection(req.Type)
	if err != nil {
		s.fail(w, op, invalid("%v", err))
		return
	}
	s.mutate(w, r, op, "Dupliziert", func(rp *repo.Repository) (response, error) {
		dup, err := rp.Duplicate(c, index)
		if err != nil {
			return nil, err
		}
		return response{"record": dup}, nil
	})
}

type deleteManyRequest struct {
	Indices []int  `json:"indices"`
	Type    string `json:"type"`
}

func (s *Server) handleDeleteMany(w http.ResponseWriter, r *http.Request) {
	const op = "delete_many"
	var req deleteManyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, op, err)
		return
	}
	c, err := model.ParseCollection(req.Type)
	if err != nil {
		s.fail(w, op, invalid("%v", err))
		return
	}
	s.mutate(w, r, op, fmt.Sprintf("%d Einträge gelöscht", len(req.Indices)), func(rp *repo.Repository) (response, error) {
		n, err := rp.DeleteMany(c, req.Indices)
		if err != nil {
			return nil, err
		}
		appLog.Info("records deleted", "collection", string(c), "requested", len(req.Indices), "deleted", n)
		return response{"deleted": n}, nil
	})
}

type reorderRequest struct {
	Order []int  `json:"order"`
	Type  string `json:"type"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	const op = "reorder"
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, op, err)
		return
	}
	c, err := model.ParseCollection(req.Type)
	if err != nil {
		s.fail(w, op, invalid("%v", err))
		return
	}
	s.mutate(w, r, op, "Reihenfolge geändert", func(rp *repo.Repository) (response, error) {
		return nil, rp.Reorder(c, req.Order)
	})
}
