package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"area710/internal/asset"
	"area710/internal/model"
	"area710/internal/repo"
)

const (
	maxJSONBody      = 1 << 20
	multipartMemory  = 8 << 20
	formImageField   = "image"
	formIndexField   = "index"
	formEventIDField = "eventId"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", repo.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// parseForm reads a urlencoded or multipart body limited to the configured
// upload size.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxUploadMB)<<20)
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return invalid("form: %v", err)
	}
	return nil
}

// decodeJSON decodes a small JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(v); err != nil {
		return invalid("json body: %v", err)
	}
	return nil
}

// formIndex returns the "index" field. ok is false when it is absent, which
// means create rather than update.
func formIndex(r *http.Request) (index int, ok bool, err error) {
	raw := strings.TrimSpace(r.FormValue(formIndexField))
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, invalid("index %q is not a number", raw)
	}
	return n, true, nil
}

// formUpload returns the uploaded image, or nil when none was sent. The
// returned release func closes the upload.
func formUpload(r *http.Request) (*asset.Upload, func(), error) {
	none := func() {}
	if r.MultipartForm == nil {
		return nil, none, nil
	}
	f, hdr, err := r.FormFile(formImageField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, none, nil
	}
	if err != nil {
		return nil, none, invalid("image: %v", err)
	}
	if hdr.Filename == "" {
		f.Close()
		return nil, none, nil
	}
	return &asset.Upload{Filename: hdr.Filename, Body: f}, func() { f.Close() }, nil
}

func eventFromForm(r *http.Request) model.PublicEvent {
	return model.PublicEvent{
		Title:       model.Bilingual{DE: r.FormValue("title_de"), EN: r.FormValue("title_en")},
		Description: model.Bilingual{DE: r.FormValue("desc_de"), EN: r.FormValue("desc_en")},
		Category:    r.FormValue("category"),
		Date:        r.FormValue("date"),
		Time:        r.FormValue("time"),
		Price:       r.FormValue("price"),
		TicketURL:   r.FormValue("ticketUrl"),
	}
}

func blockedFromForm(r *http.Request) (model.BlockedSlot, error) {
	b := model.BlockedSlot{
		Date:      r.FormValue("date"),
		StartTime: r.FormValue("startTime"),
		EndTime:   r.FormValue("endTime"),
		Reason:    r.FormValue("reason"),
		Status:    model.Status(r.FormValue("status")),
	}
	rooms, err := parseRooms(r.FormValue("rooms"))
	if err != nil {
		return model.BlockedSlot{}, err
	}
	b.Rooms = rooms
	return b, nil
}

// parseRooms decodes a JSON list of room names. Empty means all rooms.
func parseRooms(raw string) ([]model.Room, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var rooms []model.Room
	if err := json.Unmarshal([]byte(raw), &rooms); err != nil {
		return nil, invalid("rooms: %v", err)
	}
	if len(rooms) == 0 {
		return nil, nil
	}
	return rooms, nil
}

func galleryFromForm(r *http.Request) (model.GalleryItem, error) {
	g := model.GalleryItem{
		Title:    model.Bilingual{DE: r.FormValue("title_de"), EN: r.FormValue("title_en")},
		Category: r.FormValue("category"),
		Date:     r.FormValue("date"),
	}
	if raw := strings.TrimSpace(r.FormValue(formEventIDField)); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return model.GalleryItem{}, invalid("eventId %q is not a number", raw)
		}
		g.EventID = &id
	}
	return g, nil
}
