// Package web exposes the editor operations over HTTP and serves the
// embedded UI shell.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"area710/internal/config"
	"area710/internal/history"
	"area710/internal/ics"
	appLog "area710/internal/log"
	"area710/internal/metrics"
	"area710/internal/project"
	"area710/internal/repo"
)

// Server provides the editor API on top of the active project.
type Server struct {
	cfg      *config.Config
	mux      *http.ServeMux
	ws       *project.Workspace
	sessions *history.Sessions
	metrics  *metrics.Metrics
	fetcher  *ics.Fetcher
	now      func() time.Time

	// editMu serializes read-modify-write cycles together with the history
	// entry they produce.
	editMu sync.Mutex
}

// embeddedStatic holds the UI shell served for every non-API path.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a Server for ws. m may be nil.
func NewServer(cfg *config.Config, ws *project.Workspace, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		ws:       ws,
		sessions: history.NewSessions(cfg.HistoryDepth),
		metrics:  m,
		fetcher:  ics.NewFetcher(cfg.ICS.CacheDir, nil),
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler including request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// StartServer serves s on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func StartServer(ctx context.Context, s *Server) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.mux.HandleFunc("GET /api/project", s.handleGetProject)
	s.mux.HandleFunc("POST /api/project", s.handleSelectProject)
	s.mux.HandleFunc("GET /api/data", s.handleData)

	s.mux.HandleFunc("POST /api/events", s.handleSaveEvent)
	s.mux.HandleFunc("POST /api/events/delete", s.handleDeleteRecord("delete_event"))
	s.mux.HandleFunc("POST /api/blocked", s.handleSaveBlocked)
	s.mux.HandleFunc("POST /api/blocked/series", s.handleBlockedSeries)
	s.mux.HandleFunc("POST /api/blocked/import", s.handleImportBlocked)
	s.mux.HandleFunc("POST /api/blocked/delete", s.handleDeleteRecord("delete_blocked"))
	s.mux.HandleFunc("POST /api/gallery", s.handleSaveGallery)
	s.mux.HandleFunc("POST /api/gallery/delete", s.handleDeleteGallery)
	s.mux.HandleFunc("POST /api/duplicate", s.handleDuplicate)
	s.mux.HandleFunc("POST /api/delete-multiple", s.handleDeleteMany)
	s.mux.HandleFunc("POST /api/reorder", s.handleReorder)

	s.mux.HandleFunc("POST /api/undo", s.handleUndo)
	s.mux.HandleFunc("POST /api/redo", s.handleRedo)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)

	s.mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	s.mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /api/calendar.ics", s.handleFeed)
	s.mux.HandleFunc("GET /api/list/{kind}", s.handleList)
	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("GET /project-files/{path...}", s.handleProjectFile)

	// Everything else falls back to the embedded UI.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the embedded files from internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Unknown API paths get a JSON 404, never the UI.
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotFound, "unknown endpoint")
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start).Round(time.Microsecond).String(),
		)
	})
}

// repository opens the active project with the configured options.
func (s *Server) repository() (*repo.Repository, error) {
	p, err := s.ws.Current()
	if err != nil {
		return nil, err
	}
	return repo.New(p,
		repo.WithOverwriteCorrupt(s.cfg.Storage.OverwriteCorrupt),
		repo.WithMetrics(s.metrics),
	), nil
}

// response is the JSON envelope; writeOK adds "success": true.
type response map[string]any

func writeOK(w http.ResponseWriter, body response) {
	if body == nil {
		body = response{}
	}
	body["success"] = true
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, response{"success": false, "error": msg})
}

// errUpstream marks failures of a remote calendar source.
var errUpstream = errors.New("remote calendar unavailable")

// classify maps an operation error to an HTTP status and a metrics outcome.
func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, project.ErrNoProject):
		return http.StatusConflict, "no_project"
	case errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repo.ErrInvalidInput), errors.Is(err, repo.ErrVariantMismatch):
		return http.StatusBadRequest, "invalid_input"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "invalid_input"
	case errors.Is(err, history.ErrNothingToUndo), errors.Is(err, history.ErrNothingToRedo):
		return http.StatusConflict, "empty_history"
	case errors.Is(err, errUpstream):
		return http.StatusBadGateway, "upstream"
	case errors.Is(err, repo.ErrCorrupt):
		return http.StatusInternalServerError, "corrupt"
	default:
		return http.StatusInternalServerError, "storage"
	}
}

// fail reports err for operation op.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status, outcome := classify(err)
	s.metrics.Operation(op, outcome)
	if status >= http.StatusInternalServerError {
		appLog.Error("operation failed", err, "operation", op, "status", status)
	} else {
		appLog.Debug("operation rejected", "operation", op, "status", status, "err", err)
	}
	writeError(w, status, err.Error())
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
