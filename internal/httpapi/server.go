package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"bulk_sender/internal/config"
	"bulk_sender/internal/contacts"
	"bulk_sender/internal/engine"
	"bulk_sender/internal/history"
	"bulk_sender/internal/logbus"
	"bulk_sender/internal/store/sqlite"
	"bulk_sender/internal/ws"
)

const maxUploadBytes = 10 << 20

type Options struct {
	Cfg    config.Config
	Bus    *logbus.Bus
	Store  *sqlite.Store
	Engine *engine.Engine
	Logger *zap.Logger
}

type Server struct {
	cfg    config.Config
	bus    *logbus.Bus
	store  *sqlite.Store
	engine *engine.Engine
	logger *zap.Logger
	ws     *ws.Handler
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    opts.Cfg,
		bus:    opts.Bus,
		store:  opts.Store,
		engine: opts.Engine,
		logger: logger,
		ws:     ws.NewHandler(opts.Bus, opts.Cfg.Server.Cors.AllowOrigins),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/ws", s.ws)

	api := http.NewServeMux()
	api.HandleFunc("/api/v1/contacts/upload", s.handleContactsUpload)
	api.HandleFunc("/api/v1/contacts", s.handleContacts)
	api.HandleFunc("/api/v1/run/start", s.handleRunStart)
	api.HandleFunc("/api/v1/run/stop", s.handleRunStop)
	api.HandleFunc("/api/v1/run/pause", s.handleRunPause)
	api.HandleFunc("/api/v1/run/progress", s.handleRunProgress)
	api.HandleFunc("/api/v1/history", s.handleHistory)
	api.HandleFunc("/api/v1/history/export", s.handleHistoryExport)
	api.HandleFunc("/api/v1/settings", s.handleSettings)
	api.HandleFunc("/api/v1/settings/email", s.handleEmailSettings)
	api.HandleFunc("/api/v1/settings/email/test", s.handleEmailTest)
	api.HandleFunc("/api/v1/stats", s.handleStats)
	api.HandleFunc("/api/v1/page/status", s.handlePageStatus)

	mux.Handle("/api/", corsMiddleware(s.cfg.Server.Cors, api))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleContactsUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid upload: " + err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "file is required"})
		return
	}
	defer file.Close()

	list, err := s.engine.UploadFile(r.Context(), header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrRunning):
			writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
		case contacts.IsParseError(err):
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": s.engine.Contacts()})
}

func (s *Server) handleRunStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if err := s.engine.Start(ctx); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": s.engine.Progress()})
}

func (s *Server) handleRunStop(w http.ResponseWriter, r *http.Request) {
	s.handleInterrupt(w, r, s.engine.Stop)
}

func (s *Server) handleRunPause(w http.ResponseWriter, r *http.Request) {
	s.handleInterrupt(w, r, s.engine.Pause)
}

// handleInterrupt waits for the in-flight send to finish, so the deadline covers one send.
func (s *Server) handleInterrupt(w http.ResponseWriter, r *http.Request, fn func(context.Context) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Browser.SendTimeout()+10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": s.engine.Progress()})
}

func (s *Server) handleRunProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p := s.engine.Progress()
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"runId":        p.RunID,
		"state":        p.State,
		"sent":         p.Sent,
		"failed":       p.Failed,
		"total":        p.Total,
		"currentIndex": p.CurrentIndex,
		"current":      p.Current,
		"remaining":    p.Remaining(),
		"percent":      p.Percent(),
	}})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"data": s.engine.History()})
	case http.MethodDelete:
		if err := s.engine.ClearHistory(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+history.ExportFilename(time.Now())+`"`)
	if err := s.engine.ExportHistory(w); err != nil {
		s.logger.Warn("history export failed", zap.Error(err))
	}
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"data": s.engine.Settings()})
	case http.MethodPost:
		next := s.engine.Settings()
		if err := readJSON(r, &next); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		saved, err := s.engine.SaveSettings(r.Context(), next)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": saved})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st, err := s.engine.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": st})
}

func (s *Server) handlePageStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	ready, err := s.engine.PageReady(ctx)
	body := map[string]any{
		"ready": ready,
		"state": s.engine.State(),
	}
	if err != nil {
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": body})
}

