package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/KinderboT/internal/calendar"
	"github.com/Kerhoff/KinderboT/internal/config"
	"github.com/Kerhoff/KinderboT/internal/diagnostics"
	"github.com/Kerhoff/KinderboT/internal/models"
	"github.com/Kerhoff/KinderboT/internal/sensors"
	"github.com/Kerhoff/KinderboT/internal/service"
)

// Server provides the HTTP API over the latest refresh snapshot.
type Server struct {
	svc    *service.Service
	cfg    *config.Config
	logger *logrus.Logger
	mux    *http.ServeMux

	// background work such as resync outlives the request that started it
	baseCtx   context.Context
	resyncing atomic.Bool
}

// NewServer creates a Server, registers all routes, and returns it. ctx
// bounds background jobs started through the API.
func NewServer(ctx context.Context, svc *service.Service, cfg *config.Config, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, cfg: cfg, logger: logger, mux: http.NewServeMux(), baseCtx: ctx}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.mux)
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// API – Children
	s.mux.HandleFunc("GET /api/children", s.handleGetChildren)
	s.mux.HandleFunc("GET /api/children/{key}/days", s.handleGetDays)
	s.mux.HandleFunc("GET /api/children/{key}/history", s.handleGetHistory)
	s.mux.HandleFunc("GET /api/children/{key}/calendar", s.handleGetCalendar)
	s.mux.HandleFunc("GET /api/children/{key}/sensors", s.handleGetSensors)
	s.mux.HandleFunc("GET /api/children/{key}/newsfeed", s.handleGetNewsfeed)

	// API – Maintenance
	s.mux.HandleFunc("GET /api/diagnostics", s.handleGetDiagnostics)
	s.mux.HandleFunc("POST /api/resync", s.handleResync)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// requireChild resolves the {key} path value. It writes an error response
// and returns false when no data is loaded or the child is unknown.
func (s *Server) requireChild(w http.ResponseWriter, r *http.Request) (*service.ChildData, bool) {
	if s.svc.Snapshot() == nil {
		s.respondError(w, http.StatusServiceUnavailable, "data not loaded yet")
		return nil, false
	}
	data, ok := s.svc.Child(r.PathValue("key"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "unknown child")
		return nil, false
	}
	return data, true
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if snap := s.svc.Snapshot(); snap != nil {
		resp["last_updated"] = snap.LastUpdated
		resp["children"] = len(snap.Children)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// Children
// ---------------------------------------------------------------------------

type childResponse struct {
	Key string `json:"key"`
	models.Child
}

func (s *Server) handleGetChildren(w http.ResponseWriter, r *http.Request) {
	children := s.svc.Children()
	out := make([]childResponse, 0, len(children))
	for _, c := range children {
		out = append(out, childResponse{Key: c.Child.Key(), Child: c.Child})
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDays(w http.ResponseWriter, r *http.Request) {
	data, ok := s.requireChild(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, data.Days)
}

// handleGetHistory returns archived and current days, optionally limited to
// the from/to query dates (inclusive).
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	data, ok := s.requireChild(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			s.respondError(w, http.StatusBadRequest, "dates must use YYYY-MM-DD")
			return
		}
	}

	days := make(map[string]models.DayRecord, len(data.History))
	for date, day := range data.History {
		if (from != "" && date < from) || (to != "" && date > to) {
			continue
		}
		days[date] = day
	}
	s.respondJSON(w, http.StatusOK, days)
}

// handleGetCalendar returns events in [start, end). Both bounds are dates;
// the default range is the current week.
func (s *Server) handleGetCalendar(w http.ResponseWriter, r *http.Request) {
	data, ok := s.requireChild(w, r)
	if !ok {
		return
	}

	loc := s.svc.Location()
	start := models.MondayOf(s.svc.Now())
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 7)

	q := r.URL.Query()
	if raw := q.Get("start"); raw != "" {
		t, err := time.ParseInLocation(models.DateLayout, raw, loc)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "start must use YYYY-MM-DD")
			return
		}
		start = t
	}
	if raw := q.Get("end"); raw != "" {
		t, err := time.ParseInLocation(models.DateLayout, raw, loc)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "end must use YYYY-MM-DD")
			return
		}
		end = t
	}
	if !end.After(start) {
		s.respondError(w, http.StatusBadRequest, "end must be after start")
		return
	}

	events := calendar.Events(data.History, loc, start, end)
	if events == nil {
		events = []calendar.Event{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"events":  events,
		"current": calendar.Current(data.History, loc, s.svc.Now()),
		"latest":  calendar.LatestDay(data.History, s.svc.Now().Format(models.DateLayout)),
	})
}

func (s *Server) handleGetSensors(w http.ResponseWriter, r *http.Request) {
	data, ok := s.requireChild(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, sensors.Build(sensors.Input{
		Child:       data.Child,
		Days:        data.Days,
		Newsfeed:    data.Newsfeed,
		LastUpdated: s.svc.Snapshot().LastUpdated,
	}))
}

func (s *Server) handleGetNewsfeed(w http.ResponseWriter, r *http.Request) {
	data, ok := s.requireChild(w, r)
	if !ok {
		return
	}
	feed := data.Newsfeed
	if feed == nil {
		feed = []models.FeedItem{}
	}
	s.respondJSON(w, http.StatusOK, feed)
}

// ---------------------------------------------------------------------------
// Maintenance
// ---------------------------------------------------------------------------

func (s *Server) handleGetDiagnostics(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, diagnostics.Build(s.cfg, s.svc.Snapshot(), s.svc.HistoryWeeks()))
}

// handleResync starts a backfill of all children in the background and
// answers immediately.
func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	if !s.resyncing.CompareAndSwap(false, true) {
		s.respondError(w, http.StatusConflict, "resync already running")
		return
	}

	log := s.logger.WithField("request_id", w.Header().Get(requestIDHeader))
	go func() {
		defer s.resyncing.Store(false)
		n, err := s.svc.Resync(s.baseCtx)
		if err != nil {
			log.WithError(err).Error("Resync failed")
			return
		}
		log.Infof("Resync finished, %d new weeks", n)
	}()

	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "resync started"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Refresh(r.Context()); err != nil {
		s.respondError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"last_updated": s.svc.Snapshot().LastUpdated})
}
