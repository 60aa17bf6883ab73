package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/healthwatch/internal/domain"
	"github.com/hamed0406/healthwatch/internal/history"
	apimw "github.com/hamed0406/healthwatch/internal/httpapi/middleware"
	"github.com/hamed0406/healthwatch/internal/registry"
	"github.com/hamed0406/healthwatch/internal/repo"
)

// Monitor is the subset of the scheduler the API drives.
type Monitor interface {
	AddTarget(ctx context.Context, t domain.Target) (domain.Target, error)
	RemoveTarget(ctx context.Context, id domain.TargetID, purge bool) error
	SetPaused(ctx context.Context, id domain.TargetID, paused bool) (domain.Target, error)
	TogglePaused(ctx context.Context, id domain.TargetID) (domain.Target, error)
	SetInterval(ctx context.Context, id domain.TargetID, sec int) (domain.Target, error)
	Resync(ctx context.Context) (registry.Diff, error)
}

type Options struct {
	DefaultInterval int
	PurgeOnDelete   bool
	AllowedOrigins  []string
	PublicRPM       int
	PublicBurst     int
}

type Server struct {
	Logger   *zap.Logger
	Monitor  Monitor
	Registry *registry.Registry
	History  *history.Store
	Targets  repo.TargetStore
	Hub      *Hub
	Opts     Options
	now      func() time.Time
}

func NewServer(l *zap.Logger, m Monitor, reg *registry.Registry, hist *history.Store, ts repo.TargetStore, hub *Hub, opts Options) *Server {
	if opts.DefaultInterval < domain.MinInterval {
		opts.DefaultInterval = 5
	}
	return &Server{Logger: l, Monitor: m, Registry: reg, History: hist, Targets: ts, Hub: hub, Opts: opts, now: time.Now}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.corsHandler())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RateLimit(s.Opts.PublicRPM, s.Opts.PublicBurst))

		r.Get("/targets", s.handleListTargets)
		r.Post("/targets", s.handleAddTarget)
		r.Post("/sync", s.handleSync)

		r.Route("/targets/{id}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteTarget)
			r.Post("/pause", s.handlePause)
			r.Put("/interval", s.handleInterval)
			r.Get("/history", s.handleHistory)
			r.Get("/analytics", s.handleAnalytics)
		})
	})
	return r
}

func (s *Server) corsHandler() func(http.Handler) http.Handler {
	origins := s.Opts.AllowedOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		return cors.AllowAll().Handler
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	})
}

// ---- targets ----

type addPayload struct {
	URL      string `json:"url"`
	Interval int    `json:"interval"`
}

func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	var p addPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.URL == "" {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if !isValidHTTPURL(p.URL) {
		writeError(w, http.StatusBadRequest, "url must be an absolute http or https URL")
		return
	}
	if p.Interval == 0 {
		p.Interval = s.Opts.DefaultInterval
	}
	if p.Interval < domain.MinInterval {
		writeError(w, http.StatusBadRequest, registry.ErrInvalidInterval.Error())
		return
	}

	id := domain.TargetID(normalizeHTTPURL(p.URL))
	if _, ok := s.Registry.Get(id); ok {
		writeError(w, http.StatusConflict, "target already monitored")
		return
	}

	status := http.StatusCreated
	t := domain.Target{ID: id, IntervalSec: p.Interval}
	if stored, ok := s.findStored(r.Context(), id); ok {
		// known to persistence but missing from the registry: bring it back
		t.CreatedAt = stored.CreatedAt
		t.Paused = false
		status = http.StatusOK
	}

	t, err := s.Monitor.AddTarget(r.Context(), t)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.Logger.Info("added_target",
		zap.String("target_id", string(t.ID)),
		zap.Int("interval", t.IntervalSec),
		zap.Bool("restored", status == http.StatusOK),
	)
	writeJSON(w, status, map[string]any{"target": t})
}

func (s *Server) findStored(ctx context.Context, id domain.TargetID) (domain.Target, bool) {
	if s.Targets == nil {
		return domain.Target{}, false
	}
	all, err := s.Targets.LoadTargets(ctx)
	if err != nil {
		s.Logger.Warn("load_targets_failed", zap.Error(err))
		return domain.Target{}, false
	}
	for _, t := range all {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Target{}, false
}

type targetView struct {
	domain.Target
	Latest *domain.Event `json:"latest,omitempty"`
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	ts := s.Registry.List()
	out := make([]targetView, 0, len(ts))
	for _, t := range ts {
		v := targetView{Target: t}
		if rec, ok := s.History.Latest(t.ID); ok {
			ev := domain.EventFor(t, rec)
			v.Latest = &ev
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	id, ok := targetID(w, r)
	if !ok {
		return
	}
	purge := s.Opts.PurgeOnDelete
	if v := r.URL.Query().Get("purge"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "purge must be a boolean")
			return
		}
		purge = b
	}
	if err := s.Monitor.RemoveTarget(r.Context(), id, purge); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.Logger.Info("removed_target", zap.String("target_id", string(id)), zap.Bool("purge", purge))
	w.WriteHeader(http.StatusNoContent)
}

type pausePayload struct {
	Paused *bool `json:"paused"`
}

// handlePause toggles the paused flag, or sets it when the body says so.
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	id, ok := targetID(w, r)
	if !ok {
		return
	}
	var p pausePayload
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "bad payload")
			return
		}
	}
	var (
		t   domain.Target
		err error
	)
	if p.Paused != nil {
		t, err = s.Monitor.SetPaused(r.Context(), id, *p.Paused)
	} else {
		t, err = s.Monitor.TogglePaused(r.Context(), id)
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"target": t})
}

type intervalPayload struct {
	Interval int `json:"interval"`
}

func (s *Server) handleInterval(w http.ResponseWriter, r *http.Request) {
	id, ok := targetID(w, r)
	if !ok {
		return
	}
	var p intervalPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	t, err := s.Monitor.SetInterval(r.Context(), id, p.Interval)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"target": t})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	d, err := s.Monitor.Resync(r.Context())
	if err != nil {
		s.Logger.Warn("sync_failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not reload targets")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"added":   len(d.Added),
		"changed": len(d.Changed),
		"removed": len(d.Removed),
		"total":   len(s.Registry.List()),
	})
}

// ---- history & analytics ----

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.knownTarget(w, r)
	if !ok {
		return
	}
	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = t
	}
	recs := s.History.Since(id, since)
	if recs == nil {
		recs = []domain.HealthRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"target_id": id, "history": recs})
}

type analyticsResponse struct {
	TargetID          domain.TargetID         `json:"target_id"`
	Reliability       domain.ReliabilityStats `json:"reliability"`
	HourlyAverages    []domain.HourlyBucket   `json:"avg_response_by_hour"`
	BestTimes         []domain.HourlyBucket   `json:"best_times"`
	Series            []domain.SeriesPoint    `json:"series"`
	IntervalRequested int                     `json:"interval_requested"`
	IntervalUsed      int                     `json:"interval_used"`
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	id, ok := s.knownTarget(w, r)
	if !ok {
		return
	}
	requested := StandardIntervals[0]
	if v := r.URL.Query().Get("interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "interval must be a positive number of minutes")
			return
		}
		requested = n
	}
	oldest, _ := s.History.Oldest(id)
	used := FitInterval(requested, oldest, s.now())

	series, err := s.History.GroupedSeries(id, used)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hourly := s.History.HourlyAverages(id)
	writeJSON(w, http.StatusOK, analyticsResponse{
		TargetID:          id,
		Reliability:       s.History.Reliability(id),
		HourlyAverages:    hourly,
		BestTimes:         history.BestTimes(hourly),
		Series:            nonNil(series),
		IntervalRequested: requested,
		IntervalUsed:      used,
	})
}

func nonNil(pts []domain.SeriesPoint) []domain.SeriesPoint {
	if pts == nil {
		return []domain.SeriesPoint{}
	}
	return pts
}

// ---- websocket ----

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ts := s.Registry.List()
	snapshot := make([]domain.Event, 0, len(ts))
	for _, t := range ts {
		ev := domain.Event{TargetID: t.ID, Interval: t.IntervalSec, Paused: t.Paused, ResponseTimeMS: domain.NoLatency}
		if rec, ok := s.History.Latest(t.ID); ok {
			ev = domain.EventFor(t, rec)
		}
		snapshot = append(snapshot, ev)
	}
	s.Hub.Serve(w, r, snapshot)
}

// ---- helpers ----

// targetID reads the {id} path segment, which carries a path-escaped URL.
func targetID(w http.ResponseWriter, r *http.Request) (domain.TargetID, bool) {
	raw, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil || raw == "" {
		writeError(w, http.StatusBadRequest, "bad target id")
		return "", false
	}
	return domain.TargetID(normalizeHTTPURL(raw)), true
}

func (s *Server) knownTarget(w http.ResponseWriter, r *http.Request) (domain.TargetID, bool) {
	id, ok := targetID(w, r)
	if !ok {
		return "", false
	}
	if _, found := s.Registry.Get(id); !found {
		writeError(w, http.StatusNotFound, registry.ErrNotFound.Error())
		return "", false
	}
	return id, true
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.Logger.Warn("api_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
