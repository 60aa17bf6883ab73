package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/healthwatch/internal/domain"
	"github.com/hamed0406/healthwatch/internal/events"
	"github.com/hamed0406/healthwatch/internal/health"
	"github.com/hamed0406/healthwatch/internal/history"
	"github.com/hamed0406/healthwatch/internal/probe"
	"github.com/hamed0406/healthwatch/internal/registry"
	"github.com/hamed0406/healthwatch/internal/repo"
)

type Config struct {
	Timeout        time.Duration // per-probe bound
	WindowSize     int
	PersistTimeout time.Duration

	// Seeding loads at most SeedLimit of the newest persisted records, none
	// older than SeedMaxAge when it is set.
	SeedLimit  int
	SeedMaxAge time.Duration
}

type Deps struct {
	Logger     *zap.Logger
	Registry   *registry.Registry
	Checker    probe.Checker
	Classifier health.Classifier
	History    *history.Store
	Persist    repo.HistoryStore // optional
	Alerter    *Alerter
	Sink       events.Sink // optional
}

// targetState is owned by whichever worker currently runs the target.
// It outlives pauses and is dropped on removal.
type targetState struct {
	window *health.Window
	notify NotificationState
	seeded bool

	lastWorker <-chan struct{} // closed once the previous worker has exited
}

// Scheduler runs one worker per active target. Workers share nothing but
// the registry; a target's history and notification state are written
// only by its own worker.
type Scheduler struct {
	log        *zap.Logger
	reg        *registry.Registry
	checker    probe.Checker
	classifier health.Classifier
	history    *history.Store
	persist    repo.HistoryStore
	alerter    *Alerter
	sink       events.Sink
	cfg        Config
	now        func() time.Time
	periodOf   func(domain.Target) time.Duration

	mu      sync.Mutex
	root    context.Context
	workers map[domain.TargetID]*worker
	states  map[domain.TargetID]*targetState
	wg      sync.WaitGroup
}

func New(d Deps, cfg Config) *Scheduler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = health.DefaultWindowSize
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	if cfg.SeedLimit <= 0 {
		cfg.SeedLimit = history.DefaultMaxRecords
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Sink == nil {
		d.Sink = events.Discard{}
	}
	if d.Alerter == nil {
		d.Alerter = NewAlerter(d.Logger, nil, AlerterConfig{})
	}
	return &Scheduler{
		log:        d.Logger,
		reg:        d.Registry,
		checker:    d.Checker,
		classifier: d.Classifier,
		history:    d.History,
		persist:    d.Persist,
		alerter:    d.Alerter,
		sink:       d.Sink,
		cfg:        cfg,
		now:        time.Now,
		periodOf:   domain.Target.Period,
		workers:    make(map[domain.TargetID]*worker),
		states:     make(map[domain.TargetID]*targetState),
	}
}

// Start loads the registry and launches a worker for every active target.
// Workers stop when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.root = ctx
	s.mu.Unlock()
	if _, err := s.reg.Reload(ctx); err != nil {
		return err
	}
	s.Reconcile()
	return nil
}

// Reconcile aligns running workers with the registry: removed or paused
// targets are stopped, new ones started, and running ones keep their
// phase, only picking up a changed interval. History of a target that left
// the registry is dropped once its last worker has exited.
func (s *Scheduler) Reconcile() {
	s.mu.Lock()
	if s.root == nil {
		s.mu.Unlock()
		return
	}
	// read under mu so a concurrent call cannot apply an older snapshot last
	active := s.reg.ListActive()

	want := make(map[domain.TargetID]domain.Target, len(active))
	for _, t := range active {
		want[t.ID] = t
	}
	for id, w := range s.workers {
		if _, ok := want[id]; !ok {
			s.stopLocked(id, w)
		}
	}
	for id, t := range want {
		if w, ok := s.workers[id]; ok {
			if p := s.periodOf(t); w.period != p {
				w.setPeriod(p)
			}
			continue
		}
		s.startLocked(t)
	}
	gone := make(map[domain.TargetID]<-chan struct{})
	for id, st := range s.states {
		if _, ok := s.reg.Get(id); !ok {
			gone[id] = st.lastWorker
			delete(s.states, id)
		}
	}
	s.mu.Unlock()

	for id, done := range gone {
		if done != nil {
			<-done
		}
		s.dropHistory(id)
	}
}

// dropHistory forgets id's in-memory history unless it was re-added meanwhile.
func (s *Scheduler) dropHistory(id domain.TargetID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[id]; ok {
		return
	}
	s.history.Drop(id)
}

// Resync reloads the registry from persistence and reconciles workers.
func (s *Scheduler) Resync(ctx context.Context) (registry.Diff, error) {
	d, err := s.reg.Reload(ctx)
	if err != nil {
		return d, err
	}
	s.Reconcile()
	for _, id := range d.Removed {
		s.sink.Publish(domain.Event{TargetID: id, Removed: true})
	}
	return d, nil
}

// AddTarget registers t and starts monitoring it unless it is paused.
func (s *Scheduler) AddTarget(ctx context.Context, t domain.Target) (domain.Target, error) {
	t, err := s.reg.Upsert(ctx, t)
	if err != nil {
		return t, err
	}
	s.Reconcile()
	s.publishConfig(t)
	return t, nil
}

// RemoveTarget retires the worker, forgets state and in-memory history,
// and deletes persisted history when purge is set.
func (s *Scheduler) RemoveTarget(ctx context.Context, id domain.TargetID, purge bool) error {
	if err := s.reg.Remove(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	var done <-chan struct{}
	if w, ok := s.workers[id]; ok {
		s.stopLocked(id, w)
		done = w.done
	}
	delete(s.states, id)
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	s.dropHistory(id)

	if purge && s.persist != nil {
		if err := s.persist.DeleteHistory(ctx, id); err != nil {
			err = domain.Wrap(domain.PersistenceWriteError, id, err)
			s.log.Warn("history_purge_failed",
				zap.String("target_id", string(id)),
				zap.String("error_class", string(domain.ClassOf(err))),
				zap.Error(err),
			)
		}
	}
	s.sink.Publish(domain.Event{TargetID: id, Removed: true})
	return nil
}

func (s *Scheduler) SetPaused(ctx context.Context, id domain.TargetID, paused bool) (domain.Target, error) {
	return s.reconfigure(s.reg.SetPaused(ctx, id, paused))
}

func (s *Scheduler) TogglePaused(ctx context.Context, id domain.TargetID) (domain.Target, error) {
	return s.reconfigure(s.reg.TogglePaused(ctx, id))
}

func (s *Scheduler) SetInterval(ctx context.Context, id domain.TargetID, sec int) (domain.Target, error) {
	return s.reconfigure(s.reg.SetInterval(ctx, id, sec))
}

func (s *Scheduler) reconfigure(t domain.Target, err error) (domain.Target, error) {
	if err != nil {
		return t, err
	}
	s.Reconcile()
	s.publishConfig(t)
	return t, nil
}

func (s *Scheduler) publishConfig(t domain.Target) {
	ev := domain.Event{TargetID: t.ID, Interval: t.IntervalSec, Paused: t.Paused, ResponseTimeMS: domain.NoLatency}
	if rec, ok := s.history.Latest(t.ID); ok {
		ev = domain.EventFor(t, rec)
	}
	s.sink.Publish(ev)
}

// Running reports whether id currently has a worker.
func (s *Scheduler) Running(id domain.TargetID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.workers[id]
	return ok
}

// Stop retires every worker and waits for them and any pending alerts.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, w := range s.workers {
		s.stopLocked(id, w)
	}
	s.root = nil
	s.mu.Unlock()
	s.wg.Wait()
	s.alerter.Wait()
}

func (s *Scheduler) startLocked(t domain.Target) {
	st := s.states[t.ID]
	if st == nil {
		st = &targetState{window: health.NewWindow(s.cfg.WindowSize)}
		s.states[t.ID] = st
	}
	ctx, cancel := context.WithCancel(s.root)
	w := &worker{
		id:       t.ID,
		period:   s.periodOf(t),
		initial:  s.periodOf(t),
		ctx:      ctx,
		cancel:   cancel,
		periodCh: make(chan time.Duration, 1),
		done:     make(chan struct{}),
		after:    st.lastWorker,
		state:    st,
	}
	st.lastWorker = w.done
	s.workers[t.ID] = w
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		w.run(s)
	}()
	s.log.Info("target_started", zap.String("target_id", string(t.ID)), zap.Duration("interval", w.period))
}

func (s *Scheduler) stopLocked(id domain.TargetID, w *worker) {
	w.cancel()
	delete(s.workers, id)
	s.log.Info("target_stopped", zap.String("target_id", string(id)))
}

// seed restores history and edge-detection state from persistence the
// first time a target is run in this process.
func (s *Scheduler) seed(ctx context.Context, id domain.TargetID, st *targetState) {
	if st.seeded {
		return
	}
	st.seeded = true
	if s.persist == nil {
		return
	}
	lctx, cancel := context.WithTimeout(ctx, s.cfg.PersistTimeout)
	defer cancel()
	var since time.Time
	if s.cfg.SeedMaxAge > 0 {
		since = s.now().Add(-s.cfg.SeedMaxAge)
	}
	recs, err := s.persist.LoadRecentHistory(lctx, id, since, s.cfg.SeedLimit)
	if err != nil {
		s.log.Warn("history_load_failed", zap.String("target_id", string(id)), zap.Error(err))
		return
	}
	if len(recs) == 0 {
		return
	}
	s.history.Load(id, recs)

	recent := make([]float64, 0, s.cfg.WindowSize)
	for i := len(recs) - 1; i >= 0 && len(recent) < s.cfg.WindowSize; i-- {
		if recs[i].Status.Available() && domain.Finite(recs[i].ResponseTimeMS) {
			recent = append(recent, recs[i].ResponseTimeMS)
		}
	}
	for i := len(recent) - 1; i >= 0; i-- {
		st.window.Add(recent[i])
	}
	st.notify.LastStatus = recs[len(recs)-1].Status
	for i := len(recs) - 1; i >= 0 && recs[i].Status == domain.StatusDown; i-- {
		st.notify.DownSince = recs[i].Timestamp
	}
	s.log.Info("history_seeded", zap.String("target_id", string(id)), zap.Int("records", len(recs)))
}

// complete runs the post-probe pipeline for one result. Persistence and
// alert delivery failures are logged and never interrupt it.
func (s *Scheduler) complete(ctx context.Context, st *targetState, res domain.ProbeResult) domain.HealthRecord {
	rec := s.classifier.Classify(res, st.window)
	id := rec.TargetID

	if err := s.history.Record(rec); err != nil {
		s.log.Warn("history_append_failed", zap.String("target_id", string(id)), zap.Error(err))
	}

	if s.persist != nil {
		pctx, cancel := context.WithTimeout(ctx, s.cfg.PersistTimeout)
		err := s.persist.SaveCheckResult(pctx, rec)
		cancel()
		if err != nil {
			err = domain.Wrap(domain.PersistenceWriteError, id, fmt.Errorf("save check result: %w", err))
			s.log.Warn("history_persist_failed",
				zap.String("target_id", string(id)),
				zap.String("error_class", string(domain.ClassOf(err))),
				zap.Error(err),
			)
		}
	}

	s.alerter.Evaluate(ctx, &st.notify, rec)

	t, ok := s.reg.Get(id)
	if !ok {
		t = domain.Target{ID: id}
	}
	s.sink.Publish(domain.EventFor(t, rec))

	s.log.Debug("check_completed",
		zap.String("target_id", string(id)),
		zap.String("status", string(rec.Status)),
		zap.Int("http_status", rec.HTTPStatus),
		zap.Float64("response_time_ms", rec.ResponseTimeMS),
		zap.Float64("rolling_avg_ms", rec.RollingAvgMS),
		zap.String("reason", rec.Reason),
	)
	return rec
}
