package weather

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/forecast-sync/internal/logger"
)

// ServiceConfig holds the orchestrator's tunables.
type ServiceConfig struct {
	// DefaultLocation is used when the preference store has no location.
	DefaultLocation string
	// UTCOffset is the fixed offset used to normalize dates.
	UTCOffset time.Duration
	// MinSyncInterval throttles RequestSync.
	MinSyncInterval time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// Service orchestrates fetch, parse, store and notify. It is safe for
// concurrent use; the store serializes the write step.
type Service struct {
	store    Store
	provider Provider
	prefs    Preferences
	notifier Notifier
	cfg      ServiceConfig
	log      logger.Logger
	now      func() time.Time

	mu          sync.RWMutex
	lastOutcome *SyncOutcome
}

// NewService creates a new Service.
func NewService(store Store, provider Provider, prefs Preferences, notifier Notifier, cfg ServiceConfig, opts ...Option) *Service {
	s := &Service{
		store:    store,
		provider: provider,
		prefs:    prefs,
		notifier: notifier,
		cfg:      cfg,
		log:      logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "sync_service")
	return s
}

// Sync runs one fetch, parse, store and notify cycle. Fetch and parse
// failures are logged and reported in the outcome; only store failures are
// returned as errors, wrapped in *StoreError.
func (s *Service) Sync(ctx context.Context) (SyncOutcome, error) {
	location := s.location(ctx)
	log := s.log.WithFields(map[string]interface{}{
		"location": location,
		"provider": s.provider.Name(),
	})

	payload, err := s.provider.Fetch(ctx, location)
	if err != nil {
		log.Warnf("fetch failed; keeping stored forecast: %v", err)
		return s.remember(s.failed(ReasonNetwork)), nil
	}

	records, err := s.provider.Parse(payload)
	if err != nil {
		log.Warnf("parse failed; keeping stored forecast: %v", err)
		return s.remember(s.failed(ReasonParse)), nil
	}
	if len(records) == 0 {
		log.Info("response contained no forecast days")
		return s.remember(SyncOutcome{Status: SyncNoData, At: s.now()}), nil
	}

	if err := s.store.ReplaceFrom(ctx, records); err != nil {
		log.Errorf("storing forecast failed: %v", err)
		var se *StoreError
		if !errors.As(err, &se) {
			err = &StoreError{Op: "replace", Err: err}
		}
		return s.remember(s.failed(ReasonStore)), err
	}

	now := s.now()
	if err := s.prefs.SetLastSync(ctx, now); err != nil {
		log.Warnf("saving last sync time failed: %v", err)
	}
	log.Infof("stored %d forecast days from %s", len(records), DateTime(records[0].Date).Format("2006-01-02"))

	s.maybeNotify(ctx, now, log)

	return s.remember(SyncOutcome{Status: SyncSuccess, Count: len(records), At: now}), nil
}

// RequestSync is the on-demand entry point. Unless force is set it refuses
// to run when the last successful sync is younger than MinSyncInterval.
func (s *Service) RequestSync(ctx context.Context, force bool) (SyncOutcome, error) {
	if !force && s.cfg.MinSyncInterval > 0 {
		last, err := s.prefs.LastSync(ctx)
		if err != nil {
			s.log.Warnf("reading last sync time failed: %v", err)
		} else if elapsed := s.now().Sub(last); elapsed < s.cfg.MinSyncInterval {
			s.log.Debugf("sync throttled; last sync %v ago", elapsed.Round(time.Second))
			return SyncOutcome{Status: SyncFailed, Reason: ReasonThrottled, At: s.now()}, nil
		}
	}
	return s.Sync(ctx)
}

// SyncTask adapts Sync to a scheduled callback.
func (s *Service) SyncTask(ctx context.Context) error {
	_, err := s.Sync(ctx)
	return err
}

func (s *Service) maybeNotify(ctx context.Context, now time.Time, log logger.Logger) {
	enabled, err := s.prefs.NotificationsEnabled(ctx)
	if err != nil {
		log.Warnf("reading notification preference failed: %v", err)
		return
	}
	last, err := s.prefs.LastNotification(ctx)
	if err != nil {
		log.Warnf("reading last notification time failed: %v", err)
		return
	}
	if !ShouldNotify(now, last, enabled) {
		return
	}

	today, err := s.store.GetByDate(ctx, s.Today())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Info("no forecast stored for today; skipping notification")
		} else {
			log.Warnf("loading today's forecast failed: %v", err)
		}
		return
	}

	metric, err := s.prefs.Metric(ctx)
	if err != nil {
		log.Warnf("reading unit preference failed; using metric: %v", err)
		metric = true
	}

	n := NewNotification(today, metric, now)
	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Warnf("notification failed: %v", err)
		return
	}
	if err := s.prefs.SetLastNotification(ctx, now); err != nil {
		log.Warnf("saving last notification time failed: %v", err)
	}
	log.Infof("notified: %s", n.Text)
}

func (s *Service) location(ctx context.Context) string {
	loc, err := s.prefs.Location(ctx)
	if err != nil {
		s.log.Warnf("reading location preference failed: %v", err)
	}
	if loc == "" {
		return s.cfg.DefaultLocation
	}
	return loc
}

func (s *Service) failed(reason string) SyncOutcome {
	return SyncOutcome{Status: SyncFailed, Reason: reason, At: s.now()}
}

func (s *Service) remember(o SyncOutcome) SyncOutcome {
	s.mu.Lock()
	s.lastOutcome = &o
	s.mu.Unlock()
	return o
}

// LastOutcome returns the outcome of the most recent Sync, if any.
func (s *Service) LastOutcome() (SyncOutcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastOutcome == nil {
		return SyncOutcome{}, false
	}
	return *s.lastOutcome, true
}

// Today returns today's normalized date.
func (s *Service) Today() int64 {
	return s.DateOf(s.now())
}

// DateOf normalizes an instant with the service's UTC offset.
func (s *Service) DateOf(t time.Time) int64 {
	return NormalizeTime(t, s.cfg.UTCOffset)
}

// Forecast returns all stored days on or after from.
func (s *Service) Forecast(ctx context.Context, from int64) ([]WeatherRecord, error) {
	return s.store.GetFrom(ctx, from)
}

// Upcoming returns today and all later stored days.
func (s *Service) Upcoming(ctx context.Context) ([]WeatherRecord, error) {
	return s.store.GetFrom(ctx, s.Today())
}

// Day returns the record for a normalized date.
func (s *Service) Day(ctx context.Context, date int64) (WeatherRecord, error) {
	return s.store.GetByDate(ctx, date)
}

// Record returns a record by its store id.
func (s *Service) Record(ctx context.Context, id int64) (WeatherRecord, error) {
	return s.store.GetByID(ctx, id)
}

// Subscribe delegates to the underlying store.
func (s *Service) Subscribe(from int64) (Subscription, error) {
	return s.store.Subscribe(from)
}

// Status reports sync bookkeeping for status endpoints.
func (s *Service) Status(ctx context.Context) (SyncState, error) {
	var st SyncState

	lastSync, err := s.prefs.LastSync(ctx)
	if err != nil {
		return st, err
	}
	lastNotif, err := s.prefs.LastNotification(ctx)
	if err != nil {
		return st, err
	}
	n, err := s.store.CountFrom(ctx, s.Today())
	if err != nil {
		return st, err
	}

	st.LastSync = lastSync
	st.LastNotification = lastNotif
	st.StoredDays = n
	if o, ok := s.LastOutcome(); ok {
		st.LastOutcome = &o
	}
	return st, nil
}
