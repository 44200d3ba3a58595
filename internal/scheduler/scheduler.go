package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/forecast-sync/internal/logger"
)

// Callback is the work a registration runs. It may be invoked concurrently
// by the schedule and by RunNow.
type Callback func(ctx context.Context) error

// Registration is one recurring job: run Callback roughly every Interval,
// starting each run at a random point within Flex after the tick.
type Registration struct {
	Name     string
	Interval time.Duration
	Flex     time.Duration
	// Timeout bounds a single run; zero means no limit.
	Timeout  time.Duration
	Callback Callback
}

func (r Registration) validate() error {
	switch {
	case r.Name == "":
		return errors.New("registration name is required")
	case r.Interval <= 0:
		return fmt.Errorf("%s: interval must be positive", r.Name)
	case r.Flex < 0 || r.Flex >= r.Interval:
		return fmt.Errorf("%s: flex must be in [0, interval)", r.Name)
	case r.Callback == nil:
		return fmt.Errorf("%s: callback is required", r.Name)
	}
	return nil
}

// Scheduler runs registered callbacks on a gocron schedule.
type Scheduler struct {
	scheduler *gocron.Scheduler
	log       logger.Logger

	// jitter returns a delay in [0, max).
	jitter func(max time.Duration) time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	regs map[string]Registration
}

// New creates a new Scheduler.
func New(log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		log:       log.WithField("component", "scheduler"),
		jitter:    randomJitter,
		ctx:       ctx,
		cancel:    cancel,
		regs:      make(map[string]Registration),
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

// Register adds a recurring job. The first scheduled run happens one
// Interval after Start; use RunNow for an immediate run.
func (s *Scheduler) Register(r Registration) error {
	if err := r.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.regs[r.Name]; ok {
		return fmt.Errorf("%s: already registered", r.Name)
	}

	_, err := s.scheduler.Every(r.Interval).
		WaitForSchedule().
		SingletonMode().
		Tag(r.Name).
		Do(s.tick, r)
	if err != nil {
		return fmt.Errorf("%s: schedule: %w", r.Name, err)
	}

	s.regs[r.Name] = r
	s.log.Infof("registered %s every %s (flex %s)", r.Name, r.Interval, r.Flex)
	return nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// RunNow runs a registered job immediately, outside the schedule, and
// returns its error. It blocks until the run finishes.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	r, ok := s.regs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: not registered", name)
	}

	s.wg.Add(1)
	defer s.wg.Done()
	return s.run(ctx, r)
}

// Stop cancels in-flight runs, stops the scheduler and waits for running
// callbacks to return.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.wg.Wait()
}

func (s *Scheduler) tick(r Registration) {
	s.wg.Add(1)
	defer s.wg.Done()

	if delay := s.jitter(r.Flex); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	if err := s.run(s.ctx, r); err != nil {
		s.log.Errorf("%s failed: %v", r.Name, err)
	}
}

func (s *Scheduler) run(ctx context.Context, r Registration) (err error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s panicked: %v", r.Name, p)
		}
	}()

	start := time.Now()
	s.log.Debugf("running %s", r.Name)
	err = r.Callback(ctx)
	s.log.Debugf("%s finished in %s", r.Name, time.Since(start).Round(time.Millisecond))
	return err
}
