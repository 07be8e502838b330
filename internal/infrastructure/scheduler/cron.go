package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"NewsPublisher/internal/logging"
	"NewsPublisher/internal/ports"
)

// IntervalScheduler runs keyed jobs on fixed intervals, one goroutine per job.
type IntervalScheduler struct {
	base   context.Context
	cancel context.CancelFunc
	log    *slog.Logger

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

type job struct {
	stop chan struct{}
	once sync.Once
}

func (j *job) halt() {
	j.once.Do(func() { close(j.stop) })
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler whose jobs run with a context derived from ctx.
func NewIntervalScheduler(ctx context.Context, log *slog.Logger) *IntervalScheduler {
	base, cancel := context.WithCancel(ctx)
	return &IntervalScheduler{
		base:   base,
		cancel: cancel,
		log:    logging.OrDiscard(log),
		jobs:   map[string]*job{},
	}
}

// Schedule registers job under key, replacing any job already registered there.
// The first firing happens one interval from now.
func (s *IntervalScheduler) Schedule(key string, every time.Duration, fn func(context.Context)) {
	if fn == nil || every <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.base.Err() != nil {
		return
	}
	if old, ok := s.jobs[key]; ok {
		old.halt()
	}

	j := &job{stop: make(chan struct{})}
	s.jobs[key] = j

	s.wg.Add(1)
	go s.loop(key, every, j, fn)
	s.log.Debug("job scheduled", "key", key, "every", every)
}

func (s *IntervalScheduler) loop(key string, every time.Duration, j *job, fn func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			select {
			case <-j.stop:
				return
			default:
			}
			s.run(key, fn)
		case <-j.stop:
			return
		case <-s.base.Done():
			return
		}
	}
}

func (s *IntervalScheduler) run(key string, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled job panicked", "key", key, "panic", r)
		}
	}()
	fn(s.base)
}

// Cancel stops future firings of key; a run already in progress completes.
func (s *IntervalScheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[key]
	if !ok {
		return false
	}
	j.halt()
	delete(s.jobs, key)
	s.log.Debug("job cancelled", "key", key)
	return true
}

// Scheduled reports whether key has a registered job.
func (s *IntervalScheduler) Scheduled(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[key]
	return ok
}

// Stop cancels every job and waits for running ones until ctx expires.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	for key, j := range s.jobs {
		j.halt()
		delete(s.jobs, key)
	}
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
