// Package scheduler runs the periodic lifecycle sweeps: auto-completing
// guardianships whose grace window lapsed and canceling overdue recurring
// subscriptions.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"pawhaven/internal/platform/logger"
	"pawhaven/pkg/requestcontext"
)

const (
	SweepGuardianships = "guardianship_expiry"
	SweepSubscriptions = "subscription_overdue"
)

// Sweep processes every due item as of now and reports how many changed.
type Sweep func(ctx context.Context, now time.Time) (int, error)

// Locker elects one replica per sweep tick. TryLock returns ok=false when
// another replica holds the lock.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// NoopLocker always grants the lock. Single-replica deployments only.
type NoopLocker struct{}

func (NoopLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

type job struct {
	name  string
	sweep Sweep
}

// Scheduler ticks registered sweeps on a fixed interval.
type Scheduler struct {
	interval time.Duration
	lockTTL  time.Duration
	locker   Locker
	logger   *slog.Logger
	clock    func() time.Time
	jobs     []job
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.locker = l
		}
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: interval,
		lockTTL:  interval,
		locker:   NoopLocker{},
		logger:   logger.Discard(),
		clock:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a named sweep. Call before Run.
func (s *Scheduler) Register(name string, sweep Sweep) {
	s.jobs = append(s.jobs, job{name: name, sweep: sweep})
}

// Run ticks until ctx is cancelled. The first tick fires immediately so a
// restart does not delay overdue work by a full interval.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// Tick runs every registered sweep once. Failures are logged and do not stop
// the remaining sweeps.
func (s *Scheduler) Tick(ctx context.Context) {
	for _, j := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		s.runJob(ctx, j)
	}
}

func (s *Scheduler) runJob(ctx context.Context, j job) {
	release, ok, err := s.locker.TryLock(ctx, j.name, s.lockTTL)
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep lock unavailable", "sweep", j.name, "error", err)
		return
	}
	if !ok {
		s.logger.DebugContext(ctx, "sweep held by another replica", "sweep", j.name)
		return
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "sweep lock release failed", "sweep", j.name, "error", err)
		}
	}()

	now := s.clock()
	processed, err := j.sweep(requestcontext.WithTime(ctx, now), now)
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep failed",
			"sweep", j.name,
			"processed", processed,
			"error", err,
		)
	} else if processed > 0 {
		s.logger.InfoContext(ctx, "sweep completed", "sweep", j.name, "processed", processed)
	}
}
