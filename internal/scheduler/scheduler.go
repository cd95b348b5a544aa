// Package scheduler runs the periodic discovery, tier and refresh triggers.
// A trigger never overlaps itself: a local flag guards the process and an
// optional storage lease guards against other processes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pumpcards/internal/observability"
	"pumpcards/internal/storage"
)

// ErrAlreadyRunning is returned when a trigger fires while a run is in progress.
var ErrAlreadyRunning = errors.New("trigger already running")

// Trigger names.
const (
	TriggerDiscovery = "discovery"
	TriggerTiers     = "tiers"
	TriggerRefresh   = "refresh"
)

// RunFunc is one unit of scheduled work.
type RunFunc func(ctx context.Context) error

// Status describes a trigger for health reporting.
type Status struct {
	Name      string    `json:"name"`
	Period    string    `json:"period"`
	Running   bool      `json:"running"`
	Runs      int64     `json:"runs"`
	Skipped   int64     `json:"skipped"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Trigger runs fn every period.
type Trigger struct {
	name   string
	period time.Duration
	fn     RunFunc
	leases storage.LeaseStore
	owner  string
	logger logrus.FieldLogger

	mu      sync.Mutex
	running bool
	runs    int64
	skipped int64
	lastRun time.Time
	lastErr error
}

// NewTrigger creates a trigger. leases may be nil for a single process.
func NewTrigger(name string, period time.Duration, fn RunFunc, leases storage.LeaseStore, logger logrus.FieldLogger) *Trigger {
	return &Trigger{
		name:   name,
		period: period,
		fn:     fn,
		leases: leases,
		owner:  uuid.NewString(),
		logger: logger.WithField("trigger", name),
	}
}

// Name returns the trigger name.
func (t *Trigger) Name() string {
	return t.name
}

// Fire runs the trigger once with a deadline equal to its period.
// Returns ErrAlreadyRunning if a run is in progress here or in another process.
func (t *Trigger) Fire(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.skipped++
		t.mu.Unlock()
		return t.skip("local")
	}
	t.running = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	if t.leases != nil {
		ok, err := t.leases.TryAcquire(ctx, t.name, t.owner, t.period)
		if err != nil {
			return fmt.Errorf("acquire lease %s: %w", t.name, err)
		}
		if !ok {
			t.mu.Lock()
			t.skipped++
			t.mu.Unlock()
			return t.skip("lease")
		}
		defer func() {
			// Release with a fresh context so cancellation does not strand the lease.
			relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := t.leases.Release(relCtx, t.name, t.owner); err != nil {
				t.logger.WithError(err).Warn("Failed to release lease")
			}
		}()
	}

	runCtx, cancel := context.WithTimeout(ctx, t.period)
	defer cancel()

	start := time.Now()
	err := t.fn(runCtx)
	elapsed := time.Since(start)

	t.mu.Lock()
	t.runs++
	t.lastRun = start
	t.lastErr = err
	t.mu.Unlock()

	status := "success"
	if err != nil {
		status = "error"
		t.logger.WithError(err).WithField("duration_ms", elapsed.Milliseconds()).Error("Trigger failed")
	} else {
		t.logger.WithField("duration_ms", elapsed.Milliseconds()).Debug("Trigger completed")
	}
	observability.RecordTriggerRun(t.name, status, elapsed.Seconds())
	return err
}

func (t *Trigger) skip(guard string) error {
	t.logger.WithField("guard", guard).Warn("Trigger already running, skipping")
	observability.RecordTriggerSkipped(t.name)
	return ErrAlreadyRunning
}

// Run fires immediately and then every period until ctx is done.
func (t *Trigger) Run(ctx context.Context) error {
	t.logger.WithField("period", t.period.String()).Info("Starting trigger")

	t.fireAsync(ctx)

	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.fireAsync(ctx)
		}
	}
}

// fireAsync keeps the ticker loop responsive while a slow run is in progress,
// so a tick during a run is observed and skipped.
func (t *Trigger) fireAsync(ctx context.Context) {
	go func() {
		_ = t.Fire(ctx)
	}()
}

// Status returns a snapshot of the trigger state.
func (t *Trigger) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Status{
		Name:    t.name,
		Period:  t.period.String(),
		Running: t.running,
		Runs:    t.runs,
		Skipped: t.skipped,
		LastRun: t.lastRun,
	}
	if t.lastErr != nil {
		s.LastError = t.lastErr.Error()
	}
	return s
}

// Scheduler runs a set of triggers.
type Scheduler struct {
	triggers []*Trigger
}

// New creates a Scheduler.
func New(triggers ...*Trigger) *Scheduler {
	return &Scheduler{triggers: triggers}
}

// Run starts every trigger and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range s.triggers {
		g.Go(func() error {
			return t.Run(gctx)
		})
	}
	return g.Wait()
}

// Trigger returns the named trigger, or nil.
func (s *Scheduler) Trigger(name string) *Trigger {
	for _, t := range s.triggers {
		if t.name == name {
			return t
		}
	}
	return nil
}

// Statuses returns a snapshot of every trigger.
func (s *Scheduler) Statuses() []Status {
	out := make([]Status, 0, len(s.triggers))
	for _, t := range s.triggers {
		out = append(out, t.Status())
	}
	return out
}
