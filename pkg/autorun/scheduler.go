package autorun

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/boristopalov/gridnav/pkg/core"
	"github.com/boristopalov/gridnav/pkg/session"
)

const (
	DefaultInterval = 50 * time.Millisecond
	// DefaultResetDelay lets the last transition settle before a stop
	// restarts the episode.
	DefaultResetDelay = 10 * time.Millisecond
)

var (
	ErrAlreadyRunning = errors.New("auto-run already enabled")
	ErrSuspended      = errors.New("auto-run suspended")
)

// Session is the part of the session orchestrator the scheduler drives.
type Session interface {
	Snapshot() session.Snapshot
	Step(action core.Action) (core.StepResult, bool)
	Reset()
	SetEpsilon(epsilon float64)
}

// Scheduler repeatedly asks a policy for an action and applies it to the
// session. Each tick receives a fresh snapshot; the next tick is armed only
// after the previous one committed. Disabling bumps the run generation, so a
// request that completes afterwards is discarded.
type Scheduler struct {
	session    Session
	policy     core.Policy
	health     core.HealthChecker
	interval   time.Duration
	resetDelay time.Duration
	continuous bool
	observer   func(session.Snapshot)

	mu         sync.Mutex
	enabled    bool
	suspended  int
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	lastErr    error
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = d
	}
}

func WithResetDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		s.resetDelay = d
	}
}

// WithHealthCheck probes h before auto-run is enabled.
func WithHealthCheck(h core.HealthChecker) Option {
	return func(s *Scheduler) {
		s.health = h
	}
}

// WithContinuous keeps the loop running across episodes. At the end of an
// episode the policy sees the terminal observation and the session is
// restarted.
func WithContinuous(continuous bool) Option {
	return func(s *Scheduler) {
		s.continuous = continuous
	}
}

// WithObserver is called with a fresh snapshot after every committed step or
// reset.
func WithObserver(fn func(session.Snapshot)) Option {
	return func(s *Scheduler) {
		s.observer = fn
	}
}

func NewScheduler(sess Session, policy core.Policy, opts ...Option) *Scheduler {
	s := &Scheduler{
		session:    sess,
		policy:     policy,
		interval:   DefaultInterval,
		resetDelay: DefaultResetDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enable starts the loop. It fails if the loop is already running, if
// training holds the scheduler suspended, or if the health probe fails.
func (s *Scheduler) Enable(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkIdleLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if s.health != nil {
		if err := s.health.Health(ctx); err != nil {
			return fmt.Errorf("policy service unreachable: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdleLocked(); err != nil {
		return err
	}

	s.generation++
	loopCtx, cancel := context.WithCancel(ctx)
	s.enabled = true
	s.cancel = cancel
	s.lastErr = nil
	s.done = make(chan struct{})
	go s.loop(loopCtx, s.generation, s.done)

	log.Printf("Auto-run enabled (interval %s)", s.interval)
	return nil
}

func (s *Scheduler) checkIdleLocked() error {
	if s.suspended > 0 {
		return ErrSuspended
	}
	if s.enabled {
		return ErrAlreadyRunning
	}
	return nil
}

// Disable stops the loop. A pending tick is cancelled and an in-flight
// request will not be applied when it returns.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopLocked() {
		log.Println("Auto-run disabled")
	}
}

func (s *Scheduler) stopLocked() bool {
	if !s.enabled {
		return false
	}
	s.enabled = false
	s.generation++
	s.cancel()
	return true
}

// Suspend disables the loop and keeps it from being enabled until the
// returned function is called.
func (s *Scheduler) Suspend() (resume func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended++
	if s.stopLocked() {
		log.Println("Auto-run suspended")
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.suspended--
		})
	}
}

func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Err returns the failure that aborted the last run, if any.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Wait blocks until the current run has exited and returns its failure.
func (s *Scheduler) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
	return s.Err()
}

// StepOnce performs a single policy-driven tick without enabling the loop.
// On a finished episode the policy sees the terminal observation and the
// session is restarted.
func (s *Scheduler) StepOnce(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkIdleLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	gen := s.generation
	s.mu.Unlock()

	if _, err := s.tick(ctx, gen, s.session.Snapshot(), true); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	err := s.run(ctx, gen)
	s.exit(gen, err)
}

func (s *Scheduler) run(ctx context.Context, gen uint64) error {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		more, err := s.tick(ctx, gen, s.session.Snapshot(), s.continuous)
		if err != nil || !more {
			return err
		}
		timer.Reset(s.interval)
	}
}

// tick runs one request/apply cycle for snap. It reports whether the loop
// should be re-armed.
func (s *Scheduler) tick(ctx context.Context, gen uint64, snap session.Snapshot, actOnTerminal bool) (bool, error) {
	if !snap.Initialized {
		return false, session.ErrNotInitialized
	}
	if snap.Done && !actOnTerminal {
		return false, nil
	}

	resp, err := s.policy.Act(ctx, snap.ActRequest())
	if resp.Epsilon != nil {
		s.publishEpsilon(gen, *resp.Epsilon)
	}
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		return false, fmt.Errorf("policy act: %w", err)
	}
	if resp.Action == "" {
		return false, fmt.Errorf("%w: no action returned", core.ErrProtocol)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false, nil
	}
	if resp.Action == core.ActionStop || snap.Done {
		s.mu.Unlock()
		return s.resetAfterDelay(ctx, gen), nil
	}
	res, applied := s.session.Step(resp.Action)
	s.mu.Unlock()

	if !applied {
		return false, nil
	}
	s.notify()
	return !res.Done || s.continuous, nil
}

// publishEpsilon shows a confidence value reported by the policy unless the
// run that asked for it has been disabled.
func (s *Scheduler) publishEpsilon(gen uint64, epsilon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.session.SetEpsilon(epsilon)
	}
}

func (s *Scheduler) resetAfterDelay(ctx context.Context, gen uint64) bool {
	timer := time.NewTimer(s.resetDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	s.session.Reset()
	s.mu.Unlock()

	s.notify()
	return true
}

// exit stops the run that owns gen. A run that was already disabled or
// superseded leaves the scheduler alone.
func (s *Scheduler) exit(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	s.lastErr = err
	s.stopLocked()
	if err != nil {
		log.Printf("Auto-run aborted: %v", err)
		return
	}
	log.Println("Auto-run finished")
}

func (s *Scheduler) notify() {
	if s.observer != nil {
		s.observer(s.session.Snapshot())
	}
}
