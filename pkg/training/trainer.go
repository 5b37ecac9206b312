package training

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/boristopalov/gridnav/pkg/core"
)

var ErrTrainingInProgress = errors.New("training already in progress")

// DefaultEpisodes is the batch size used when none is given.
const DefaultEpisodes = 500

// Session is what the trainer needs from the session orchestrator.
type Session interface {
	Obstacles() []core.Position
	SetEpsilon(epsilon float64)
	Reset()
}

// AutoRun is held off for the duration of a batch.
type AutoRun interface {
	Suspend() (resume func())
}

// Trainer runs batch training on the policy service and summarizes the
// outcome. Only one batch may be outstanding at a time.
type Trainer struct {
	service core.BatchTrainer
	session Session
	autoRun AutoRun
	stats   *StatsLog
	running atomic.Bool
}

type Option func(*Trainer)

func WithAutoRun(a AutoRun) Option {
	return func(t *Trainer) {
		t.autoRun = a
	}
}

// WithStatsLog appends every summary to l.
func WithStatsLog(l *StatsLog) Option {
	return func(t *Trainer) {
		t.stats = l
	}
}

func NewTrainer(service core.BatchTrainer, sess Session, opts ...Option) *Trainer {
	t := &Trainer{
		service: service,
		session: sess,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Running reports whether a batch is outstanding.
func (t *Trainer) Running() bool {
	return t.running.Load()
}

// Train asks the service to run episodes against the current obstacle layout.
// Auto-run is suspended while the request is outstanding and the session is
// restarted once a summary is produced.
func (t *Trainer) Train(ctx context.Context, episodes int) (Summary, error) {
	if episodes <= 0 {
		return Summary{}, fmt.Errorf("episodes must be positive, got %d", episodes)
	}
	if !t.running.CompareAndSwap(false, true) {
		return Summary{}, ErrTrainingInProgress
	}
	defer t.running.Store(false)

	if t.autoRun != nil {
		resume := t.autoRun.Suspend()
		defer resume()
	}

	obstacles := t.session.Obstacles()
	log.Printf("Training %d episodes with %d obstacles", episodes, len(obstacles))

	resp, err := t.service.Train(ctx, core.TrainRequest{
		Episodes:  episodes,
		Obstacles: obstacles,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("training failed: %w", err)
	}

	sum := Summarize(resp)
	t.report(sum, len(obstacles))
	t.session.SetEpsilon(sum.FinalEpsilon)
	t.session.Reset()
	return sum, nil
}

func (t *Trainer) report(s Summary, obstacles int) {
	r := s.Rounded()
	log.Printf("\n=== Training Statistics ===")
	log.Printf("  Episodes Trained: %d", r.EpisodesTrained)
	log.Printf("  Success Rate: %.1f%%", r.SuccessRate)
	log.Printf("  Last %d Success Rate: %.1f%%", RecentWindow, r.Last50SuccessRate)
	log.Printf("  Average Steps: %.1f", r.AverageSteps)
	log.Printf("  Final Epsilon: %.3f", r.FinalEpsilon)
	log.Printf("===========================\n")

	if t.stats != nil {
		if err := t.stats.Append(s, obstacles); err != nil {
			log.Printf("Warning: Failed to write to stats file: %v", err)
		}
	}
}
