package session

import (
	"context"
	"log"
	"sync"

	"github.com/boristopalov/gridnav/pkg/core"
	"github.com/boristopalov/gridnav/pkg/messaging"
	"github.com/google/uuid"
)

// Invalidator tells the policy service to drop its learned state whenever the
// obstacle layout is edited. The notification is best-effort: failures are
// logged and the session keeps running with the stale epsilon.
//
// Events only wake the handler; it acts on the latest change recorded by the
// session, so a burst of edits costs one reset and an event dropped by a full
// channel cannot hide the final layout.
type Invalidator struct {
	id       string
	session  *Session
	resetter core.PolicyResetter
	broker   messaging.Broker
	ch       chan messaging.Message

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// owned by the handler goroutine
	handled uint64
}

func NewInvalidator(s *Session, resetter core.PolicyResetter, broker messaging.Broker) *Invalidator {
	return &Invalidator{
		id:       "invalidator-" + uuid.New().String(),
		session:  s,
		resetter: resetter,
		broker:   broker,
		ch:       make(chan messaging.Message, 64),
	}
}

// Start subscribes to obstacle changes and handles them until ctx is done or
// Stop is called.
func (i *Invalidator) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cancel != nil {
		return nil
	}
	if err := i.broker.Subscribe(i.id, i.ch, messaging.TopicObstaclesChanged); err != nil {
		return err
	}
	i.handled = i.session.ObstacleVersion()
	ctx, cancel := context.WithCancel(ctx)
	i.cancel = cancel
	i.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		for {
			select {
			case <-i.ch:
				i.drain()
				i.handle(ctx)
			case <-ctx.Done():
				return
			}
		}
	}(i.done)
	return nil
}

// Stop unsubscribes and waits for the handler goroutine to exit.
func (i *Invalidator) Stop() {
	i.mu.Lock()
	cancel, done := i.cancel, i.done
	i.cancel, i.done = nil, nil
	i.mu.Unlock()

	if cancel == nil {
		return
	}
	if err := i.broker.Unsubscribe(i.id); err != nil {
		log.Printf("Warning: %v", err)
	}
	cancel()
	<-done
}

func (i *Invalidator) drain() {
	for {
		select {
		case <-i.ch:
		default:
			return
		}
	}
}

func (i *Invalidator) handle(ctx context.Context) {
	version, restored := i.session.LastObstacleChange()
	if version <= i.handled {
		return
	}
	i.handled = version
	if restored {
		return
	}

	resp, err := i.resetter.Reset(ctx)
	if err != nil {
		log.Printf("Policy reset after obstacle change (version %d) failed: %v", version, err)
		return
	}
	// a newer edit will trigger its own reset
	if i.session.ObstacleVersion() != version {
		return
	}
	i.session.SetEpsilon(resp.Epsilon)
}
