package messaging

import (
	"errors"
	"fmt"
	"sync"
)

type subscription struct {
	ch     chan<- Message
	topics map[Topic]struct{}
}

func (s subscription) wants(t Topic) bool {
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[t]
	return ok
}

// SimpleBroker implements Broker with buffered channels. Publishing never
// blocks; a subscriber whose channel is full misses the message and the
// failure is reported to the publisher.
type SimpleBroker struct {
	subscribers map[string]subscription
	mu          sync.RWMutex
}

func NewBroker() *SimpleBroker {
	return &SimpleBroker{
		subscribers: make(map[string]subscription),
	}
}

func (b *SimpleBroker) Publish(msg Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var errs []error
	for id, sub := range b.subscribers {
		if !sub.wants(msg.Topic) {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			errs = append(errs, fmt.Errorf("subscriber %s's channel is full, dropped %s", id, msg.Topic))
		}
	}
	return errors.Join(errs...)
}

func (b *SimpleBroker) Subscribe(subscriberID string, ch chan<- Message, topics ...Topic) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[subscriberID]; exists {
		return fmt.Errorf("%s is already subscribed", subscriberID)
	}

	sub := subscription{ch: ch, topics: make(map[Topic]struct{}, len(topics))}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}
	b.subscribers[subscriberID] = sub
	return nil
}

func (b *SimpleBroker) Unsubscribe(subscriberID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[subscriberID]; !exists {
		return fmt.Errorf("%s is not subscribed", subscriberID)
	}

	delete(b.subscribers, subscriberID)
	return nil
}

func (b *SimpleBroker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[string]subscription)
}
