package messaging

import (
	"testing"
	"time"
)

func TestBroker(t *testing.T) {
	t.Run("test topic routing", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(func() {
			broker.Reset()
		})
		obstacles := make(chan Message, 1)
		resets := make(chan Message, 1)

		if err := broker.Subscribe("invalidator", obstacles, TopicObstaclesChanged); err != nil {
			t.Fatalf("Failed to subscribe invalidator: %v", err)
		}
		if err := broker.Subscribe("display", resets, TopicSessionReset); err != nil {
			t.Fatalf("Failed to subscribe display: %v", err)
		}

		msg := Message{
			Topic:     TopicObstaclesChanged,
			From:      "session-1",
			Version:   3,
			Content:   ObstacleChange{},
			Timestamp: time.Now(),
		}
		if err := broker.Publish(msg); err != nil {
			t.Fatalf("Failed to publish message: %v", err)
		}

		select {
		case received := <-obstacles:
			if received.Version != 3 || received.From != "session-1" {
				t.Errorf("Unexpected message received: %+v", received)
			}
		case <-time.After(time.Second):
			t.Error("Timeout waiting for message")
		}

		select {
		case msg := <-resets:
			t.Errorf("display should not receive obstacle events but got: %+v", msg)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("test subscribe to all topics", func(t *testing.T) {
		broker := NewBroker()
		ch := make(chan Message, 3)
		if err := broker.Subscribe("all", ch); err != nil {
			t.Fatalf("Failed to subscribe: %v", err)
		}
		for _, topic := range []Topic{TopicObstaclesChanged, TopicEpisodeFinished, TopicSessionReset} {
			if err := broker.Publish(Message{Topic: topic}); err != nil {
				t.Fatalf("Failed to publish %s: %v", topic, err)
			}
		}
		if len(ch) != 3 {
			t.Errorf("received %d messages, want 3", len(ch))
		}
	})

	t.Run("test subscription management", func(t *testing.T) {
		broker := NewBroker()
		ch := make(chan Message, 1)

		if err := broker.Subscribe("agent1", ch); err != nil {
			t.Fatalf("Failed to subscribe: %v", err)
		}
		if err := broker.Subscribe("agent1", ch); err == nil {
			t.Error("Expected error for duplicate subscription, got nil")
		}
		if err := broker.Unsubscribe("agent1"); err != nil {
			t.Fatalf("Failed to unsubscribe: %v", err)
		}
		if err := broker.Unsubscribe("agent1"); err == nil {
			t.Error("Expected error for unsubscribing non-existent subscriber, got nil")
		}
	})

	t.Run("test channel full behavior", func(t *testing.T) {
		broker := NewBroker()
		full := make(chan Message, 1)
		roomy := make(chan Message, 2)

		if err := broker.Subscribe("full", full); err != nil {
			t.Fatalf("Failed to subscribe: %v", err)
		}
		if err := broker.Subscribe("roomy", roomy); err != nil {
			t.Fatalf("Failed to subscribe: %v", err)
		}

		msg := Message{Topic: TopicSessionReset}
		if err := broker.Publish(msg); err != nil {
			t.Fatalf("Failed to publish first message: %v", err)
		}
		if err := broker.Publish(msg); err == nil {
			t.Error("Expected error when publishing to full channel, got nil")
		}
		if len(roomy) != 2 {
			t.Errorf("other subscribers must still be served, got %d messages", len(roomy))
		}
	})
}
