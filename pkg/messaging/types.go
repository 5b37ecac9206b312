package messaging

import (
	"time"

	"github.com/boristopalov/gridnav/pkg/core"
)

// Topic names a class of session event.
type Topic string

const (
	TopicObstaclesChanged Topic = "obstacles_changed"
	TopicEpisodeFinished  Topic = "episode_finished"
	TopicSessionReset     Topic = "session_reset"
)

// Message is a session event. Version is the obstacle version at the time of
// publishing.
type Message struct {
	Topic     Topic
	From      string // session ID
	Version   uint64
	Content   any
	Timestamp time.Time
}

// ObstacleChange is the content of a TopicObstaclesChanged message.
// Restored is set when the layout came from a saved model and the remote
// policy already matches it.
type ObstacleChange struct {
	Obstacles []core.Position
	Restored  bool
}

// EpisodeEnd is the content of a TopicEpisodeFinished message.
type EpisodeEnd struct {
	Episode       int
	Steps         int
	ReachedTarget bool
}

// Broker routes session events to subscribers.
type Broker interface {
	// Publish delivers msg to every subscriber of its topic
	Publish(msg Message) error
	// Subscribe registers ch for the given topics, or for all topics if none are given
	Subscribe(subscriberID string, ch chan<- Message, topics ...Topic) error
	// Unsubscribe removes a subscription
	Unsubscribe(subscriberID string) error
}
