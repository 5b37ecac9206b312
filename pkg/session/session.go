package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/boristopalov/gridnav/pkg/core"
	"github.com/boristopalov/gridnav/pkg/environment"
	"github.com/boristopalov/gridnav/pkg/memory"
	"github.com/boristopalov/gridnav/pkg/messaging"
	"github.com/google/uuid"
)

var ErrNotInitialized = errors.New("session not initialized")

// DefaultEpsilon is shown until the policy service reports a value.
const DefaultEpsilon = 1.0

// Session owns the grid world and is the only writer to it. It sequences
// episodes, records the history of the active one and announces obstacle
// changes on the broker.
type Session struct {
	id         string
	envOptions []environment.Option
	broker     messaging.Broker

	mu              sync.RWMutex
	env             *environment.GridWorld
	history         *memory.Memory[core.Transition]
	obstacles       map[core.Position]struct{}
	obstacleVersion uint64
	restored        bool
	state           core.State
	reward          float64
	episode         int
	done            bool
	lastAction      core.Action
	epsilon         float64
}

type Option func(*Session)

// WithEnvironment configures the grid world built by Initialize.
func WithEnvironment(opts ...environment.Option) Option {
	return func(s *Session) {
		s.envOptions = append(s.envOptions, opts...)
	}
}

func WithBroker(b messaging.Broker) Option {
	return func(s *Session) {
		s.broker = b
	}
}

func WithEpsilon(epsilon float64) Option {
	return func(s *Session) {
		s.epsilon = epsilon
	}
}

func New(opts ...Option) *Session {
	s := &Session{
		id:        "session-" + uuid.New().String(),
		episode:   1,
		epsilon:   DefaultEpsilon,
		obstacles: make(map[core.Position]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Initialize builds the grid world on the first call and resets it. Later
// calls do nothing.
func (s *Session) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.env != nil {
		return nil
	}
	env, err := environment.NewGridWorld(s.envOptions...)
	if err != nil {
		return err
	}
	s.env = env
	s.history = memory.NewMemory[core.Transition](env.MaxSteps())
	s.obstacles = make(map[core.Position]struct{})
	for _, p := range env.Obstacles() {
		s.obstacles[p] = struct{}{}
	}
	s.resetLocked()

	log.Printf("Initialized %s: %dx%d grid, start %s, target %s, %d obstacles",
		s.id, env.Width(), env.Height(), env.Start(), env.Target(), len(s.obstacles))
	return nil
}

func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.env != nil
}

// GridSize returns width and height of the grid, or zeros before Initialize.
func (s *Session) GridSize() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.env == nil {
		return 0, 0
	}
	return s.env.Width(), s.env.Height()
}

// Step applies action to the active episode. It reports false when nothing
// happened because the session is uninitialized or the episode is over.
func (s *Session) Step(action core.Action) (core.StepResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.env == nil || s.done {
		return core.StepResult{}, false
	}

	res := s.env.Step(action)
	s.state = res.State
	s.reward = res.Reward
	s.lastAction = action
	s.history.Store(core.Transition{
		Step:     res.Steps,
		Position: res.State.Position,
		Action:   action,
		Reward:   res.Reward,
	})

	if res.Done {
		s.done = true
		finished := s.episode
		s.episode++
		reached := res.State.Position == res.State.Target
		log.Printf("Episode %d finished after %d steps (target reached: %v)", finished, res.Steps, reached)
		s.publishLocked(messaging.TopicEpisodeFinished, messaging.EpisodeEnd{
			Episode:       finished,
			Steps:         res.Steps,
			ReachedTarget: reached,
		})
	}
	return res, true
}

// Reset restarts the active episode. The episode counter is left alone.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.env == nil {
		return
	}
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.state = s.env.Reset()
	s.reward = 0
	s.done = false
	s.lastAction = ""
	s.history.Clear()
	s.publishLocked(messaging.TopicSessionReset, s.state)
}

// ToggleObstacle flips p in the obstacle set. Cells outside the grid, the
// agent's cell, the start cell and the target cannot be edited; the call
// reports whether the set changed.
func (s *Session) ToggleObstacle(p core.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.env == nil || !s.env.InBounds(p) {
		return false
	}
	if p == s.state.Position || p == s.env.Target() || p == s.env.Start() {
		return false
	}

	next := make(map[core.Position]struct{}, len(s.obstacles)+1)
	for o := range s.obstacles {
		next[o] = struct{}{}
	}
	if _, ok := next[p]; ok {
		delete(next, p)
	} else {
		next[p] = struct{}{}
	}
	return s.replaceObstaclesLocked(next, false)
}

// ClearObstacles removes every obstacle.
func (s *Session) ClearObstacles() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.env == nil {
		return false
	}
	return s.replaceObstaclesLocked(map[core.Position]struct{}{}, false)
}

// SetObstaclesDirectly installs a layout restored from a saved model. The
// caller is trusted; no start/target exclusion is applied.
func (s *Session) SetObstaclesDirectly(obstacles []core.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.env == nil {
		return false
	}
	next := make(map[core.Position]struct{}, len(obstacles))
	for _, p := range obstacles {
		next[p] = struct{}{}
	}
	return s.replaceObstaclesLocked(next, true)
}

// ApplyLoadedModel shows the epsilon and obstacle layout of a loaded policy
// snapshot and restarts the episode.
func (s *Session) ApplyLoadedModel(m core.LoadedModel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epsilon = m.Epsilon
	if s.env == nil {
		return
	}
	next := make(map[core.Position]struct{}, len(m.Environment.Obstacles))
	for _, p := range m.Environment.Obstacles {
		next[p] = struct{}{}
	}
	if !s.replaceObstaclesLocked(next, true) {
		s.resetLocked()
	}
}

// replaceObstaclesLocked installs next if it differs from the current set.
// Every effective change bumps the obstacle version, restarts the episode and
// publishes exactly one obstacles_changed event.
func (s *Session) replaceObstaclesLocked(next map[core.Position]struct{}, restored bool) bool {
	if sameSet(s.obstacles, next) {
		return false
	}
	s.obstacles = next
	list := make([]core.Position, 0, len(next))
	for p := range next {
		list = append(list, p)
	}
	s.env.SetObstacles(list)
	s.obstacleVersion++
	s.restored = restored
	s.resetLocked()
	s.publishLocked(messaging.TopicObstaclesChanged, messaging.ObstacleChange{
		Obstacles: s.env.Obstacles(),
		Restored:  restored,
	})
	return true
}

// Obstacles returns the current obstacle set ordered row by row. It is never
// nil so it encodes as an empty JSON array.
func (s *Session) Obstacles() []core.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.env == nil {
		return []core.Position{}
	}
	return s.env.Obstacles()
}

// ObstacleVersion increases by one on every effective obstacle change.
func (s *Session) ObstacleVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.obstacleVersion
}

// LastObstacleChange returns the current obstacle version and whether the
// change that produced it restored a saved layout.
func (s *Session) LastObstacleChange() (version uint64, restored bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.obstacleVersion, s.restored
}

func (s *Session) SetEpsilon(epsilon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epsilon = epsilon
}

func (s *Session) Epsilon() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epsilon
}

func (s *Session) Done() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

func (s *Session) Episode() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.episode
}

// Snapshot is a consistent copy of everything the session shows.
type Snapshot struct {
	ID              string
	Initialized     bool
	Width           int
	Height          int
	State           core.State
	Obstacles       []core.Position
	ObstacleVersion uint64
	Reward          float64
	Done            bool
	Episode         int
	LastAction      core.Action
	Steps           int
	MaxSteps        int
	Epsilon         float64
	History         []core.Transition
}

// ActRequest builds the observation a policy is asked to act on.
func (s Snapshot) ActRequest() core.ActRequest {
	obstacles := s.Obstacles
	if obstacles == nil {
		obstacles = []core.Position{}
	}
	return core.ActRequest{
		Position:  s.State.Position,
		Target:    s.State.Target,
		Obstacles: obstacles,
		Reward:    s.Reward,
		Done:      s.Done,
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ID:              s.id,
		Initialized:     s.env != nil,
		State:           s.state,
		ObstacleVersion: s.obstacleVersion,
		Reward:          s.reward,
		Done:            s.done,
		Episode:         s.episode,
		LastAction:      s.lastAction,
		Epsilon:         s.epsilon,
		Obstacles:       []core.Position{},
	}
	if s.env != nil {
		snap.Width = s.env.Width()
		snap.Height = s.env.Height()
		snap.Obstacles = s.env.Obstacles()
		snap.Steps = s.env.Steps()
		snap.MaxSteps = s.env.MaxSteps()
		snap.History = s.history.All()
	}
	return snap
}

func (s *Session) publishLocked(topic messaging.Topic, content any) {
	if s.broker == nil {
		return
	}
	err := s.broker.Publish(messaging.Message{
		Topic:     topic,
		From:      s.id,
		Version:   s.obstacleVersion,
		Content:   content,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("Warning: failed to publish %s: %v", topic, err)
	}
}

func sameSet(a, b map[core.Position]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for p := range a {
		if _, ok := b[p]; !ok {
			return false
		}
	}
	return true
}
