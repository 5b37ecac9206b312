package environment

import (
	"fmt"
	"sort"
	"sync"

	"github.com/boristopalov/gridnav/pkg/core"
)

// Rewards. Obstacles block exactly like the grid boundary, so both
// collisions share the same penalty.
const (
	WallPenalty     = -0.1
	ObstaclePenalty = -0.1
	StepCost        = -0.01
	TargetReward    = 1.0
)

const (
	DefaultWidth  = 10
	DefaultHeight = 10
)

var (
	DefaultStart  = core.Position{X: 0, Y: 0}
	DefaultTarget = core.Position{X: 8, Y: 8}
)

// GridWorld is a deterministic rectangular grid with a single static target.
// Position and step counter only change through Step and Reset.
type GridWorld struct {
	width     int
	height    int
	start     core.Position
	target    core.Position
	obstacles map[core.Position]struct{}

	position core.Position
	steps    int
	maxSteps int

	mu sync.RWMutex
}

type Option func(*GridWorld)

func WithSize(width, height int) Option {
	return func(g *GridWorld) {
		g.width = width
		g.height = height
	}
}

func WithStart(p core.Position) Option {
	return func(g *GridWorld) {
		g.start = p
	}
}

func WithTarget(p core.Position) Option {
	return func(g *GridWorld) {
		g.target = p
	}
}

func WithObstacles(obstacles []core.Position) Option {
	return func(g *GridWorld) {
		g.obstacles = toSet(obstacles)
	}
}

// NewGridWorld creates a grid world. Without options it is the 10x10 grid
// starting at (0,0) with the target at (8,8).
func NewGridWorld(opts ...Option) (*GridWorld, error) {
	g := &GridWorld{
		width:     DefaultWidth,
		height:    DefaultHeight,
		start:     DefaultStart,
		target:    DefaultTarget,
		obstacles: make(map[core.Position]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.width <= 0 || g.height <= 0 {
		return nil, fmt.Errorf("grid size must be positive, got %dx%d", g.width, g.height)
	}
	if !g.InBounds(g.start) {
		return nil, fmt.Errorf("start %s is outside the %dx%d grid", g.start, g.width, g.height)
	}
	if !g.InBounds(g.target) {
		return nil, fmt.Errorf("target %s is outside the %dx%d grid", g.target, g.width, g.height)
	}
	delete(g.obstacles, g.start)
	delete(g.obstacles, g.target)

	g.maxSteps = g.width * g.height
	g.position = g.start
	return g, nil
}

func (g *GridWorld) Width() int            { return g.width }
func (g *GridWorld) Height() int           { return g.height }
func (g *GridWorld) Start() core.Position  { return g.start }
func (g *GridWorld) Target() core.Position { return g.target }
func (g *GridWorld) MaxSteps() int         { return g.maxSteps }

// InBounds reports whether p lies on the grid.
func (g *GridWorld) InBounds(p core.Position) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

func (g *GridWorld) IsObstacle(p core.Position) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.obstacles[p]
	return ok
}

// Obstacles returns the obstacle set ordered row by row.
func (g *GridWorld) Obstacles() []core.Position {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedPositions(g.obstacles)
}

// SetObstacles replaces the obstacle set. Position and step counter are left
// alone.
func (g *GridWorld) SetObstacles(obstacles []core.Position) {
	next := toSet(obstacles)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.obstacles = next
}

func (g *GridWorld) Steps() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.steps
}

func (g *GridWorld) State() core.State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.stateLocked()
}

// Reset puts the agent back on the start cell and clears the step counter.
func (g *GridWorld) Reset() core.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = g.start
	g.steps = 0
	return g.stateLocked()
}

// Step advances the world by one tick. Every call consumes a step, including
// rejected moves and unknown actions. The reward is exactly one of the wall or
// obstacle penalty, the step cost or the target bonus.
func (g *GridWorld) Step(action core.Action) core.StepResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.position.Move(action)
	reward := StepCost
	switch {
	case !g.InBounds(next):
		next = g.position
		reward = WallPenalty
	case g.isObstacleLocked(next):
		next = g.position
		reward = ObstaclePenalty
	}

	done := false
	if next == g.target {
		reward = TargetReward
		done = true
	}

	g.steps++
	if g.steps >= g.maxSteps {
		done = true
	}
	g.position = next

	return core.StepResult{
		State:    g.stateLocked(),
		Reward:   reward,
		Done:     done,
		Steps:    g.steps,
		MaxSteps: g.maxSteps,
	}
}

func (g *GridWorld) isObstacleLocked(p core.Position) bool {
	_, ok := g.obstacles[p]
	return ok
}

func (g *GridWorld) stateLocked() core.State {
	return core.State{Position: g.position, Target: g.target}
}

func toSet(positions []core.Position) map[core.Position]struct{} {
	set := make(map[core.Position]struct{}, len(positions))
	for _, p := range positions {
		set[p] = struct{}{}
	}
	return set
}

func sortedPositions(set map[core.Position]struct{}) []core.Position {
	out := make([]core.Position, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}
