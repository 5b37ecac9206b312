package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is a move request understood by the grid world. The policy service
// may additionally answer with ActionStop.
type Action string

const (
	ActionUp    Action = "up"
	ActionDown  Action = "down"
	ActionLeft  Action = "left"
	ActionRight Action = "right"

	// ActionStop is never applied to the grid. It asks the session to restart
	// the episode.
	ActionStop Action = "stop"
)

// Actions lists the four cardinal moves in a stable order.
var Actions = []Action{ActionUp, ActionDown, ActionLeft, ActionRight}

// Valid reports whether a is one of the four cardinal moves.
func (a Action) Valid() bool {
	switch a {
	case ActionUp, ActionDown, ActionLeft, ActionRight:
		return true
	}
	return false
}

// ParseAction normalizes s and returns the matching action. The stop sentinel
// is accepted; anything else is rejected.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if a.Valid() || a == ActionStop {
		return a, true
	}
	return "", false
}

// Position is a grid coordinate. X grows to the right, Y grows downwards.
// It travels on the wire as a two element array.
type Position struct {
	X int
	Y int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Move returns the coordinate one cell away in the direction of a. Unknown
// actions return p unchanged.
func (p Position) Move(a Action) Position {
	switch a {
	case ActionUp:
		p.Y--
	case ActionDown:
		p.Y++
	case ActionLeft:
		p.X--
	case ActionRight:
		p.X++
	}
	return p
}

func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

func (p *Position) UnmarshalJSON(data []byte) error {
	var xy []int
	if err := json.Unmarshal(data, &xy); err != nil {
		return fmt.Errorf("position: %w", err)
	}
	if len(xy) != 2 {
		return fmt.Errorf("position: want [x, y], got %d values", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// State is what the environment exposes after reset and after every step.
type State struct {
	Position Position `json:"position"`
	Target   Position `json:"target"`
}

// StepResult is the outcome of a single environment tick.
type StepResult struct {
	State    State
	Reward   float64
	Done     bool
	Steps    int
	MaxSteps int
}

// Transition is one entry of the episode history.
type Transition struct {
	Step     int      `json:"step"`
	Position Position `json:"position"`
	Action   Action   `json:"action"`
	Reward   float64  `json:"reward"`
}

// ActRequest is the observation sent to a policy when asking for an action.
type ActRequest struct {
	Position  Position   `json:"position"`
	Target    Position   `json:"target"`
	Obstacles []Position `json:"obstacles"`
	Reward    float64    `json:"reward"`
	Done      bool       `json:"done"`
}

// ActResponse carries the chosen action. Epsilon is nil when the policy did
// not report an exploration value.
type ActResponse struct {
	Action  Action
	Epsilon *float64
}

type ResetResponse struct {
	Epsilon float64 `json:"epsilon"`
}

type TrainRequest struct {
	Episodes  int        `json:"episodes"`
	Obstacles []Position `json:"obstacles"`
}

type EpisodeResult struct {
	ReachedTarget bool `json:"reached_target"`
	Steps         int  `json:"steps"`
}

type TrainResponse struct {
	EpisodesTrained int             `json:"episodes_trained"`
	Epsilon         float64         `json:"epsilon"`
	Results         []EpisodeResult `json:"results"`
}

// ModelEnvironment is the obstacle layout a saved policy was trained on.
type ModelEnvironment struct {
	Obstacles []Position `json:"obstacles"`
}

// ModelID identifies a saved policy snapshot. The service may encode it as a
// JSON number or string.
type ModelID string

func (id *ModelID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = ModelID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("model id: %w", err)
	}
	*id = ModelID(s)
	return nil
}

type Model struct {
	ID          ModelID          `json:"id"`
	Name        string           `json:"name"`
	Epsilon     float64          `json:"epsilon"`
	Environment ModelEnvironment `json:"environment"`
	CreatedAt   string           `json:"created_at"`
}

// LoadedModel is the service answer to a load request.
type LoadedModel struct {
	Status      string           `json:"status"`
	Epsilon     float64          `json:"epsilon"`
	Environment ModelEnvironment `json:"environment"`
}
