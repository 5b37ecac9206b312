package providers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/boristopalov/gridnav/pkg/core"
	"github.com/boristopalov/gridnav/pkg/memory"
)

// DefaultRecall is how many earlier moves are quoted back to the model.
const DefaultRecall = 10

var answerPattern = regexp.MustCompile(`(?i)ANSWER:\s*(up|down|left|right|stop)\b`)

// LLMPolicy asks a language model for the next move. It keeps a short
// memory of its own moves so the model can notice when it is stuck.
type LLMPolicy struct {
	client Completer
	model  string
	width  int
	height int
	recent *memory.Memory[string]
}

type PolicyParams struct {
	Model  string
	Width  int
	Height int
	Recall int
}

type PolicyOption func(*PolicyParams)

func WithModel(model string) PolicyOption {
	return func(p *PolicyParams) {
		p.Model = model
	}
}

func WithGrid(width, height int) PolicyOption {
	return func(p *PolicyParams) {
		p.Width = width
		p.Height = height
	}
}

func WithRecall(n int) PolicyOption {
	return func(p *PolicyParams) {
		p.Recall = n
	}
}

func NewLLMPolicy(client Completer, opts ...PolicyOption) *LLMPolicy {
	params := &PolicyParams{
		Model:  DefaultOpenAIModel,
		Width:  10,
		Height: 10,
		Recall: DefaultRecall,
	}
	for _, opt := range opts {
		opt(params)
	}
	return &LLMPolicy{
		client: client,
		model:  params.Model,
		width:  params.Width,
		height: params.Height,
		recent: memory.NewMemory[string](params.Recall),
	}
}

// Act implements core.Policy. A finished episode is answered with stop
// without consulting the model.
func (p *LLMPolicy) Act(ctx context.Context, req core.ActRequest) (core.ActResponse, error) {
	if req.Done {
		p.recent.Clear()
		return core.ActResponse{Action: core.ActionStop}, nil
	}

	reply, err := p.client.Complete(ctx, p.model, p.prompt(req))
	if err != nil {
		return core.ActResponse{}, fmt.Errorf("%w: %s completion: %w", core.ErrTransport, p.model, err)
	}
	action, err := ParseAnswer(reply)
	if err != nil {
		return core.ActResponse{}, err
	}
	p.recent.Store(fmt.Sprintf("at %s moved %s (reward %.2f)", req.Position, action, req.Reward))
	return core.ActResponse{Action: action}, nil
}

// ParseAnswer extracts the last "ANSWER: <action>" line from a completion.
func ParseAnswer(reply string) (core.Action, error) {
	matches := answerPattern.FindAllStringSubmatch(reply, -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no ANSWER line in completion", core.ErrProtocol)
	}
	action, _ := core.ParseAction(matches[len(matches)-1][1])
	return action, nil
}

func (p *LLMPolicy) prompt(req core.ActRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You control an agent on a %dx%d grid. Coordinates are (x,y) with (0,0) in the top-left corner; ", p.width, p.height)
	b.WriteString("up decreases y, down increases y, left decreases x, right increases x.\n")
	fmt.Fprintf(&b, "The agent is at %s and must reach the target at %s.\n", req.Position, req.Target)
	if len(req.Obstacles) == 0 {
		b.WriteString("There are no obstacles.\n")
	} else {
		cells := make([]string, len(req.Obstacles))
		for i, o := range req.Obstacles {
			cells[i] = o.String()
		}
		fmt.Fprintf(&b, "Obstacles block these cells: %s.\n", strings.Join(cells, ", "))
	}
	b.WriteString("Moving into a wall or an obstacle leaves the agent in place.\n")
	if recent := p.recent.All(); len(recent) > 0 {
		b.WriteString("Your recent moves:\n")
		for _, line := range recent {
			b.WriteString("- " + line + "\n")
		}
	}
	b.WriteString("Think briefly, then finish with a single line of the form ANSWER: <up|down|left|right>.")
	return b.String()
}
