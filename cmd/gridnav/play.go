package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/boristopalov/gridnav/pkg/config"
	"github.com/boristopalov/gridnav/pkg/core"
	"github.com/boristopalov/gridnav/pkg/display"
	"github.com/spf13/cobra"
)

type commandKind int

const (
	cmdMove commandKind = iota
	cmdReset
	cmdToggle
	cmdClear
	cmdAIStep
	cmdQuit
)

type playCommand struct {
	kind   commandKind
	action core.Action
	cell   core.Position
}

var moveKeys = map[string]core.Action{
	"w": core.ActionUp,
	"a": core.ActionLeft,
	"s": core.ActionDown,
	"d": core.ActionRight,
}

// parseCommand reads one line of play input.
func parseCommand(line string) (playCommand, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return playCommand{}, fmt.Errorf("empty command")
	}
	switch fields[0] {
	case "r", "reset":
		return playCommand{kind: cmdReset}, nil
	case "c", "clear":
		return playCommand{kind: cmdClear}, nil
	case "n", "next":
		return playCommand{kind: cmdAIStep}, nil
	case "q", "quit":
		return playCommand{kind: cmdQuit}, nil
	case "o", "obstacle":
		if len(fields) != 3 {
			return playCommand{}, fmt.Errorf("usage: o <x> <y>")
		}
		x, errX := strconv.Atoi(fields[1])
		y, errY := strconv.Atoi(fields[2])
		if errX != nil || errY != nil {
			return playCommand{}, fmt.Errorf("invalid cell %q %q", fields[1], fields[2])
		}
		return playCommand{kind: cmdToggle, cell: core.Position{X: x, Y: y}}, nil
	}
	if a, ok := moveKeys[fields[0]]; ok {
		return playCommand{kind: cmdMove, action: a}, nil
	}
	if a, ok := core.ParseAction(fields[0]); ok && a.Valid() {
		return playCommand{kind: cmdMove, action: a}, nil
	}
	return playCommand{}, fmt.Errorf("unknown command %q", fields[0])
}

const playHelp = `Commands: w/a/s/d or up/down/left/right to move, n for one policy step,
o <x> <y> to toggle an obstacle, c to clear obstacles, r to reset, q to quit.
`

func newPlayCmd(cfg *config.Config) *cobra.Command {
	var policy string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Step the agent by hand from standard input",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			a, err := newApp(ctx, cfg, appOptions{policy: policy})
			if err != nil {
				return err
			}
			defer a.Close()
			return a.play(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&policy, "policy", policyRemote, "policy used for single steps: remote, openai or gemini")
	return cmd
}

func (a *app) play(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprint(out, playHelp)
	fmt.Fprint(out, display.Frame(a.session.Snapshot(), 5))

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c, err := parseCommand(line)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}

		switch c.kind {
		case cmdQuit:
			return nil
		case cmdMove:
			if _, applied := a.session.Step(c.action); !applied {
				fmt.Fprintln(out, "Episode finished, press r to reset")
			}
		case cmdReset:
			a.session.Reset()
		case cmdClear:
			a.session.ClearObstacles()
		case cmdToggle:
			if !a.session.ToggleObstacle(c.cell) {
				fmt.Fprintf(out, "Cannot toggle %s\n", c.cell)
			}
		case cmdAIStep:
			if err := a.scheduler.StepOnce(ctx); err != nil {
				fmt.Fprintf(out, "Policy step failed: %v\n", err)
			}
		}
		fmt.Fprint(out, display.Frame(a.session.Snapshot(), 5))
	}
	return scanner.Err()
}
