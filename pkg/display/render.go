package display

import (
	"fmt"
	"strings"

	"github.com/boristopalov/gridnav/pkg/core"
	"github.com/boristopalov/gridnav/pkg/session"
)

// Cell glyphs used by Grid.
const (
	GlyphAgent    = 'A'
	GlyphTarget   = 'T'
	GlyphObstacle = '#'
	GlyphEmpty    = '.'
)

// Grid draws the board row by row, y increasing downwards.
func Grid(snap session.Snapshot) string {
	if !snap.Initialized {
		return "(not initialized)\n"
	}
	blocked := make(map[core.Position]bool, len(snap.Obstacles))
	for _, p := range snap.Obstacles {
		blocked[p] = true
	}

	var b strings.Builder
	for y := 0; y < snap.Height; y++ {
		for x := 0; x < snap.Width; x++ {
			if x > 0 {
				b.WriteByte(' ')
			}
			p := core.Position{X: x, Y: y}
			switch {
			case p == snap.State.Position:
				b.WriteRune(GlyphAgent)
			case p == snap.State.Target:
				b.WriteRune(GlyphTarget)
			case blocked[p]:
				b.WriteRune(GlyphObstacle)
			default:
				b.WriteRune(GlyphEmpty)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func Status(snap session.Snapshot) string {
	last := string(snap.LastAction)
	if last == "" {
		last = "-"
	}
	state := "running"
	if snap.Done {
		state = "done"
	}
	return fmt.Sprintf("Episode %d | Step %d/%d | Position %s | Reward %.2f | Last %s | Epsilon %.3f | %s\n",
		snap.Episode, snap.Steps, snap.MaxSteps, snap.State.Position, snap.Reward, last, snap.Epsilon, state)
}

// History lists at most n of the most recent transitions, newest last.
func History(snap session.Snapshot, n int) string {
	h := snap.History
	if n >= 0 && len(h) > n {
		h = h[len(h)-n:]
	}
	var b strings.Builder
	for _, tr := range h {
		fmt.Fprintf(&b, "%4d %-5s -> %s %+.2f\n", tr.Step, tr.Action, tr.Position, tr.Reward)
	}
	return b.String()
}

// Frame combines grid, status line and recent history.
func Frame(snap session.Snapshot, historyLines int) string {
	return Grid(snap) + Status(snap) + History(snap, historyLines)
}
