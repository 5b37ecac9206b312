package display

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boristopalov/gridnav/pkg/core"
	"github.com/boristopalov/gridnav/pkg/environment"
	"github.com/boristopalov/gridnav/pkg/session"
)

func newSnapshot(t *testing.T) session.Snapshot {
	t.Helper()
	s := session.New(session.WithEnvironment(
		environment.WithSize(4, 3),
		environment.WithTarget(core.Position{X: 3, Y: 2}),
	))
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	s.ToggleObstacle(core.Position{X: 1, Y: 1})
	s.Step(core.ActionRight)
	s.Step(core.ActionDown)
	return s.Snapshot()
}

func TestGrid(t *testing.T) {
	snap := newSnapshot(t)
	// The agent bumped into the obstacle at (1,1) and stays at (1,0).
	want := "" +
		". A . .\n" +
		". # . .\n" +
		". . . T\n"
	if got := Grid(snap); got != want {
		t.Errorf("Grid() =\n%s\nwant\n%s", got, want)
	}

	if got := Grid(session.Snapshot{}); !strings.Contains(got, "not initialized") {
		t.Errorf("Grid() of empty snapshot = %q", got)
	}
}

func TestStatusAndHistory(t *testing.T) {
	snap := newSnapshot(t)
	status := Status(snap)
	for _, want := range []string{"Episode 1", "Step 2/12", "Position (1,0)", "Reward -0.10", "Last down", "Epsilon 1.000", "running"} {
		if !strings.Contains(status, want) {
			t.Errorf("Status() = %q, missing %q", status, want)
		}
	}

	lines := strings.Split(strings.TrimSpace(History(snap, 1)), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], "down") {
		t.Errorf("History(1) = %q", lines)
	}
	if got := strings.Count(History(snap, -1), "\n"); got != 2 {
		t.Errorf("History(-1) has %d lines, want 2", got)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPrinter(t *testing.T) {
	out := &syncBuffer{}
	p := NewPrinter(time.Millisecond, WithOutput(out))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)
	p.Update(newSnapshot(t))

	deadline := time.Now().Add(time.Second)
	for !strings.Contains(out.String(), "Episode 1") && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	p.Stop()
	p.Stop()

	if got := out.String(); !strings.Contains(got, ". # . .") {
		t.Errorf("printer output missing the grid:\n%s", got)
	}
}

func TestPrinterStopFlushesLastFrame(t *testing.T) {
	out := &syncBuffer{}
	// the ticker never fires; only the final draw on Stop can write
	p := NewPrinter(time.Hour, WithOutput(out))
	p.Start(context.Background())
	p.Update(newSnapshot(t))
	p.Stop()

	if got := out.String(); !strings.Contains(got, "Episode 1") || !strings.Contains(got, ". # . .") {
		t.Errorf("last frame missing after Stop:\n%s", got)
	}
}

func TestPrinterStopWithoutStart(t *testing.T) {
	p := NewPrinter(time.Millisecond, WithOutput(&syncBuffer{}))
	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a printer that was never started")
	}
}
