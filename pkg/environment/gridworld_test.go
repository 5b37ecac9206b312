package environment

import (
	"testing"

	"github.com/boristopalov/gridnav/pkg/core"
	"github.com/google/go-cmp/cmp"
)

func newDefault(t *testing.T, opts ...Option) *GridWorld {
	t.Helper()
	g, err := NewGridWorld(opts...)
	if err != nil {
		t.Fatalf("NewGridWorld: %v", err)
	}
	return g
}

func TestGridWorld(t *testing.T) {
	t.Run("reaches the target on the shortest path", func(t *testing.T) {
		g := newDefault(t)
		var res core.StepResult
		for i := 0; i < 8; i++ {
			res = g.Step(core.ActionRight)
			if res.Done {
				t.Fatalf("episode ended early at step %d", res.Steps)
			}
			if res.Reward != StepCost {
				t.Errorf("reward = %v, want %v", res.Reward, StepCost)
			}
		}
		for i := 0; i < 8; i++ {
			res = g.Step(core.ActionDown)
		}
		if !res.Done {
			t.Fatal("expected episode to be done on the target")
		}
		if res.Reward != TargetReward {
			t.Errorf("reward = %v, want %v", res.Reward, TargetReward)
		}
		if got, want := res.State.Position, (core.Position{X: 8, Y: 8}); got != want {
			t.Errorf("position = %v, want %v", got, want)
		}
		if res.Steps != 16 {
			t.Errorf("steps = %d, want 16", res.Steps)
		}
	})

	t.Run("wall collision keeps position", func(t *testing.T) {
		g := newDefault(t)
		for _, a := range []core.Action{core.ActionLeft, core.ActionUp} {
			res := g.Step(a)
			if res.Reward != WallPenalty {
				t.Errorf("%s: reward = %v, want %v", a, res.Reward, WallPenalty)
			}
			if res.State.Position != DefaultStart {
				t.Errorf("%s: position = %v, want %v", a, res.State.Position, DefaultStart)
			}
		}
		if g.Steps() != 2 {
			t.Errorf("steps = %d, want 2", g.Steps())
		}
	})

	t.Run("far walls", func(t *testing.T) {
		g := newDefault(t, WithSize(2, 2), WithTarget(core.Position{X: 0, Y: 1}), WithStart(core.Position{X: 1, Y: 1}))
		if res := g.Step(core.ActionRight); res.Reward != WallPenalty {
			t.Errorf("right: reward = %v, want %v", res.Reward, WallPenalty)
		}
		if res := g.Step(core.ActionDown); res.Reward != WallPenalty {
			t.Errorf("down: reward = %v, want %v", res.Reward, WallPenalty)
		}
	})

	t.Run("obstacle behaves like a wall", func(t *testing.T) {
		g := newDefault(t, WithObstacles([]core.Position{{X: 1, Y: 0}}))
		res := g.Step(core.ActionRight)
		if res.Reward != ObstaclePenalty {
			t.Errorf("reward = %v, want %v", res.Reward, ObstaclePenalty)
		}
		if res.State.Position != DefaultStart {
			t.Errorf("position = %v, want %v", res.State.Position, DefaultStart)
		}
		if res.Done {
			t.Error("obstacle collision must not end the episode")
		}
	})

	t.Run("unknown action is a no-op move with step cost", func(t *testing.T) {
		g := newDefault(t)
		res := g.Step(core.Action("jump"))
		if res.Reward != StepCost {
			t.Errorf("reward = %v, want %v", res.Reward, StepCost)
		}
		if res.State.Position != DefaultStart {
			t.Errorf("position = %v, want %v", res.State.Position, DefaultStart)
		}
		if res.Steps != 1 {
			t.Errorf("steps = %d, want 1", res.Steps)
		}
	})

	t.Run("times out exactly at max steps", func(t *testing.T) {
		g := newDefault(t, WithSize(3, 3), WithTarget(core.Position{X: 2, Y: 2}))
		if g.MaxSteps() != 9 {
			t.Fatalf("max steps = %d, want 9", g.MaxSteps())
		}
		moves := []core.Action{core.ActionRight, core.ActionLeft}
		for i := 1; i <= 9; i++ {
			res := g.Step(moves[i%2])
			if res.Done != (i == 9) {
				t.Fatalf("step %d: done = %v", i, res.Done)
			}
			if i == 9 && (res.Reward != StepCost && res.Reward != WallPenalty) {
				t.Errorf("timeout must not alter reward, got %v", res.Reward)
			}
		}
	})

	t.Run("reset restores start and step count", func(t *testing.T) {
		g := newDefault(t)
		g.Step(core.ActionRight)
		g.Step(core.ActionDown)
		state := g.Reset()
		if diff := cmp.Diff(core.State{Position: DefaultStart, Target: DefaultTarget}, state); diff != "" {
			t.Errorf("reset state mismatch (-want +got):\n%s", diff)
		}
		if g.Steps() != 0 {
			t.Errorf("steps = %d, want 0", g.Steps())
		}
	})

	t.Run("set obstacles keeps position", func(t *testing.T) {
		g := newDefault(t)
		g.Step(core.ActionRight)
		g.SetObstacles([]core.Position{{X: 3, Y: 3}, {X: 1, Y: 2}, {X: 3, Y: 3}})
		if got := g.State().Position; got != (core.Position{X: 1, Y: 0}) {
			t.Errorf("position = %v after SetObstacles", got)
		}
		want := []core.Position{{X: 1, Y: 2}, {X: 3, Y: 3}}
		if diff := cmp.Diff(want, g.Obstacles()); diff != "" {
			t.Errorf("obstacles mismatch (-want +got):\n%s", diff)
		}
		if g.Steps() != 1 {
			t.Errorf("steps = %d, want 1", g.Steps())
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		a := newDefault(t, WithObstacles([]core.Position{{X: 0, Y: 1}}))
		b := newDefault(t, WithObstacles([]core.Position{{X: 0, Y: 1}}))
		for _, act := range []core.Action{core.ActionDown, core.ActionRight, core.ActionDown, core.ActionUp} {
			if diff := cmp.Diff(a.Step(act), b.Step(act)); diff != "" {
				t.Fatalf("step %s diverged (-a +b):\n%s", act, diff)
			}
		}
	})
}

func TestNewGridWorldValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"zero width", []Option{WithSize(0, 5)}},
		{"start outside", []Option{WithStart(core.Position{X: 10, Y: 0})}},
		{"target outside", []Option{WithTarget(core.Position{X: -1, Y: 2})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGridWorld(tt.opts...); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	t.Run("obstacles exclude start and target", func(t *testing.T) {
		g := newDefault(t, WithObstacles([]core.Position{DefaultStart, DefaultTarget, {X: 4, Y: 4}}))
		if diff := cmp.Diff([]core.Position{{X: 4, Y: 4}}, g.Obstacles()); diff != "" {
			t.Errorf("obstacles mismatch (-want +got):\n%s", diff)
		}
	})
}
