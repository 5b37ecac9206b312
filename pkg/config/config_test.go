package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boristopalov/gridnav/pkg/core"
	"github.com/google/go-cmp/cmp"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_BASE_URL", "OPENAI_API_KEY", "GEMINI_API_KEY", "POLICY_API_URL"} {
		t.Setenv(key, "")
	}
}

func TestDefaults(t *testing.T) {
	clearProviderEnv(t)
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.Grid.Target != (core.Position{X: 8, Y: 8}) || cfg.AutoRun.Interval != 50*time.Millisecond {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestFromEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GRIDNAV_WIDTH", "6")
	t.Setenv("GRIDNAV_HEIGHT", "5")
	t.Setenv("GRIDNAV_TARGET", "5, 4")
	t.Setenv("GRIDNAV_OBSTACLES", "1,1; 2,2;")
	t.Setenv("POLICY_API_URL", "http://policy:9000")
	t.Setenv("GRIDNAV_TRAIN_TIMEOUT", "10m")
	t.Setenv("GRIDNAV_CONTINUOUS", "true")
	t.Setenv("GRIDNAV_TRAIN_EPISODES", "50")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	want := Default()
	want.Grid = GridConfig{
		Width:     6,
		Height:    5,
		Target:    core.Position{X: 5, Y: 4},
		Obstacles: []core.Position{{X: 1, Y: 1}, {X: 2, Y: 2}},
	}
	want.Policy.BaseURL = "http://policy:9000"
	want.Policy.TrainTimeout = 10 * time.Minute
	want.AutoRun.Continuous = true
	want.Training.Episodes = 50
	want.LLM.OpenAIAPIKey = "sk-test"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestFromEnvErrors(t *testing.T) {
	tests := map[string][2]string{
		"bad int":          {"GRIDNAV_WIDTH", "ten"},
		"bad duration":     {"GRIDNAV_AUTORUN_INTERVAL", "fast"},
		"bad position":     {"GRIDNAV_START", "1"},
		"target off grid":  {"GRIDNAV_TARGET", "10,10"},
		"bad obstacle":     {"GRIDNAV_OBSTACLES", "1,1;x,2"},
		"zero episodes":    {"GRIDNAV_TRAIN_EPISODES", "0"},
		"negative timeout": {"GRIDNAV_HEALTH_TIMEOUT", "-1s"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := FromEnv(); err == nil {
				t.Errorf("expected error for %s=%q", kv[0], kv[1])
			}
		})
	}
}

// chdirEnvFile writes contents to a .env file in a fresh directory and makes
// it the working directory for the rest of the test.
func chdirEnvFile(t *testing.T, contents string, keys ...string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}

func TestLoadReadsEnvFile(t *testing.T) {
	t.Run("values from .env", func(t *testing.T) {
		chdirEnvFile(t, "GRIDNAV_WIDTH=12\n", "GRIDNAV_WIDTH")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Grid.Width != 12 {
			t.Errorf("width = %d, want 12 from .env", cfg.Grid.Width)
		}
	})

	t.Run("shrunk grid with default target is rejected", func(t *testing.T) {
		chdirEnvFile(t, "GRIDNAV_WIDTH=7\n", "GRIDNAV_WIDTH")

		if _, err := Load(); err == nil || !strings.Contains(err.Error(), "target (8,8) outside 7x10 grid") {
			t.Errorf("Load() = %v, want target out of grid", err)
		}
	})

	t.Run("shrunk grid with a matching target", func(t *testing.T) {
		chdirEnvFile(t, "GRIDNAV_WIDTH=7\nGRIDNAV_TARGET=6,6\n", "GRIDNAV_WIDTH", "GRIDNAV_TARGET")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Grid.Width != 7 || cfg.Grid.Target != (core.Position{X: 6, Y: 6}) {
			t.Errorf("unexpected grid: %+v", cfg.Grid)
		}
	})
}
