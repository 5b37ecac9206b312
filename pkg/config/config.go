package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/boristopalov/gridnav/pkg/core"
	"github.com/joho/godotenv"
)

// EnvFiles are tried in order; the first one that loads wins.
var EnvFiles = []string{
	".env",
	"../../.env",
	"../../../.env",
}

type Config struct {
	Grid     GridConfig
	Policy   PolicyConfig
	AutoRun  AutoRunConfig
	Training TrainingConfig
	LLM      LLMConfig
}

type GridConfig struct {
	Width     int
	Height    int
	Start     core.Position
	Target    core.Position
	Obstacles []core.Position
}

type PolicyConfig struct {
	BaseURL            string
	InteractiveTimeout time.Duration
	HealthTimeout      time.Duration
	TrainTimeout       time.Duration
}

type AutoRunConfig struct {
	Interval   time.Duration
	StopDelay  time.Duration
	Continuous bool
}

type TrainingConfig struct {
	Episodes  int
	StatsPath string
}

type LLMConfig struct {
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	GeminiAPIKey  string
	GeminiModel   string
}

func Default() *Config {
	return &Config{
		Grid: GridConfig{
			Width:  10,
			Height: 10,
			Start:  core.Position{X: 0, Y: 0},
			Target: core.Position{X: 8, Y: 8},
		},
		Policy: PolicyConfig{
			BaseURL:            "http://127.0.0.1:8000",
			InteractiveTimeout: 15 * time.Second,
			HealthTimeout:      8 * time.Second,
			TrainTimeout:       5 * time.Minute,
		},
		AutoRun: AutoRunConfig{
			Interval:  50 * time.Millisecond,
			StopDelay: 10 * time.Millisecond,
		},
		Training: TrainingConfig{
			Episodes: 500,
		},
		LLM: LLMConfig{
			OpenAIModel: "gpt-4o-mini",
			GeminiModel: "gemini-2.0-flash-exp",
		},
	}
}

// Load reads the first available .env file, overlays the process environment
// on the defaults and validates the result.
func Load() (*Config, error) {
	for _, envFile := range EnvFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	return FromEnv()
}

// FromEnv overlays GRIDNAV_* and provider variables on the defaults.
func FromEnv() (*Config, error) {
	cfg := Default()
	var errs []error

	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	setPosition := func(key string, dst *core.Position) {
		if v, ok := os.LookupEnv(key); ok {
			p, err := ParsePosition(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = p
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setInt("GRIDNAV_WIDTH", &cfg.Grid.Width)
	setInt("GRIDNAV_HEIGHT", &cfg.Grid.Height)
	setPosition("GRIDNAV_START", &cfg.Grid.Start)
	setPosition("GRIDNAV_TARGET", &cfg.Grid.Target)
	if v, ok := os.LookupEnv("GRIDNAV_OBSTACLES"); ok {
		obstacles, err := ParsePositions(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GRIDNAV_OBSTACLES: %w", err))
		}
		cfg.Grid.Obstacles = obstacles
	}

	setString("POLICY_API_URL", &cfg.Policy.BaseURL)
	setString("GRIDNAV_POLICY_URL", &cfg.Policy.BaseURL)
	setDuration("GRIDNAV_INTERACTIVE_TIMEOUT", &cfg.Policy.InteractiveTimeout)
	setDuration("GRIDNAV_HEALTH_TIMEOUT", &cfg.Policy.HealthTimeout)
	setDuration("GRIDNAV_TRAIN_TIMEOUT", &cfg.Policy.TrainTimeout)

	setDuration("GRIDNAV_AUTORUN_INTERVAL", &cfg.AutoRun.Interval)
	setDuration("GRIDNAV_STOP_DELAY", &cfg.AutoRun.StopDelay)
	if v, ok := os.LookupEnv("GRIDNAV_CONTINUOUS"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("GRIDNAV_CONTINUOUS: %w", err))
		}
		cfg.AutoRun.Continuous = b
	}

	setInt("GRIDNAV_TRAIN_EPISODES", &cfg.Training.Episodes)
	setString("GRIDNAV_STATS_PATH", &cfg.Training.StatsPath)

	setString("OPENAI_API_BASE_URL", &cfg.LLM.OpenAIBaseURL)
	setString("OPENAI_API_KEY", &cfg.LLM.OpenAIAPIKey)
	setString("GRIDNAV_OPENAI_MODEL", &cfg.LLM.OpenAIModel)
	setString("GEMINI_API_KEY", &cfg.LLM.GeminiAPIKey)
	setString("GRIDNAV_GEMINI_MODEL", &cfg.LLM.GeminiModel)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	g := c.Grid
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("invalid grid size %dx%d", g.Width, g.Height)
	}
	inBounds := func(p core.Position) bool {
		return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height
	}
	if !inBounds(g.Start) {
		return fmt.Errorf("start %s outside %dx%d grid", g.Start, g.Width, g.Height)
	}
	if !inBounds(g.Target) {
		return fmt.Errorf("target %s outside %dx%d grid", g.Target, g.Width, g.Height)
	}
	for _, o := range g.Obstacles {
		if !inBounds(o) {
			return fmt.Errorf("obstacle %s outside %dx%d grid", o, g.Width, g.Height)
		}
	}
	if c.Policy.InteractiveTimeout <= 0 || c.Policy.HealthTimeout <= 0 || c.Policy.TrainTimeout <= 0 {
		return errors.New("policy timeouts must be positive")
	}
	if c.AutoRun.Interval <= 0 {
		return fmt.Errorf("invalid auto-run interval %s", c.AutoRun.Interval)
	}
	if c.AutoRun.StopDelay < 0 {
		return fmt.Errorf("invalid stop delay %s", c.AutoRun.StopDelay)
	}
	if c.Training.Episodes <= 0 {
		return fmt.Errorf("invalid training episode count %d", c.Training.Episodes)
	}
	return nil
}

// ParsePosition parses "x,y".
func ParsePosition(s string) (core.Position, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return core.Position{}, fmt.Errorf("invalid position %q, want x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return core.Position{}, fmt.Errorf("invalid position %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return core.Position{}, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return core.Position{X: x, Y: y}, nil
}

// ParsePositions parses "x,y;x,y". An empty string yields no positions.
func ParsePositions(s string) ([]core.Position, error) {
	var out []core.Position
	for _, item := range strings.Split(s, ";") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		p, err := ParsePosition(item)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
