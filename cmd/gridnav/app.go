package main

import (
	"context"
	"fmt"
	"log"

	"github.com/boristopalov/gridnav/internal/client"
	"github.com/boristopalov/gridnav/pkg/autorun"
	"github.com/boristopalov/gridnav/pkg/config"
	"github.com/boristopalov/gridnav/pkg/core"
	"github.com/boristopalov/gridnav/pkg/environment"
	"github.com/boristopalov/gridnav/pkg/messaging"
	"github.com/boristopalov/gridnav/pkg/providers"
	"github.com/boristopalov/gridnav/pkg/session"
	"github.com/boristopalov/gridnav/pkg/training"
)

const (
	policyRemote = "remote"
	policyOpenAI = "openai"
	policyGemini = "gemini"
)

// app wires one session to the policy service.
type app struct {
	cfg         *config.Config
	broker      *messaging.SimpleBroker
	session     *session.Session
	client      *client.PolicyClient
	models      core.ModelStore
	invalidator *session.Invalidator
	scheduler   *autorun.Scheduler
	trainer     *training.Trainer
	stats       *training.StatsLog
}

type appOptions struct {
	policy     string
	continuous bool
	observer   func(session.Snapshot)
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{
		cfg:    cfg,
		broker: messaging.NewBroker(),
		client: client.NewPolicyClient(cfg.Policy.BaseURL,
			client.WithInteractiveTimeout(cfg.Policy.InteractiveTimeout),
			client.WithHealthTimeout(cfg.Policy.HealthTimeout),
			client.WithTrainTimeout(cfg.Policy.TrainTimeout),
		),
	}

	a.models = a.client

	a.session = session.New(
		session.WithBroker(a.broker),
		session.WithEnvironment(
			environment.WithSize(cfg.Grid.Width, cfg.Grid.Height),
			environment.WithStart(cfg.Grid.Start),
			environment.WithTarget(cfg.Grid.Target),
			environment.WithObstacles(cfg.Grid.Obstacles),
		),
	)
	if err := a.session.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	a.invalidator = session.NewInvalidator(a.session, a.client, a.broker)
	if err := a.invalidator.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start invalidator: %w", err)
	}

	policy, err := newPolicy(ctx, cfg, opts.policy, a.client)
	if err != nil {
		a.Close()
		return nil, err
	}
	schedOpts := []autorun.Option{
		autorun.WithInterval(cfg.AutoRun.Interval),
		autorun.WithResetDelay(cfg.AutoRun.StopDelay),
		autorun.WithContinuous(opts.continuous || cfg.AutoRun.Continuous),
	}
	if opts.policy == "" || opts.policy == policyRemote {
		schedOpts = append(schedOpts, autorun.WithHealthCheck(a.client))
	}
	if opts.observer != nil {
		schedOpts = append(schedOpts, autorun.WithObserver(opts.observer))
	}
	a.scheduler = autorun.NewScheduler(a.session, policy, schedOpts...)

	trainOpts := []training.Option{training.WithAutoRun(a.scheduler)}
	if cfg.Training.StatsPath != "" {
		stats, err := training.OpenStatsLog(cfg.Training.StatsPath)
		if err != nil {
			log.Printf("Warning: Failed to create stats file: %v", err)
		} else {
			a.stats = stats
			trainOpts = append(trainOpts, training.WithStatsLog(stats))
		}
	}
	a.trainer = training.NewTrainer(a.client, a.session, trainOpts...)
	return a, nil
}

func newPolicy(ctx context.Context, cfg *config.Config, name string, remote *client.PolicyClient) (core.Policy, error) {
	switch name {
	case "", policyRemote:
		return remote, nil
	case policyOpenAI:
		completer := providers.OpenAI(
			providers.WithBaseURL(cfg.LLM.OpenAIBaseURL),
			providers.WithAPIKey(cfg.LLM.OpenAIAPIKey),
		)
		return providers.NewLLMPolicy(completer,
			providers.WithModel(cfg.LLM.OpenAIModel),
			providers.WithGrid(cfg.Grid.Width, cfg.Grid.Height),
		), nil
	case policyGemini:
		completer, err := providers.Gemini(ctx, providers.WithAPIKey(cfg.LLM.GeminiAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return providers.NewLLMPolicy(completer,
			providers.WithModel(cfg.LLM.GeminiModel),
			providers.WithGrid(cfg.Grid.Width, cfg.Grid.Height),
		), nil
	default:
		return nil, fmt.Errorf("unknown policy %q (want %s, %s or %s)", name, policyRemote, policyOpenAI, policyGemini)
	}
}

func (a *app) Close() {
	if a.scheduler != nil {
		a.scheduler.Disable()
		a.scheduler.Wait()
	}
	a.invalidator.Stop()
	if a.stats != nil {
		a.stats.Close()
	}
	a.broker.Reset()
}
