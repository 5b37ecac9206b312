package core

import (
	"context"
	"errors"
)

var (
	// ErrTransport marks failures to reach the policy service: network
	// errors, timeouts and non-2xx answers.
	ErrTransport = errors.New("policy transport failure")
	// ErrProtocol marks answers that decoded but lack required fields.
	ErrProtocol = errors.New("policy protocol violation")
)

// Policy picks the next action for an observation.
type Policy interface {
	Act(ctx context.Context, req ActRequest) (ActResponse, error)
}

// PolicyResetter drops learned state after the environment layout changed.
type PolicyResetter interface {
	Reset(ctx context.Context) (ResetResponse, error)
}

// BatchTrainer runs many episodes server-side and returns their outcomes.
type BatchTrainer interface {
	Train(ctx context.Context, req TrainRequest) (TrainResponse, error)
}

// HealthChecker probes whether a policy backend is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ModelStore persists named policy snapshots with their obstacle layout.
type ModelStore interface {
	ListModels(ctx context.Context) ([]Model, error)
	SaveModel(ctx context.Context, name string, env ModelEnvironment) error
	LoadModel(ctx context.Context, id ModelID) (LoadedModel, error)
	DeleteModel(ctx context.Context, id ModelID) error
}
