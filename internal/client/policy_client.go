package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/boristopalov/gridnav/pkg/core"
)

const (
	DefaultBaseURL            = "http://127.0.0.1:8000"
	DefaultInteractiveTimeout = 15 * time.Second
	DefaultHealthTimeout      = 8 * time.Second
	// Batch training runs many episodes server-side.
	DefaultTrainTimeout = 5 * time.Minute
)

// PolicyClient talks to the remote policy service over HTTP/JSON. Every call
// is bounded: interactive calls use a short timeout, batch training a long one.
type PolicyClient struct {
	baseURL            string
	http               *http.Client
	interactiveTimeout time.Duration
	healthTimeout      time.Duration
	trainTimeout       time.Duration
}

type Option func(*PolicyClient)

func WithHTTPClient(c *http.Client) Option {
	return func(p *PolicyClient) {
		p.http = c
	}
}

func WithInteractiveTimeout(d time.Duration) Option {
	return func(p *PolicyClient) {
		p.interactiveTimeout = d
	}
}

func WithHealthTimeout(d time.Duration) Option {
	return func(p *PolicyClient) {
		p.healthTimeout = d
	}
}

func WithTrainTimeout(d time.Duration) Option {
	return func(p *PolicyClient) {
		p.trainTimeout = d
	}
}

func NewPolicyClient(baseURL string, opts ...Option) *PolicyClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &PolicyClient{
		baseURL:            strings.TrimRight(baseURL, "/"),
		http:               &http.Client{},
		interactiveTimeout: DefaultInteractiveTimeout,
		healthTimeout:      DefaultHealthTimeout,
		trainTimeout:       DefaultTrainTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	log.Println("Using policy service", c.baseURL)
	return c
}

func (c *PolicyClient) BaseURL() string {
	return c.baseURL
}

// Health probes GET /health.
func (c *PolicyClient) Health(ctx context.Context) error {
	return c.do(ctx, c.healthTimeout, http.MethodGet, "/health", nil, nil)
}

type actResponse struct {
	Action  *string  `json:"action"`
	Epsilon *float64 `json:"epsilon"`
}

// Act asks the service for the next action. A missing or unknown action is a
// protocol violation; any epsilon in that answer is still returned.
func (c *PolicyClient) Act(ctx context.Context, req core.ActRequest) (core.ActResponse, error) {
	var raw actResponse
	if err := c.do(ctx, c.interactiveTimeout, http.MethodPost, "/act", req, &raw); err != nil {
		return core.ActResponse{}, err
	}
	// epsilon is reported even when the action is unusable
	if raw.Action == nil || *raw.Action == "" {
		return core.ActResponse{Epsilon: raw.Epsilon}, fmt.Errorf("%w: no action returned from backend", core.ErrProtocol)
	}
	action, ok := core.ParseAction(*raw.Action)
	if !ok {
		return core.ActResponse{Epsilon: raw.Epsilon}, fmt.Errorf("%w: unknown action %q", core.ErrProtocol, *raw.Action)
	}
	return core.ActResponse{Action: action, Epsilon: raw.Epsilon}, nil
}

// Reset asks the service to drop its learned state.
func (c *PolicyClient) Reset(ctx context.Context) (core.ResetResponse, error) {
	var raw struct {
		Epsilon *float64 `json:"epsilon"`
	}
	if err := c.do(ctx, c.interactiveTimeout, http.MethodPost, "/reset", nil, &raw); err != nil {
		return core.ResetResponse{}, err
	}
	if raw.Epsilon == nil {
		return core.ResetResponse{}, fmt.Errorf("%w: reset response without epsilon", core.ErrProtocol)
	}
	return core.ResetResponse{Epsilon: *raw.Epsilon}, nil
}

// Train runs a batch of episodes server-side using the long timeout.
func (c *PolicyClient) Train(ctx context.Context, req core.TrainRequest) (core.TrainResponse, error) {
	if req.Obstacles == nil {
		req.Obstacles = []core.Position{}
	}
	var resp core.TrainResponse
	if err := c.do(ctx, c.trainTimeout, http.MethodPost, "/train", req, &resp); err != nil {
		return core.TrainResponse{}, err
	}
	return resp, nil
}

func (c *PolicyClient) ListModels(ctx context.Context) ([]core.Model, error) {
	var models []core.Model
	if err := c.do(ctx, c.interactiveTimeout, http.MethodGet, "/models", nil, &models); err != nil {
		return nil, err
	}
	return models, nil
}

func (c *PolicyClient) SaveModel(ctx context.Context, name string, env core.ModelEnvironment) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("model name is required")
	}
	if env.Obstacles == nil {
		env.Obstacles = []core.Position{}
	}
	body := struct {
		Name        string                `json:"name"`
		Environment core.ModelEnvironment `json:"environment"`
	}{name, env}
	return c.do(ctx, c.interactiveTimeout, http.MethodPost, "/models", body, nil)
}

// LoadModel activates a saved snapshot on the service.
func (c *PolicyClient) LoadModel(ctx context.Context, id core.ModelID) (core.LoadedModel, error) {
	var loaded core.LoadedModel
	path := "/models/" + url.PathEscape(string(id)) + "/load"
	if err := c.do(ctx, c.interactiveTimeout, http.MethodPost, path, nil, &loaded); err != nil {
		return core.LoadedModel{}, err
	}
	if loaded.Status != "loaded" {
		return core.LoadedModel{}, fmt.Errorf("%w: model %s status %q", core.ErrProtocol, id, loaded.Status)
	}
	return loaded, nil
}

func (c *PolicyClient) DeleteModel(ctx context.Context, id core.ModelID) error {
	return c.do(ctx, c.interactiveTimeout, http.MethodDelete, "/models/"+url.PathEscape(string(id)), nil, nil)
}

func (c *PolicyClient) do(ctx context.Context, timeout time.Duration, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", core.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s %s: backend error: %d", core.ErrTransport, method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s %s: %w", core.ErrTransport, method, path, ctx.Err())
		}
		return fmt.Errorf("%w: %s %s: decode response: %w", core.ErrProtocol, method, path, err)
	}
	return nil
}
