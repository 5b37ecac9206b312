package providers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"google.golang.org/genai"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1/"
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultGeminiModel   = "gemini-2.0-flash-exp"
)

// Completer turns a prompt into a completion.
type Completer interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
}

type OpenAIClient struct {
	client *openai.Client
}

type GeminiClient struct {
	client *genai.Client
}

type ProviderParams struct {
	BaseURL string
	APIKey  string
}

type ProviderOption func(*ProviderParams)

func WithBaseURL(baseURL string) ProviderOption {
	return func(p *ProviderParams) {
		p.BaseURL = baseURL
	}
}

func WithAPIKey(apiKey string) ProviderOption {
	return func(p *ProviderParams) {
		p.APIKey = apiKey
	}
}

// providerEnv names the variables consulted for unset parameters.
type providerEnv struct {
	baseURL        string
	apiKey         string
	defaultBaseURL string
}

var (
	openAIEnv = providerEnv{baseURL: "OPENAI_API_BASE_URL", apiKey: "OPENAI_API_KEY", defaultBaseURL: DefaultOpenAIBaseURL}
	geminiEnv = providerEnv{apiKey: "GEMINI_API_KEY"}
)

// resolveParams applies opts, then fills what is still empty from env.
func resolveParams(env providerEnv, opts []ProviderOption) ProviderParams {
	var params ProviderParams
	for _, opt := range opts {
		opt(&params)
	}
	if params.BaseURL == "" && env.baseURL != "" {
		params.BaseURL = os.Getenv(env.baseURL)
	}
	if params.BaseURL == "" {
		params.BaseURL = env.defaultBaseURL
	}
	if params.APIKey == "" && env.apiKey != "" {
		params.APIKey = os.Getenv(env.apiKey)
	}
	return params
}

// OpenAI builds a chat completion client. Unset parameters fall back to
// OPENAI_API_BASE_URL and OPENAI_API_KEY.
func OpenAI(opts ...ProviderOption) *OpenAIClient {
	params := resolveParams(openAIEnv, opts)

	clientOpts := []option.RequestOption{option.WithBaseURL(params.BaseURL)}
	if params.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(params.APIKey))
	}
	log.Println("Using OpenAI endpoint", params.BaseURL)
	return &OpenAIClient{
		client: openai.NewClient(clientOpts...),
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, model string, prompt string) (string, error) {
	chatCompletion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		}),
		Model: openai.F(model),
	})
	if err != nil {
		return "", err
	}
	if len(chatCompletion.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return chatCompletion.Choices[0].Message.Content, nil
}

// Gemini builds a Gemini client. An unset API key falls back to
// GEMINI_API_KEY.
func Gemini(ctx context.Context, opts ...ProviderOption) (*GeminiClient, error) {
	params := resolveParams(geminiEnv, opts)
	if params.APIKey == "" {
		return nil, errors.New("gemini: no API key configured (set GEMINI_API_KEY)")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  params.APIKey,
		Backend: genai.BackendGoogleAI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	log.Println("Using Gemini backend")
	return &GeminiClient{client: client}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, model string, prompt string) (string, error) {
	parts := []*genai.Part{
		{Text: prompt},
	}
	result, err := c.client.Models.GenerateContent(ctx, model, []*genai.Content{{Parts: parts}}, nil)
	if err != nil {
		return "", err
	}
	var text string
	for _, cand := range result.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			text += p.Text
		}
		if text != "" {
			break
		}
	}
	if text == "" {
		return "", errors.New("completion returned no text")
	}
	return text, nil
}
