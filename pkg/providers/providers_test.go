package providers

import (
	"context"
	"testing"
)

func TestResolveParams(t *testing.T) {
	t.Run("environment fills unset values", func(t *testing.T) {
		t.Setenv("OPENAI_API_BASE_URL", "http://llm.local/v1/")
		t.Setenv("OPENAI_API_KEY", "sk-env")
		got := resolveParams(openAIEnv, nil)
		if got.BaseURL != "http://llm.local/v1/" || got.APIKey != "sk-env" {
			t.Errorf("resolveParams() = %+v", got)
		}
	})

	t.Run("options win over environment", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-env")
		got := resolveParams(openAIEnv, []ProviderOption{WithAPIKey("sk-opt"), WithBaseURL("http://opt/")})
		if got.BaseURL != "http://opt/" || got.APIKey != "sk-opt" {
			t.Errorf("resolveParams() = %+v", got)
		}
	})

	t.Run("default base URL", func(t *testing.T) {
		t.Setenv("OPENAI_API_BASE_URL", "")
		if got := resolveParams(openAIEnv, nil); got.BaseURL != DefaultOpenAIBaseURL {
			t.Errorf("BaseURL = %q, want %q", got.BaseURL, DefaultOpenAIBaseURL)
		}
	})
}

func TestGeminiRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	if _, err := Gemini(context.Background()); err == nil {
		t.Error("expected error without an API key")
	}
}
