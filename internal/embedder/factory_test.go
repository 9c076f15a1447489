package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		openaiKey string
		jinaKey   string
		want      string
	}{
		{name: "explicit provider wins", provider: "Jina", openaiKey: "sk", want: ProviderJina},
		{name: "openai key", openaiKey: "sk", jinaKey: "jina", want: ProviderOpenAI},
		{name: "jina key", jinaKey: "jina", want: ProviderJina},
		{name: "nothing configured", want: ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvProvider, tt.provider)
			t.Setenv(EnvOpenAIAPIKey, tt.openaiKey)
			t.Setenv(EnvJinaAPIKey, tt.jinaKey)

			if got := DetectProvider(); got != tt.want {
				t.Errorf("DetectProvider() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("local provider", func(t *testing.T) {
		e, err := New(Config{Provider: ProviderLocal, CacheSize: 10})
		require.NoError(t, err)
		defer e.Close()

		assert.Equal(t, ProviderLocal, e.Provider())
		vectors, err := e.Embed(context.Background(), []string{"hello world"})
		require.NoError(t, err)
		assert.Len(t, vectors[0], LocalDimension)
	})

	t.Run("openai with explicit key", func(t *testing.T) {
		e, err := New(Config{Provider: "OpenAI", APIKey: "sk-test", Model: "custom-model"})
		require.NoError(t, err)
		assert.Equal(t, ProviderOpenAI, e.Provider())
		assert.Equal(t, "custom-model", e.Model())
	})

	t.Run("resolver satisfies key requirement", func(t *testing.T) {
		t.Setenv(EnvJinaAPIKey, "")
		e, err := New(Config{Provider: ProviderJina, Keys: StaticKey("k")})
		require.NoError(t, err)
		assert.Equal(t, ProviderJina, e.Provider())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "cohere"})
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})

	t.Run("missing key", func(t *testing.T) {
		t.Setenv(EnvOpenAIAPIKey, "")
		_, err := New(Config{Provider: ProviderOpenAI})
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvOpenAIAPIKey, "")
	t.Setenv(EnvJinaAPIKey, "")

	e, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, e.Provider())
}
