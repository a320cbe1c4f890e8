package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
)

func TestClient_Configure(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantErr  bool
		wantBase string
	}{
		{
			name:     "valid OpenAI config",
			config:   Config{Provider: ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "test-key"},
			wantBase: DefaultOpenAIURL,
		},
		{
			name:     "valid Anthropic config",
			config:   Config{Provider: ProviderAnthropic, Model: "claude-3-haiku", APIKey: "test-key"},
			wantBase: DefaultAnthropicURL,
		},
		{
			name:     "valid Ollama config",
			config:   Config{Provider: ProviderOllama, Model: "llama3"},
			wantBase: DefaultOllamaURL,
		},
		{
			name:     "trailing slash trimmed",
			config:   Config{Provider: ProviderOllama, Model: "llama3", BaseURL: "http://gpu-box:11434/"},
			wantBase: "http://gpu-box:11434",
		},
		{
			name:    "missing provider",
			config:  Config{Model: "llama3"},
			wantErr: true,
		},
		{
			name:    "missing model",
			config:  Config{Provider: ProviderOpenAI, APIKey: "test-key"},
			wantErr: true,
		},
		{
			name:    "missing API key for OpenAI",
			config:  Config{Provider: ProviderOpenAI, Model: "gpt-4o-mini"},
			wantErr: true,
		},
		{
			name:    "unsupported provider",
			config:  Config{Provider: "unsupported", Model: "test-model"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, client.Config().BaseURL)
			assert.Equal(t, DefaultMaxTokens, client.Config().MaxTokens)
			assert.Equal(t, DefaultTimeout, client.Config().Timeout)
		})
	}
}

func TestClient_CompleteOllama(t *testing.T) {
	var got ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "```sql\nSELECT 1\n```", Done: true})
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Provider:    ProviderOllama,
		Model:       "llama3",
		BaseURL:     server.URL,
		Temperature: DefaultTemperature,
	})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "How many tickers?", "Return SQL only.")
	require.NoError(t, err)

	assert.Equal(t, "```sql\nSELECT 1\n```", text)
	assert.Equal(t, "llama3", got.Model)
	assert.Equal(t, "How many tickers?", got.Prompt)
	assert.Equal(t, "Return SQL only.", got.System)
	assert.False(t, got.Stream)
	assert.InDelta(t, 0.1, got.Options.Temperature, 1e-9)
	assert.Equal(t, DefaultMaxTokens, got.Options.NumPredict)
}

func TestClient_CompleteOpenAI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		_ = json.NewEncoder(w).Encode(openAIResponse{
			Choices: []openAIChoice{{Message: openAIMessage{Role: "assistant", Content: "SELECT 2"}}},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "question", "system")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", text)
}

func TestClient_CompleteAnthropic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "system", req.System)

		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "SELECT 3"}},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: ProviderAnthropic, Model: "claude-3-haiku", APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "question", "system")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 3", text)
}

func TestClient_CompleteFailures(t *testing.T) {
	t.Run("non-2xx status is a connectivity error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client, err := NewClient(Config{Provider: ProviderOllama, Model: "llama3", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), "q", "")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeConnectivity))
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("unreachable endpoint is a connectivity error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := server.URL
		server.Close()

		client, err := NewClient(Config{Provider: ProviderOllama, Model: "llama3", BaseURL: url})
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), "q", "")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeConnectivity))
		assert.NotEmpty(t, errors.Suggestions(err))
	})

	t.Run("malformed body is a completion error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		client, err := NewClient(Config{Provider: ProviderOllama, Model: "llama3", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), "q", "")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeCompletion))
		assert.False(t, errors.IsType(err, errors.ErrTypeConnectivity))
	})

	t.Run("empty choices is a completion error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer server.Close()

		client, err := NewClient(Config{Provider: ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "k", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), "q", "")
		assert.True(t, errors.IsType(err, errors.ErrTypeCompletion))
	})
}

func TestClient_NoRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: ProviderOllama, Model: "llama3", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "q", "")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: ProviderOllama, Model: "llama3", BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestConfigFromApp(t *testing.T) {
	cfg := ConfigFromApp(config.DefaultConfig())

	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "llama3", cfg.Model)
	assert.InDelta(t, DefaultTemperature, cfg.Temperature, 1e-9)
	assert.Equal(t, DefaultMaxTokens, cfg.MaxTokens)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)

	client, err := NewClient(cfg)
	require.NoError(t, err)

	var _ Service = client
}
