package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kyleking/askdb/internal/errors"
)

// OllamaProvider generates embeddings with a model served by Ollama
type OllamaProvider struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// NewOllamaProvider creates a provider calling baseURL/api/embeddings
func NewOllamaProvider(baseURL, model string, dimensions int, timeout time.Duration) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GenerateEmbedding generates an embedding for the given text
func (p *OllamaProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	jsonBody, err := json.Marshal(ollamaEmbeddingRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/api/embeddings"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeNetwork, "failed to reach embedding service at %s", p.baseURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeNetwork, "failed to read embedding response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrTypeEmbedding, "embedding request failed with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response ollamaEmbeddingResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to parse embedding response")
	}

	if response.Error != "" {
		return nil, errors.Newf(errors.ErrTypeEmbedding, "embedding service error: %s", response.Error)
	}

	vec := make([]float32, len(response.Embedding))
	for i, v := range response.Embedding {
		vec[i] = float32(v)
	}

	if err := checkDimensions(p, vec); err != nil {
		return nil, err
	}

	return vec, nil
}

func (p *OllamaProvider) GetDimensions() int {
	return p.dimensions
}

func (p *OllamaProvider) IsEnabled() bool {
	return p.model != "" && p.dimensions > 0
}

func (p *OllamaProvider) GetName() string {
	return "ollama:" + p.model
}
