package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kyleking/askdb/internal/errors"
)

// Default endpoints per provider
const (
	DefaultOllamaURL    = "http://localhost:11434"
	DefaultOpenAIURL    = "https://api.openai.com/v1"
	DefaultAnthropicURL = "https://api.anthropic.com/v1"

	anthropicVersion = "2023-06-01"
)

// Client implements the Service interface with multiple provider support
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a configured completion client
func NewClient(config Config) (*Client, error) {
	c := &Client{httpClient: &http.Client{}}
	if err := c.Configure(config); err != nil {
		return nil, err
	}

	return c, nil
}

// Configure validates and applies a new configuration
func (c *Client) Configure(config Config) error {
	if config.Provider == "" {
		return errors.NewConfigError("provider is required", "llm.provider")
	}

	if config.Model == "" {
		return errors.NewConfigError("model is required", "llm.model")
	}

	switch config.Provider {
	case ProviderOpenAI:
		if config.APIKey == "" {
			return errors.NewConfigError("API key is required for OpenAI provider", "llm.api_key")
		}
		if config.BaseURL == "" {
			config.BaseURL = DefaultOpenAIURL
		}
	case ProviderAnthropic:
		if config.APIKey == "" {
			return errors.NewConfigError("API key is required for Anthropic provider", "llm.api_key")
		}
		if config.BaseURL == "" {
			config.BaseURL = DefaultAnthropicURL
		}
	case ProviderOllama:
		if config.BaseURL == "" {
			config.BaseURL = DefaultOllamaURL
		}
	default:
		return errors.NewConfigError(fmt.Sprintf("unsupported provider: %s", config.Provider), "llm.provider")
	}

	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	c.config = config
	c.httpClient.Timeout = config.Timeout

	return nil
}

// Config returns the active configuration with defaults applied
func (c *Client) Config() Config {
	return c.config
}

// Complete sends one prompt to the configured provider and returns the raw text
func (c *Client) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	switch c.config.Provider {
	case ProviderOpenAI:
		return c.completeOpenAI(ctx, prompt, systemPrompt)
	case ProviderAnthropic:
		return c.completeAnthropic(ctx, prompt, systemPrompt)
	case ProviderOllama:
		return c.completeOllama(ctx, prompt, systemPrompt)
	default:
		return "", errors.New(errors.ErrTypeConfig, "completion client not configured")
	}
}

// Ping checks that the provider endpoint answers
func (c *Client) Ping(ctx context.Context) error {
	var path string
	switch c.config.Provider {
	case ProviderOllama:
		path = "/api/tags"
	case ProviderOpenAI, ProviderAnthropic:
		path = "/models"
	default:
		return errors.New(errors.ErrTypeConfig, "completion client not configured")
	}

	_, err := c.do(ctx, http.MethodGet, path, nil)

	return err
}

// Ollama API structures
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (c *Client) completeOllama(ctx context.Context, prompt, systemPrompt string) (string, error) {
	reqBody := ollamaRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		System: systemPrompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: c.config.Temperature,
			NumPredict:  c.config.MaxTokens,
		},
	}

	respBody, err := c.makeRequest(ctx, "/api/generate", reqBody)
	if err != nil {
		return "", err
	}

	var response ollamaResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeCompletion, "failed to parse Ollama response")
	}

	if response.Error != "" {
		return "", errors.Newf(errors.ErrTypeCompletion, "Ollama error: %s", response.Error)
	}

	return response.Response, nil
}

// OpenAI API structures
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (c *Client) completeOpenAI(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := make([]openAIMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: prompt})

	reqBody := openAIRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}

	respBody, err := c.makeRequest(ctx, "/chat/completions", reqBody)
	if err != nil {
		return "", err
	}

	var response openAIResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeCompletion, "failed to parse OpenAI response")
	}

	if response.Error != nil {
		return "", errors.Newf(errors.ErrTypeCompletion, "OpenAI API error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return "", errors.New(errors.ErrTypeCompletion, "no response from OpenAI")
	}

	return response.Choices[0].Message.Content, nil
}

// Anthropic API structures
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (c *Client) completeAnthropic(ctx context.Context, prompt, systemPrompt string) (string, error) {
	reqBody := anthropicRequest{
		Model:       c.config.Model,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
		System:      systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	respBody, err := c.makeRequest(ctx, "/messages", reqBody)
	if err != nil {
		return "", err
	}

	var response anthropicResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeCompletion, "failed to parse Anthropic response")
	}

	if response.Error != nil {
		return "", errors.Newf(errors.ErrTypeCompletion, "Anthropic API error: %s", response.Error.Message)
	}

	if len(response.Content) == 0 {
		return "", errors.New(errors.ErrTypeCompletion, "no response from Anthropic")
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return text.String(), nil
}

// makeRequest POSTs a JSON body to the provider
func (c *Client) makeRequest(ctx context.Context, endpoint string, reqBody interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to marshal request")
	}

	return c.do(ctx, http.MethodPost, endpoint, jsonBody)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	target := c.config.BaseURL + endpoint

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	switch c.config.Provider {
	case ProviderOpenAI:
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	case ProviderAnthropic:
		req.Header.Set("x-api-key", c.config.APIKey)
		req.Header.Set("anthropic-version", anthropicVersion)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewConnectivityError(target, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewConnectivityError(target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		return nil, errors.NewConnectivityError(target, cause)
	}

	return respBody, nil
}
