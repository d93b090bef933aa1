// Package llm talks to the local Ollama inference endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrModelUnavailable marks a failed inference call: the endpoint was
// unreachable, answered non-2xx, or returned a payload without a reply
// field. The turn that hit it cannot proceed; there is nothing to speak
// or persist without a reply.
var ErrModelUnavailable = errors.New("model unavailable")

// OllamaClient handles communication with the Ollama API for local LLM
// inference. All calls go through a circuit breaker so a downed endpoint
// fails fast instead of stalling every turn on a full timeout.
type OllamaClient struct {
	baseURL        string
	client         *http.Client
	circuitBreaker *CircuitBreaker
	model          string
	timeout        time.Duration
}

// OllamaConfig holds Ollama client configuration.
type OllamaConfig struct {
	// BaseURL is the base URL for the Ollama API (default: http://localhost:11434)
	BaseURL string

	// Model is the model name to use for completions (default: llama3)
	Model string

	// Timeout is the request timeout duration (default: 120s)
	Timeout time.Duration
}

// generateRequest is the request body for the /api/generate endpoint.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the response from /api/generate. Response is a pointer
// so that a body missing the field is distinguishable from an empty reply.
type generateResponse struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// NewOllamaClient creates a new Ollama client with the given configuration.
func NewOllamaClient(config OllamaConfig) *OllamaClient {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "llama3"
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}

	return &OllamaClient{
		baseURL: config.BaseURL,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		circuitBreaker: NewCircuitBreaker(),
		model:          config.Model,
		timeout:        config.Timeout,
	}
}

// Complete sends the composed prompt to Ollama and returns the trimmed
// reply text. A single attempt is made per call; any failure is reported
// as ErrModelUnavailable and ends the turn.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (string, error) {
		return c.complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return "", fmt.Errorf("%w: circuit breaker open", ErrModelUnavailable)
		}
		return "", err
	}
	return result, nil
}

// GetModel returns the configured model name.
func (c *OllamaClient) GetModel() string {
	return c.model
}

func (c *OllamaClient) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false, // a single complete reply, never incremental tokens
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: ollama returned status %d: %s",
			ErrModelUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var respData generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrModelUnavailable, err)
	}
	if respData.Response == nil {
		return "", fmt.Errorf("%w: response field missing from payload", ErrModelUnavailable)
	}

	return strings.TrimSpace(*respData.Response), nil
}
