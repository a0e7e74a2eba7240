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

// DefaultTimeout is generous because the first call after model load can
// spend minutes compiling shaders.
const DefaultTimeout = 300 * time.Second

// entitySchema constrains structured output to the envelope the
// interpreter expects. Backends that reject schema formats fall back to
// plain JSON mode.
var entitySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"entities": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"text": {"type": "string"},
					"type": {"type": "string"}
				},
				"required": ["text", "type"],
				"additionalProperties": true
			}
		}
	},
	"required": ["entities"],
	"additionalProperties": true
}`)

// OllamaClient drives a local Ollama server through /api/generate with
// streaming disabled, so each call yields one JSON payload.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaClient builds a client for the given model. An empty baseURL
// falls back to the OLLAMA_HOST environment or the local default.
func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	if baseURL == "" {
		baseURL = BaseURL()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Format  json.RawMessage `json:"format,omitempty"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	Seed        int     `json:"seed"`
	NumCtx      int     `json:"num_ctx"`
	NumPredict  int     `json:"num_predict"`
	TopP        float64 `json:"top_p"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// StatusError carries the backend's HTTP failure so the retry policy can
// distinguish transient server trouble from permanent rejection.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: ollama returned status %d: %s", e.Code, e.Body)
}

// Generate issues one completion. A structured-output request that the
// server rejects is retried once in plain JSON mode before failing.
func (c *OllamaClient) Generate(ctx context.Context, systemPrompt, userText string, opts Options) (string, error) {
	prompt := userText
	if systemPrompt != "" {
		prompt = fmt.Sprintf("<|system|>\n%s<|end|>\n<|user|>\nText:\n%s<|end|>\n<|assistant|>", systemPrompt, userText)
	}

	resp, err := c.request(ctx, prompt, entitySchema, opts)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && schemaFallbackAllowed(se) {
			return c.request(ctx, prompt, json.RawMessage(`"json"`), opts)
		}
		return "", err
	}
	return resp, nil
}

func (c *OllamaClient) request(ctx context.Context, prompt string, format json.RawMessage, opts Options) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Format: format,
		Stream: false,
		Options: generateOptions{
			Temperature: max(opts.Temperature, 0.1),
			Seed:        opts.Seed,
			NumCtx:      12288,
			NumPredict:  4096,
			TopP:        0.9,
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	return payload.Response, nil
}

// schemaFallbackAllowed matches the narrow class of rejections that mean
// "this server does not speak schema format" rather than a real error.
func schemaFallbackAllowed(se *StatusError) bool {
	switch se.Code {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
	default:
		return false
	}
	body := strings.ToLower(se.Body)
	return strings.Contains(body, "format") || strings.Contains(body, "schema") ||
		strings.Contains(body, "unsupported")
}
