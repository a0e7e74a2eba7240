// Package llm talks to a local model backend for entity extraction. The
// backend is collaborative but untrusted: responses are treated as
// suggestions to be parsed defensively, and the backend being down
// degrades the pipeline rather than failing it.
package llm

import (
	"context"
	"errors"
	"os"
	"strings"
)

// DefaultSystemPrompt steers the extraction toward redactable entities
// and away from drafting boilerplate.
const DefaultSystemPrompt = `Extract entities for legal document redaction. Output JSON only.

Types:
- NAME: People (e.g., "John Smith", "Dr. Jane Doe"). NOT roles like "Company", "Board".
- ORG: Companies with designators (Inc, LLC, Corp, Ltd). NOT "Purchaser", "Seller", "Party".
- LOC: Places (e.g., "Delaware", "123 Main St, NY"). NOT "the State", "Section".

Rules:
- Output exact text from document
- No boilerplate: Agreement, Section, Exhibit, Article, Bylaws, Charter, DGCL, Board, Stockholder(s)
- Prefer full names over fragments

Format: {"entities": [{"text": "...", "type": "NAME|ORG|LOC"}]}
`

// EnvSystemPromptPath optionally points at a file replacing the default
// extraction prompt.
const EnvSystemPromptPath = "MARCUT_SYSTEM_PROMPT_PATH"

// EnvOllamaHost overrides the Ollama address, with or without a scheme.
const EnvOllamaHost = "OLLAMA_HOST"

// ErrBackendUnavailable reports that the backend could not produce a
// usable response within the retry budget. The pipeline treats it as a
// signal to fall back to rules-only output.
var ErrBackendUnavailable = errors.New("llm: backend unavailable")

// Options tune a single generation call. Zero temperature is clamped to
// a small positive value by backends that reject zero.
type Options struct {
	Temperature float64
	Seed        int
}

// Client generates a raw model response for one prompt pair. An empty
// system prompt means userText is already a fully formed prompt.
type Client interface {
	Generate(ctx context.Context, systemPrompt, userText string, opts Options) (string, error)
}

// SystemPrompt returns the extraction prompt, honoring the file override
// when it is set and readable.
func SystemPrompt() string {
	if path := os.Getenv(EnvSystemPromptPath); path != "" {
		if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
			return string(data)
		}
	}
	return DefaultSystemPrompt
}

// BaseURL normalizes the configured Ollama host to a scheme-qualified
// base URL without a trailing slash.
func BaseURL() string {
	host := strings.TrimSpace(os.Getenv(EnvOllamaHost))
	if host == "" {
		host = "127.0.0.1:11434"
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/")
}
