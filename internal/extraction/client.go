package extraction

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// Config holds what the client needs to reach the model backend. Zero
// values are legal at construction time; they surface as ErrNotConfigured
// when the client is first used.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string
	// Model overrides DefaultModelName when set.
	Model string
}

// Backend produces raw structured text for a document. Implementations
// must be safe for concurrent use.
type Backend interface {
	GenerateStructured(ctx context.Context, data []byte, mimeType, prompt string, schema *genai.Schema) (string, error)
}

// Client turns statement documents into validated extraction results.
//
// The backend is created lazily on first use so the application can boot
// and serve unrelated traffic without model credentials. A failed
// initialization is not cached; the next call tries again. The client
// itself never retries a model call, that is the orchestration layer's
// job.
type Client struct {
	cfg Config

	mu      sync.Mutex
	backend Backend

	// newBackend is swapped out in tests.
	newBackend func(ctx context.Context, cfg Config) (Backend, error)
}

// NewClient builds a client without touching the network. It never fails.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModelName
	}
	return &Client{
		cfg:        cfg,
		newBackend: newGeminiBackend,
	}
}

// Ready reports whether the client has the configuration it needs, without
// initializing the backend. Callers use it to fail fast before mutating
// any upload state.
func (c *Client) Ready() error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("%w: missing API key", ErrNotConfigured)
	}
	return nil
}

// Extract sends the document to the model and validates the response.
// Error kinds are distinguishable by the caller: ErrNotConfigured,
// ErrEmptyResponse, ErrUnusableResponse (both wrappable) and
// *ValidationError for contract violations.
func (c *Client) Extract(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}

	backend, err := c.getBackend(ctx)
	if err != nil {
		return nil, fmt.Errorf("Extract: initializing backend: %w", err)
	}

	text, err := backend.GenerateStructured(ctx, data, mimeType, Prompt, ResponseSchema())
	if err != nil {
		return nil, fmt.Errorf("Extract: generating content: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("Extract: %w", ErrEmptyResponse)
	}

	return Decode([]byte(cleanModelJSON(text)))
}

func (c *Client) getBackend(ctx context.Context) (Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend != nil {
		return c.backend, nil
	}
	b, err := c.newBackend(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	c.backend = b
	return b, nil
}

// cleanModelJSON strips markdown fences and stray prose around the JSON
// object. Models occasionally wrap output despite instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost object if junk survived the trims.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
