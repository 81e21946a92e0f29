package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-valence/internal/ports"
)

// CoreLLM is the minimal surface a provider must implement. Middleware
// wraps any conforming implementation to add retries, metrics, or tracing.
type CoreLLM interface {
	// DoRequest sends a prompt to the provider and returns the extracted
	// response text plus the input and output token counts.
	// The opts map carries provider-level parameters; callers treat it as
	// read-only, so middleware that rewrites options must copy it first.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the currently configured model name.
	GetModel() string
}

// Middleware wraps a CoreLLM to add cross-cutting behavior.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig holds the configuration for constructing a provider client.
// The credential is resolved once, before any item is processed, and never
// mutated afterwards.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model selects the model for all requests from this client.
	Model string

	// BaseURL overrides the provider's default endpoint when non-empty.
	BaseURL string

	// Timeout caps individual request duration. Zero means no timeout.
	Timeout time.Duration

	// Middleware is applied in order; the first entry is outermost.
	Middleware []Middleware
}

// providerFactory constructs a provider-specific CoreLLM.
type providerFactory func(config ClientConfig) (CoreLLM, error)

var providerFactories = map[string]providerFactory{}

// RegisterProviderFactory makes a provider constructible by name.
// Providers self-register from their init functions.
func RegisterProviderFactory(name string, factory providerFactory) {
	providerFactories[name] = factory
}

// Providers returns the names of all registered providers.
func Providers() []string {
	names := make([]string, 0, len(providerFactories))
	for name := range providerFactories {
		names = append(names, name)
	}
	return names
}

var _ ports.LLMClient = (*Client)(nil)

// Client implements ports.LLMClient by delegating to a middleware-wrapped
// provider core.
type Client struct {
	core CoreLLM
}

// NewClient creates a client for the named provider, composing the
// configured middleware chain around the provider core.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
	}

	// Apply middleware in reverse so the first entry is the outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core}, nil
}

// Complete sends a prompt and returns the response text, discarding
// token usage.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.core.DoRequest(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage sends a prompt and returns the response text along
// with the provider-reported token counts.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// GetModel returns the model identifier used by this client.
func (c *Client) GetModel() string { return c.core.GetModel() }
