package llm

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic provider constants.
const (
	// AnthropicDefaultModel is used when no model is configured.
	AnthropicDefaultModel = "claude-3-5-sonnet-20241022"
	// anthropicDefaultMaxTokens bounds responses when the caller does not
	// set max_tokens; the Anthropic API requires an explicit limit.
	anthropicDefaultMaxTokens = 1024
)

func init() {
	RegisterProviderFactory("anthropic", newAnthropicProvider)
}

// anthropicProvider implements CoreLLM against Anthropic's Messages API.
// Claude responses arrive as an ordered list of content blocks, which
// exercises the fragment-concatenation path of text extraction.
type anthropicProvider struct {
	client          anthropic.Client
	model           string
	errorClassifier *ErrorClassifier
}

func newAnthropicProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &anthropicProvider{
		client:          anthropic.NewClient(opts...),
		model:           model,
		errorClassifier: &ErrorClassifier{Provider: "anthropic"},
	}, nil
}

// DoRequest sends a messages request and returns the concatenated text
// content with token usage.
func (p *anthropicProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	maxTokens := anthropicDefaultMaxTokens
	if mt, ok := opts["max_tokens"].(int); ok && mt > 0 {
		maxTokens = mt
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if temp, ok := opts["temperature"].(float64); ok {
		params.Temperature = anthropic.Float(temp)
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	text := extractText(anthropicResponse{message: message})
	if text == "" {
		return "", 0, 0, ErrEmptyResponse
	}

	tokensIn := int(message.Usage.InputTokens)
	if tokensIn == 0 {
		tokensIn = EstimateTokens(prompt)
	}
	tokensOut := int(message.Usage.OutputTokens)
	if tokensOut == 0 {
		tokensOut = EstimateTokens(text)
	}

	return text, tokensIn, tokensOut, nil
}

// GetModel returns the configured Anthropic model.
func (p *anthropicProvider) GetModel() string { return p.model }

func (p *anthropicProvider) handleError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return p.errorClassifier.ClassifyHTTPError(apiErr.StatusCode, apiErr.Error(), err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}
	return NewProviderError("anthropic", ErrorTypeUnknown, 0, "request failed", err)
}

// anthropicResponse adapts a message to the extraction interface.
// There is no flattened field; the text lives in ordered content blocks.
type anthropicResponse struct {
	message *anthropic.Message
}

func (r anthropicResponse) FlatText() (string, bool) { return "", false }

func (r anthropicResponse) Fragments() []string {
	var fragments []string
	for _, block := range r.message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			fragments = append(fragments, content.Text)
		}
	}
	return fragments
}
