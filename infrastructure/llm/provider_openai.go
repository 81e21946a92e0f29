package llm

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIDefaultModel is used when no model is configured.
const OpenAIDefaultModel = "gpt-4o-mini"

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
}

// openAIProvider implements CoreLLM against OpenAI's chat completion API.
type openAIProvider struct {
	client          *openai.Client
	model           string
	errorClassifier *ErrorClassifier
}

func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &openAIProvider{
		client:          openai.NewClientWithConfig(clientConfig),
		model:           model,
		errorClassifier: &ErrorClassifier{Provider: "openai"},
	}, nil
}

// DoRequest sends a chat completion request and returns the extracted
// response text with token usage.
func (p *openAIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	if temp, ok := opts["temperature"].(float64); ok {
		req.Temperature = float32(temp)
		// The zero value means "unset" to the SDK; nudge exact zero so the
		// parameter is still sent.
		if req.Temperature == 0 {
			req.Temperature = 1e-5
		}
	}
	if seed, ok := opts["seed"].(int); ok {
		req.Seed = &seed
	}
	if maxTokens, ok := opts["max_tokens"].(int); ok && maxTokens > 0 {
		req.MaxTokens = maxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	text := extractText(openAIResponse{resp: resp})
	if text == "" {
		return "", 0, 0, ErrEmptyResponse
	}

	tokensIn := resp.Usage.PromptTokens
	if tokensIn == 0 {
		tokensIn = EstimateTokens(prompt)
	}
	tokensOut := resp.Usage.CompletionTokens
	if tokensOut == 0 {
		tokensOut = EstimateTokens(text)
	}

	return text, tokensIn, tokensOut, nil
}

// GetModel returns the configured OpenAI model.
func (p *openAIProvider) GetModel() string { return p.model }

func (p *openAIProvider) handleError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return p.errorClassifier.ClassifyHTTPError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode > 0 {
			return p.errorClassifier.ClassifyHTTPError(reqErr.HTTPStatusCode, reqErr.Error(), err)
		}
		return NewProviderError("openai", ErrorTypeNetwork, 0, "request transport failed", err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}
	return NewProviderError("openai", ErrorTypeUnknown, 0, "request failed", err)
}

// openAIResponse adapts a chat completion response to the extraction
// interface. The API returns a flat message per choice; the first choice
// is the flattened text, additional choices are ordered fragments.
type openAIResponse struct {
	resp openai.ChatCompletionResponse
}

func (r openAIResponse) FlatText() (string, bool) {
	if len(r.resp.Choices) == 1 {
		return r.resp.Choices[0].Message.Content, true
	}
	return "", false
}

func (r openAIResponse) Fragments() []string {
	fragments := make([]string, 0, len(r.resp.Choices))
	for _, choice := range r.resp.Choices {
		fragments = append(fragments, choice.Message.Content)
	}
	return fragments
}
