package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GoogleDefaultModel is used when no model is configured.
const GoogleDefaultModel = "gemini-2.0-flash"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleProvider implements CoreLLM against Google's Gemini API.
type googleProvider struct {
	client          *genai.Client
	model           string
	errorClassifier *ErrorClassifier
}

func newGoogleProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &googleProvider{
		client:          client,
		model:           model,
		errorClassifier: &ErrorClassifier{Provider: "google"},
	}, nil
}

// DoRequest sends a generate-content request and returns the extracted
// text with token usage.
func (p *googleProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	config := &genai.GenerateContentConfig{}
	if temp, ok := opts["temperature"].(float64); ok {
		config.Temperature = genai.Ptr(float32(temp))
	}
	if maxTokens, ok := opts["max_tokens"].(int); ok && maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	if seed, ok := opts["seed"].(int); ok {
		config.Seed = genai.Ptr(int32(seed))
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	text := extractText(googleResponse{resp: resp})
	if text == "" {
		return "", 0, 0, ErrEmptyResponse
	}

	tokensIn, tokensOut := p.tokenCounts(resp.UsageMetadata, prompt, text)
	return text, tokensIn, tokensOut, nil
}

// GetModel returns the configured Gemini model.
func (p *googleProvider) GetModel() string { return p.model }

func (p *googleProvider) tokenCounts(usage *genai.GenerateContentResponseUsageMetadata, prompt, text string) (int, int) {
	tokensIn := EstimateTokens(prompt)
	tokensOut := EstimateTokens(text)
	if usage != nil {
		if usage.PromptTokenCount > 0 {
			tokensIn = int(usage.PromptTokenCount)
		}
		if usage.CandidatesTokenCount > 0 {
			tokensOut = int(usage.CandidatesTokenCount)
		}
	}
	return tokensIn, tokensOut
}

func (p *googleProvider) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		return p.errorClassifier.ClassifyHTTPError(apiErr.Code, message, err)
	}

	return NewProviderError("google", ErrorTypeUnknown, 0, "request failed", err)
}

// googleResponse adapts a generate-content response to the extraction
// interface. The SDK's Text helper flattens the first candidate; the part
// list provides the ordered fragments when that is empty.
type googleResponse struct {
	resp *genai.GenerateContentResponse
}

func (r googleResponse) FlatText() (string, bool) {
	text := r.resp.Text()
	return text, text != ""
}

func (r googleResponse) Fragments() []string {
	var fragments []string
	for _, candidate := range r.resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				fragments = append(fragments, part.Text)
			}
		}
	}
	return fragments
}
