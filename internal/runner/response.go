package runner

import (
	"context"
	"time"

	"github.com/ahrav/go-valence/internal/domain"
	"github.com/ahrav/go-valence/internal/ports"
)

// ResponseProcessor turns one prompt item into an OutputRecord by calling
// the model under evaluation.
type ResponseProcessor struct {
	client      ports.LLMClient
	temperature float64
	seed        *int
	now         func() time.Time
}

// NewResponseProcessor creates a processor calling client with the given
// sampling parameters. A nil seed omits the parameter entirely.
func NewResponseProcessor(client ports.LLMClient, temperature float64, seed *int) *ResponseProcessor {
	return &ResponseProcessor{
		client:      client,
		temperature: temperature,
		seed:        seed,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Process sends the prompt to the model and wraps the response text,
// token usage, and the prompt's classification into an OutputRecord.
func (p *ResponseProcessor) Process(ctx context.Context, item domain.PromptItem) (domain.OutputRecord, error) {
	opts := map[string]any{"temperature": p.temperature}
	if p.seed != nil {
		opts["seed"] = *p.seed
	}

	text, tokensIn, tokensOut, err := p.client.CompleteWithUsage(ctx, item.Prompt, opts)
	if err != nil {
		return domain.OutputRecord{}, err
	}

	record := domain.OutputRecord{
		PromptID:     item.ID,
		Model:        p.client.GetModel(),
		Timestamp:    p.now(),
		Prompt:       item.Prompt,
		ResponseText: text,
		Meta: domain.RecordMeta{
			Category:         item.Category,
			RiskLevel:        item.RiskLevel,
			AmbiguityLevel:   item.AmbiguityLevel,
			ExpectedBehavior: item.ExpectedBehavior,
		},
	}
	if tokensIn > 0 || tokensOut > 0 {
		record.Usage = &domain.Usage{
			InputTokens:  tokensIn,
			OutputTokens: tokensOut,
			TotalTokens:  tokensIn + tokensOut,
		}
	}

	return record, nil
}
