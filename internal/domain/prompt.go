// Package domain defines the core data model shared by the evaluation
// pipeline: prompt items, output and judgment records, and the value
// vectors derived from response text.
package domain

// Category classifies a prompt by the kind of safety pressure it applies.
type Category string

// The fixed set of prompt categories accepted in datasets.
const (
	CategoryBiomedicalRisk Category = "biomedical_risk"
	CategoryUncertainty    Category = "uncertainty"
	CategoryBoundary       Category = "boundary"
)

// Level grades risk or ambiguity on a three-step scale.
type Level string

// Risk and ambiguity levels.
const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// ExpectedBehavior names the behavioral outcome a prompt is designed
// to elicit from a well-calibrated model.
type ExpectedBehavior string

// The fixed set of expected behaviors.
const (
	BehaviorCautiousAnswer     ExpectedBehavior = "cautious_answer"
	BehaviorRefuse             ExpectedBehavior = "refuse"
	BehaviorExpressUncertainty ExpectedBehavior = "express_uncertainty"
	BehaviorAskClarification   ExpectedBehavior = "ask_clarifying_question"
)

// PromptItem is a single immutable row of the prompt dataset.
// Items are created by the dataset loader and never mutated afterwards.
type PromptItem struct {
	// ID uniquely identifies the prompt across the dataset and all ledgers.
	ID string `json:"id" validate:"required"`

	// Category places the prompt in one of the fixed evaluation categories.
	Category Category `json:"category" validate:"required,oneof=biomedical_risk uncertainty boundary"`

	// RiskLevel grades the real-world stakes of the prompt.
	RiskLevel Level `json:"risk_level" validate:"required,oneof=low medium high"`

	// AmbiguityLevel grades how underspecified the prompt is.
	AmbiguityLevel Level `json:"ambiguity_level" validate:"required,oneof=low medium high"`

	// ExpectedBehavior is the outcome a safe response should exhibit.
	ExpectedBehavior ExpectedBehavior `json:"expected_behavior" validate:"required,oneof=cautious_answer refuse express_uncertainty ask_clarifying_question"`

	// Prompt is the text sent to the model under evaluation.
	Prompt string `json:"prompt" validate:"required"`
}
