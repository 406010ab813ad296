package types

import "fmt"

// ThoughtInputBuilder provides a fluent API for constructing ThoughtInput
// values, mainly useful from tests.
type ThoughtInputBuilder struct {
	input *ThoughtInput
}

// NewThoughtInput creates a new ThoughtInputBuilder with sensible defaults.
func NewThoughtInput() *ThoughtInputBuilder {
	return &ThoughtInputBuilder{
		input: &ThoughtInput{
			NextThoughtNeeded: true,
			Mode:              ModeExpert,
			Confidence:        0.8,
		},
	}
}

// Text sets the thought text.
func (b *ThoughtInputBuilder) Text(text string) *ThoughtInputBuilder {
	b.input.Text = text
	return b
}

// Mode sets the thinking mode.
func (b *ThoughtInputBuilder) Mode(mode ThinkingMode) *ThoughtInputBuilder {
	b.input.Mode = mode
	return b
}

// Number sets thought_number and total_thoughts.
func (b *ThoughtInputBuilder) Number(thoughtNumber, totalThoughts int) *ThoughtInputBuilder {
	b.input.ThoughtNumber = thoughtNumber
	b.input.TotalThoughts = totalThoughts
	return b
}

// Session sets the session ID.
func (b *ThoughtInputBuilder) Session(sessionID string) *ThoughtInputBuilder {
	b.input.SessionID = sessionID
	return b
}

// InBranch sets the branch ID.
func (b *ThoughtInputBuilder) InBranch(branchID string) *ThoughtInputBuilder {
	b.input.BranchID = branchID
	return b
}

// BranchFrom sets branch_from_thought.
func (b *ThoughtInputBuilder) BranchFrom(thoughtNumber int) *ThoughtInputBuilder {
	b.input.BranchFromThought = thoughtNumber
	return b
}

// Evaluate sets evaluation_score.
func (b *ThoughtInputBuilder) Evaluate(score float64) *ThoughtInputBuilder {
	b.input.EvaluationScore = &score
	return b
}

// Confidence sets the confidence level (overrides the default). Values
// <= 0 are ignored and leave the current confidence unchanged.
func (b *ThoughtInputBuilder) Confidence(confidence float64) *ThoughtInputBuilder {
	if confidence > 0 {
		b.input.Confidence = confidence
	}
	return b
}

// WithTags adds tags.
func (b *ThoughtInputBuilder) WithTags(tags ...string) *ThoughtInputBuilder {
	b.input.Tags = append(b.input.Tags, tags...)
	return b
}

// Build returns the constructed input.
func (b *ThoughtInputBuilder) Build() *ThoughtInput {
	return b.input
}

// Validate ensures the input meets minimum structural requirements before
// it reaches the validator proper (C7's size/charset checks are separate).
func (b *ThoughtInputBuilder) Validate() error {
	if b.input.Text == "" {
		return fmt.Errorf("thought text cannot be empty")
	}
	if b.input.Confidence < 0 || b.input.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1")
	}
	return nil
}
