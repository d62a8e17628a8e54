package categorize

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAILabeler classifies transactions with a constrained-choice prompt
// against a Gemini model. One call per uncategorized transaction; the
// caller isolates failures so they never abort the surrounding write.
type GenAILabeler struct {
	client *genai.Client
	model  string
}

// NewGenAILabeler creates a labeler. Credentials come from the environment,
// same as the rest of the genai client configuration.
func NewGenAILabeler(ctx context.Context, model string) (*GenAILabeler, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAILabeler{client: client, model: model}, nil
}

// Label asks the model for exactly one category name from the closed list.
func (l *GenAILabeler) Label(ctx context.Context, description, counterparty, amount string) (string, error) {
	choices := strings.Join(Categories, ", ")
	prompt := "You are a strict transaction classifier. Reply with exactly one category name from this list and nothing else: " + choices + ".\n\n" +
		"Transaction\n" +
		"Counterparty: " + counterparty + "\n" +
		"Description: " + description + "\n" +
		"Amount: " + amount + "\n" +
		"Return one of: " + choices

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := l.client.Models.GenerateContent(ctx, l.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate classification: %w", err)
	}

	label := strings.TrimSpace(resp.Text())
	if label == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return label, nil
}
