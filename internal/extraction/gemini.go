package extraction

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.5-flash"

// GeminiBackend sends documents inline to the Gemini API with a response
// schema constraining the output to the statement contract.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

var _ Backend = (*GeminiBackend)(nil)

func newGeminiBackend(ctx context.Context, cfg Config) (Backend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("newGeminiBackend: create genai client: %w", err)
	}
	return &GeminiBackend{client: client, model: cfg.Model}, nil
}

func (g *GeminiBackend) GenerateStructured(ctx context.Context, data []byte, mimeType, prompt string, schema *genai.Schema) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     data,
					},
				},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("GenerateStructured: generate content: %w", err)
	}
	return resp.Text(), nil
}
