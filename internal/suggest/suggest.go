// Package suggest generates goal ideas for board tiles with Gemini.
// It is optional; the server runs without it.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

const (
	defaultRegion = "us-central1"
	defaultModel  = "gemini-2.5-flash"
)

const suggestPrompt = `Suggest %d short real-life goals a couple could put on a shared goal-tracking bingo board.

Rules:
- Each goal is one sentence of at most eight words, imperative mood ("Cook a new recipe together").
- Goals must be concrete and achievable within a few months.
- No duplicates, no numbering.
- Respond ONLY with a JSON array of strings, no commentary or markdown.`

// Client wraps the Google GenAI client for Vertex AI.
type Client struct {
	client    *genai.Client
	modelName string
}

// NewClient creates a client using Application Default Credentials.
func NewClient(ctx context.Context, projectID, region string) (*Client, error) {
	if region == "" {
		region = defaultRegion
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{client: client, modelName: defaultModel}, nil
}

// Suggest asks the model for n goal texts.
func (c *Client) Suggest(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		n = 5
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.modelName,
		[]*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: fmt.Sprintf(suggestPrompt, n)}},
		}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.9)),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return ParseSuggestions([]byte(resp.Text()), n)
}

// ParseSuggestions decodes the model's JSON array, trimming it to at
// most n entries and rejecting empty output.
func ParseSuggestions(data []byte, n int) ([]string, error) {
	var goals []string
	if err := json.Unmarshal(data, &goals); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w\nraw response: %s", err, data)
	}
	out := goals[:0]
	for _, g := range goals {
		if g != "" {
			out = append(out, g)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty suggestion response")
	}
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
