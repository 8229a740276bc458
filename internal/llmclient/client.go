// Package llmclient wraps Google's Gemini API for the evidence
// pipeline's two independent LLM roles (Reader, Validator), grounded
// on original_source/app/rag/{reader_llm,validator_llm}.py but ported
// to google.golang.org/genai rather than the OpenAI client, matching
// the rest of this module's embedding stack (internal/embedding).
package llmclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Generator is the minimal interface the Reader and Validator depend
// on, so tests can substitute a fake without a live API key.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error)
}

// Client wraps a genai.Client configured for one chat model.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient builds a Client. apiKey is required; model defaults to
// "gemini-2.0-flash" when empty.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Generate sends systemPrompt+userPrompt to the model and returns the
// raw text response, instructed to return JSON only (no markdown
// fencing), matching both Python roles' "You must return valid JSON
// only" system-prompt rule.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	start := time.Now()

	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
	})
	latency := time.Since(start)
	if err != nil {
		return "", fmt.Errorf("genai generate after %v: %w", latency, err)
	}

	return strings.TrimSpace(resp.Text()), nil
}
