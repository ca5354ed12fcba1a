// Package google adapts Google's Gemini API to the model.ChatModel interface.
package google

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/stategraph/graph/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "gemini-1.5-flash"

// Client implements model.ChatModel over the official generative-ai-go
// client. Safe for concurrent use after creation. Call Close when the client
// is no longer needed.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a Gemini-backed chat model. An empty modelName selects
// DefaultModel.
func New(ctx context.Context, apiKey, modelName string) (*Client, error) {
	if modelName == "" {
		modelName = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{
		client: client,
		model:  modelName,
	}, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Chat implements model.ChatModel.
//
// System messages map to the model's system instruction; remaining turns
// flatten into one prompt.
func (c *Client) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	system, prompt := model.SystemAndPrompt(messages)

	gm := c.client.GenerativeModel(c.model)
	if system != "" {
		gm.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("gemini chat: %w", err)
	}

	var text string
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}

	out := model.ChatOut{Text: text}
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}
