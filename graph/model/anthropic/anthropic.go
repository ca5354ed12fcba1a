// Package anthropic adapts Anthropic's Claude API to the model.ChatModel
// interface.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/stategraph/graph/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "claude-sonnet-4-20250514"

// DefaultMaxTokens bounds the completion length.
const DefaultMaxTokens = 4096

// Client implements model.ChatModel over the official anthropic-sdk-go
// client. Safe for concurrent use after creation.
//
// Example:
//
//	chat := anthropic.New(os.Getenv("ANTHROPIC_API_KEY"), "")
//	out, err := chat.Chat(ctx, []model.Message{
//	    {Role: model.RoleUser, Content: "Summarize the incident."},
//	})
type Client struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// New creates a Claude-backed chat model. An empty modelName selects
// DefaultModel.
func New(apiKey, modelName string) *Client {
	if modelName == "" {
		modelName = DefaultModel
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		client:    &client,
		model:     modelName,
		maxTokens: DefaultMaxTokens,
	}
}

// Chat implements model.ChatModel.
//
// System messages map to the Messages API system parameter; the remaining
// turns flatten into a single user message, which matches how the workflow
// nodes phrase their prompts.
func (c *Client) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	system, prompt := model.SystemAndPrompt(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("anthropic chat: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return model.ChatOut{
		Text:      text,
		TokensIn:  int(message.Usage.InputTokens),
		TokensOut: int(message.Usage.OutputTokens),
	}, nil
}
