// Package model defines the chat-model abstraction workflow nodes call into,
// with adapters for Anthropic, OpenAI, and Google in subpackages.
package model

import "context"

// Role identifies who authored a chat message.
type Role string

const (
	// RoleSystem carries instructions that frame the whole conversation.
	RoleSystem Role = "system"

	// RoleUser carries the caller's turn.
	RoleUser Role = "user"

	// RoleAssistant carries a prior model turn, for multi-turn context.
	RoleAssistant Role = "assistant"
)

// Message is one turn in a chat conversation.
type Message struct {
	Role    Role
	Content string
}

// ChatOut is the result of one chat completion.
type ChatOut struct {
	// Text is the model's response with all text parts concatenated.
	Text string

	// TokensIn and TokensOut report token usage when the provider supplies
	// it, zero otherwise.
	TokensIn  int
	TokensOut int
}

// ChatModel is a provider-neutral chat completion interface.
//
// Implementations must be safe for concurrent use; a compiled workflow plan
// shared across runs will call the same model from every run. Blocking calls
// honor context cancellation and deadlines.
//
// Adapters for real providers live in the anthropic, openai, and google
// subpackages; MockChatModel serves tests.
type ChatModel interface {
	// Chat sends the conversation and returns the model's completion.
	Chat(ctx context.Context, messages []Message) (ChatOut, error)
}

// SystemAndPrompt splits a conversation into its system instruction and the
// remaining turns flattened into one prompt string. Providers that take the
// system instruction out of band (Anthropic, Google) share this shape.
func SystemAndPrompt(messages []Message) (system, prompt string) {
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += msg.Content
		default:
			if prompt != "" {
				prompt += "\n"
			}
			prompt += msg.Content
		}
	}
	return system, prompt
}
