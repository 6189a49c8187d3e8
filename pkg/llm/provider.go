// Package llm defines the chat-completion provider contract used by the
// authoring agent.
package llm

import "context"

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    MessageRole
	Content string
}

// ResponseFormat requests a strict JSON-schema constrained response.
type ResponseFormat struct {
	// Name labels the schema in the request.
	Name string
	// Schema is the JSON schema the response must satisfy.
	Schema map[string]any
}

// Provider produces chat completions.
type Provider interface {
	// Complete returns the assistant's reply to the conversation.
	Complete(ctx context.Context, messages []Message) (string, error)

	// CompleteStructured returns a reply constrained to the given JSON
	// schema. The returned string is the raw JSON document.
	CompleteStructured(ctx context.Context, messages []Message, format ResponseFormat) (string, error)
}
