package llm

import (
	"context"

	"github.com/flowgent/flowgent/engine/agent"
)

// Role constants for conversation messages.
const (
	RoleUser      = "user"
	RoleSystem    = "system"
	RoleAssistant = "assistant"
)

// FileRef points at a staged uploaded artifact attached to a message.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	MIME string `json:"mime,omitempty"`
}

// Message is one turn in a conversation history.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Files   []FileRef `json:"files,omitempty"`
}

// Result is the outcome of one agent invocation: the structured output (or
// nil) and the updated history with the exchange appended.
type Result struct {
	Output  any
	History []Message
}

// Invoker is the LLM-invocation primitive. Implementations shape the request
// from the agent handle and history and interpret the response; the engine
// never calls a model directly.
type Invoker interface {
	Invoke(ctx context.Context, ag *agent.Agent, history []Message) (*Result, error)
}

// CloneHistory copies a history slice so executors can extend their own copy
// without aliasing the caller's.
func CloneHistory(history []Message) []Message {
	out := make([]Message, len(history))
	copy(out, history)
	return out
}
