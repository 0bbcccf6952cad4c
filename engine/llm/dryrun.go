package llm

import (
	"context"
	"fmt"

	"github.com/flowgent/flowgent/engine/agent"
)

// DryRunInvoker is a deterministic invoker for exercising flows without
// network access. Every invocation produces a minimal object satisfying the
// universal result requirement and echoes the last user turn.
type DryRunInvoker struct{}

func NewDryRunInvoker() *DryRunInvoker {
	return &DryRunInvoker{}
}

func (d *DryRunInvoker) Invoke(_ context.Context, ag *agent.Agent, history []Message) (*Result, error) {
	lastUser := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			lastUser = history[i].Content
			break
		}
	}
	content := fmt.Sprintf("[dry-run] %s: %s", ag.ID, lastUser)
	output := map[string]any{"result": content}
	next := append(CloneHistory(history), Message{Role: RoleAssistant, Content: content})
	return &Result{Output: output, History: next}, nil
}
