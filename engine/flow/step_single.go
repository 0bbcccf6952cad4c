package flow

import (
	"context"

	"github.com/flowgent/flowgent/engine/agent"
	"github.com/flowgent/flowgent/engine/llm"
)

// SingleResult is the outcome of a single-agent step.
type SingleResult struct {
	Output  any
	History []llm.Message
}

// runSingleAgent invokes the agent once with the given history. With
// carryHistory the step's exchange becomes the next history; without it the
// input history is returned untouched and the exchange is discarded from the
// thread. Invocation failures propagate.
func runSingleAgent(
	ctx context.Context,
	invoker llm.Invoker,
	ag *agent.Agent,
	history []llm.Message,
	carryHistory bool,
) (*SingleResult, error) {
	res, err := invoker.Invoke(ctx, ag, history)
	if err != nil {
		return nil, err
	}
	next := history
	if carryHistory {
		next = res.History
	}
	return &SingleResult{Output: res.Output, History: next}, nil
}
