package flow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/flowgent/flowgent/engine/agent"
	"github.com/flowgent/flowgent/engine/condition"
	"github.com/flowgent/flowgent/engine/core"
	"github.com/flowgent/flowgent/engine/llm"
	"github.com/flowgent/flowgent/pkg/logger"
)

const (
	stateProposing = "proposing"
	stateReviewing = "reviewing"
	statePassed    = "passed"
	stateExhausted = "exhausted"
)

const (
	eventProposed  = "proposed"
	eventPassed    = "pass"
	eventRetry     = "retry"
	eventExhausted = "exhaust"
)

// ReviewOptions configure one propose/review step.
type ReviewOptions struct {
	PassCondition     string
	MaxTurns          int
	FeedbackInjection Injection
	CarryHistory      bool
}

// ReviewResult is the outcome of a propose/review step. Exhaustion is not an
// error: the last proposal is returned with Passed=false.
type ReviewResult struct {
	Output  any
	History []llm.Message
	Passed  bool
	Turns   int
}

func newReviewFSM(ctx context.Context, stepID string) *fsm.FSM {
	log := logger.FromContext(ctx)
	return fsm.NewFSM(
		stateProposing,
		fsm.Events{
			{Name: eventProposed, Src: []string{stateProposing}, Dst: stateReviewing},
			{Name: eventPassed, Src: []string{stateReviewing}, Dst: statePassed},
			{Name: eventRetry, Src: []string{stateReviewing}, Dst: stateProposing},
			{Name: eventExhausted, Src: []string{stateReviewing}, Dst: stateExhausted},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debug("Review loop transition",
					"step", stepID,
					"event", e.Event,
					"from", e.Src,
					"to", e.Dst,
				)
			},
		},
	)
}

// runReviewLoop drives the bounded refinement loop: propose, review, evaluate
// the pass condition, and either accept the proposal, inject feedback and
// retry, or exhaust the turn budget.
func runReviewLoop(
	ctx context.Context,
	invoker llm.Invoker,
	proposal *agent.Agent,
	reviewer *agent.Agent,
	history []llm.Message,
	opts ReviewOptions,
) (*ReviewResult, error) {
	log := logger.FromContext(ctx)
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	machine := newReviewFSM(ctx, proposal.ID+"/"+reviewer.ID)
	var lastProposal any
	turn := 0

	for {
		turn++

		res, err := invoker.Invoke(ctx, proposal, history)
		if err != nil {
			return nil, fmt.Errorf("proposal agent %q failed on turn %d: %w", proposal.ID, turn, err)
		}
		lastProposal = res.Output
		if opts.CarryHistory {
			history = res.History
		}
		if err := machine.Event(ctx, eventProposed); err != nil {
			return nil, err
		}

		reviewRes, err := invoker.Invoke(ctx, reviewer, history)
		if err != nil {
			return nil, fmt.Errorf("reviewer agent %q failed on turn %d: %w", reviewer.ID, turn, err)
		}
		review, ok := core.AsOutput(reviewRes.Output)
		if !ok {
			review = core.Output{}
		}
		if opts.CarryHistory {
			history = reviewRes.History
		}

		bindings := make(map[string]any, len(review)+2)
		for k, v := range review {
			bindings[k] = v
		}
		bindings["turn"] = turn
		bindings["maxTurns"] = maxTurns

		if condition.Evaluate(ctx, opts.PassCondition, bindings) {
			if err := machine.Event(ctx, eventPassed); err != nil {
				return nil, err
			}
			log.Debug("Review passed", "proposal", proposal.ID, "reviewer", reviewer.ID, "turn", turn)
			return &ReviewResult{Output: lastProposal, History: history, Passed: true, Turns: turn}, nil
		}

		if turn >= maxTurns {
			if err := machine.Event(ctx, eventExhausted); err != nil {
				return nil, err
			}
			log.Debug("Review loop exhausted", "proposal", proposal.ID, "reviewer", reviewer.ID, "turns", turn)
			return &ReviewResult{Output: lastProposal, History: history, Passed: false, Turns: turn}, nil
		}

		history = injectFeedback(history, review, opts.FeedbackInjection)
		if err := machine.Event(ctx, eventRetry); err != nil {
			return nil, err
		}
	}
}

// injectFeedback appends the reviewer's feedback to the history per the
// configured mode. append_only adds no explicit feedback turn.
func injectFeedback(history []llm.Message, review core.Output, mode Injection) []llm.Message {
	if mode == InjectAppendOnly {
		return history
	}
	role := llm.RoleUser
	if mode == InjectAsSystem {
		role = llm.RoleSystem
	}
	return append(llm.CloneHistory(history), llm.Message{Role: role, Content: feedbackText(review)})
}

// feedbackText prefers the reviewer's feedback field and falls back to the
// serialized review object.
func feedbackText(review core.Output) string {
	if fb, ok := review["feedback"].(string); ok && fb != "" {
		return fb
	}
	bytes, err := json.Marshal(review)
	if err != nil {
		return ""
	}
	return string(bytes)
}
