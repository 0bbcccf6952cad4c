package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowgent/flowgent/engine/agent"
	"github.com/flowgent/flowgent/engine/core"
	"github.com/flowgent/flowgent/engine/llm"
	"github.com/flowgent/flowgent/engine/mcp"
	"github.com/flowgent/flowgent/engine/schema"
	"github.com/flowgent/flowgent/pkg/logger"
)

// Engine executes a workflow document against an LLM-invocation primitive.
// Each Run builds its own agent and server registries, so independent runs
// are safe to execute concurrently.
type Engine struct {
	invoker llm.Invoker
	dialer  mcp.Dialer
}

// Option configures an Engine.
type Option func(*Engine)

// WithDialer overrides the stdio MCP dialer, mainly for tests.
func WithDialer(dialer mcp.Dialer) Option {
	return func(e *Engine) { e.dialer = dialer }
}

func NewEngine(invoker llm.Invoker, opts ...Option) *Engine {
	e := &Engine{invoker: invoker}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOptions carry per-run inputs beyond the document itself.
type RunOptions struct {
	// APIKey explicitly overrides the environment credential.
	APIKey string
	// Files are staged attachments referenced by the seeded prompt message.
	Files []llm.FileRef
	// Diagnostics, when set, collects non-fatal degradation warnings.
	Diagnostics *core.Diagnostics
}

// Run executes the flow: resolve the credential, validate the document,
// build registries, seed the history with the initial prompt, execute each
// step in order, and standardize the final output.
func (e *Engine) Run(ctx context.Context, cfg *Config, initialPrompt string, opts RunOptions) (core.Output, error) {
	if _, err := core.ResolveAPIKey(opts.APIKey); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	execID := core.NewExecutionID()
	log := logger.FromContext(ctx).With("exec_id", execID)
	ctx = logger.ContextWithLogger(ctx, log)
	log.Info("Starting flow run", "steps", len(cfg.Flow.Steps))

	diags := opts.Diagnostics
	if diags == nil {
		diags = core.NewDiagnostics()
	}

	schemas := make(map[string]*schema.Compiled, len(cfg.OutputSchemas))
	for name, s := range cfg.OutputSchemas {
		schemas[name] = schema.Translate(s)
	}

	servers, err := e.connectServers(ctx, cfg.MCPServers, diags)
	if err != nil {
		return nil, err
	}
	defer servers.Close()

	agents, err := agent.BuildRegistry(ctx, cfg.Agents, servers, schemas, diags)
	if err != nil {
		return nil, err
	}

	history := []llm.Message{{Role: llm.RoleUser, Content: initialPrompt, Files: opts.Files}}
	var output any
	produced := false

	for i := range cfg.Flow.Steps {
		step := &cfg.Flow.Steps[i]
		log.Debug("Executing step", "step", step.ID, "type", step.Type)
		switch step.Type {
		case StepSingleAgent:
			ag, ok := agents[step.AgentRef]
			if !ok {
				return nil, fmt.Errorf("step %q references unknown agent %q", step.ID, step.AgentRef)
			}
			res, err := runSingleAgent(ctx, e.invoker, ag, history, step.CarryHistory())
			if err != nil {
				return nil, fmt.Errorf("step %q failed: %w", step.ID, err)
			}
			output = res.Output
			history = res.History
			produced = true
		case StepAgentReviewer:
			proposal, ok := agents[step.ProposalAgentRef]
			if !ok {
				return nil, fmt.Errorf("step %q references unknown proposal agent %q", step.ID, step.ProposalAgentRef)
			}
			reviewer, ok := agents[step.ReviewerAgentRef]
			if !ok {
				return nil, fmt.Errorf("step %q references unknown reviewer agent %q", step.ID, step.ReviewerAgentRef)
			}
			res, err := runReviewLoop(ctx, e.invoker, proposal, reviewer, history, ReviewOptions{
				PassCondition:     step.PassCondition,
				MaxTurns:          step.MaxTurns,
				FeedbackInjection: step.FeedbackInjection,
				CarryHistory:      step.CarryHistory(),
			})
			if err != nil {
				return nil, fmt.Errorf("step %q failed: %w", step.ID, err)
			}
			// A failed review never halts the flow; the best-effort proposal
			// carries forward.
			if !res.Passed {
				log.Warn("Review step exhausted without passing", "step", step.ID, "turns", res.Turns)
			}
			output = res.Output
			history = res.History
			produced = true
		default:
			return nil, fmt.Errorf("step %q has unrecognized type %q", step.ID, step.Type)
		}
	}

	final, err := standardizeOutput(output, produced)
	if err != nil {
		return nil, err
	}
	log.Info("Flow run complete")
	return final, nil
}

func (e *Engine) connectServers(
	ctx context.Context,
	specs map[string]mcp.Config,
	diags *core.Diagnostics,
) (*mcp.Registry, error) {
	if e.dialer != nil {
		return mcp.ConnectWith(ctx, specs, diags, e.dialer)
	}
	return mcp.Connect(ctx, specs, diags)
}

// standardizeOutput enforces the terminal output shape: flows that produced
// nothing yield an empty result, bare strings are rejected, and objects must
// carry a truthy result field.
func standardizeOutput(output any, produced bool) (core.Output, error) {
	if !produced || output == nil {
		return core.Output{"result": ""}, nil
	}
	if _, isString := output.(string); isString {
		return nil, errors.New(
			"flow produced a bare string; the final output must be an object with a non-empty result property",
		)
	}
	obj, ok := core.AsOutput(output)
	if !ok {
		return nil, fmt.Errorf("flow produced output of unsupported shape %T; expected an object with a result property", output)
	}
	if !core.IsTruthy(obj["result"]) {
		return nil, errors.New("flow output is missing a non-empty result property")
	}
	return obj, nil
}
