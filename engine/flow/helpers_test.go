package flow

import (
	"context"
	"encoding/json"
	"sync"

	mcpsdk "github.com/mark3labs/mcp-go/mcp"

	"github.com/flowgent/flowgent/engine/agent"
	"github.com/flowgent/flowgent/engine/llm"
	"github.com/flowgent/flowgent/engine/schema"
)

// stubConn stands in for a stdio MCP client connection.
type stubConn struct {
	initialized bool
	closed      bool
}

func (c *stubConn) Initialize(context.Context, mcpsdk.InitializeRequest) (*mcpsdk.InitializeResult, error) {
	c.initialized = true
	return &mcpsdk.InitializeResult{}, nil
}

func (c *stubConn) Close() error {
	c.closed = true
	return nil
}

// scriptedInvoker drives executor tests: the script decides each agent's
// output per call, and the invoker appends the assistant turn like the real
// primitive does.
type scriptedInvoker struct {
	mu     sync.Mutex
	calls  map[string]int
	script func(agentID string, call int, history []llm.Message) (any, error)
}

func newScriptedInvoker(script func(agentID string, call int, history []llm.Message) (any, error)) *scriptedInvoker {
	return &scriptedInvoker{
		calls:  make(map[string]int),
		script: script,
	}
}

func (s *scriptedInvoker) Invoke(_ context.Context, ag *agent.Agent, history []llm.Message) (*llm.Result, error) {
	s.mu.Lock()
	s.calls[ag.ID]++
	call := s.calls[ag.ID]
	s.mu.Unlock()

	output, err := s.script(ag.ID, call, history)
	if err != nil {
		return nil, err
	}
	content, _ := json.Marshal(output)
	next := append(llm.CloneHistory(history), llm.Message{Role: llm.RoleAssistant, Content: string(content)})
	return &llm.Result{Output: output, History: next}, nil
}

func (s *scriptedInvoker) callCount(agentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[agentID]
}

func testAgent(id string) *agent.Agent {
	return &agent.Agent{
		ID:           id,
		Name:         id,
		Instructions: "test agent",
		Schema:       schema.Translate(nil),
	}
}

func boolPtr(b bool) *bool { return &b }

func resultSchema() schema.Schema {
	return schema.Schema{
		"type":       "object",
		"properties": map[string]any{"result": map[string]any{"type": "string"}},
		"required":   []any{"result"},
	}
}
