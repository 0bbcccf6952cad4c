package agent

import (
	"context"
	"fmt"
	"sort"

	"github.com/flowgent/flowgent/engine/core"
	"github.com/flowgent/flowgent/engine/mcp"
	"github.com/flowgent/flowgent/engine/schema"
	"github.com/flowgent/flowgent/pkg/logger"
)

// Agent is a built, immutable agent handle ready for invocation.
type Agent struct {
	ID           string
	Name         string
	Instructions string
	Schema       *schema.Compiled
	Model        map[string]any
	Servers      []*mcp.Handle
	Tools        []Tool
}

// Tool is a callable tool resolved onto an agent. Only agent-backed tools
// exist today; the Target is the tool-less base handle of the referenced
// agent.
type Tool struct {
	Name        string
	Description string
	Target      *Agent
}

// BuildRegistry constructs agent handles from configs in two passes. Pass one
// builds a tool-less base handle for every agent; pass two rebuilds each
// handle from its pass-one resolution plus the tool list, where agent-kind
// tools wrap the pass-one base handle of the referenced agent. The two
// indexed collections keep agent-as-tool DAGs buildable without mutating
// handles in place.
//
// A missing or unresolvable outputSchema ref on any agent fails the whole
// build before any handle is constructed. Unknown server refs and tool kinds
// degrade with warnings.
func BuildRegistry(
	ctx context.Context,
	specs map[string]Config,
	servers *mcp.Registry,
	schemas map[string]*schema.Compiled,
	diags *core.Diagnostics,
) (map[string]*Agent, error) {
	log := logger.FromContext(ctx)

	ids := make([]string, 0, len(specs))
	for id := range specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Schema refs are checked for every agent up front so no handle exists
	// when the build fails.
	for _, id := range ids {
		spec := specs[id]
		if spec.OutputSchema == "" {
			return nil, fmt.Errorf("agent %q is missing an outputSchema reference", id)
		}
		if _, ok := schemas[spec.OutputSchema]; !ok {
			return nil, fmt.Errorf("agent %q references unknown output schema %q", id, spec.OutputSchema)
		}
	}

	base := make(map[string]*Agent, len(specs))
	for _, id := range ids {
		spec := specs[id]
		base[id] = buildBase(ctx, id, spec, servers, schemas[spec.OutputSchema], diags)
	}

	final := make(map[string]*Agent, len(specs))
	for _, id := range ids {
		spec := specs[id]
		b := base[id]
		handle := &Agent{
			ID:           b.ID,
			Name:         b.Name,
			Instructions: b.Instructions,
			Schema:       b.Schema,
			Model:        b.Model,
			Servers:      b.Servers,
		}
		handle.Tools = resolveTools(ctx, id, spec.Tools, base, diags)
		final[id] = handle
	}
	log.Debug("Built agent registry", "agents", len(final))
	return final, nil
}

func buildBase(
	ctx context.Context,
	id string,
	spec Config,
	servers *mcp.Registry,
	compiled *schema.Compiled,
	diags *core.Diagnostics,
) *Agent {
	log := logger.FromContext(ctx)
	handle := &Agent{
		ID:           id,
		Name:         spec.Name,
		Instructions: spec.Instructions,
		Schema:       compiled,
		Model:        spec.Model,
	}
	if handle.Name == "" {
		handle.Name = id
	}
	for _, ref := range spec.MCPServers {
		server, ok := servers.Get(ref)
		if !ok {
			diags.Warnf("agent", "agent %q references unknown mcp server %q, dropping", id, ref)
			log.Warn("Dropping unknown MCP server ref", "agent", id, "server", ref)
			continue
		}
		handle.Servers = append(handle.Servers, server)
	}
	return handle
}

func resolveTools(
	ctx context.Context,
	agentID string,
	configs []ToolConfig,
	base map[string]*Agent,
	diags *core.Diagnostics,
) []Tool {
	log := logger.FromContext(ctx)
	var tools []Tool
	for _, tc := range configs {
		switch tc.Kind {
		case ToolKindAgent:
			target, ok := base[tc.Ref]
			if !ok {
				diags.Warnf("agent", "agent %q declares tool for unknown agent %q, skipping", agentID, tc.Ref)
				log.Warn("Skipping tool with unknown agent ref", "agent", agentID, "ref", tc.Ref)
				continue
			}
			name := tc.ID
			if name == "" {
				name = tc.Ref
			}
			tools = append(tools, Tool{
				Name:        name,
				Description: tc.Description,
				Target:      target,
			})
		case ToolKindFunction:
			diags.Warnf("agent", "agent %q declares function tool %q, which is not implemented", agentID, tc.ID)
			log.Warn("Function tools are declared but not implemented", "agent", agentID, "tool", tc.ID)
		default:
			diags.Warnf("agent", "agent %q declares tool of unknown kind %q, skipping", agentID, tc.Kind)
			log.Warn("Skipping tool with unknown kind", "agent", agentID, "kind", tc.Kind)
		}
	}
	return tools
}
