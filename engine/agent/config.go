package agent

import (
	"fmt"

	"github.com/flowgent/flowgent/engine/schema"
)

// ToolKind tags the kind of tool an agent declares.
type ToolKind string

const (
	// ToolKindAgent exposes another agent as a callable tool.
	ToolKindAgent ToolKind = "agent"
	// ToolKindFunction is recognized but intentionally unimplemented.
	ToolKindFunction ToolKind = "function"
)

// ToolConfig declares one tool on an agent.
type ToolConfig struct {
	ID          string   `json:"id,omitempty"          yaml:"id,omitempty"`
	Kind        ToolKind `json:"kind"                  yaml:"kind"`
	Ref         string   `json:"ref,omitempty"         yaml:"ref,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Config declares one agent in a workflow document.
type Config struct {
	ID           string         `json:"-"                      yaml:"-"`
	Name         string         `json:"name,omitempty"         yaml:"name,omitempty"`
	Instructions string         `json:"instructions"           yaml:"instructions"           validate:"required"`
	OutputSchema string         `json:"outputSchemaRef"        yaml:"outputSchemaRef"`
	Model        map[string]any `json:"model,omitempty"        yaml:"model,omitempty"`
	MCPServers   []string       `json:"mcpServers,omitempty"   yaml:"mcpServers,omitempty"`
	Tools        []ToolConfig   `json:"tools,omitempty"        yaml:"tools,omitempty"`
}

func (c *Config) Validate() error {
	return schema.NewCompositeValidator(
		schema.NewStructValidator(c),
		&toolRefValidator{cfg: c},
	).Validate()
}

type toolRefValidator struct {
	cfg *Config
}

func (v *toolRefValidator) Validate() error {
	for _, tc := range v.cfg.Tools {
		if tc.Kind == ToolKindAgent && tc.Ref == "" {
			return fmt.Errorf("agent %q declares an agent tool without a ref", v.cfg.ID)
		}
	}
	return nil
}
