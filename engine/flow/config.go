package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/goccy/go-yaml"

	"github.com/flowgent/flowgent/engine/agent"
	"github.com/flowgent/flowgent/engine/mcp"
	"github.com/flowgent/flowgent/engine/schema"
)

// StepType discriminates the step union.
type StepType string

const (
	StepSingleAgent   StepType = "single_agent"
	StepAgentReviewer StepType = "agent_reviewer"
)

// Injection selects how review feedback enters the history between turns.
type Injection string

const (
	InjectAsUser     Injection = "as_user"
	InjectAsSystem   Injection = "as_system"
	InjectAppendOnly Injection = "append_only"
)

const (
	DefaultPassCondition = "score == 'pass'"
	DefaultMaxTurns      = 8
)

// IO holds per-step history handling options.
type IO struct {
	// CarryHistory defaults to true; nil means unset.
	CarryHistory *bool `json:"carryHistory,omitempty" yaml:"carryHistory,omitempty"`
}

// Step is one entry of the flow's ordered step list. Fields beyond ID and
// Type are populated per variant.
type Step struct {
	ID   string   `json:"id"   yaml:"id"`
	Type StepType `json:"type" yaml:"type"`

	// single_agent
	AgentRef string `json:"agentRef,omitempty" yaml:"agentRef,omitempty"`

	// agent_reviewer
	ProposalAgentRef  string    `json:"proposalAgentRef,omitempty"  yaml:"proposalAgentRef,omitempty"`
	ReviewerAgentRef  string    `json:"reviewerAgentRef,omitempty"  yaml:"reviewerAgentRef,omitempty"`
	PassCondition     string    `json:"passCondition,omitempty"     yaml:"passCondition,omitempty"`
	MaxTurns          int       `json:"maxTurns,omitempty"          yaml:"maxTurns,omitempty"`
	FeedbackInjection Injection `json:"feedbackInjection,omitempty" yaml:"feedbackInjection,omitempty"`

	IO IO `json:"io,omitempty" yaml:"io,omitempty"`
}

// CarryHistory resolves the io.carryHistory option, defaulting to true.
func (s *Step) CarryHistory() bool {
	if s.IO.CarryHistory == nil {
		return true
	}
	return *s.IO.CarryHistory
}

// Flow is the ordered step sequence.
type Flow struct {
	Steps []Step `json:"steps" yaml:"steps"`
}

// Defaults carries document-wide defaults merged into agent configs.
type Defaults struct {
	Model map[string]any `json:"model,omitempty" yaml:"model,omitempty"`
}

// Config is the root workflow document.
type Config struct {
	OutputSchemas map[string]schema.Schema `json:"outputSchemas" yaml:"outputSchemas"`
	Agents        map[string]agent.Config  `json:"agents"        yaml:"agents"`
	MCPServers    map[string]mcp.Config    `json:"mcpServers"    yaml:"mcpServers"`
	Defaults      *Defaults                `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Flow          *Flow                    `json:"flow"          yaml:"flow"`
}

// Load reads a workflow document from disk. JSON is the primary format; YAML
// documents are accepted by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow config: %w", err)
	}
	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse workflow config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse workflow config %s: %w", path, err)
		}
	}
	cfg.SetDefaults()
	return cfg, nil
}

// SetDefaults fills in omitted step options and merges document-wide model
// defaults into each agent's model settings.
func (c *Config) SetDefaults() {
	if c.Flow != nil {
		for i := range c.Flow.Steps {
			step := &c.Flow.Steps[i]
			if step.Type != StepAgentReviewer {
				continue
			}
			if step.PassCondition == "" {
				step.PassCondition = DefaultPassCondition
			}
			if step.MaxTurns <= 0 {
				step.MaxTurns = DefaultMaxTurns
			}
			if step.FeedbackInjection == "" {
				step.FeedbackInjection = InjectAsUser
			}
		}
	}
	if c.Defaults != nil && len(c.Defaults.Model) > 0 {
		for id, spec := range c.Agents {
			if spec.Model == nil {
				spec.Model = make(map[string]any)
			}
			// mergo fills only the keys the agent left unset.
			if err := mergo.Merge(&spec.Model, c.Defaults.Model); err == nil {
				c.Agents[id] = spec
			}
		}
	}
}

// Validate enforces the structural invariants of the document: a flow with at
// least one step, every output schema requiring a result field of an accepted
// shape, and every agent's schema ref resolving. Step agent refs and step
// types are deliberately not checked here; those are resolved at the point of
// use during execution.
func (c *Config) Validate() error {
	if c.Flow == nil {
		return errors.New("workflow config is missing the flow section")
	}
	if len(c.Flow.Steps) == 0 {
		return errors.New("workflow flow.steps must contain at least one step")
	}
	for name, s := range c.OutputSchemas {
		if !s.Requires("result") {
			return fmt.Errorf("output schema %q must declare result as a required property", name)
		}
		if typ := s.PropertyType("result"); typ != "" && typ != "string" && typ != "object" {
			return fmt.Errorf("output schema %q must type result as string or object, got %q", name, typ)
		}
	}
	for id, spec := range c.Agents {
		if spec.OutputSchema == "" {
			return fmt.Errorf("agent %q is missing an outputSchemaRef", id)
		}
		if _, ok := c.OutputSchemas[spec.OutputSchema]; !ok {
			return fmt.Errorf("agent %q references unknown output schema %q", id, spec.OutputSchema)
		}
		spec.ID = id
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("agent %q is invalid: %w", id, err)
		}
	}
	return nil
}
