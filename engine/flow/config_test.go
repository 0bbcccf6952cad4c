package flow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgent/flowgent/engine/agent"
	"github.com/flowgent/flowgent/engine/schema"
)

func validConfig() *Config {
	return &Config{
		OutputSchemas: map[string]schema.Schema{
			"answer": resultSchema(),
		},
		Agents: map[string]agent.Config{
			"writer": {Instructions: "Write.", OutputSchema: "answer"},
		},
		Flow: &Flow{Steps: []Step{
			{ID: "draft", Type: StepSingleAgent, AgentRef: "writer"},
		}},
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("Should accept a valid config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("Should reject a config without flow", func(t *testing.T) {
		cfg := validConfig()
		cfg.Flow = nil
		require.Error(t, cfg.Validate())
	})

	t.Run("Should reject a config with empty steps", func(t *testing.T) {
		cfg := validConfig()
		cfg.Flow.Steps = nil
		require.Error(t, cfg.Validate())
	})

	t.Run("Should reject a schema that does not require result, naming it", func(t *testing.T) {
		cfg := validConfig()
		cfg.OutputSchemas["loose"] = schema.Schema{
			"type":       "object",
			"properties": map[string]any{"result": map[string]any{"type": "string"}},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loose")
	})

	t.Run("Should reject a result typed as something other than string or object", func(t *testing.T) {
		cfg := validConfig()
		cfg.OutputSchemas["answer"] = schema.Schema{
			"type":       "object",
			"properties": map[string]any{"result": map[string]any{"type": "integer"}},
			"required":   []any{"result"},
		}
		require.Error(t, cfg.Validate())
	})

	t.Run("Should reject an agent with a dangling schema ref", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agents["critic"] = agent.Config{Instructions: "Critique.", OutputSchema: "missing"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "critic")
	})

	t.Run("Should reject an agent without instructions", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agents["writer"] = agent.Config{OutputSchema: "answer"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "writer")
	})

	t.Run("Should reject an agent tool without a ref", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agents["writer"] = agent.Config{
			Instructions: "Write.",
			OutputSchema: "answer",
			Tools:        []agent.ToolConfig{{ID: "helper", Kind: agent.ToolKindAgent}},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "writer")
	})

	t.Run("Should not check step refs or types at validation time", func(t *testing.T) {
		cfg := validConfig()
		cfg.Flow.Steps = append(cfg.Flow.Steps, Step{ID: "later", Type: "not_a_type", AgentRef: "ghost"})
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfig_SetDefaults(t *testing.T) {
	t.Run("Should default review step options", func(t *testing.T) {
		cfg := validConfig()
		cfg.Flow.Steps = []Step{{ID: "refine", Type: StepAgentReviewer, ProposalAgentRef: "writer", ReviewerAgentRef: "writer"}}
		cfg.SetDefaults()
		step := cfg.Flow.Steps[0]
		assert.Equal(t, DefaultPassCondition, step.PassCondition)
		assert.Equal(t, DefaultMaxTurns, step.MaxTurns)
		assert.Equal(t, InjectAsUser, step.FeedbackInjection)
		assert.True(t, step.CarryHistory())
	})

	t.Run("Should keep explicit review step options", func(t *testing.T) {
		cfg := validConfig()
		cfg.Flow.Steps = []Step{{
			ID:                "refine",
			Type:              StepAgentReviewer,
			ProposalAgentRef:  "writer",
			ReviewerAgentRef:  "writer",
			PassCondition:     "score == 'ok'",
			MaxTurns:          2,
			FeedbackInjection: InjectAppendOnly,
			IO:                IO{CarryHistory: boolPtr(false)},
		}}
		cfg.SetDefaults()
		step := cfg.Flow.Steps[0]
		assert.Equal(t, "score == 'ok'", step.PassCondition)
		assert.Equal(t, 2, step.MaxTurns)
		assert.Equal(t, InjectAppendOnly, step.FeedbackInjection)
		assert.False(t, step.CarryHistory())
	})

	t.Run("Should merge default model settings into agents", func(t *testing.T) {
		cfg := validConfig()
		cfg.Defaults = &Defaults{Model: map[string]any{"provider": "openai", "model": "gpt-4o-mini"}}
		cfg.Agents["writer"] = agent.Config{
			Instructions: "Write.",
			OutputSchema: "answer",
			Model:        map[string]any{"model": "gpt-4o"},
		}
		cfg.SetDefaults()
		model := cfg.Agents["writer"].Model
		assert.Equal(t, "gpt-4o", model["model"])
		assert.Equal(t, "openai", model["provider"])
	})
}

func TestLoad(t *testing.T) {
	t.Run("Should load a JSON workflow document", func(t *testing.T) {
		doc := `{
			"outputSchemas": {
				"answer": {
					"type": "object",
					"properties": {"result": {"type": "string"}},
					"required": ["result"]
				}
			},
			"agents": {
				"writer": {"instructions": "Write.", "outputSchemaRef": "answer"}
			},
			"mcpServers": {
				"fs": {"type": "stdio", "command": "mcp-fs", "args": ["--root", "/tmp"]}
			},
			"flow": {
				"steps": [
					{"id": "draft", "type": "single_agent", "agentRef": "writer"},
					{"id": "refine", "type": "agent_reviewer", "proposalAgentRef": "writer", "reviewerAgentRef": "writer"}
				]
			}
		}`
		path := filepath.Join(t.TempDir(), "flow.json")
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "answer", cfg.Agents["writer"].OutputSchema)
		assert.Equal(t, "mcp-fs", cfg.MCPServers["fs"].Command)
		require.Len(t, cfg.Flow.Steps, 2)
		assert.Equal(t, DefaultPassCondition, cfg.Flow.Steps[1].PassCondition)
	})

	t.Run("Should load a YAML workflow document", func(t *testing.T) {
		doc := `
outputSchemas:
  answer:
    type: object
    properties:
      result:
        type: string
    required: [result]
agents:
  writer:
    instructions: Write.
    outputSchemaRef: answer
flow:
  steps:
    - id: draft
      type: single_agent
      agentRef: writer
`
		path := filepath.Join(t.TempDir(), "flow.yaml")
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Should fail on unreadable paths", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
	})
}
