package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/flowgent/flowgent/engine/agent"
	"github.com/flowgent/flowgent/pkg/logger"
)

// LangChainInvoker implements Invoker on top of langchaingo models. Model
// settings are the agent's opaque pass-through configuration; recognized keys
// are provider, model, temperature, and maxTokens.
type LangChainInvoker struct {
	apiKey string

	mu     sync.Mutex
	models map[string]llms.Model
}

func NewLangChainInvoker(apiKey string) *LangChainInvoker {
	return &LangChainInvoker{
		apiKey: apiKey,
		models: make(map[string]llms.Model),
	}
}

// Invoke implements the invocation primitive: one model call with the given
// history, structured output parsed and checked against the agent's schema,
// and the assistant turn appended to the returned history.
func (i *LangChainInvoker) Invoke(ctx context.Context, ag *agent.Agent, history []Message) (*Result, error) {
	log := logger.FromContext(ctx)
	model, err := i.modelFor(ag)
	if err != nil {
		return nil, err
	}

	messages := i.convertMessages(ag, history)
	options := i.buildCallOptions(ag)
	response, err := model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return nil, fmt.Errorf("agent %q generation failed: %w", ag.ID, err)
	}
	if response == nil || len(response.Choices) == 0 {
		return nil, fmt.Errorf("agent %q returned an empty response", ag.ID)
	}
	content := response.Choices[0].Content
	log.Debug("Agent responded", "agent", ag.ID, "bytes", len(content))

	output := parseOutput(content)
	if obj, ok := output.(map[string]any); ok {
		if err := ag.Schema.Validate(obj); err != nil {
			return nil, fmt.Errorf("agent %q output rejected: %w", ag.ID, err)
		}
	}

	next := append(CloneHistory(history), Message{Role: RoleAssistant, Content: content})
	return &Result{Output: output, History: next}, nil
}

func (i *LangChainInvoker) modelFor(ag *agent.Agent) (llms.Model, error) {
	provider := stringSetting(ag.Model, "provider", "openai")
	name := stringSetting(ag.Model, "model", "")

	i.mu.Lock()
	defer i.mu.Unlock()
	key := provider + "/" + name
	if model, ok := i.models[key]; ok {
		return model, nil
	}

	var (
		model llms.Model
		err   error
	)
	switch provider {
	case "openai":
		opts := []openai.Option{openai.WithToken(i.apiKey)}
		if name != "" {
			opts = append(opts, openai.WithModel(name))
		}
		model, err = openai.New(opts...)
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithToken(i.apiKey)}
		if name != "" {
			opts = append(opts, anthropic.WithModel(name))
		}
		model, err = anthropic.New(opts...)
	case "ollama":
		opts := []ollama.Option{}
		if name != "" {
			opts = append(opts, ollama.WithModel(name))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported model provider %q for agent %q", provider, ag.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model for agent %q: %w", provider, ag.ID, err)
	}
	i.models[key] = model
	return model, nil
}

func (i *LangChainInvoker) convertMessages(ag *agent.Agent, history []Message) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+1)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt(ag)))
	for _, msg := range history {
		messages = append(messages, llms.TextParts(mapRole(msg.Role), renderContent(msg)))
	}
	return messages
}

func mapRole(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func renderContent(msg Message) string {
	if len(msg.Files) == 0 {
		return msg.Content
	}
	var b strings.Builder
	b.WriteString(msg.Content)
	for _, f := range msg.Files {
		fmt.Fprintf(&b, "\n[attached file %s (%s), id=%s]", f.Name, f.MIME, f.ID)
	}
	return b.String()
}

func systemPrompt(ag *agent.Agent) string {
	var b strings.Builder
	b.WriteString(ag.Instructions)
	if source := ag.Schema.Source(); len(source) > 0 {
		b.WriteString("\n\nRespond with a single JSON object matching this schema:\n")
		b.WriteString(source.String())
	}
	return b.String()
}

func (i *LangChainInvoker) buildCallOptions(ag *agent.Agent) []llms.CallOption {
	var options []llms.CallOption
	if temp, ok := floatSetting(ag.Model, "temperature"); ok {
		options = append(options, llms.WithTemperature(temp))
	}
	if max, ok := floatSetting(ag.Model, "maxTokens"); ok && max > 0 {
		options = append(options, llms.WithMaxTokens(int(max)))
	}
	tools := convertTools(ag.Tools)
	if len(tools) > 0 {
		options = append(options, llms.WithTools(tools))
	} else {
		options = append(options, llms.WithJSONMode())
	}
	return options
}

func convertTools(tools []agent.Tool) []llms.Tool {
	out := make([]llms.Tool, 0, len(tools))
	for _, tool := range tools {
		description := tool.Description
		if description == "" && tool.Target != nil {
			description = tool.Target.Instructions
		}
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: description,
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"input": map[string]any{"type": "string"},
					},
					"required": []string{"input"},
				},
			},
		})
	}
	return out
}

// parseOutput decodes a JSON object from the model's text. Non-JSON content
// comes back as the raw string so downstream standardization can reject it.
func parseOutput(content string) any {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return content
	}
	return decoded
}

func stringSetting(settings map[string]any, key, fallback string) string {
	if v, ok := settings[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func floatSetting(settings map[string]any, key string) (float64, bool) {
	switch v := settings[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
