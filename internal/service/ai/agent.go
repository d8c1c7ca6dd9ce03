package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/kite-dashboard/backend/internal/config"
)

// maxAgentSteps bounds the model/tool loop of one answer.
const maxAgentSteps = 12

// ToolUser is implemented by completers that let the model call tools.
type ToolUser interface {
	ToolNames() []string
}

// NewAgent builds a completer for cfg.Provider that may call tools while
// answering.
func NewAgent(ctx context.Context, cfg config.AIConfig, tools []tool.InvokableTool) (Completer, error) {
	if !cfg.Enabled() {
		return nil, ErrLLMUnavailable
	}
	switch cfg.Provider {
	case config.ProviderGemini:
		svc, err := NewGeminiService(ctx, cfg, tools...)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		agent, err := NewToolAgent(ctx, chatModel, tools)
		if err != nil {
			return nil, err
		}
		return agent, nil
	}
}

// ToolAgent runs an eino ReAct agent: the model is called, requested tools
// are executed and their output fed back until the model answers.
type ToolAgent struct {
	agent *react.Agent
	names []string
}

// NewToolAgent binds tools to chatModel and compiles the agent graph.
func NewToolAgent(ctx context.Context, chatModel model.BaseChatModel, tools []tool.InvokableTool) (*ToolAgent, error) {
	baseTools := make([]tool.BaseTool, 0, len(tools))
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read tool info: %w", err)
		}
		baseTools = append(baseTools, t)
		names = append(names, info.Name)
	}

	agentCfg := &react.AgentConfig{
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: baseTools,
			UnknownToolsHandler: func(_ context.Context, name, _ string) (string, error) {
				return unknownToolOutput(name), nil
			},
		},
		MaxStep: maxAgentSteps,
	}
	switch m := chatModel.(type) {
	case model.ToolCallingChatModel:
		agentCfg.ToolCallingModel = m
	case model.ChatModel:
		agentCfg.Model = m
	default:
		return nil, fmt.Errorf("chat model %T cannot call tools", chatModel)
	}

	agent, err := react.NewAgent(ctx, agentCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool agent: %w", err)
	}
	return &ToolAgent{agent: agent, names: names}, nil
}

func unknownToolOutput(name string) string {
	return fmt.Sprintf("Unknown tool %q. Answer without it.", name)
}

// ToolNames lists the tools the model may call.
func (a *ToolAgent) ToolNames() []string {
	return a.names
}

// Complete runs the agent on the conversation and returns the final answer.
func (a *ToolAgent) Complete(ctx context.Context, system string, history []Turn, query string) (string, error) {
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(system))
	messages = append(messages, buildHistoryMessages(history)...)
	messages = append(messages, schema.UserMessage(query))

	response, err := a.agent.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to run tool agent: %w", err)
	}

	log.Printf("[ai] agent response, length=%d", len(response.Content))
	return response.Content, nil
}
