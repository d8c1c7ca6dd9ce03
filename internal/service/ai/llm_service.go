package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/kite-dashboard/backend/internal/config"
)

// ErrLLMUnavailable is returned when no language model is configured.
var ErrLLMUnavailable = errors.New("language model unavailable")

// Role of a conversation turn handed to a completer.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message of the conversation.
type Turn struct {
	Role    Role
	Content string
}

// Completer produces a single model answer for a system prompt, prior turns
// and a user query.
type Completer interface {
	Complete(ctx context.Context, system string, history []Turn, query string) (string, error)
}

// New builds the completer selected by cfg.Provider.
func New(ctx context.Context, cfg config.AIConfig) (Completer, error) {
	if !cfg.Enabled() {
		return nil, ErrLLMUnavailable
	}
	switch cfg.Provider {
	case config.ProviderGemini:
		svc, err := NewGeminiService(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		svc, err := NewService(ctx, chatModel)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
}

// Service runs prompts through an eino chain backed by a chat model.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the prompt chain around chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
	}, nil
}

// Complete runs the chain once and returns the answer text.
func (s *Service) Complete(ctx context.Context, system string, history []Turn, query string) (string, error) {
	input := map[string]any{
		"system":  system,
		"history": buildHistoryMessages(history),
		"query":   query,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	log.Printf("[ai] generated response, length=%d", len(response.Content))
	return response.Content, nil
}

func buildHistoryMessages(turns []Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			history = append(history, schema.UserMessage(t.Content))
		case RoleAssistant:
			history = append(history, schema.AssistantMessage(t.Content, nil))
		}
	}
	return history
}

// StripCodeFences removes markdown code fences from a model answer.
func StripCodeFences(text string) string {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
