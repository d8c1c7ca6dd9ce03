// Package chatbot answers chat requests with the configured language model,
// grounding it on the user's holdings and, when the model supports it, on
// tools that query the holdings table and search the web.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/chat"
	"github.com/zhouzirui/kite-dashboard/backend/internal/model/portfolio"
	"github.com/zhouzirui/kite-dashboard/backend/internal/service/ai"
)

var ErrEmptyMessage = errors.New("no message provided")

// snapshotSize bounds how many holdings are described in the system prompt.
const snapshotSize = 20

// HoldingsSource provides the portfolio snapshot.
type HoldingsSource interface {
	Top(ctx context.Context, n int) ([]portfolio.Holding, error)
}

// Service is stateless: the whole context travels with each request.
type Service struct {
	llm      ai.Completer
	holdings HoldingsSource
}

// NewService wires the chatbot. Both dependencies may be nil.
func NewService(llm ai.Completer, holdings HoldingsSource) *Service {
	return &Service{llm: llm, holdings: holdings}
}

// Reply answers one request with the wire response.
func (s *Service) Reply(ctx context.Context, req chat.Request) chat.Response {
	answer, err := s.answer(ctx, req)
	if errors.Is(err, ErrEmptyMessage) {
		return chat.Response{Status: "error", Error: "No message provided"}
	}
	if err != nil {
		log.Printf("[chatbot] failed to answer: %v", err)
		return chat.Response{Status: "error", Error: fmt.Sprintf("Error processing request: %v", err)}
	}
	return chat.Response{Status: chat.StatusSuccess, Response: answer}
}

// Chat lets an in-process chatbot stand in for the remote service.
func (s *Service) Chat(ctx context.Context, req chat.Request) chat.Result {
	result, err := s.Reply(ctx, req).Validate()
	if err != nil {
		return chat.TransportFailure(err)
	}
	return result
}

func (s *Service) answer(ctx context.Context, req chat.Request) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", ErrEmptyMessage
	}
	if s.llm == nil {
		return "", ai.ErrLLMUnavailable
	}

	var tools []string
	if user, ok := s.llm.(ai.ToolUser); ok {
		tools = user.ToolNames()
	}
	system := ai.AdvisorPrompt(s.snapshot(ctx), tools...)
	answer, err := s.llm.Complete(ctx, system, historyTurns(req.History), req.Message)
	if err != nil {
		return "", err
	}

	cleaned := ai.StripCodeFences(answer)
	if cleaned == "" {
		return "", errors.New("empty answer from language model")
	}
	return cleaned, nil
}

func (s *Service) snapshot(ctx context.Context) []portfolio.Holding {
	if s.holdings == nil {
		return nil
	}
	rows, err := s.holdings.Top(ctx, snapshotSize)
	if err != nil {
		log.Printf("[chatbot] portfolio snapshot unavailable: %v", err)
		return nil
	}
	return rows
}

// historyTurns converts context entries, dropping unknown senders.
func historyTurns(history []chat.HistoryEntry) []ai.Turn {
	turns := make([]ai.Turn, 0, len(history))
	for _, entry := range history {
		switch entry.Sender {
		case chat.Sent:
			turns = append(turns, ai.Turn{Role: ai.RoleUser, Content: entry.Text})
		case chat.Received:
			turns = append(turns, ai.Turn{Role: ai.RoleAssistant, Content: entry.Text})
		}
	}
	return turns
}
