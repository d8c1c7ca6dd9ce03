package chatbot_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/chat"
	"github.com/zhouzirui/kite-dashboard/backend/internal/model/portfolio"
	"github.com/zhouzirui/kite-dashboard/backend/internal/service/ai"
	"github.com/zhouzirui/kite-dashboard/backend/internal/service/chatbot"
)

type fakeCompleter struct {
	system  string
	history []ai.Turn
	query   string
	answer  string
	err     error
}

func (f *fakeCompleter) Complete(_ context.Context, system string, history []ai.Turn, query string) (string, error) {
	f.system, f.history, f.query = system, history, query
	return f.answer, f.err
}

type fakeHoldings []portfolio.Holding

func (f fakeHoldings) Top(_ context.Context, n int) ([]portfolio.Holding, error) {
	if n < len(f) {
		return f[:n], nil
	}
	return f, nil
}

func TestReplySuccess(t *testing.T) {
	llm := &fakeCompleter{answer: "```Your largest holding is INFY.```"}
	svc := chatbot.NewService(llm, fakeHoldings{{TradingSymbol: "INFY", CompanyName: "Infosys"}})

	resp := svc.Reply(context.Background(), chat.Request{
		Message: "What is my largest holding?",
		History: []chat.HistoryEntry{
			{Sender: chat.Received, Text: "Hi!"},
			{Sender: chat.Sent, Text: "hello"},
			{Sender: "bot", Text: "dropped"},
		},
	})

	if resp.Status != chat.StatusSuccess {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.Response != "Your largest holding is INFY." {
		t.Fatalf("unexpected response %q", resp.Response)
	}
	if len(llm.history) != 2 || llm.history[0].Role != ai.RoleAssistant || llm.history[1].Role != ai.RoleUser {
		t.Fatalf("unexpected history %+v", llm.history)
	}
	if !strings.Contains(llm.system, "INFY") {
		t.Fatal("expected holdings snapshot in system prompt")
	}
}

func TestReplyEmptyMessage(t *testing.T) {
	svc := chatbot.NewService(&fakeCompleter{answer: "unused"}, nil)

	resp := svc.Reply(context.Background(), chat.Request{Message: "  "})
	if resp.Status == chat.StatusSuccess || resp.Error != "No message provided" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestReplyModelFailure(t *testing.T) {
	svc := chatbot.NewService(&fakeCompleter{err: errors.New("quota exceeded")}, nil)

	resp := svc.Reply(context.Background(), chat.Request{Message: "hi"})
	if resp.Status != "error" {
		t.Fatalf("expected error status, got %q", resp.Status)
	}
	if !strings.HasPrefix(resp.Error, "Error processing request: ") || !strings.Contains(resp.Error, "quota exceeded") {
		t.Fatalf("unexpected error text %q", resp.Error)
	}
}

func TestReplyWithoutModel(t *testing.T) {
	svc := chatbot.NewService(nil, nil)

	result := svc.Chat(context.Background(), chat.Request{Message: "hi"})
	if result.Kind != chat.ResultApplicationError {
		t.Fatalf("expected application error, got %s", result.Kind)
	}
	if !strings.Contains(result.Text, "language model unavailable") {
		t.Fatalf("unexpected text %q", result.Text)
	}
}
