package ai

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type recordingModel struct {
	input []*schema.Message
	reply string
}

func (m *recordingModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.input = input
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *recordingModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.input = input
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(m.reply, nil)}), nil
}

func (m *recordingModel) BindTools(_ []*schema.ToolInfo) error { return nil }

func TestServiceCompleteBuildsConversation(t *testing.T) {
	ctx := context.Background()
	fake := &recordingModel{reply: "INFY is your largest holding."}

	svc, err := NewService(ctx, fake)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	history := []Turn{
		{Role: RoleAssistant, Content: "Hi! How can I help?"},
		{Role: RoleUser, Content: "which stock has the highest loss"},
		{Role: "system", Content: "ignored"},
	}
	answer, err := svc.Complete(ctx, "You are a helpful financial assistant.", history, "and by how much percent?")
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if answer != "INFY is your largest holding." {
		t.Fatalf("unexpected answer %q", answer)
	}

	if len(fake.input) != 4 {
		t.Fatalf("expected 4 messages sent to the model, got %d", len(fake.input))
	}
	if fake.input[0].Role != schema.System {
		t.Fatalf("expected system message first, got %s", fake.input[0].Role)
	}
	if fake.input[1].Role != schema.Assistant || fake.input[2].Role != schema.User {
		t.Fatalf("unexpected history roles %s, %s", fake.input[1].Role, fake.input[2].Role)
	}
	if fake.input[3].Content != "and by how much percent?" {
		t.Fatalf("unexpected query %q", fake.input[3].Content)
	}
}

func TestStripCodeFences(t *testing.T) {
	got := StripCodeFences("```json\n{\"summary\":\"ok\"}\n```")
	if got != `{"summary":"ok"}` {
		t.Fatalf("unexpected cleaned text %q", got)
	}
}

func TestBuildContentsMapsRoles(t *testing.T) {
	contents := buildContents([]Turn{{Role: RoleUser, Content: "q"}, {Role: RoleAssistant, Content: "a"}}, "next")
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[1].Role != "model" {
		t.Fatalf("expected assistant mapped to model, got %s", contents[1].Role)
	}
	if contents[2].Parts[0].Text != "next" {
		t.Fatalf("unexpected last part %q", contents[2].Parts[0].Text)
	}
}
