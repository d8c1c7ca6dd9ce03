package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/PaesslerAG/jsonpath"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/kite-dashboard/backend/internal/config"
)

type echoInput struct {
	Text string `json:"text" jsonschema:"description=text to echo"`
}

func echoTool(t *testing.T) tool.InvokableTool {
	t.Helper()
	tl, err := utils.InferTool("echo", "Echo the text back.", func(_ context.Context, in echoInput) (string, error) {
		return "echo: " + in.Text, nil
	})
	if err != nil {
		t.Fatalf("InferTool err: %v", err)
	}
	return tl
}

// callOnceModel requests the named tool on its first call and then answers
// with the last message it was given.
type callOnceModel struct {
	mu     sync.Mutex
	tool   string
	calls  int
	inputs [][]*schema.Message
}

func (m *callOnceModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.inputs = append(m.inputs, input)
	if m.calls == 1 {
		return schema.AssistantMessage("", []schema.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: schema.FunctionCall{Name: m.tool, Arguments: `{"text":"hi"}`},
		}}), nil
	}
	return schema.AssistantMessage(input[len(input)-1].Content, nil), nil
}

func (m *callOnceModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *callOnceModel) BindTools(_ []*schema.ToolInfo) error { return nil }

func TestToolAgentRunsRequestedTool(t *testing.T) {
	ctx := context.Background()
	fake := &callOnceModel{tool: "echo"}
	agent, err := NewToolAgent(ctx, fake, []tool.InvokableTool{echoTool(t)})
	if err != nil {
		t.Fatalf("NewToolAgent err: %v", err)
	}
	if names := agent.ToolNames(); len(names) != 1 || names[0] != "echo" {
		t.Fatalf("unexpected tool names %v", names)
	}

	answer, err := agent.Complete(ctx, "system prompt", []Turn{{Role: RoleUser, Content: "earlier"}}, "say hi")
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if answer != "echo: hi" {
		t.Fatalf("expected tool output as answer, got %q", answer)
	}

	first := fake.inputs[0]
	if len(first) != 3 || first[0].Role != schema.System || first[2].Content != "say hi" {
		t.Fatalf("unexpected first model input %+v", first)
	}
}

func TestToolAgentAnswersUnknownTool(t *testing.T) {
	ctx := context.Background()
	fake := &callOnceModel{tool: "missing"}
	agent, err := NewToolAgent(ctx, fake, []tool.InvokableTool{echoTool(t)})
	if err != nil {
		t.Fatalf("NewToolAgent err: %v", err)
	}

	answer, err := agent.Complete(ctx, "system prompt", nil, "call something")
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if answer != unknownToolOutput("missing") {
		t.Fatalf("unexpected answer %q", answer)
	}
}

func TestGeminiServiceRunsFunctionCalls(t *testing.T) {
	var mu sync.Mutex
	var requests []any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		requests = append(requests, body)
		n := len(requests)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[
				{"functionCall":{"id":"fc1","name":"echo","args":{"text":"hi"}}}
			]}}]}`))
			return
		}
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"The tool said hi."}]}}]}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	svc, err := NewGeminiService(ctx, config.AIConfig{
		GeminiAPIKey:  "test-key",
		GeminiModel:   "gemini-test",
		GeminiBaseURL: srv.URL,
	}, echoTool(t))
	if err != nil {
		t.Fatalf("NewGeminiService err: %v", err)
	}

	answer, err := svc.Complete(ctx, "system prompt", nil, "say hi")
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if answer != "The tool said hi." {
		t.Fatalf("unexpected answer %q", answer)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requests))
	}
	name, err := jsonpath.Get("$.tools[0].functionDeclarations[0].name", requests[0])
	if err != nil || name != "echo" {
		t.Fatalf("expected echo declared, got %v (%v)", name, err)
	}
	output, err := jsonpath.Get("$.contents[2].parts[0].functionResponse.response.output", requests[1])
	if err != nil || output != "echo: hi" {
		t.Fatalf("expected tool output sent back, got %v (%v)", output, err)
	}
	role, err := jsonpath.Get("$.contents[1].role", requests[1])
	if err != nil || role != "model" {
		t.Fatalf("expected model turn replayed, got %v (%v)", role, err)
	}
}
