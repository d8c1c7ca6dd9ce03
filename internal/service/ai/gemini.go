package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"google.golang.org/genai"

	"github.com/zhouzirui/kite-dashboard/backend/internal/config"
)

// maxToolRounds bounds how many function-calling rounds one answer may take.
const maxToolRounds = 6

// GeminiService answers prompts with the Gemini API, optionally letting the
// model call tools through function calling.
type GeminiService struct {
	client *genai.Client
	model  string

	tools map[string]tool.InvokableTool
	decls []*genai.FunctionDeclaration
	names []string
}

// NewGeminiService creates a Gemini client from cfg and declares tools to it.
func NewGeminiService(ctx context.Context, cfg config.AIConfig, tools ...tool.InvokableTool) (*GeminiService, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.GeminiBaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.GeminiBaseURL
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	svc := &GeminiService{client: client, model: cfg.GeminiModel, tools: make(map[string]tool.InvokableTool, len(tools))}
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read tool info: %w", err)
		}
		decl := &genai.FunctionDeclaration{Name: info.Name, Description: info.Desc}
		if info.ParamsOneOf != nil {
			params, err := info.ParamsOneOf.ToJSONSchema()
			if err != nil {
				return nil, fmt.Errorf("failed to describe tool %s: %w", info.Name, err)
			}
			decl.ParametersJsonSchema = params
		}
		svc.tools[info.Name] = t
		svc.decls = append(svc.decls, decl)
		svc.names = append(svc.names, info.Name)
	}
	return svc, nil
}

// ToolNames lists the tools declared to the model.
func (g *GeminiService) ToolNames() []string {
	return g.names
}

// Complete sends the conversation as Gemini contents with the system prompt
// as system instruction. Function calls are executed and answered until the
// model replies with text.
func (g *GeminiService) Complete(ctx context.Context, system string, history []Turn, query string) (string, error) {
	contents := buildContents(history, query)

	cfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(system) != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if len(g.decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: g.decls}}
	}

	for round := 0; ; round++ {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
		if err != nil {
			return "", fmt.Errorf("gemini generate content: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("no response from gemini model %s", g.model)
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			var builder strings.Builder
			for _, part := range resp.Candidates[0].Content.Parts {
				builder.WriteString(part.Text)
			}
			log.Printf("[ai] gemini response, model=%s, length=%d, tool rounds=%d", g.model, builder.Len(), round)
			return builder.String(), nil
		}
		if round == maxToolRounds {
			return "", fmt.Errorf("gemini model %s still calling tools after %d rounds", g.model, maxToolRounds)
		}

		contents = append(contents, resp.Candidates[0].Content)
		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       call.ID,
				Name:     call.Name,
				Response: map[string]any{"output": g.runTool(ctx, call)},
			}})
		}
		contents = append(contents, &genai.Content{Role: "user", Parts: parts})
	}
}

// runTool executes one function call; failures become the tool output.
func (g *GeminiService) runTool(ctx context.Context, call *genai.FunctionCall) string {
	t, ok := g.tools[call.Name]
	if !ok {
		return unknownToolOutput(call.Name)
	}
	args, err := json.Marshal(call.Args)
	if err != nil {
		return fmt.Sprintf("Invalid arguments: %v", err)
	}
	out, err := t.InvokableRun(ctx, string(args))
	if err != nil {
		log.Printf("[ai] tool %s failed: %v", call.Name, err)
		return fmt.Sprintf("Tool error: %v", err)
	}
	return out
}

// buildContents maps turns to Gemini roles; Gemini calls the assistant "model".
func buildContents(history []Turn, query string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		role := "user"
		if t.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: t.Content}}})
	}
	contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: query}}})
	return contents
}
