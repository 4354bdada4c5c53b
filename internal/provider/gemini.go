package provider

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient backs ProviderClient with the Gemini API. Gemini returns
// function calls as a single whole-Part rather than incremental JSON
// fragments, so each tool call is forwarded as one ContentBlockStart +
// one InputJSONDelta carrying the complete arguments object.
type GeminiClient struct {
	model string
	auth  AuthMode
}

func NewGeminiClient(model string, auth AuthMode) *GeminiClient {
	return &GeminiClient{model: model, auth: auth}
}

func (c *GeminiClient) Name() string { return "gemini:" + c.model }

func (c *GeminiClient) SendMessagesStream(ctx context.Context, req Request) (Stream, error) {
	token, _, err := c.auth.Resolve()
	if err != nil {
		return nil, err
	}

	return newChanStream(ctx, func(ctx context.Context, events chan<- StreamEvent) error {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: token})
		if err != nil {
			events <- StreamEvent{Kind: KindError, Error: &StreamError{Kind: ErrNetwork, Message: err.Error()}}
			return nil
		}
		return c.run(ctx, client, req, events)
	}), nil
}

func (c *GeminiClient) run(ctx context.Context, client *genai.Client, req Request, events chan<- StreamEvent) error {
	system, contents := buildGeminiContents(req.Messages)
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		config.Tools = buildGeminiTools(req.Tools)
	}

	model := modelOrDefault(req.Model, c.model)
	blockIndex := 0
	events <- StreamEvent{Kind: KindMessageStart, MessageStart: &MessageStart{Model: model}}

	var lastResp *genai.GenerateContentResponse
	for resp, err := range client.Models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			events <- StreamEvent{Kind: KindError, Error: classifyGeminiError(err)}
			return nil
		}
		lastResp = resp

		if text := resp.Text(); text != "" {
			events <- StreamEvent{Kind: KindTextDelta, TextDelta: &TextDelta{Index: blockIndex, Text: text}}
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.FunctionCall == nil {
				continue
			}
			blockIndex++
			argsJSON, _ := json.Marshal(part.FunctionCall.Args)
			events <- StreamEvent{Kind: KindContentBlockStart, ContentBlockStart: &ContentBlockStart{
				Index: blockIndex, Kind: BlockToolUse, ID: part.FunctionCall.ID, Name: part.FunctionCall.Name,
			}}
			events <- StreamEvent{Kind: KindInputJSONDelta, InputJSONDelta: &InputJSONDelta{
				Index: blockIndex, PartialJSON: string(argsJSON),
			}}
			events <- StreamEvent{Kind: KindContentBlockStop, ContentBlockStop: &ContentBlockStop{Index: blockIndex}}
		}
	}

	if lastResp != nil && lastResp.UsageMetadata != nil {
		events <- StreamEvent{Kind: KindMessageDelta, MessageDelta: &MessageDelta{
			OutputTokens: int(lastResp.UsageMetadata.CandidatesTokenCount),
		}}
	}
	events <- StreamEvent{Kind: KindMessageStop}
	return nil
}

func buildGeminiContents(messages []Message) (string, []*genai.Content) {
	var systemParts []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			for _, p := range msg.Parts {
				if p.Kind == PartText && p.Text != "" {
					systemParts = append(systemParts, p.Text)
				}
			}
		case RoleUser:
			if content := buildGeminiUserContent(msg.Parts); content != nil {
				contents = append(contents, content)
			}
		case RoleAssistant:
			if content := buildGeminiAssistantContent(msg.Parts); content != nil {
				contents = append(contents, content)
			}
		}
	}

	return strings.Join(systemParts, "\n\n"), contents
}

func buildGeminiAssistantContent(parts []Part) *genai.Content {
	content := &genai.Content{Role: genai.RoleModel}
	for _, part := range parts {
		switch part.Kind {
		case PartText:
			if part.Text != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: part.Text})
			}
		case PartToolUse:
			var args map[string]any
			_ = json.Unmarshal([]byte(part.ToolArgsJSON), &args)
			content.Parts = append(content.Parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{ID: part.ToolCallID, Name: part.ToolName, Args: args},
			})
		}
	}
	if len(content.Parts) == 0 {
		return nil
	}
	return content
}

func buildGeminiUserContent(parts []Part) *genai.Content {
	content := &genai.Content{Role: genai.RoleUser}
	for _, part := range parts {
		switch part.Kind {
		case PartText:
			if part.Text != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: part.Text})
			}
		case PartToolResult:
			content.Parts = append(content.Parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name:     part.ToolResultForID,
					Response: map[string]any{"output": part.ToolResultText},
				},
			})
		}
	}
	if len(content.Parts) == 0 {
		return nil
	}
	return content
}

func buildGeminiTools(specs []ToolSpec) []*genai.Tool {
	if len(specs) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  schemaToGenai(s.InputSchema),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func schemaToGenai(schema map[string]any) *genai.Schema {
	if schema == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	out := &genai.Schema{Type: genai.TypeObject}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if m, ok := raw.(map[string]any); ok {
				out.Properties[name] = propertySchemaToGenai(m)
			}
		}
	}
	out.Required = schemaRequired(schema)
	return out
}

func propertySchemaToGenai(m map[string]any) *genai.Schema {
	s := &genai.Schema{}
	switch m["type"] {
	case "string":
		s.Type = genai.TypeString
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	case "boolean":
		s.Type = genai.TypeBoolean
	case "array":
		s.Type = genai.TypeArray
	case "object":
		s.Type = genai.TypeObject
	default:
		s.Type = genai.TypeString
	}
	if desc, ok := m["description"].(string); ok {
		s.Description = desc
	}
	return s
}

func classifyGeminiError(err error) *StreamError {
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "permission") || strings.Contains(lower, "unauthorized"):
		return &StreamError{Kind: ErrAuth, Message: err.Error()}
	case strings.Contains(lower, "503") || strings.Contains(lower, "overloaded") || strings.Contains(lower, "unavailable"):
		return &StreamError{Kind: ErrOverloaded, Message: err.Error()}
	case strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout"):
		return &StreamError{Kind: ErrTimeout, Message: err.Error()}
	case strings.Contains(lower, "connection") || strings.Contains(lower, "no such host"):
		return &StreamError{Kind: ErrNetwork, Message: err.Error()}
	default:
		return &StreamError{Kind: ErrHTTPStatus, Message: err.Error()}
	}
}
