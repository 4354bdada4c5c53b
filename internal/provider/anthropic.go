package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
)

// AnthropicClient backs ProviderClient with the Anthropic Messages API.
type AnthropicClient struct {
	model string
	auth  AuthMode
}

// NewAnthropicClient resolves auth lazily on every call, so a refreshed
// OAuth token is always current without reconstructing the client.
func NewAnthropicClient(model string, auth AuthMode) *AnthropicClient {
	return &AnthropicClient{model: model, auth: auth}
}

func (c *AnthropicClient) Name() string { return "anthropic:" + c.model }

func (c *AnthropicClient) SendMessagesStream(ctx context.Context, req Request) (Stream, error) {
	token, _, err := c.auth.Resolve()
	if err != nil {
		return nil, err
	}
	client := anthropic.NewClient(option.WithAPIKey(token))

	return newChanStream(ctx, func(ctx context.Context, events chan<- StreamEvent) error {
		return c.run(ctx, &client, req, events)
	}), nil
}

func (c *AnthropicClient) run(ctx context.Context, client *anthropic.Client, req Request, events chan<- StreamEvent) error {
	messages, err := buildAnthropicMessages(req.Messages)
	if err != nil {
		return err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelOrDefault(req.Model, c.model)),
		MaxTokens: 8192,
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = buildAnthropicTools(req.Tools)
	}

	stream := client.Messages.NewStreaming(ctx, params)
	for stream.Next() {
		event := stream.Current()
		switch variant := event.AsAny().(type) {
		case anthropic.MessageStartEvent:
			events <- StreamEvent{Kind: KindMessageStart, MessageStart: &MessageStart{
				Model:            string(variant.Message.Model),
				InputTokens:      int(variant.Message.Usage.InputTokens),
				CacheReadTokens:  int(variant.Message.Usage.CacheReadInputTokens),
				CacheWriteTokens: int(variant.Message.Usage.CacheCreationInputTokens),
			}}

		case anthropic.ContentBlockStartEvent:
			switch block := variant.ContentBlock.AsAny().(type) {
			case anthropic.TextBlock:
				events <- StreamEvent{Kind: KindContentBlockStart, ContentBlockStart: &ContentBlockStart{
					Index: int(variant.Index), Kind: BlockText,
				}}
			case anthropic.ThinkingBlock:
				events <- StreamEvent{Kind: KindContentBlockStart, ContentBlockStart: &ContentBlockStart{
					Index: int(variant.Index), Kind: BlockThinking,
				}}
			case anthropic.ToolUseBlock:
				events <- StreamEvent{Kind: KindContentBlockStart, ContentBlockStart: &ContentBlockStart{
					Index: int(variant.Index), Kind: BlockToolUse, ID: block.ID, Name: block.Name,
				}}
			}

		case anthropic.ContentBlockDeltaEvent:
			switch delta := variant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" {
					events <- StreamEvent{Kind: KindTextDelta, TextDelta: &TextDelta{Index: int(variant.Index), Text: delta.Text}}
				}
			case anthropic.InputJSONDelta:
				if delta.PartialJSON != "" {
					events <- StreamEvent{Kind: KindInputJSONDelta, InputJSONDelta: &InputJSONDelta{
						Index: int(variant.Index), PartialJSON: delta.PartialJSON,
					}}
				}
			case anthropic.ThinkingDelta:
				if delta.Thinking != "" {
					events <- StreamEvent{Kind: KindThinkingDelta, ThinkingDelta: &ThinkingDelta{Index: int(variant.Index), Text: delta.Thinking}}
				}
			}

		case anthropic.ContentBlockStopEvent:
			events <- StreamEvent{Kind: KindContentBlockStop, ContentBlockStop: &ContentBlockStop{Index: int(variant.Index)}}

		case anthropic.MessageDeltaEvent:
			events <- StreamEvent{Kind: KindMessageDelta, MessageDelta: &MessageDelta{
				StopReason:   string(variant.Delta.StopReason),
				OutputTokens: int(variant.Usage.OutputTokens),
			}}
		}
	}

	if err := stream.Err(); err != nil {
		events <- StreamEvent{Kind: KindError, Error: classifyAnthropicError(err)}
		return nil
	}
	events <- StreamEvent{Kind: KindMessageStop}
	return nil
}

func buildAnthropicMessages(messages []Message) ([]anthropic.MessageParam, error) {
	var out []anthropic.MessageParam
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			continue // system carried separately on Request.System
		case RoleUser:
			blocks, err := anthropicBlocks(msg.Parts, false)
			if err != nil {
				return nil, err
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		case RoleAssistant:
			blocks, err := anthropicBlocks(msg.Parts, true)
			if err != nil {
				return nil, err
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	return out, nil
}

func anthropicBlocks(parts []Part, allowToolUse bool) ([]anthropic.ContentBlockParamUnion, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(parts))
	for _, part := range parts {
		switch part.Kind {
		case PartText:
			if part.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		case PartThinking:
			if allowToolUse && part.Text != "" {
				blocks = append(blocks, anthropic.NewThinkingBlock(part.ReplayToken, part.Text))
			}
		case PartToolUse:
			if allowToolUse {
				blocks = append(blocks, anthropic.NewToolUseBlock(part.ToolCallID, json.RawMessage(part.ToolArgsJSON), part.ToolName))
			}
		case PartToolResult:
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: part.ToolResultForID,
					IsError:   anthropic.Bool(part.ToolResultError),
					Content: []anthropic.ToolResultBlockParamContentUnion{
						{OfText: &anthropic.TextBlockParam{Text: part.ToolResultText}},
					},
				},
			})
		}
	}
	return blocks, nil
}

func buildAnthropicTools(specs []ToolSpec) []anthropic.ToolUnionParam {
	if len(specs) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, s := range specs {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type:       constant.Object("object"),
			Properties: s.InputSchema["properties"],
			Required:   schemaRequired(s.InputSchema),
		}
		tool := anthropic.ToolUnionParamOfTool(inputSchema, s.Name)
		if s.Description != "" {
			tool.OfTool.Description = anthropic.String(s.Description)
		}
		out = append(out, tool)
	}
	return out
}

func schemaRequired(schema map[string]any) []string {
	raw, ok := schema["required"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func classifyAnthropicError(err error) *StreamError {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "authentication"):
		return &StreamError{Kind: ErrAuth, Message: msg}
	case strings.Contains(lower, "overloaded") || strings.Contains(lower, "529"):
		return &StreamError{Kind: ErrOverloaded, Message: msg}
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return &StreamError{Kind: ErrTimeout, Message: msg}
	case strings.Contains(lower, "connection") || strings.Contains(lower, "no such host"):
		return &StreamError{Kind: ErrNetwork, Message: msg}
	case strings.Contains(lower, "400") || strings.Contains(lower, "404") || strings.Contains(lower, "429"):
		return &StreamError{Kind: ErrHTTPStatus, Message: msg}
	default:
		return &StreamError{Kind: ErrHTTPStatus, Message: msg}
	}
}

func modelOrDefault(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}
