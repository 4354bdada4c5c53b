package provider

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// OpenAIClient backs ProviderClient with the Responses API, which carries
// both text and function-call streaming in one event shape.
type OpenAIClient struct {
	model           string
	reasoningEffort string
	auth            AuthMode
}

func NewOpenAIClient(model, reasoningEffort string, auth AuthMode) *OpenAIClient {
	return &OpenAIClient{model: model, reasoningEffort: reasoningEffort, auth: auth}
}

func (c *OpenAIClient) Name() string { return "openai:" + c.model }

func (c *OpenAIClient) SendMessagesStream(ctx context.Context, req Request) (Stream, error) {
	token, _, err := c.auth.Resolve()
	if err != nil {
		return nil, err
	}
	client := openai.NewClient(option.WithAPIKey(token))

	return newChanStream(ctx, func(ctx context.Context, events chan<- StreamEvent) error {
		return c.run(ctx, &client, req, events)
	}), nil
}

func (c *OpenAIClient) run(ctx context.Context, client *openai.Client, req Request, events chan<- StreamEvent) error {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(modelOrDefault(req.Model, c.model)),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(flattenToInput(req.Messages)),
		},
	}
	if req.System != "" {
		params.Instructions = openai.String(req.System)
	}
	if len(req.Tools) > 0 {
		tools := make([]responses.ToolUnionParam, 0, len(req.Tools))
		for _, t := range req.Tools {
			fn := responses.ToolParamOfFunction(t.Name, t.InputSchema, true)
			if t.Description != "" {
				fn.OfFunction.Description = openai.String(t.Description)
			}
			tools = append(tools, fn)
		}
		params.Tools = tools
	}
	effort := c.reasoningEffort
	if req.ReasoningEffort != "" {
		effort = req.ReasoningEffort
	}
	if effort != "" {
		params.Reasoning = shared.ReasoningParam{Effort: shared.ReasoningEffort(effort)}
	}

	var sawOutputIndex int

	stream := client.Responses.NewStreaming(ctx, params)
	for stream.Next() {
		event := stream.Current()
		index := int(event.OutputIndex)
		switch event.Type {
		case "response.output_text.delta":
			if event.Text != "" {
				events <- StreamEvent{Kind: KindTextDelta, TextDelta: &TextDelta{Index: index, Text: event.Text}}
			}

		case "response.output_item.added":
			switch event.Item.Type {
			case "function_call":
				sawOutputIndex = index
				events <- StreamEvent{Kind: KindContentBlockStart, ContentBlockStart: &ContentBlockStart{
					Index: sawOutputIndex, Kind: BlockToolUse, ID: event.Item.CallID, Name: event.Item.Name,
				}}
			case "message":
				events <- StreamEvent{Kind: KindContentBlockStart, ContentBlockStart: &ContentBlockStart{
					Index: index, Kind: BlockText,
				}}
			case "reasoning":
				events <- StreamEvent{Kind: KindContentBlockStart, ContentBlockStart: &ContentBlockStart{
					Index: index, Kind: BlockThinking,
				}}
			}

		case "response.function_call_arguments.delta":
			events <- StreamEvent{Kind: KindInputJSONDelta, InputJSONDelta: &InputJSONDelta{
				Index: index, PartialJSON: event.Delta,
			}}

		case "response.reasoning_summary_text.delta":
			events <- StreamEvent{Kind: KindThinkingSummary, ThinkingSummary: &ThinkingSummary{
				Index: index, Text: event.Delta,
			}}

		case "response.output_item.done":
			events <- StreamEvent{Kind: KindContentBlockStop, ContentBlockStop: &ContentBlockStop{Index: index}}

		case "response.completed":
			events <- StreamEvent{Kind: KindMessageDelta, MessageDelta: &MessageDelta{
				StopReason:   string(event.Response.Status),
				OutputTokens: int(event.Response.Usage.OutputTokens),
			}}

		case "response.failed", "error":
			events <- StreamEvent{Kind: KindError, Error: classifyOpenAIError(event.Response.Error.Message)}
			return nil
		}
	}

	if err := stream.Err(); err != nil {
		events <- StreamEvent{Kind: KindError, Error: classifyOpenAIError(err.Error())}
		return nil
	}
	events <- StreamEvent{Kind: KindMessageStop}
	return nil
}

// flattenToInput renders the derived message list as plain text for the
// Responses API's simple string input form: text parts and tool-result
// text are written one per line; tool-use parts are left out.
func flattenToInput(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		for _, p := range m.Parts {
			switch p.Kind {
			case PartText:
				b.WriteString(p.Text)
				b.WriteString("\n")
			case PartToolResult:
				b.WriteString(p.ToolResultText)
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func classifyOpenAIError(msg string) *StreamError {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized"):
		return &StreamError{Kind: ErrAuth, Message: msg}
	case strings.Contains(lower, "overloaded") || strings.Contains(lower, "503"):
		return &StreamError{Kind: ErrOverloaded, Message: msg}
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return &StreamError{Kind: ErrTimeout, Message: msg}
	case strings.Contains(lower, "connection") || strings.Contains(lower, "no such host"):
		return &StreamError{Kind: ErrNetwork, Message: msg}
	default:
		return &StreamError{Kind: ErrHTTPStatus, Message: msg}
	}
}
