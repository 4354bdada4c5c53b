package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go/document"
)

// BedrockClient backs ProviderClient with Bedrock's model-agnostic
// ConverseStream API. Unlike the other backends, auth here is IAM: every
// request loads the AWS default credential chain for the client's region
// via config.LoadDefaultConfig. The AuthMode passed to NewBedrockClient is
// stored but not consulted.
type BedrockClient struct {
	model  string
	region string
	auth   AuthMode
}

func NewBedrockClient(model, region string, auth AuthMode) *BedrockClient {
	return &BedrockClient{model: model, region: region, auth: auth}
}

func (c *BedrockClient) Name() string { return "bedrock:" + c.model }

func (c *BedrockClient) SendMessagesStream(ctx context.Context, req Request) (Stream, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(c.region))
	if err != nil {
		return nil, &StreamError{Kind: ErrNetwork, Message: err.Error()}
	}
	client := bedrockruntime.NewFromConfig(cfg)

	return newChanStream(ctx, func(ctx context.Context, events chan<- StreamEvent) error {
		return c.run(ctx, client, req, events)
	}), nil
}

func (c *BedrockClient) run(ctx context.Context, client *bedrockruntime.Client, req Request, events chan<- StreamEvent) error {
	messages, err := buildBedrockMessages(req.Messages)
	if err != nil {
		return err
	}

	input := &bedrockruntime.ConverseStreamInput{
		ModelId:  aws.String(modelOrDefault(req.Model, c.model)),
		Messages: messages,
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: req.System}}
	}
	if len(req.Tools) > 0 {
		input.ToolConfig = buildBedrockToolConfig(req.Tools)
	}

	out, err := client.ConverseStream(ctx, input)
	if err != nil {
		events <- StreamEvent{Kind: KindError, Error: classifyBedrockError(err)}
		return nil
	}

	blockIndex := 0
	for event := range out.GetStream().Events() {
		switch v := event.(type) {
		case *types.ConverseStreamOutputMemberMessageStart:
			events <- StreamEvent{Kind: KindMessageStart, MessageStart: &MessageStart{Model: c.model}}

		case *types.ConverseStreamOutputMemberContentBlockStart:
			blockIndex = int(aws.ToInt32(v.Value.ContentBlockIndex))
			if start, ok := v.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
				events <- StreamEvent{Kind: KindContentBlockStart, ContentBlockStart: &ContentBlockStart{
					Index: blockIndex, Kind: BlockToolUse, ID: aws.ToString(start.Value.ToolUseId), Name: aws.ToString(start.Value.Name),
				}}
			} else {
				events <- StreamEvent{Kind: KindContentBlockStart, ContentBlockStart: &ContentBlockStart{Index: blockIndex, Kind: BlockText}}
			}

		case *types.ConverseStreamOutputMemberContentBlockDelta:
			idx := int(aws.ToInt32(v.Value.ContentBlockIndex))
			switch d := v.Value.Delta.(type) {
			case *types.ContentBlockDeltaMemberText:
				if d.Value != "" {
					events <- StreamEvent{Kind: KindTextDelta, TextDelta: &TextDelta{Index: idx, Text: d.Value}}
				}
			case *types.ContentBlockDeltaMemberToolUse:
				if input := aws.ToString(d.Value.Input); input != "" {
					events <- StreamEvent{Kind: KindInputJSONDelta, InputJSONDelta: &InputJSONDelta{Index: idx, PartialJSON: input}}
				}
			case *types.ContentBlockDeltaMemberReasoningContent:
				if text, ok := d.Value.(*types.ReasoningContentBlockDeltaMemberText); ok && text.Value != "" {
					events <- StreamEvent{Kind: KindThinkingDelta, ThinkingDelta: &ThinkingDelta{Index: idx, Text: text.Value}}
				}
			}

		case *types.ConverseStreamOutputMemberContentBlockStop:
			events <- StreamEvent{Kind: KindContentBlockStop, ContentBlockStop: &ContentBlockStop{Index: int(aws.ToInt32(v.Value.ContentBlockIndex))}}

		case *types.ConverseStreamOutputMemberMessageStop:
			events <- StreamEvent{Kind: KindMessageDelta, MessageDelta: &MessageDelta{StopReason: string(v.Value.StopReason)}}

		case *types.ConverseStreamOutputMemberMetadata:
			if v.Value.Usage != nil {
				events <- StreamEvent{Kind: KindMessageDelta, MessageDelta: &MessageDelta{OutputTokens: int(aws.ToInt32(v.Value.Usage.OutputTokens))}}
			}
		}
	}

	if err := out.GetStream().Close(); err != nil {
		events <- StreamEvent{Kind: KindError, Error: classifyBedrockError(err)}
		return nil
	}
	events <- StreamEvent{Kind: KindMessageStop}
	return nil
}

func buildBedrockMessages(messages []Message) ([]types.Message, error) {
	out := make([]types.Message, 0, len(messages))
	for _, m := range messages {
		var role types.ConversationRole
		switch m.Role {
		case RoleSystem:
			continue
		case RoleUser:
			role = types.ConversationRoleUser
		case RoleAssistant:
			role = types.ConversationRoleAssistant
		}
		blocks, err := bedrockContentBlocks(m.Parts)
		if err != nil {
			return nil, err
		}
		if len(blocks) == 0 {
			continue
		}
		out = append(out, types.Message{Role: role, Content: blocks})
	}
	return out, nil
}

func bedrockContentBlocks(parts []Part) ([]types.ContentBlock, error) {
	blocks := make([]types.ContentBlock, 0, len(parts))
	for _, part := range parts {
		switch part.Kind {
		case PartText:
			if part.Text != "" {
				blocks = append(blocks, &types.ContentBlockMemberText{Value: part.Text})
			}
		case PartToolUse:
			var input document.Interface
			var raw map[string]any
			if err := json.Unmarshal([]byte(part.ToolArgsJSON), &raw); err == nil {
				input = bedrockDocument(raw)
			}
			blocks = append(blocks, &types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
				ToolUseId: aws.String(part.ToolCallID),
				Name:      aws.String(part.ToolName),
				Input:     input,
			}})
		case PartToolResult:
			blocks = append(blocks, &types.ContentBlockMemberToolResult{Value: types.ToolResultBlock{
				ToolUseId: aws.String(part.ToolResultForID),
				Status:    bedrockToolResultStatus(part.ToolResultError),
				Content: []types.ToolResultContentBlock{
					&types.ToolResultContentBlockMemberText{Value: part.ToolResultText},
				},
			}})
		}
	}
	return blocks, nil
}

func bedrockToolResultStatus(isError bool) types.ToolResultStatus {
	if isError {
		return types.ToolResultStatusError
	}
	return types.ToolResultStatusSuccess
}

func buildBedrockToolConfig(specs []ToolSpec) *types.ToolConfiguration {
	tools := make([]types.Tool, 0, len(specs))
	for _, s := range specs {
		tools = append(tools, &types.ToolMemberToolSpec{Value: types.ToolSpecification{
			Name:        aws.String(s.Name),
			Description: aws.String(s.Description),
			InputSchema: &types.ToolInputSchemaMemberJson{Value: bedrockDocument(s.InputSchema)},
		}})
	}
	return &types.ToolConfiguration{Tools: tools}
}

// bedrockDocument wraps a plain map as the smithy document.Interface the
// Bedrock SDK requires for free-form JSON payloads (tool schemas, tool
// inputs); it round-trips through the SDK's own lazy document codec.
func bedrockDocument(v map[string]any) document.Interface {
	return document.NewLazyDocument(v)
}

func classifyBedrockError(err error) *StreamError {
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "accessdenied") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "expiredtoken"):
		return &StreamError{Kind: ErrAuth, Message: err.Error()}
	case strings.Contains(lower, "throttling") || strings.Contains(lower, "serviceunavailable") || strings.Contains(lower, "overloaded"):
		return &StreamError{Kind: ErrOverloaded, Message: err.Error()}
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return &StreamError{Kind: ErrTimeout, Message: err.Error()}
	case strings.Contains(lower, "no such host") || strings.Contains(lower, "connection"):
		return &StreamError{Kind: ErrNetwork, Message: err.Error()}
	default:
		return &StreamError{Kind: ErrHTTPStatus, Message: err.Error()}
	}
}
