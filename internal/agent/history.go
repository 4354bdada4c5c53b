package agent

import (
	"encoding/json"

	"github.com/zdx-sub/zdx/internal/provider"
	"github.com/zdx-sub/zdx/internal/thread"
)

// MessagesFromThread converts a replayed thread's derived chat history into
// the provider-facing message list a turn starts from — the "F loads thread
// state from A" step of the control flow.
func MessagesFromThread(replayed *thread.Replayed) []provider.Message {
	if replayed == nil {
		return nil
	}
	out := make([]provider.Message, 0, len(replayed.Messages))
	for _, m := range replayed.Messages {
		role := provider.RoleUser
		if m.Role == thread.RoleAssistant {
			role = provider.RoleAssistant
		}
		msg := provider.Message{Role: role}
		for _, b := range m.Blocks {
			switch b.Type {
			case thread.BlockText:
				msg.Parts = append(msg.Parts, provider.Part{Kind: provider.PartText, Text: b.Text})
			case thread.BlockThinking:
				msg.Parts = append(msg.Parts, provider.Part{Kind: provider.PartThinking, Text: b.Text})
			case thread.BlockToolUse:
				msg.Parts = append(msg.Parts, provider.Part{
					Kind:         provider.PartToolUse,
					ToolCallID:   b.ToolUseID,
					ToolName:     b.Name,
					ToolArgsJSON: json.RawMessage(b.Input),
				})
			case thread.BlockToolResult:
				msg.Parts = append(msg.Parts, provider.Part{
					Kind:            provider.PartToolResult,
					ToolResultForID: b.ToolUseID,
					ToolResultText:  b.ResultContent,
					ToolResultError: !b.ResultOK,
				})
			}
		}
		if len(msg.Parts) > 0 {
			out = append(out, msg)
		}
	}
	return out
}
