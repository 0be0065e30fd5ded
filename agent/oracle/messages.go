package oracle

import (
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/trademind/agent/contract"
)

// ToSchemaMessages prepends system (when non-empty) to history and converts
// every message, tool traffic included, to eino messages.
func ToSchemaMessages(system string, history []contractx.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history)+1)
	if strings.TrimSpace(system) != "" {
		out = append(out, schema.SystemMessage(system))
	}
	for _, m := range history {
		switch m.Role {
		case contractx.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case contractx.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, toSchemaToolCalls(m.ToolCalls)))
		case contractx.RoleTool:
			out = append(out, &schema.Message{
				Role:       schema.Tool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return out
}

func toSchemaToolCalls(calls []contractx.ToolCall) []schema.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]schema.ToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, schema.ToolCall{
			ID:   c.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      c.Name,
				Arguments: c.Arguments,
			},
		})
	}
	return out
}

// FromSchemaToolCalls keeps the raw call data of a model reply.
func FromSchemaToolCalls(calls []schema.ToolCall) []contractx.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]contractx.ToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, contractx.ToolCall{
			ID:        c.ID,
			Name:      strings.TrimSpace(c.Function.Name),
			Arguments: c.Function.Arguments,
		})
	}
	return out
}
