package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	oraclex "github.com/tanpawarit/trademind/agent/oracle"
)

// Turn is one assistant reply. When ToolRequests is non-empty the reply is
// a tool round and Message carries the raw calls for the history.
type Turn struct {
	Message      contractx.Message
	ToolRequests []contractx.ToolRequest
}

type turnInput struct {
	System  string
	History []contractx.Message
}

// Assistant is the tool-calling conversational model.
type Assistant struct {
	runner compose.Runnable[turnInput, Turn]
}

func NewAssistant(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	tools []*schema.ToolInfo,
) (*Assistant, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: assistant chat model is nil", contractx.ErrValidation)
	}
	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for assistant: %v", contractx.ErrModelInvoke, err)
	}
	runner, err := compileAssistantGraph(ctx, toolModel)
	if err != nil {
		return nil, fmt.Errorf("%w: compile assistant graph: %v", contractx.ErrModelInvoke, err)
	}
	return &Assistant{runner: runner}, nil
}

// Step sends system plus history to the model and returns its reply.
func (a *Assistant) Step(ctx context.Context, system string, history []contractx.Message) (Turn, error) {
	out, err := a.runner.Invoke(ctx, turnInput{System: system, History: history})
	if err != nil {
		return Turn{}, fmt.Errorf("%w: assistant invoke: %v", contractx.ErrModelInvoke, err)
	}
	return out, nil
}

func toTurn(msg *schema.Message) (Turn, error) {
	if msg == nil {
		return Turn{}, fmt.Errorf("%w: empty assistant response", contractx.ErrSchemaViolation)
	}
	reqs, err := toToolRequests(msg.ToolCalls)
	if err != nil {
		return Turn{}, err
	}
	return Turn{
		Message: contractx.Message{
			Role:      contractx.RoleAssistant,
			Content:   strings.TrimSpace(msg.Content),
			ToolCalls: oraclex.FromSchemaToolCalls(msg.ToolCalls),
		},
		ToolRequests: reqs,
	}, nil
}

// toToolRequests decodes call arguments. Arguments that are not a JSON
// object still yield a request, marked with ArgsError.
func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		req := contractx.ToolRequest{ID: call.ID, Tool: tool, Args: map[string]any{}}
		if rawArgs := strings.TrimSpace(call.Function.Arguments); rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &req.Args); err != nil {
				req.Args = nil
				req.ArgsError = err.Error()
			}
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
