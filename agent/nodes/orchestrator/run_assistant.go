package orchestratornode

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	toolx "github.com/tanpawarit/trademind/agent/tool"
)

// FallbackReply replaces an empty assistant answer.
const FallbackReply = "Lo siento, no he entendido tu consulta. ¿Podrías reformularla?"

// RunAssistant alternates assistant turns and tool rounds until the model
// answers in text or maxRounds tool rounds have run. An assistant failure
// is reported as ErrOracleUnavailable.
func RunAssistant(
	ctx context.Context,
	in *GraphState,
	assistant AssistantModel,
	tools contractx.ToolGateway,
	maxRounds int,
) (*GraphState, error) {
	if in == nil || in.Conv == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	for {
		turn, err := assistant.Step(ctx, in.System, in.Conv.Messages)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrOracleUnavailable, err)
		}

		if len(turn.ToolRequests) == 0 {
			in.Reply = replyText(turn.Message.Content)
			in.Conv.Append(contractx.AssistantMessage(in.Reply))
			return in, nil
		}

		if in.ToolRounds >= maxRounds {
			log.Warn().
				Str("conversation_id", in.Conv.ID).
				Int("rounds", in.ToolRounds).
				Msg("tool round limit reached, answering without tools")
			in.Reply = replyText(turn.Message.Content)
			in.Conv.Append(contractx.AssistantMessage(in.Reply))
			return in, nil
		}

		in.Conv.Append(turn.Message)
		results, err := tools.Execute(ctx, turn.ToolRequests)
		if err != nil {
			return nil, fmt.Errorf("execute tools: %w", err)
		}
		for _, res := range results {
			in.Conv.Append(toolMessage(res))
			recordEstimate(in, res)
		}
		in.ToolRounds++
	}
}

func replyText(content string) string {
	if content == "" {
		return FallbackReply
	}
	return content
}

// toolMessage serializes a result for the model: the result value as JSON,
// or {"error": ...} when the call itself failed.
func toolMessage(res contractx.ToolResult) contractx.Message {
	var payload any = res.Result
	if res.Error != "" {
		payload = map[string]string{"error": res.Error}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return contractx.Message{
		Role:       contractx.RoleTool,
		Content:    string(raw),
		ToolCallID: res.ID,
		ToolName:   res.Tool,
	}
}

// recordEstimate keeps the latest successful valuation on the device being
// sold.
func recordEstimate(in *GraphState, res contractx.ToolResult) {
	if res.Tool != toolx.ToolPredictPrice || res.Error != "" || in.Conv.Intent != contractx.IntentSell {
		return
	}
	if out, ok := res.Result.(toolx.PriceOutput); ok {
		in.Conv.Device.EstimatedPrice = contractx.Ptr(out.Price)
	}
}
