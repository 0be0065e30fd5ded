package oracle

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	metricsx "github.com/tanpawarit/trademind/agent/metrics"
)

var _ contractx.Oracle = (*CompletionOracle)(nil)

// CompletionOracle talks to an OpenAI-compatible endpoint directly through
// the chat completions API. Tool traffic in history is skipped.
type CompletionOracle struct {
	client      *openaisdk.Client
	model       string
	temperature float64
	caller      string
}

func NewCompletionOracle(client *openaisdk.Client, model string, temperature float32, caller string) (*CompletionOracle, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: model is required", contractx.ErrValidation)
	}
	return &CompletionOracle{
		client:      client,
		model:       strings.TrimSpace(model),
		temperature: float64(temperature),
		caller:      caller,
	}, nil
}

func (o *CompletionOracle) Ask(ctx context.Context, system string, history []contractx.Message) (string, error) {
	msgs := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, openaisdk.SystemMessage(system))
	}
	for _, m := range history {
		switch m.Role {
		case contractx.RoleUser:
			msgs = append(msgs, openaisdk.UserMessage(m.Content))
		case contractx.RoleAssistant:
			if strings.TrimSpace(m.Content) != "" {
				msgs = append(msgs, openaisdk.AssistantMessage(m.Content))
			}
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(o.model),
		Messages:    msgs,
		Temperature: openaisdk.Float(o.temperature),
	})
	if err != nil {
		metricsx.OracleFailures.WithLabelValues(o.caller).Inc()
		log.Warn().Err(err).Str("caller", o.caller).Msg("completion call failed")
		return "", fmt.Errorf("%w: %s: %v", contractx.ErrModelInvoke, o.caller, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		metricsx.OracleFailures.WithLabelValues(o.caller).Inc()
		return "", fmt.Errorf("%w: %s: no choices", contractx.ErrSchemaViolation, o.caller)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
