package oracle

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	metricsx "github.com/tanpawarit/trademind/agent/metrics"
)

var _ contractx.Oracle = (*ChatModelOracle)(nil)

type askInput struct {
	System  string
	History []contractx.Message
}

// ChatModelOracle answers through an eino chat model compiled into a
// two-node graph (message assembly, then the model).
type ChatModelOracle struct {
	caller string
	runner compose.Runnable[askInput, *schema.Message]
}

func NewChatModelOracle(ctx context.Context, chatModel einomodel.BaseChatModel, caller string) (*ChatModelOracle, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is nil", contractx.ErrValidation)
	}

	graph := compose.NewGraph[askInput, *schema.Message]()
	if err := graph.AddLambdaNode("messages",
		compose.InvokableLambda(func(ctx context.Context, in askInput) ([]*schema.Message, error) {
			return ToSchemaMessages(in.System, in.History), nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add oracle messages node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add oracle model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "messages"); err != nil {
		return nil, fmt.Errorf("add oracle edge start->messages: %w", err)
	}
	if err := graph.AddEdge("messages", "model"); err != nil {
		return nil, fmt.Errorf("add oracle edge messages->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add oracle edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("oracle."+caller))
	if err != nil {
		return nil, fmt.Errorf("%w: compile oracle graph: %v", contractx.ErrModelInvoke, err)
	}
	return &ChatModelOracle{caller: caller, runner: runner}, nil
}

func (o *ChatModelOracle) Ask(ctx context.Context, system string, history []contractx.Message) (string, error) {
	msg, err := o.runner.Invoke(ctx, askInput{System: system, History: history})
	if err != nil {
		metricsx.OracleFailures.WithLabelValues(o.caller).Inc()
		log.Warn().Err(err).Str("caller", o.caller).Msg("oracle call failed")
		return "", fmt.Errorf("%w: %s: %v", contractx.ErrModelInvoke, o.caller, err)
	}
	if msg == nil {
		metricsx.OracleFailures.WithLabelValues(o.caller).Inc()
		return "", fmt.Errorf("%w: %s: empty response", contractx.ErrSchemaViolation, o.caller)
	}
	return strings.TrimSpace(msg.Content), nil
}
