package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	oraclex "github.com/tanpawarit/trademind/agent/oracle"
)

func compileAssistantGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
) (compose.Runnable[turnInput, Turn], error) {
	graph := compose.NewGraph[turnInput, Turn]()

	if err := graph.AddLambdaNode("messages",
		compose.InvokableLambda(func(ctx context.Context, in turnInput) ([]*schema.Message, error) {
			return oraclex.ToSchemaMessages(in.System, in.History), nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add assistant messages node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add assistant model node: %w", err)
	}
	if err := graph.AddLambdaNode("to_turn",
		compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (Turn, error) {
			return toTurn(msg)
		}),
	); err != nil {
		return nil, fmt.Errorf("add assistant turn node: %w", err)
	}

	edges := [][2]string{
		{compose.START, "messages"},
		{"messages", "model"},
		{"model", "to_turn"},
		{"to_turn", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add assistant edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("specialist.assistant_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile assistant graph: %w", err)
	}
	return runner, nil
}
