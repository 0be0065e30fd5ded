package contract

import "context"

// Oracle is the opaque text-generation capability used for classification,
// confidence scoring and JSON extraction. Implementations fail fast; callers
// decide how to degrade.
type Oracle interface {
	Ask(ctx context.Context, system string, history []Message) (string, error)
}

// OracleFunc adapts a plain function to Oracle.
type OracleFunc func(ctx context.Context, system string, history []Message) (string, error)

func (f OracleFunc) Ask(ctx context.Context, system string, history []Message) (string, error) {
	return f(ctx, system, history)
}

type ToolGateway interface {
	Execute(ctx context.Context, reqs []ToolRequest) ([]ToolResult, error)
}
