package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/trademind/agent/contract"
)

func BuildPrompt(ctx context.Context, in *GraphState, prompts PromptBuilder) (*GraphState, error) {
	if in == nil || in.Conv == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	system, stage, err := prompts.System(ctx, in.Conv)
	if err != nil {
		return nil, fmt.Errorf("build system prompt: %w", err)
	}
	in.System = system
	if stage != "" {
		in.Conv.Stage = stage
	}
	return in, nil
}
