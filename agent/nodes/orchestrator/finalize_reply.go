package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/trademind/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Conv == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: assistant returned empty message", contractx.ErrValidation)
	}
	return GraphOutput{Reply: reply, Intent: in.Conv.Intent, Stage: in.Conv.Stage}, nil
}
