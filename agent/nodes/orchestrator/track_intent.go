package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/trademind/agent/contract"
)

func TrackIntent(ctx context.Context, in *GraphState, tracker IntentDecider) (*GraphState, error) {
	if in == nil || in.Conv == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	in.Conv.Intent = tracker.Decide(ctx, in.Conv.Dialogue(), in.Conv.Intent)
	return in, nil
}

// NeedsExtraction reports whether the current intent has facts to extract.
func NeedsExtraction(in *GraphState) bool {
	return in != nil && in.Conv != nil && in.Conv.Intent.IsSpecific()
}
