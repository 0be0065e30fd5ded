package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/trademind/agent/contract"
	statex "github.com/tanpawarit/trademind/agent/state"
)

func ValidateAndSaveState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Conv == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	in.Conv.Touch(in.Now)
	if err := in.Conv.Validate(); err != nil {
		return nil, fmt.Errorf("state validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Conv); err != nil {
		return nil, err
	}
	return in, nil
}
