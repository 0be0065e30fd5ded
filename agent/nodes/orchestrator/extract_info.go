package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/trademind/agent/contract"
)

func ExtractInfo(ctx context.Context, in *GraphState, extractor InfoExtractor) (*GraphState, error) {
	if in == nil || in.Conv == nil {
		return nil, fmt.Errorf("%w: graph conversation is nil", contractx.ErrValidation)
	}

	conv := in.Conv
	conv.Device, conv.Buying = extractor.Extract(ctx, conv.Intent, conv.Transcript(), conv.Device, conv.Buying)

	log.Debug().
		Str("conversation_id", conv.ID).
		Str("intent", string(conv.Intent)).
		Interface("device", conv.Device).
		Interface("buying", conv.Buying).
		Msg("conversation facts after extraction")
	return in, nil
}
