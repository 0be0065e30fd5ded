package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	statex "github.com/tanpawarit/trademind/agent/state"
)

// LoadOrCreateState resumes the conversation, or starts one with the welcome
// message, and appends the user's message.
func LoadOrCreateState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	conv, err := loadOrCreateState(ctx, store, in.ConversationID, in.Now)
	if err != nil {
		return nil, err
	}
	conv.Append(contractx.UserMessage(in.Text))
	in.Conv = conv
	return in, nil
}

func loadOrCreateState(ctx context.Context, store statex.Store, id string, now time.Time) (*statex.Conversation, error) {
	conv, err := store.Load(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, statex.ErrStateNotFound) {
		return nil, err
	}

	log.Info().Str("conversation_id", id).Msg("starting new conversation")
	return statex.NewConversation(id, now), nil
}
