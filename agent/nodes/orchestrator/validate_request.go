package orchestratornode

import (
	"context"
	"errors"
	"strings"
	"time"

	specialistx "github.com/tanpawarit/trademind/agent/agents/specialist"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	statex "github.com/tanpawarit/trademind/agent/state"
)

var (
	ErrInvalidMessage      = errors.New("message is empty")
	ErrInvalidConversation = errors.New("conversation id is empty")
)

// IntentDecider is satisfied by *intent.Tracker.
type IntentDecider interface {
	Decide(ctx context.Context, history []contractx.Message, current contractx.Intent) contractx.Intent
}

// InfoExtractor is satisfied by *extract.Extractor.
type InfoExtractor interface {
	Extract(
		ctx context.Context,
		intent contractx.Intent,
		transcript string,
		device contractx.DeviceInfo,
		buying contractx.BuyingInfo,
	) (contractx.DeviceInfo, contractx.BuyingInfo)
}

// PromptBuilder is satisfied by prompt.Set.
type PromptBuilder interface {
	System(ctx context.Context, conv *statex.Conversation) (string, statex.Stage, error)
}

// AssistantModel is satisfied by *specialist.Assistant.
type AssistantModel interface {
	Step(ctx context.Context, system string, history []contractx.Message) (specialistx.Turn, error)
}

type GraphInput struct {
	ConversationID string
	Text           string
}

type GraphOutput struct {
	Reply  string
	Intent contractx.Intent
	Stage  statex.Stage
}

type GraphState struct {
	ConversationID string
	Text           string
	Now            time.Time

	Conv       *statex.Conversation
	System     string
	ToolRounds int

	Reply string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	id := strings.TrimSpace(in.ConversationID)
	if id == "" {
		return nil, ErrInvalidConversation
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		ConversationID: id,
		Text:           text,
		Now:            nowFn().UTC(),
	}, nil
}
