package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	nodex "github.com/tanpawarit/trademind/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/trademind/agent/state"
)

var (
	ErrInvalidMessage      = nodex.ErrInvalidMessage
	ErrInvalidConversation = nodex.ErrInvalidConversation
)

const defaultMaxToolRounds = 5

type Config struct {
	MaxToolRounds int
}

// Deps are the per-turn collaborators. Every field is required.
type Deps struct {
	Tracker   nodex.IntentDecider
	Extractor nodex.InfoExtractor
	Prompts   nodex.PromptBuilder
	Assistant nodex.AssistantModel
	Tools     contractx.ToolGateway
}

// Reply is the outcome of one turn.
type Reply = nodex.GraphOutput

type Orchestrator struct {
	store statex.Store
	deps  Deps

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	maxToolRounds int
	now           func() time.Time
}

func New(store statex.Store, deps Deps, cfg Config) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if deps.Tracker == nil {
		return nil, errors.New("intent tracker is required")
	}
	if deps.Extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if deps.Prompts == nil {
		return nil, errors.New("prompt builder is required")
	}
	if deps.Assistant == nil {
		return nil, errors.New("assistant model is required")
	}
	if deps.Tools == nil {
		return nil, errors.New("tool gateway is required")
	}

	maxToolRounds := cfg.MaxToolRounds
	if maxToolRounds <= 0 {
		maxToolRounds = defaultMaxToolRounds
	}

	o := &Orchestrator{
		store:         store,
		deps:          deps,
		maxToolRounds: maxToolRounds,
		now:           time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Begin opens a conversation and returns its id and welcome message. An
// empty id gets a fresh uuid.
func (o *Orchestrator) Begin(ctx context.Context, conversationID string) (string, string, error) {
	conv := statex.NewConversation(conversationID, o.now())
	if err := o.store.Save(ctx, conv); err != nil {
		return "", "", fmt.Errorf("save new conversation: %w", err)
	}
	return conv.ID, statex.WelcomeMessage, nil
}

func (o *Orchestrator) HandleMessage(ctx context.Context, conversationID string, text string) (string, error) {
	out, err := o.Turn(ctx, conversationID, text)
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

// Turn is HandleMessage with the intent and stage the turn settled on.
func (o *Orchestrator) Turn(ctx context.Context, conversationID string, text string) (Reply, error) {
	return o.graphRunner.Invoke(ctx, nodex.GraphInput{
		ConversationID: conversationID,
		Text:           text,
	})
}
