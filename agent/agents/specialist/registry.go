package specialist

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	llmx "github.com/tanpawarit/trademind/agent/llm"
	oraclex "github.com/tanpawarit/trademind/agent/oracle"
	openrouterx "github.com/tanpawarit/trademind/pkg/openrouter"
)

// Models holds the language models of one deployment.
type Models struct {
	Classifier contractx.Oracle
	Extractor  contractx.Oracle
	Assistant  *Assistant
}

func NewRegistry(ctx context.Context, cfg llmx.Config, tools []*schema.ToolInfo) (*Models, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	classifier, err := newOracle(ctx, cfg, llmx.RoleClassifier)
	if err != nil {
		return nil, err
	}
	extractor, err := newOracle(ctx, cfg, llmx.RoleExtractor)
	if err != nil {
		return nil, err
	}

	assistantCfg := cfg.OpenRouterFor(llmx.RoleAssistant)
	assistantModel, err := assistantCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create assistant model: %v", contractx.ErrModelInvoke, err)
	}
	assistant, err := NewAssistant(ctx, assistantModel, tools)
	if err != nil {
		return nil, err
	}

	return &Models{Classifier: classifier, Extractor: extractor, Assistant: assistant}, nil
}

func newOracle(ctx context.Context, cfg llmx.Config, role llmx.Role) (contractx.Oracle, error) {
	roleCfg := cfg.OpenRouterFor(role)
	if cfg.Backend == llmx.BackendOpenAI {
		client := openrouterx.NewClient(roleCfg)
		if client == nil {
			return nil, fmt.Errorf("%w: openai client for %s", contractx.ErrValidation, role)
		}
		o, err := oraclex.NewCompletionOracle(client, roleCfg.Model, roleCfg.Temperature, string(role))
		if err != nil {
			return nil, err
		}
		return o, nil
	}

	chatModel, err := roleCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, role, err)
	}
	o, err := oraclex.NewChatModelOracle(ctx, chatModel, string(role))
	if err != nil {
		return nil, err
	}
	return o, nil
}
