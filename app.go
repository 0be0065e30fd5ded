package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	orchestratorx "github.com/tanpawarit/trademind/agent/agents/orchestrator"
	specialistx "github.com/tanpawarit/trademind/agent/agents/specialist"
	extractx "github.com/tanpawarit/trademind/agent/extract"
	intentx "github.com/tanpawarit/trademind/agent/intent"
	llmx "github.com/tanpawarit/trademind/agent/llm"
	promptx "github.com/tanpawarit/trademind/agent/prompt"
	recommendx "github.com/tanpawarit/trademind/agent/recommend"
	referencex "github.com/tanpawarit/trademind/agent/reference"
	statex "github.com/tanpawarit/trademind/agent/state"
	toolx "github.com/tanpawarit/trademind/agent/tool"
	valuationx "github.com/tanpawarit/trademind/agent/valuation"
	artifactx "github.com/tanpawarit/trademind/pkg/artifact"
	configx "github.com/tanpawarit/trademind/pkg/config"
)

type AppConfig struct {
	DataPrefix         string        `envconfig:"DATA_PREFIX" default:"data"`
	ModelPrefix        string        `envconfig:"MODEL_PREFIX" default:"models"`
	MaxToolRounds      int           `envconfig:"MAX_TOOL_ROUNDS" default:"5"`
	IntentKeywordsFile string        `envconfig:"INTENT_KEYWORDS_FILE"`
	MarkupFile         string        `envconfig:"MARKUP_FILE"`
	ReferenceDSN       string        `envconfig:"REFERENCE_DSN"`
	ConversationTTL    time.Duration `envconfig:"CONVERSATION_TTL" default:"24h"`
}

// domain holds the components that work without a language model.
type domain struct {
	app       *AppConfig
	reference *referencex.Data
	estimator *valuationx.Estimator
	searcher  *recommendx.Searcher
	close     func()
}

func loadDomain(ctx context.Context) (*domain, error) {
	app, err := configx.New[AppConfig]("")
	if err != nil {
		return nil, fmt.Errorf("load app config: %w", err)
	}
	artifactCfg, err := configx.New[artifactx.Config]("ARTIFACT")
	if err != nil {
		return nil, fmt.Errorf("load artifact config: %w", err)
	}
	store, err := artifactx.New(*artifactCfg)
	if err != nil {
		return nil, err
	}

	closeFn := func() {}
	var src referencex.Source
	if app.ReferenceDSN != "" {
		db, err := referencex.OpenPostgres(app.ReferenceDSN)
		if err != nil {
			return nil, err
		}
		closeFn = func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("close reference database")
			}
		}
		src = referencex.NewBunSource(db)
	} else {
		src = referencex.NewCSVSource(store, app.DataPrefix)
	}
	ref := referencex.Load(ctx, src)

	registry := valuationx.NewRegistry(valuationx.NewXGBoostLoader(store, app.ModelPrefix))
	estimator := valuationx.NewEstimator(ref, registry)

	markup, err := recommendx.LoadMarkup(app.MarkupFile)
	if err != nil {
		closeFn()
		return nil, err
	}
	searcher := recommendx.NewSearcher(ref, estimator, recommendx.WithMarkup(markup))

	return &domain{
		app:       app,
		reference: ref,
		estimator: estimator,
		searcher:  searcher,
		close:     closeFn,
	}, nil
}

func (d *domain) tools() ([]*schema.ToolInfo, *toolx.Executor) {
	return toolx.Build(d.estimator, d.searcher, d.reference)
}

func newOrchestrator(ctx context.Context, d *domain) (*orchestratorx.Orchestrator, error) {
	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, fmt.Errorf("load llm config: %w", err)
	}

	infos, executor := d.tools()
	models, err := specialistx.NewRegistry(ctx, *llmCfg, infos)
	if err != nil {
		return nil, err
	}

	prompts, err := promptx.LoadSet()
	if err != nil {
		return nil, err
	}
	vocab, err := intentx.LoadVocabulary(d.app.IntentKeywordsFile)
	if err != nil {
		return nil, err
	}
	tracker, err := intentx.NewTracker(models.Classifier, prompts, intentx.WithVocabulary(vocab))
	if err != nil {
		return nil, err
	}
	extractor, err := extractx.New(models.Extractor, prompts)
	if err != nil {
		return nil, err
	}
	store, err := statex.NewMemoryStore(statex.WithTTL(d.app.ConversationTTL))
	if err != nil {
		return nil, err
	}

	return orchestratorx.New(store, orchestratorx.Deps{
		Tracker:   tracker,
		Extractor: extractor,
		Prompts:   prompts,
		Assistant: models.Assistant,
		Tools:     executor,
	}, orchestratorx.Config{MaxToolRounds: d.app.MaxToolRounds})
}
