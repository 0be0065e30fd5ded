package llm

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/trademind/agent/contract"
)

func TestOpenRouterForRoleOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:                " key ",
		Model:                 "default/model",
		Temperature:           0.5,
		MaxCompletionToken:    1500,
		ClassifierModel:       "small/model",
		ClassifierTemperature: 0,
		ExtractorTemperature:  -1,
		AssistantModel:        "",
		AssistantTemperature:  0.9,
	}

	classifier := cfg.OpenRouterFor(RoleClassifier)
	if classifier.Model != "small/model" || classifier.Temperature != 0 {
		t.Fatalf("unexpected classifier config: %+v", classifier)
	}
	if classifier.APIKey != "key" {
		t.Fatalf("api key not trimmed: %q", classifier.APIKey)
	}
	if classifier.MaxCompletionToken == nil || *classifier.MaxCompletionToken != 1500 {
		t.Fatalf("unexpected max tokens: %v", classifier.MaxCompletionToken)
	}

	extractor := cfg.OpenRouterFor(RoleExtractor)
	if extractor.Model != "default/model" || extractor.Temperature != 0.5 {
		t.Fatalf("unexpected extractor config: %+v", extractor)
	}

	assistant := cfg.OpenRouterFor(RoleAssistant)
	if assistant.Model != "default/model" || assistant.Temperature != float32(0.9) {
		t.Fatalf("unexpected assistant config: %+v", assistant)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	ok := Config{APIKey: "k", Model: "m", Backend: BackendOpenAI}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, cfg := range []Config{
		{Model: "m"},
		{APIKey: "k"},
		{APIKey: "k", Model: "m", Backend: "grpc"},
	} {
		if err := cfg.Validate(); !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("expected ErrValidation for %+v, got %v", cfg, err)
		}
	}
}
