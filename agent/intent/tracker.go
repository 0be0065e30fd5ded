package intent

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	metricsx "github.com/tanpawarit/trademind/agent/metrics"
	promptx "github.com/tanpawarit/trademind/agent/prompt"
	statex "github.com/tanpawarit/trademind/agent/state"
)

const defaultConfidence = 0.5

type Option func(*Tracker)

func WithVocabulary(v Vocabulary) Option {
	return func(t *Tracker) {
		t.vocab = v
	}
}

// Tracker decides once per turn whether the conversation goal changes.
type Tracker struct {
	oracle  contractx.Oracle
	prompts promptx.Set
	vocab   Vocabulary
}

func NewTracker(oracle contractx.Oracle, prompts promptx.Set, opts ...Option) (*Tracker, error) {
	if oracle == nil {
		return nil, fmt.Errorf("%w: intent oracle is nil", contractx.ErrValidation)
	}
	t := &Tracker{
		oracle:  oracle,
		prompts: prompts,
		vocab:   DefaultVocabulary(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t, nil
}

// Decide returns the intent to carry forward. history is the user/assistant
// dialogue ending with the message being evaluated. It never fails: any
// oracle problem keeps current.
func (t *Tracker) Decide(ctx context.Context, history []contractx.Message, current contractx.Intent) contractx.Intent {
	if len(history) == 0 {
		return current
	}
	if !t.vocab.ShouldCheck(history, current) {
		record("skipped")
		return current
	}

	detected, err := t.classify(ctx, history, current)
	if err != nil {
		log.Warn().Err(err).Str("current", string(current)).Msg("intent classification failed, keeping current")
		record("failed")
		return current
	}

	switch {
	case current == "":
		log.Info().Str("intent", string(detected)).Msg("initial intent set")
		record("adopted")
		return detected
	case detected == current:
		record("kept")
		return current
	case !detected.IsSpecific():
		record("kept")
		return current
	}

	confidence, err := t.confidence(ctx, history[len(history)-1].Content, current, detected)
	if err != nil {
		log.Warn().Err(err).Str("current", string(current)).Str("candidate", string(detected)).Msg("intent verification failed, keeping current")
		record("failed")
		return current
	}
	if confidence > t.vocab.SwitchThreshold {
		log.Info().
			Str("from", string(current)).
			Str("to", string(detected)).
			Float64("confidence", confidence).
			Msg("intent changed")
		record("switched")
		return detected
	}

	log.Info().
		Str("current", string(current)).
		Str("candidate", string(detected)).
		Float64("confidence", confidence).
		Msg("intent change rejected")
	record("rejected")
	return current
}

// classify asks the oracle for a label. Unknown labels fall back to current
// (none when unset).
func (t *Tracker) classify(ctx context.Context, history []contractx.Message, current contractx.Intent) (contractx.Intent, error) {
	last := history[len(history)-1]
	start := len(history) - t.vocab.ContextWindow
	if start < 0 {
		start = 0
	}
	window := history[start : len(history)-1]

	hint := current
	if hint == "" {
		hint = contractx.IntentNone
	}
	system, err := t.prompts.Render(ctx, promptx.DetectIntent, map[string]any{
		"message": last.Content,
		"context": statex.RenderTranscript(window),
		"intent":  string(hint),
	})
	if err != nil {
		return "", err
	}

	reply, err := t.oracle.Ask(ctx, system, nil)
	if err != nil {
		return "", err
	}

	detected, ok := contractx.ParseIntent(reply)
	if !ok {
		log.Warn().Str("reply", reply).Str("current", string(hint)).Msg("invalid intent label, keeping current")
		return hint, nil
	}
	return detected, nil
}

func (t *Tracker) confidence(ctx context.Context, message string, current, candidate contractx.Intent) (float64, error) {
	system, err := t.prompts.Render(ctx, promptx.VerifyIntent, map[string]any{
		"current":   string(current),
		"candidate": string(candidate),
		"message":   message,
	})
	if err != nil {
		return 0, err
	}
	reply, err := t.oracle.Ask(ctx, system, nil)
	if err != nil {
		return 0, err
	}
	return ParseConfidence(reply), nil
}

// ParseConfidence reads a score in [0,1]; unreadable replies score 0.5.
func ParseConfidence(reply string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil || math.IsNaN(v) {
		log.Warn().Str("reply", reply).Msg("could not parse confidence value")
		return defaultConfidence
	}
	return math.Max(0, math.Min(1, v))
}

func record(decision string) {
	metricsx.IntentDecisions.WithLabelValues(decision).Inc()
}
