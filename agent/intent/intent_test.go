package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	metricsx "github.com/tanpawarit/trademind/agent/metrics"
	promptx "github.com/tanpawarit/trademind/agent/prompt"
	statex "github.com/tanpawarit/trademind/agent/state"
)

type scriptedOracle struct {
	replies []string
	err     error
	prompts []string
}

func (s *scriptedOracle) Ask(ctx context.Context, system string, history []contractx.Message) (string, error) {
	s.prompts = append(s.prompts, system)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply left")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func newTracker(t *testing.T, o contractx.Oracle) *Tracker {
	t.Helper()
	tr, err := NewTracker(o, promptx.MustLoadSet())
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	return tr
}

func dialogue(user ...string) []contractx.Message {
	msgs := []contractx.Message{contractx.AssistantMessage(statex.WelcomeMessage)}
	for i, u := range user {
		if i > 0 {
			msgs = append(msgs, contractx.AssistantMessage("¿Algo más?"))
		}
		msgs = append(msgs, contractx.UserMessage(u))
	}
	return msgs
}

func TestDecideAdoptsInitialIntent(t *testing.T) {
	t.Parallel()

	o := &scriptedOracle{replies: []string{" Sell\n"}}
	got := newTracker(t, o).Decide(context.Background(), dialogue("Quiero vender mi iPhone 12"), "")
	if got != contractx.IntentSell {
		t.Fatalf("Decide() = %q, want sell", got)
	}
	if len(o.prompts) != 1 {
		t.Fatalf("expected 1 oracle call, got %d", len(o.prompts))
	}
	if !strings.Contains(o.prompts[0], "Quiero vender mi iPhone 12") || !strings.Contains(o.prompts[0], "INTENCIÓN ACTUAL: none") {
		t.Fatalf("detect prompt missing message or hint:\n%s", o.prompts[0])
	}
}

func TestDecideConfidenceGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		confidence string
		want       contractx.Intent
	}{
		{name: "at threshold keeps", confidence: "0.7", want: contractx.IntentSell},
		{name: "above threshold switches", confidence: "0.71", want: contractx.IntentBuy},
		{name: "unparseable defaults to 0.5", confidence: "bastante alta", want: contractx.IntentSell},
		{name: "clamped above one switches", confidence: "3", want: contractx.IntentBuy},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o := &scriptedOracle{replies: []string{"buy", tt.confidence}}
			got := newTracker(t, o).Decide(context.Background(), dialogue("Quiero vender", "Mejor quiero comprar uno"), contractx.IntentSell)
			if got != tt.want {
				t.Fatalf("Decide() = %q, want %q", got, tt.want)
			}
			if len(o.prompts) != 2 {
				t.Fatalf("expected detect + verify calls, got %d", len(o.prompts))
			}
			if !strings.Contains(o.prompts[1], `de "sell" a "buy"`) {
				t.Fatalf("verify prompt missing transition:\n%s", o.prompts[1])
			}
		})
	}
}

func TestDecidePersistence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		oracle  *scriptedOracle
		current contractx.Intent
		want    contractx.Intent
		calls   int
	}{
		{name: "none never overwrites specific", oracle: &scriptedOracle{replies: []string{"none"}}, current: contractx.IntentBuy, want: contractx.IntentBuy, calls: 1},
		{name: "same label keeps", oracle: &scriptedOracle{replies: []string{"buy"}}, current: contractx.IntentBuy, want: contractx.IntentBuy, calls: 1},
		{name: "invalid label keeps", oracle: &scriptedOracle{replies: []string{"purchase"}}, current: contractx.IntentBuy, want: contractx.IntentBuy, calls: 1},
		{name: "oracle failure keeps", oracle: &scriptedOracle{err: errors.New("timeout")}, current: contractx.IntentGraphic, want: contractx.IntentGraphic, calls: 1},
		{name: "verify failure keeps", oracle: &scriptedOracle{replies: []string{"sell"}}, current: contractx.IntentBuy, want: contractx.IntentBuy, calls: 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := newTracker(t, tt.oracle).Decide(context.Background(), dialogue("Entonces, ¿qué opciones hay?"), tt.current)
			if got != tt.want {
				t.Fatalf("Decide() = %q, want %q", got, tt.want)
			}
			if len(tt.oracle.prompts) != tt.calls {
				t.Fatalf("oracle calls = %d, want %d", len(tt.oracle.prompts), tt.calls)
			}
		})
	}
}

func TestDecideInvalidLabelWithoutIntentAdoptsNone(t *testing.T) {
	t.Parallel()

	o := &scriptedOracle{replies: []string{"no lo sé"}}
	if got := newTracker(t, o).Decide(context.Background(), dialogue("hola"), ""); got != contractx.IntentNone {
		t.Fatalf("Decide() = %q, want none", got)
	}
}

func TestDecideSkipsWhenNothingSuggestsChange(t *testing.T) {
	t.Parallel()

	o := &scriptedOracle{}
	history := dialogue("Quiero vender mi móvil", "Tiene 128GB")
	if len(history)%3 == 0 {
		t.Fatalf("fixture must not hit the cadence, len=%d", len(history))
	}
	got := newTracker(t, o).Decide(context.Background(), history, contractx.IntentSell)
	if got != contractx.IntentSell {
		t.Fatalf("Decide() = %q, want sell", got)
	}
	if len(o.prompts) != 0 {
		t.Fatalf("expected no oracle call, got %d", len(o.prompts))
	}
}

func TestShouldCheckCadenceAndTopicShift(t *testing.T) {
	t.Parallel()

	v := DefaultVocabulary()
	cadence := []contractx.Message{
		contractx.AssistantMessage("hola"),
		contractx.UserMessage("vendo"),
		contractx.UserMessage("tiene 64GB"),
	}
	if !v.ShouldCheck(cadence, contractx.IntentSell) {
		t.Fatalf("expected a check on every third message")
	}

	shift := dialogue("vendo", "y entonces tiene 64GB")
	if len(shift)%3 == 0 {
		t.Fatalf("fixture must not hit the cadence")
	}
	if !v.ShouldCheck(shift, contractx.IntentSell) {
		t.Fatalf("expected a check after a topic-shift keyword")
	}
}

func TestChangePotential(t *testing.T) {
	t.Parallel()

	v := DefaultVocabulary()
	tests := []struct {
		name    string
		msgs    []contractx.Message
		current contractx.Intent
		want    bool
	}{
		{name: "single message", msgs: []contractx.Message{contractx.UserMessage("hola")}, current: contractx.IntentSell, want: true},
		{name: "no intent", msgs: dialogue("tiene 64GB"), current: "", want: true},
		{name: "accented change phrase", msgs: dialogue("PENSÁNDOLO MEJOR lo quiero tasar"), current: contractx.IntentSell, want: true},
		{name: "other category keyword", msgs: dialogue("quiero ver la gráfica"), current: contractx.IntentSell, want: true},
		{name: "same category keyword", msgs: dialogue("lo quiero vender ya"), current: contractx.IntentSell, want: false},
		{name: "question starter", msgs: dialogue("¿Cuánto tarda?"), current: contractx.IntentSell, want: false},
		{name: "bare question starter", msgs: dialogue("Cuánto tarda el envío"), current: contractx.IntentSell, want: true},
		{name: "plain answer", msgs: dialogue("tiene 64GB"), current: contractx.IntentSell, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := v.ChangePotential(tt.msgs, tt.current); got != tt.want {
				t.Fatalf("ChangePotential() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseConfidence(t *testing.T) {
	t.Parallel()

	tests := map[string]float64{"0.85": 0.85, " 1.0 ": 1, "-2": 0, "NaN": 0.5, "": 0.5}
	for in, want := range tests {
		if got := ParseConfidence(in); got != want {
			t.Fatalf("ParseConfidence(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseVocabularyValidation(t *testing.T) {
	t.Parallel()

	if _, err := ParseVocabulary([]byte("verify_every: 0\ncontext_window: 3\n")); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for zero cadence, got %v", err)
	}
	if _, err := ParseVocabulary([]byte("verify_every: 3\ncontext_window: 3\nintents:\n  rent: [alquilar]\n")); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown category, got %v", err)
	}
	if got := Normalize("Depreciación"); got != "depreciacion" {
		t.Fatalf("Normalize() = %q", got)
	}
}

func TestDecideRecordsDecisionMetric(t *testing.T) {
	t.Parallel()

	adopted := metricsx.IntentDecisions.WithLabelValues("adopted")
	before := testutil.ToFloat64(adopted)

	o := &scriptedOracle{replies: []string{"buy"}}
	newTracker(t, o).Decide(context.Background(), dialogue("Busco un móvil barato"), "")

	if after := testutil.ToFloat64(adopted); after < before+1 {
		t.Fatalf("adopted counter = %v, want at least %v", after, before+1)
	}
}
