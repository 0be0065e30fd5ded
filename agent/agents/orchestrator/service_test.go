package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	specialistx "github.com/tanpawarit/trademind/agent/agents/specialist"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	extractx "github.com/tanpawarit/trademind/agent/extract"
	intentx "github.com/tanpawarit/trademind/agent/intent"
	nodex "github.com/tanpawarit/trademind/agent/nodes/orchestrator"
	promptx "github.com/tanpawarit/trademind/agent/prompt"
	recommendx "github.com/tanpawarit/trademind/agent/recommend"
	referencex "github.com/tanpawarit/trademind/agent/reference"
	statex "github.com/tanpawarit/trademind/agent/state"
	toolx "github.com/tanpawarit/trademind/agent/tool"
	valuationx "github.com/tanpawarit/trademind/agent/valuation"
)

var fixedNow = time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC)

type fakeToolCallingModel struct {
	responses []*schema.Message
	err       error
	idx       int
	inputs    [][]*schema.Message
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

// classifierOracle answers detection prompts from labels and verification
// prompts with confidence.
type classifierOracle struct {
	labels     []string
	confidence string
	calls      int
}

func (c *classifierOracle) Ask(ctx context.Context, system string, history []contractx.Message) (string, error) {
	c.calls++
	if strings.Contains(system, "MENSAJE A ANALIZAR") {
		if len(c.labels) == 0 {
			return "none", nil
		}
		label := c.labels[0]
		c.labels = c.labels[1:]
		return label, nil
	}
	return c.confidence, nil
}

type constRegressor float64

func (r constRegressor) Predict([]float64) (float64, error) {
	return float64(r), nil
}

type failingStore struct {
	statex.Store
	err error
}

func (f failingStore) Save(ctx context.Context, c *statex.Conversation) error {
	return f.err
}

type countingExtractor struct {
	calls int
}

func (c *countingExtractor) Extract(
	ctx context.Context,
	intent contractx.Intent,
	transcript string,
	device contractx.DeviceInfo,
	buying contractx.BuyingInfo,
) (contractx.DeviceInfo, contractx.BuyingInfo) {
	c.calls++
	return device, buying
}

type harness struct {
	orch       *Orchestrator
	store      *statex.MemoryStore
	model      *fakeToolCallingModel
	classifier *classifierOracle
}

func newHarness(t *testing.T, classifier *classifierOracle, extractorReply string, responses ...*schema.Message) *harness {
	t.Helper()
	ctx := context.Background()
	prompts := promptx.MustLoadSet()

	store, err := statex.NewMemoryStore(statex.WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}

	tracker, err := intentx.NewTracker(classifier, prompts)
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	extractorOracle := contractx.OracleFunc(func(ctx context.Context, system string, history []contractx.Message) (string, error) {
		return extractorReply, nil
	})
	extractor, err := extractx.New(extractorOracle, prompts)
	if err != nil {
		t.Fatalf("extract.New() error = %v", err)
	}

	ref := referencex.New(referencex.Tables{
		ModelCodes:  map[string]float64{"iPhone 12": 17},
		BrandModels: map[string][]string{"apple": {"Apple iPhone 12"}},
	})
	registry := valuationx.NewRegistry(valuationx.LoaderFunc(func(ctx context.Context, brand string) (valuationx.Regressor, error) {
		return constRegressor(5.3), nil
	}))
	estimator := valuationx.NewEstimator(ref, registry, valuationx.WithClock(func() time.Time { return fixedNow }))
	searcher := recommendx.NewSearcher(ref, estimator)
	infos, executor := toolx.Build(estimator, searcher, ref)

	model := &fakeToolCallingModel{responses: responses}
	assistant, err := specialistx.NewAssistant(ctx, model, infos)
	if err != nil {
		t.Fatalf("NewAssistant() error = %v", err)
	}

	orch, err := New(store, Deps{
		Tracker:   tracker,
		Extractor: extractor,
		Prompts:   prompts,
		Assistant: assistant,
		Tools:     executor,
	}, Config{MaxToolRounds: 3})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	orch.now = func() time.Time { return fixedNow }

	return &harness{orch: orch, store: store, model: model, classifier: classifier}
}

func TestHandleMessageSellIPhone12(t *testing.T) {
	t.Parallel()

	h := newHarness(t,
		&classifierOracle{labels: []string{"sell"}, confidence: "0.2"},
		"```json\n{\"brand\": \"Apple\", \"model\": \"iPhone 12\", \"storage\": \"\", \"has_5g\": true, \"release_date\": \"2020-10-23\"}\n```",
		schema.AssistantMessage("", []schema.ToolCall{{
			ID: "call_1",
			Function: schema.FunctionCall{
				Name:      toolx.ToolPredictPrice,
				Arguments: `{"brand":"Apple","model":"iPhone 12","storage":"64GB","has_5g":true,"release_date":"2020-10-23","grade":"C"}`,
			},
		}}),
		schema.AssistantMessage("¡Genial! ¿Qué capacidad de almacenamiento tiene tu iPhone 12?", nil),
	)
	ctx := context.Background()

	id, welcome, err := h.orch.Begin(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if id != "conv-1" || welcome != statex.WelcomeMessage {
		t.Fatalf("unexpected begin result: %s %q", id, welcome)
	}

	out, err := h.orch.Turn(ctx, "conv-1", "Quiero vender mi iPhone 12")
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if out.Reply != "¡Genial! ¿Qué capacidad de almacenamiento tiene tu iPhone 12?" {
		t.Fatalf("unexpected reply: %q", out.Reply)
	}
	if out.Intent != contractx.IntentSell {
		t.Fatalf("unexpected intent: %q", out.Intent)
	}

	conv, err := h.store.Load(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	d := conv.Device
	if d.Brand != "Apple" || d.Model != "iPhone 12" || d.Storage != "" || d.Grade != contractx.GradeC {
		t.Fatalf("unexpected device: %#v", d)
	}
	if d.Has5G == nil || !*d.Has5G {
		t.Fatalf("has_5g not extracted: %v", d.Has5G)
	}
	if d.ReleaseDate == nil || !d.ReleaseDate.Equal(time.Date(2020, 10, 23, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("release date not extracted: %v", d.ReleaseDate)
	}
	if d.EstimatedPrice == nil || *d.EstimatedPrice <= 0 {
		t.Fatalf("estimate not recorded: %v", d.EstimatedPrice)
	}

	var toolMsg *contractx.Message
	for i := range conv.Messages {
		if conv.Messages[i].Role == contractx.RoleTool {
			toolMsg = &conv.Messages[i]
		}
	}
	if toolMsg == nil || toolMsg.ToolCallID != "call_1" || !strings.Contains(toolMsg.Content, `"price":`) {
		t.Fatalf("unexpected tool message: %#v", toolMsg)
	}

	system := h.model.inputs[0][0]
	if system.Role != schema.System || !strings.Contains(system.Content, "iPhone 12") {
		t.Fatalf("selling prompt should carry the inferred device: %q", system.Content)
	}
}

func TestHandleMessageKeepsIntentAndFacts(t *testing.T) {
	t.Parallel()

	h := newHarness(t,
		&classifierOracle{labels: []string{"sell", "buy"}, confidence: "0.5"},
		`{"brand": "Apple", "model": "iPhone 12"}`,
		schema.AssistantMessage("¿Qué capacidad tiene?", nil),
		schema.AssistantMessage("Entendido.", nil),
	)
	ctx := context.Background()

	if _, err := h.orch.HandleMessage(ctx, "conv-2", "Quiero vender mi iPhone 12"); err != nil {
		t.Fatalf("first turn error = %v", err)
	}
	out, err := h.orch.Turn(ctx, "conv-2", "Mejor quiero comprar uno")
	if err != nil {
		t.Fatalf("second turn error = %v", err)
	}
	if out.Intent != contractx.IntentSell {
		t.Fatalf("low-confidence switch must be rejected, got %q", out.Intent)
	}

	conv, err := h.store.Load(ctx, "conv-2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := len(conv.Dialogue()); got != 5 {
		t.Fatalf("expected welcome plus two exchanges, got %d messages", got)
	}
	if conv.Device.Brand != "Apple" {
		t.Fatalf("device facts lost: %#v", conv.Device)
	}
}

func TestHandleMessageInvalidInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &classifierOracle{}, "{}")

	_, err := h.orch.HandleMessage(context.Background(), "   ", "hola")
	if !errors.Is(err, ErrInvalidConversation) {
		t.Fatalf("expected ErrInvalidConversation, got %v", err)
	}

	_, err = h.orch.HandleMessage(context.Background(), "c1", "    ")
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	if h.classifier.calls != 0 {
		t.Fatalf("invalid input must not reach the classifier")
	}
}

func TestHandleMessageOracleOutage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &classifierOracle{labels: []string{"none"}}, "{}")
	h.model.err = errors.New("upstream 503")

	_, err := h.orch.HandleMessage(context.Background(), "c1", "hola")
	if !errors.Is(err, contractx.ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable, got %v", err)
	}
	if _, err := h.store.Load(context.Background(), "c1"); !errors.Is(err, statex.ErrStateNotFound) {
		t.Fatalf("failed turn must not be saved, got %v", err)
	}
}

func TestHandleMessageSkipsExtractionWithoutIntent(t *testing.T) {
	t.Parallel()

	store, err := statex.NewMemoryStore()
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	extractor := &countingExtractor{}
	model := &fakeToolCallingModel{responses: []*schema.Message{schema.AssistantMessage("", nil)}}
	assistant, err := specialistx.NewAssistant(context.Background(), model, nil)
	if err != nil {
		t.Fatalf("NewAssistant() error = %v", err)
	}
	tracker, err := intentx.NewTracker(&classifierOracle{labels: []string{"none"}}, promptx.MustLoadSet())
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}

	orch, err := New(store, Deps{
		Tracker:   tracker,
		Extractor: extractor,
		Prompts:   promptx.MustLoadSet(),
		Assistant: assistant,
		Tools:     toolx.NewExecutor(nil, nil, nil),
	}, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	reply, err := orch.HandleMessage(context.Background(), "c1", "hola")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if reply != nodex.FallbackReply {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if extractor.calls != 0 {
		t.Fatalf("extraction should be skipped for none intent, got %d calls", extractor.calls)
	}
}

func TestHandleMessageSaveErrorPropagates(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &classifierOracle{labels: []string{"none"}}, "{}", schema.AssistantMessage("Hola", nil))
	saveErr := errors.New("disk full")
	h.orch.store = failingStore{Store: h.store, err: saveErr}

	_, err := h.orch.HandleMessage(context.Background(), "c1", "hola")
	if !errors.Is(err, saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	store, _ := statex.NewMemoryStore()
	if _, err := New(nil, Deps{}, Config{}); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := New(store, Deps{}, Config{}); err == nil {
		t.Fatal("expected error for missing deps")
	}
}
