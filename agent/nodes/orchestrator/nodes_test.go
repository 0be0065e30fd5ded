package orchestratornode

import (
	"context"
	"errors"
	"testing"
	"time"

	specialistx "github.com/tanpawarit/trademind/agent/agents/specialist"
	contractx "github.com/tanpawarit/trademind/agent/contract"
	statex "github.com/tanpawarit/trademind/agent/state"
	toolx "github.com/tanpawarit/trademind/agent/tool"
)

var now = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

type scriptedAssistant struct {
	turns     []specialistx.Turn
	err       error
	calls     int
	histories [][]contractx.Message
}

func (s *scriptedAssistant) Step(ctx context.Context, system string, history []contractx.Message) (specialistx.Turn, error) {
	s.calls++
	s.histories = append(s.histories, append([]contractx.Message(nil), history...))
	if s.err != nil {
		return specialistx.Turn{}, s.err
	}
	if len(s.turns) == 0 {
		return specialistx.Turn{}, errors.New("no scripted turn left")
	}
	turn := s.turns[0]
	s.turns = s.turns[1:]
	return turn, nil
}

type fakeTools struct {
	calls int
	err   error
}

func (f *fakeTools) Execute(ctx context.Context, reqs []contractx.ToolRequest) ([]contractx.ToolResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]contractx.ToolResult, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, contractx.ToolResult{ID: r.ID, Tool: r.Tool, Result: toolx.PriceOutput{Price: 312.4}})
	}
	return out, nil
}

func toolTurn(id string) specialistx.Turn {
	return specialistx.Turn{
		Message: contractx.Message{
			Role:      contractx.RoleAssistant,
			ToolCalls: []contractx.ToolCall{{ID: id, Name: toolx.ToolPredictPrice, Arguments: "{}"}},
		},
		ToolRequests: []contractx.ToolRequest{{ID: id, Tool: toolx.ToolPredictPrice, Args: map[string]any{}}},
	}
}

func textTurn(content string) specialistx.Turn {
	return specialistx.Turn{Message: contractx.AssistantMessage(content)}
}

func newState(intent contractx.Intent) *GraphState {
	conv := statex.NewConversation("c1", now)
	conv.Intent = intent
	conv.Append(contractx.UserMessage("Quiero vender mi iPhone 12"))
	return &GraphState{ConversationID: "c1", Text: "Quiero vender mi iPhone 12", Now: now, Conv: conv}
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	clock := func() time.Time { return now }
	if _, err := ValidateRequest(GraphInput{ConversationID: " ", Text: "hola"}, clock); !errors.Is(err, ErrInvalidConversation) {
		t.Fatalf("expected ErrInvalidConversation, got %v", err)
	}
	if _, err := ValidateRequest(GraphInput{ConversationID: "c1", Text: "  "}, clock); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	st, err := ValidateRequest(GraphInput{ConversationID: " c1 ", Text: " hola "}, clock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.ConversationID != "c1" || st.Text != "hola" || !st.Now.Equal(now) {
		t.Fatalf("unexpected state: %#v", st)
	}
}

func TestRunAssistantToolRoundThenText(t *testing.T) {
	t.Parallel()

	assistant := &scriptedAssistant{turns: []specialistx.Turn{toolTurn("c1"), textTurn("Tu iPhone 12 vale unos 312,40 €")}}
	tools := &fakeTools{}
	in := newState(contractx.IntentSell)

	out, err := RunAssistant(context.Background(), in, assistant, tools, 3)
	if err != nil {
		t.Fatalf("RunAssistant() error = %v", err)
	}
	if out.Reply != "Tu iPhone 12 vale unos 312,40 €" {
		t.Fatalf("unexpected reply: %q", out.Reply)
	}
	if out.ToolRounds != 1 || tools.calls != 1 {
		t.Fatalf("unexpected rounds=%d tool calls=%d", out.ToolRounds, tools.calls)
	}

	msgs := out.Conv.Messages
	toolMsg := msgs[len(msgs)-2]
	if toolMsg.Role != contractx.RoleTool || toolMsg.ToolCallID != "c1" || toolMsg.Content != `{"price":312.4}` {
		t.Fatalf("unexpected tool message: %#v", toolMsg)
	}
	if msgs[len(msgs)-3].Role != contractx.RoleAssistant || len(msgs[len(msgs)-3].ToolCalls) != 1 {
		t.Fatalf("assistant tool-call turn missing from history: %#v", msgs[len(msgs)-3])
	}
	if len(assistant.histories[1]) != len(assistant.histories[0])+2 {
		t.Fatalf("second step should see tool traffic")
	}
	if out.Conv.Device.EstimatedPrice == nil || *out.Conv.Device.EstimatedPrice != 312.4 {
		t.Fatalf("estimated price not recorded: %v", out.Conv.Device.EstimatedPrice)
	}
}

func TestRunAssistantRoundLimit(t *testing.T) {
	t.Parallel()

	assistant := &scriptedAssistant{turns: []specialistx.Turn{toolTurn("a"), toolTurn("b"), toolTurn("c")}}
	tools := &fakeTools{}
	in := newState(contractx.IntentBuy)

	out, err := RunAssistant(context.Background(), in, assistant, tools, 2)
	if err != nil {
		t.Fatalf("RunAssistant() error = %v", err)
	}
	if tools.calls != 2 || assistant.calls != 3 {
		t.Fatalf("unexpected tool calls=%d assistant calls=%d", tools.calls, assistant.calls)
	}
	if out.Reply != FallbackReply {
		t.Fatalf("unexpected reply: %q", out.Reply)
	}
	last := out.Conv.Messages[len(out.Conv.Messages)-1]
	if last.Role != contractx.RoleAssistant || len(last.ToolCalls) != 0 {
		t.Fatalf("dangling tool calls must not be stored: %#v", last)
	}
	if out.Conv.Device.EstimatedPrice != nil {
		t.Fatal("estimates are only recorded while selling")
	}
}

func TestRunAssistantEmptyReplyFallsBack(t *testing.T) {
	t.Parallel()

	in := newState(contractx.IntentNone)
	out, err := RunAssistant(context.Background(), in, &scriptedAssistant{turns: []specialistx.Turn{textTurn("")}}, &fakeTools{}, 3)
	if err != nil {
		t.Fatalf("RunAssistant() error = %v", err)
	}
	if out.Reply != FallbackReply {
		t.Fatalf("unexpected reply: %q", out.Reply)
	}
}

func TestRunAssistantFailures(t *testing.T) {
	t.Parallel()

	_, err := RunAssistant(context.Background(), newState(contractx.IntentSell), &scriptedAssistant{err: contractx.ErrModelInvoke}, &fakeTools{}, 3)
	if !errors.Is(err, contractx.ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable, got %v", err)
	}

	_, err = RunAssistant(context.Background(), newState(contractx.IntentSell), &scriptedAssistant{turns: []specialistx.Turn{toolTurn("a")}}, &fakeTools{err: context.Canceled}, 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestToolMessageEncodesErrors(t *testing.T) {
	t.Parallel()

	msg := toolMessage(contractx.ToolResult{ID: "x", Tool: "predict_price", Error: "invalid brand(required)"})
	if msg.Content != `{"error":"invalid brand(required)"}` || msg.ToolName != "predict_price" {
		t.Fatalf("unexpected message: %#v", msg)
	}
}

func TestFinalizeReplyRequiresText(t *testing.T) {
	t.Parallel()

	in := newState(contractx.IntentSell)
	if _, err := FinalizeReply(in); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	in.Reply = " hola "
	out, err := FinalizeReply(in)
	if err != nil || out.Reply != "hola" || out.Intent != contractx.IntentSell {
		t.Fatalf("unexpected output %#v err=%v", out, err)
	}
}
