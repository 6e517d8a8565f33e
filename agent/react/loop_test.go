package react

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/showeasy/concierge/agent/contract"
)

type fakeToolCallingModel struct {
	responses []*schema.Message
	err       error
	calls     int
	idx       int
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		msg := f.responses[len(f.responses)-1]
		return msg, nil
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

type fakeGateway struct {
	results    map[string]contractx.ToolResult
	errs       map[string]error
	writeTools []string
	executed   []contractx.ToolRequest
}

func (g *fakeGateway) Execute(_ context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	g.executed = append(g.executed, req)
	if err, ok := g.errs[req.Tool]; ok {
		return contractx.ToolResult{}, err
	}
	if res, ok := g.results[req.Tool]; ok {
		res.Tool = req.Tool
		return res, nil
	}
	return contractx.ToolResult{Tool: req.Tool, Fields: map[string]any{"status": "ok"}}, nil
}

func (g *fakeGateway) WriteTools() []string { return g.writeTools }

func (g *fakeGateway) Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{{Name: "membership_info"}, {Name: "booking_enquiry"}}
}

func toolCallMessage(name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID: "call-1",
			Function: schema.FunctionCall{
				Name:      name,
				Arguments: args,
			},
		}},
	}
}

func answerMessage(content string) *schema.Message {
	return &schema.Message{Role: schema.Assistant, Content: content}
}

func newTestLoop(t *testing.T, model einomodel.ToolCallingChatModel, gateway *fakeGateway, cfg Config) *Loop {
	t.Helper()
	loop, err := New(model, gateway, "system prompt with {memory_digest} and {page_context}", cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return loop
}

func TestLoopFinishesWithoutTools(t *testing.T) {
	t.Parallel()

	model := &fakeToolCallingModel{responses: []*schema.Message{
		answerMessage("Hello! Ask me about events or tickets."),
	}}
	gateway := &fakeGateway{}
	loop := newTestLoop(t, model, gateway, Config{})

	resp, err := loop.Run(context.Background(), contractx.AgentRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Terminal != contractx.LoopFinished {
		t.Fatalf("terminal = %s, want %s", resp.Terminal, contractx.LoopFinished)
	}
	if resp.Answer != "Hello! Ask me about events or tickets." {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}
	if len(gateway.executed) != 0 {
		t.Fatalf("no tools should run, got %d", len(gateway.executed))
	}
}

func TestLoopToolThenAnswer(t *testing.T) {
	t.Parallel()

	model := &fakeToolCallingModel{responses: []*schema.Message{
		toolCallMessage("membership_info", `{"topic":"benefits"}`),
		answerMessage("Gold members get a 10% discount."),
	}}
	gateway := &fakeGateway{results: map[string]contractx.ToolResult{
		"membership_info": {Fields: map[string]any{"status": "ok", "answer": "10% discount"}},
	}}
	loop := newTestLoop(t, model, gateway, Config{})

	resp, err := loop.Run(context.Background(), contractx.AgentRequest{Message: "what do gold members get?"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Terminal != contractx.LoopFinished {
		t.Fatalf("terminal = %s", resp.Terminal)
	}
	if len(resp.Steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(resp.Steps))
	}
	if resp.Steps[0].Tool != "membership_info" {
		t.Fatalf("tool = %s", resp.Steps[0].Tool)
	}
	if resp.IntentHint != "Membership Inquiry" {
		t.Fatalf("intent hint = %q", resp.IntentHint)
	}
}

func TestLoopRepeatedCallStalls(t *testing.T) {
	t.Parallel()

	// The fake keeps returning the identical call; the loop must stop
	// within repeat threshold + 1 iterations with a usable answer.
	model := &fakeToolCallingModel{responses: []*schema.Message{
		toolCallMessage("membership_info", `{"topic":"tiers"}`),
	}}
	gateway := &fakeGateway{results: map[string]contractx.ToolResult{
		"membership_info": {Fields: map[string]any{"status": "ok", "answer": "three tiers"}},
	}}
	loop := newTestLoop(t, model, gateway, Config{RepeatThreshold: 2})

	resp, err := loop.Run(context.Background(), contractx.AgentRequest{Message: "tiers?"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Terminal != contractx.LoopStalled {
		t.Fatalf("terminal = %s, want %s", resp.Terminal, contractx.LoopStalled)
	}
	if model.calls != 3 {
		t.Fatalf("model calls = %d, want threshold+1 = 3", model.calls)
	}
	if len(gateway.executed) != 2 {
		t.Fatalf("executions = %d, want 2", len(gateway.executed))
	}
	if resp.Answer == "" {
		t.Fatal("stalled answer must not be empty")
	}
	if !strings.Contains(resp.Answer, "three tiers") {
		t.Fatalf("degraded answer should carry the last finding, got %q", resp.Answer)
	}
}

func TestLoopInvalidArgsBecomeObservation(t *testing.T) {
	t.Parallel()

	model := &fakeToolCallingModel{responses: []*schema.Message{
		toolCallMessage("membership_info", `not json`),
		answerMessage("Sorry, could you rephrase?"),
	}}
	gateway := &fakeGateway{}
	loop := newTestLoop(t, model, gateway, Config{})

	resp, err := loop.Run(context.Background(), contractx.AgentRequest{Message: "hm"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(gateway.executed) != 0 {
		t.Fatal("malformed arguments must not reach the gateway")
	}
	if len(resp.Steps) != 1 || !strings.Contains(resp.Steps[0].Observation, "invalid arguments") {
		t.Fatalf("unexpected steps: %#v", resp.Steps)
	}
	if resp.Terminal != contractx.LoopFinished {
		t.Fatalf("terminal = %s", resp.Terminal)
	}
}

func TestLoopToolErrorFedBack(t *testing.T) {
	t.Parallel()

	model := &fakeToolCallingModel{responses: []*schema.Message{
		toolCallMessage("membership_info", `{"topic":"tiers"}`),
		answerMessage("I can't reach that right now."),
	}}
	gateway := &fakeGateway{errs: map[string]error{
		"membership_info": errors.New("upstream down"),
	}}
	loop := newTestLoop(t, model, gateway, Config{})

	resp, err := loop.Run(context.Background(), contractx.AgentRequest{Message: "tiers?"})
	if err != nil {
		t.Fatalf("tool failures must not abort the loop, got %v", err)
	}
	if !strings.Contains(resp.Steps[0].Observation, "tool error") {
		t.Fatalf("observation = %q", resp.Steps[0].Observation)
	}
}

func TestLoopWriteToolRunsOnce(t *testing.T) {
	t.Parallel()

	model := &fakeToolCallingModel{responses: []*schema.Message{
		toolCallMessage("booking_enquiry", `{"message":"any seats?","event_id":1}`),
		toolCallMessage("booking_enquiry", `{"message":"any seats?","event_id":2}`),
		answerMessage("Your enquiry was sent."),
	}}
	gateway := &fakeGateway{
		writeTools: []string{"booking_enquiry"},
		results: map[string]contractx.ToolResult{
			"booking_enquiry": {Fields: map[string]any{"status": "ok", "enquiry_id": int64(7)}},
		},
	}
	loop := newTestLoop(t, model, gateway, Config{})

	resp, err := loop.Run(context.Background(), contractx.AgentRequest{Message: "ask the organizer"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(gateway.executed) != 1 {
		t.Fatalf("write tool executed %d times, want 1", len(gateway.executed))
	}
	if !strings.Contains(resp.Steps[1].Observation, "already ran") {
		t.Fatalf("second call observation = %q", resp.Steps[1].Observation)
	}
}

func TestLoopCeilingYieldsDegradedAnswer(t *testing.T) {
	t.Parallel()

	// Alternate two different calls so the repeat guard never fires
	// and the ceiling is the binding limit.
	model := &fakeToolCallingModel{responses: []*schema.Message{
		toolCallMessage("membership_info", `{"topic":"tiers"}`),
		toolCallMessage("membership_info", `{"topic":"points"}`),
		toolCallMessage("membership_info", `{"topic":"tiers"}`),
		toolCallMessage("membership_info", `{"topic":"points"}`),
	}}
	gateway := &fakeGateway{results: map[string]contractx.ToolResult{
		"membership_info": {Fields: map[string]any{"status": "ok", "answer": "membership facts"}},
	}}
	loop := newTestLoop(t, model, gateway, Config{MaxIterations: 4, RepeatThreshold: 3})

	resp, err := loop.Run(context.Background(), contractx.AgentRequest{Message: "membership?"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Terminal != contractx.LoopLimitReached {
		t.Fatalf("terminal = %s, want %s", resp.Terminal, contractx.LoopLimitReached)
	}
	if model.calls != 4 {
		t.Fatalf("model calls = %d, want 4", model.calls)
	}
	if resp.Answer == "" {
		t.Fatal("ceiling answer must not be empty")
	}
}

func TestLoopProviderFailure(t *testing.T) {
	t.Parallel()

	model := &fakeToolCallingModel{err: errors.New("rate limited")}
	gateway := &fakeGateway{}
	loop := newTestLoop(t, model, gateway, Config{ProviderRetries: 2, RetryBackoff: time.Millisecond})

	_, err := loop.Run(context.Background(), contractx.AgentRequest{Message: "hi"})
	if !errors.Is(err, contractx.ErrProviderFailure) {
		t.Fatalf("error = %v, want ErrProviderFailure", err)
	}
	if model.calls != 3 {
		t.Fatalf("model calls = %d, want initial + 2 retries = 3", model.calls)
	}
}

// hangingModel replays one tool call, then blocks until the context
// expires, the way a slow provider does when the caller deadline fires.
type hangingModel struct {
	first *schema.Message
	calls int
}

func (m *hangingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	m.calls++
	if m.calls == 1 {
		return m.first, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (m *hangingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (m *hangingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return m, nil
}

func TestLoopDeadlineDuringModelCall(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	model := &hangingModel{first: toolCallMessage("membership_info", `{"topic":"tiers"}`)}
	gateway := &fakeGateway{results: map[string]contractx.ToolResult{
		"membership_info": {Fields: map[string]any{"status": "ok", "answer": "three tiers"}},
	}}
	loop := newTestLoop(t, model, gateway, Config{})

	resp, err := loop.Run(ctx, contractx.AgentRequest{Message: "tiers?"})
	if err != nil {
		t.Fatalf("deadline expiry must not surface as an error, got %v", err)
	}
	if resp.Terminal != contractx.LoopStalled {
		t.Fatalf("terminal = %s, want %s", resp.Terminal, contractx.LoopStalled)
	}
	if !strings.Contains(resp.Answer, "three tiers") {
		t.Fatalf("degraded answer should carry the last finding, got %q", resp.Answer)
	}
}

func TestLoopEmptyAnswerIsStalled(t *testing.T) {
	t.Parallel()

	model := &fakeToolCallingModel{responses: []*schema.Message{answerMessage("   ")}}
	gateway := &fakeGateway{}
	loop := newTestLoop(t, model, gateway, Config{})

	resp, err := loop.Run(context.Background(), contractx.AgentRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Terminal != contractx.LoopStalled {
		t.Fatalf("terminal = %s, want %s", resp.Terminal, contractx.LoopStalled)
	}
	if resp.Answer == "" {
		t.Fatal("answer must not be empty")
	}
}

func TestLoopDeadlineAtBoundary(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := &fakeToolCallingModel{responses: []*schema.Message{answerMessage("never reached")}}
	gateway := &fakeGateway{}
	loop := newTestLoop(t, model, gateway, Config{})

	resp, err := loop.Run(ctx, contractx.AgentRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Terminal != contractx.LoopStalled {
		t.Fatalf("terminal = %s", resp.Terminal)
	}
	if model.calls != 0 {
		t.Fatalf("model calls = %d, want 0 after expired context", model.calls)
	}
	if resp.Answer == "" {
		t.Fatal("deadline answer must not be empty")
	}
}
