package agent

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moot-ai/moot-backend/internal/config"
	"github.com/moot-ai/moot-backend/internal/core"
	"github.com/moot-ai/moot-backend/internal/storage"
	"github.com/moot-ai/moot-backend/internal/stream"
	"github.com/moot-ai/moot-backend/internal/tools"
)

// scriptedProvider replays canned responses, streaming each text block as a
// single delta.
type scriptedProvider struct {
	responses []*core.CompletionResponse
	err       error
	calls     int
}

func (p *scriptedProvider) SendMessage(ctx context.Context, system string, messages []core.Message,
	defs []core.ToolDefinition) (*core.CompletionResponse, error) {
	return p.SendMessageStream(ctx, system, messages, defs, func(string) {})
}

func (p *scriptedProvider) SendMessageStream(ctx context.Context, system string, messages []core.Message,
	defs []core.ToolDefinition, onDelta func(string)) (*core.CompletionResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.calls >= len(p.responses) {
		return nil, context.Canceled
	}
	resp := p.responses[p.calls]
	p.calls++
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			onDelta(block.Text)
		}
	}
	return resp, nil
}

func (p *scriptedProvider) ProviderName() string { return "scripted" }
func (p *scriptedProvider) ModelName() string    { return "scripted-1" }

type echoTool struct{}

func (echoTool) Name() string { return "echo" }
func (echoTool) Definition() core.ToolDefinition {
	return tools.MakeDef("echo", "Echoes its input.", map[string]any{"text": tools.StringProp("text to echo")}, nil)
}
func (echoTool) Execute(ctx context.Context, input json.RawMessage) tools.ToolResult {
	return tools.Success("echo: " + string(input))
}

func textResponse(text string) *core.CompletionResponse {
	return &core.CompletionResponse{
		Content:    []core.ResponseContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
		Usage:      &core.Usage{InputTokens: 10, OutputTokens: 5},
	}
}

func newTestRuntime(t *testing.T, provider *scriptedProvider) (*Runtime, *storage.Database) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	db, err := storage.Open(filepath.Join(cfg.DataDir, "moot.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	registry := tools.NewToolRegistry()
	registry.Register(echoTool{})
	return NewRuntime(&cfg, db, provider, registry), db
}

func collect(t *testing.T, src stream.Source) []stream.GenerationEvent {
	t.Helper()
	var events []stream.GenerationEvent
	for ev := range src.Events() {
		events = append(events, ev)
	}
	return events
}

func TestRuntimeSimpleTurn(t *testing.T) {
	provider := &scriptedProvider{responses: []*core.CompletionResponse{
		textResponse("Objection sustained."),
	}}
	rt, db := newTestRuntime(t, provider)

	src := rt.Process(context.Background(), Request{UserID: "u1", SessionID: "s1", Message: "rule on the objection"})
	events := collect(t, src)
	if src.Err() != nil {
		t.Fatalf("Err = %v", src.Err())
	}

	var partial, final string
	for _, ev := range events {
		if ev.Type != stream.GenerationTextDelta {
			continue
		}
		if ev.Partial {
			partial += ev.Text
		} else {
			final = ev.Text
		}
	}
	if partial != "Objection sustained." || final != "Objection sustained." {
		t.Errorf("partial = %q final = %q", partial, final)
	}

	sess, found, err := db.LoadSession("u1", "s1")
	if err != nil || !found {
		t.Fatalf("LoadSession: found=%v err=%v", found, err)
	}
	saved, err := UnmarshalMessages(sess.MessagesJSON)
	if err != nil {
		t.Fatalf("UnmarshalMessages: %v", err)
	}
	if len(saved) != 2 || saved[0].Role != "user" || saved[1].Role != "assistant" {
		t.Errorf("saved history = %+v", saved)
	}
}

func TestRuntimeToolLoop(t *testing.T) {
	provider := &scriptedProvider{responses: []*core.CompletionResponse{
		{
			Content: []core.ResponseContentBlock{
				{Type: "tool_use", ID: "echo-0", Name: "echo", Input: []byte(`{"text":"hi"}`)},
			},
			StopReason: "tool_use",
		},
		textResponse("Done."),
	}}
	rt, db := newTestRuntime(t, provider)

	src := rt.Process(context.Background(), Request{UserID: "u1", SessionID: "s1", Message: "use the tool"})
	events := collect(t, src)
	if src.Err() != nil {
		t.Fatalf("Err = %v", src.Err())
	}

	sawToolCall := false
	for _, ev := range events {
		if ev.Type == stream.GenerationToolCall && ev.ToolName == "echo" {
			sawToolCall = true
		}
	}
	if !sawToolCall {
		t.Error("no tool_call event emitted")
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d", provider.calls)
	}

	sess, _, _ := db.LoadSession("u1", "s1")
	if !strings.Contains(sess.MessagesJSON, "tool_result") {
		t.Error("tool result missing from saved history")
	}
}

func TestRuntimeLLMError(t *testing.T) {
	provider := &scriptedProvider{err: context.DeadlineExceeded}
	rt, _ := newTestRuntime(t, provider)

	src := rt.Process(context.Background(), Request{UserID: "u1", SessionID: "s1", Message: "hi"})
	collect(t, src)
	if src.Err() == nil {
		t.Fatal("expected terminal error")
	}
}

func TestRuntimeMaxIterations(t *testing.T) {
	toolResp := &core.CompletionResponse{
		Content: []core.ResponseContentBlock{
			{Type: "tool_use", ID: "echo-0", Name: "echo", Input: []byte(`{}`)},
		},
		StopReason: "tool_use",
	}
	provider := &scriptedProvider{responses: []*core.CompletionResponse{toolResp, toolResp, toolResp}}
	rt, _ := newTestRuntime(t, provider)
	rt.cfg.Agent.MaxToolIterations = 3

	src := rt.Process(context.Background(), Request{UserID: "u1", SessionID: "s1", Message: "loop"})
	events := collect(t, src)
	if src.Err() != nil {
		t.Fatalf("Err = %v", src.Err())
	}

	last := events[len(events)-1]
	if last.Type != stream.GenerationTextDelta || !strings.Contains(last.Text, "maximum tool iterations") {
		t.Errorf("last event = %+v", last)
	}
}

func TestRuntimeCaseContextFirstMessageOnly(t *testing.T) {
	provider := &scriptedProvider{responses: []*core.CompletionResponse{
		textResponse("Noted."),
		textResponse("Continuing."),
	}}
	rt, db := newTestRuntime(t, provider)

	cc := &CaseContext{CaseType: "contract dispute", Difficulty: "advanced", Description: "breach of NDA"}
	src := rt.Process(context.Background(), Request{UserID: "u1", SessionID: "s1", Message: "first", CaseContext: cc})
	collect(t, src)

	src = rt.Process(context.Background(), Request{UserID: "u1", SessionID: "s1", Message: "second", CaseContext: cc})
	collect(t, src)

	sess, _, _ := db.LoadSession("u1", "s1")
	if got := strings.Count(sess.MessagesJSON, "[Case Context]"); got != 1 {
		t.Errorf("case context folded %d times, want 1", got)
	}
}

func TestRuntimeCorruptHistoryResets(t *testing.T) {
	provider := &scriptedProvider{responses: []*core.CompletionResponse{
		textResponse("Fresh start."),
	}}
	rt, db := newTestRuntime(t, provider)

	db.SaveSession("u1", "s1", "{not json")
	src := rt.Process(context.Background(), Request{UserID: "u1", SessionID: "s1", Message: "hello"})
	collect(t, src)
	if src.Err() != nil {
		t.Fatalf("Err = %v", src.Err())
	}

	sess, _, _ := db.LoadSession("u1", "s1")
	saved, err := UnmarshalMessages(sess.MessagesJSON)
	if err != nil || len(saved) != 2 {
		t.Errorf("history after reset = %d messages, err %v", len(saved), err)
	}
}
