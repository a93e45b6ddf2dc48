package stream

import "context"

// GenerationEventType discriminates events produced by the agent runtime.
// The variant is decided once at the runtime boundary; consumers never
// inspect runtime-specific types.
type GenerationEventType string

const (
	GenerationTextDelta GenerationEventType = "text_delta"
	GenerationToolCall  GenerationEventType = "tool_call"
)

// GenerationEvent is one unit of agent output.
type GenerationEvent struct {
	Type GenerationEventType

	// text_delta fields. Partial deltas carry new text; a non-partial delta
	// repeats the fully assembled turn and is ignored for output purposes.
	Text    string
	Partial bool

	// tool_call fields.
	ToolName string
}

func TextDelta(text string, partial bool) GenerationEvent {
	return GenerationEvent{Type: GenerationTextDelta, Text: text, Partial: partial}
}

func ToolInvocation(name string) GenerationEvent {
	return GenerationEvent{Type: GenerationToolCall, ToolName: name}
}

// Source is a lazy, finite, non-restartable sequence of generation events.
// Events closes when the run ends; Err reports the pipeline failure, if
// any, once Events is closed.
type Source interface {
	Events() <-chan GenerationEvent
	Err() error
}

// Synthesizer converts one sentence of text to audio bytes. Implementations
// are stateless per call and safe to share across concurrent requests.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}
