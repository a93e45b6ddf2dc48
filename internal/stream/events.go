package stream

import "encoding/base64"

// OutputEventType discriminates the events sent to the client.
type OutputEventType string

const (
	OutputSession  OutputEventType = "session"
	OutputToolCall OutputEventType = "tool_call"
	OutputContent  OutputEventType = "content"
	OutputAudio    OutputEventType = "audio"
	OutputDone     OutputEventType = "done"
	OutputError    OutputEventType = "error"
)

// OutputEvent is one frame of the response stream. It serializes to a
// single JSON object with a mandatory "type" discriminator; only the fields
// relevant to the type are populated.
type OutputEvent struct {
	Type      OutputEventType `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	Content   string          `json:"content,omitempty"`
	Data      string          `json:"data,omitempty"` // base64-encoded audio bytes
	Error     string          `json:"error,omitempty"`
}

func SessionEvent(sessionID string) OutputEvent {
	return OutputEvent{Type: OutputSession, SessionID: sessionID}
}

func ToolCallEvent(toolName string) OutputEvent {
	return OutputEvent{Type: OutputToolCall, ToolName: toolName}
}

func ContentEvent(text string) OutputEvent {
	return OutputEvent{Type: OutputContent, Content: text}
}

func AudioEvent(audio []byte) OutputEvent {
	return OutputEvent{Type: OutputAudio, Data: base64.StdEncoding.EncodeToString(audio)}
}

func DoneEvent() OutputEvent {
	return OutputEvent{Type: OutputDone}
}

func ErrorEvent(message string) OutputEvent {
	return OutputEvent{Type: OutputError, Error: message}
}
