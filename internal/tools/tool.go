package tools

import (
	"context"
	"encoding/json"

	"github.com/moot-ai/moot-backend/internal/core"
)

// Tool is the interface all tools must implement.
type Tool interface {
	Name() string
	Definition() core.ToolDefinition
	Execute(ctx context.Context, input json.RawMessage) ToolResult
}

// ToolResult holds the output of a tool execution.
type ToolResult struct {
	Content string
	IsError bool
}

// Success creates a successful ToolResult.
func Success(content string) ToolResult {
	return ToolResult{Content: content}
}

// Error creates an error ToolResult.
func Error(content string) ToolResult {
	return ToolResult{Content: content, IsError: true}
}

// MakeDef is a helper to build a ToolDefinition with a JSON schema.
func MakeDef(name, description string, properties map[string]any, required []string) core.ToolDefinition {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	raw, _ := json.Marshal(schema)
	return core.ToolDefinition{
		Name:        name,
		Description: description,
		InputSchema: raw,
	}
}

// StringProp creates a string property for JSON schema.
func StringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

// IntProp creates an integer property for JSON schema.
func IntProp(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

// EnumProp creates a string enum property for JSON schema.
func EnumProp(desc string, values []string) map[string]any {
	return map[string]any{"type": "string", "description": desc, "enum": values}
}
