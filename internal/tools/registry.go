package tools

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/moot-ai/moot-backend/internal/core"
)

// ToolRegistry manages tool registration, definition caching, and execution.
type ToolRegistry struct {
	tools    map[string]Tool
	defs     []core.ToolDefinition
	defsOnce sync.Once
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
func (r *ToolRegistry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Definitions returns cached tool definitions.
func (r *ToolRegistry) Definitions() []core.ToolDefinition {
	r.defsOnce.Do(func() {
		r.defs = make([]core.ToolDefinition, 0, len(r.tools))
		for _, t := range r.tools {
			r.defs = append(r.defs, t.Definition())
		}
	})
	return r.defs
}

// Execute runs a tool by name and returns its result.
func (r *ToolRegistry) Execute(ctx context.Context, name string, input json.RawMessage) ToolResult {
	t, ok := r.tools[name]
	if !ok {
		return Error("unknown tool: " + name)
	}

	start := time.Now()
	result := t.Execute(ctx, input)
	log.Printf("[tools] %s finished in %dms (err=%v)", name, time.Since(start).Milliseconds(), result.IsError)

	return result
}

// Has returns true if the registry contains a tool with the given name.
func (r *ToolRegistry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// ToolNames returns the registered tool names.
func (r *ToolRegistry) ToolNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// RegistryConfig holds dependencies needed to build the full tool registry.
type RegistryConfig struct {
	UploadsDir    string
	GeneratedDir  string
	PerplexityKey string
}

// BuildStandardRegistry creates the tool registry the legal agent uses.
func BuildStandardRegistry(cfg RegistryConfig) *ToolRegistry {
	r := NewToolRegistry()

	r.Register(NewWebSearchTool(cfg.PerplexityKey))
	r.Register(NewReadDocumentTool(cfg.UploadsDir))
	r.Register(NewGenerateDocumentTool(cfg.GeneratedDir))
	r.Register(NewProvideLinkTool())

	return r
}
