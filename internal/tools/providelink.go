package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/moot-ai/moot-backend/internal/core"
)

// ProvideLinkTool lets the agent surface a reference link to the user. The
// [LINK_PROVIDED:...] marker travels through the content stream and the
// frontend renders it in the citations panel.
type ProvideLinkTool struct{}

func NewProvideLinkTool() *ProvideLinkTool { return &ProvideLinkTool{} }

func (t *ProvideLinkTool) Name() string { return "provide_link" }

func (t *ProvideLinkTool) Definition() core.ToolDefinition {
	return MakeDef("provide_link",
		"Add a link to the citations panel for the user to access. Use this when you want to share a URL, document, or reference with the user.",
		map[string]any{
			"title":       StringProp("A descriptive title for the link (e.g., \"Contract Summary PDF\", \"Cornell Law Article\")"),
			"url":         StringProp("The URL or file path to share"),
			"description": StringProp("Optional brief description of what the link contains"),
		},
		[]string{"title", "url"},
	)
}

func (t *ProvideLinkTool) Execute(ctx context.Context, input json.RawMessage) ToolResult {
	var params struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return Error("invalid input: " + err.Error())
	}
	if params.Title == "" || params.URL == "" {
		return Error("title and url are required")
	}

	log.Printf("[tools] link provided: %s -> %s", params.Title, params.URL)
	return Success(fmt.Sprintf("[LINK_PROVIDED:%s|%s|%s]", params.Title, params.URL, params.Description))
}
