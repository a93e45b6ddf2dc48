package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/moot-ai/moot-backend/internal/core"
)

// OpenAIProvider implements the OpenAI-compatible chat completions API.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens uint32
}

func NewOpenAIProvider(apiKey, model string, maxTokens uint32, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (p *OpenAIProvider) ProviderName() string { return "openai" }
func (p *OpenAIProvider) ModelName() string    { return p.model }

func (p *OpenAIProvider) SendMessage(ctx context.Context, system string, messages []core.Message,
	tools []core.ToolDefinition) (*core.CompletionResponse, error) {

	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(system, messages, tools, false))
	if err != nil {
		return nil, translateOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return &core.CompletionResponse{StopReason: "end_turn"}, nil
	}

	choice := resp.Choices[0]
	var blocks []core.ResponseContentBlock
	if choice.Message.Content != "" {
		blocks = append(blocks, core.ResponseContentBlock{Type: "text", Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		blocks = append(blocks, core.ResponseContentBlock{
			Type:  "tool_use",
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: json.RawMessage(tc.Function.Arguments),
		})
	}

	return &core.CompletionResponse{
		Content:    blocks,
		StopReason: translateStopReason(string(choice.FinishReason)),
		Usage: &core.Usage{
			InputTokens:  uint32(resp.Usage.PromptTokens),
			OutputTokens: uint32(resp.Usage.CompletionTokens),
		},
	}, nil
}

func (p *OpenAIProvider) SendMessageStream(ctx context.Context, system string, messages []core.Message,
	tools []core.ToolDefinition, onDelta func(string)) (*core.CompletionResponse, error) {

	stream, err := p.client.CreateChatCompletionStream(ctx, p.buildRequest(system, messages, tools, true))
	if err != nil {
		return nil, translateOpenAIError(err)
	}
	defer stream.Close()

	var (
		text         strings.Builder
		toolCalls    []accumulatedToolCall
		finishReason string
		usage        *core.Usage
	)

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, translateOpenAIError(err)
		}

		if chunk.Usage != nil {
			usage = &core.Usage{
				InputTokens:  uint32(chunk.Usage.PromptTokens),
				OutputTokens: uint32(chunk.Usage.CompletionTokens),
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			text.WriteString(choice.Delta.Content)
			if onDelta != nil {
				onDelta(choice.Delta.Content)
			}
		}
		if choice.FinishReason != "" {
			finishReason = string(choice.FinishReason)
		}

		for _, tc := range choice.Delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			for len(toolCalls) <= idx {
				toolCalls = append(toolCalls, accumulatedToolCall{})
			}
			if tc.ID != "" {
				toolCalls[idx].id = tc.ID
			}
			if tc.Function.Name != "" {
				toolCalls[idx].name = tc.Function.Name
			}
			toolCalls[idx].arguments += tc.Function.Arguments
		}
	}

	var blocks []core.ResponseContentBlock
	if text.Len() > 0 {
		blocks = append(blocks, core.ResponseContentBlock{Type: "text", Text: text.String()})
	}
	for _, tc := range toolCalls {
		args := tc.arguments
		if args == "" {
			args = "{}"
		}
		blocks = append(blocks, core.ResponseContentBlock{
			Type:  "tool_use",
			ID:    tc.id,
			Name:  tc.name,
			Input: json.RawMessage(args),
		})
	}

	return &core.CompletionResponse{
		Content:    blocks,
		StopReason: translateStopReason(finishReason),
		Usage:      usage,
	}, nil
}

type accumulatedToolCall struct {
	id        string
	name      string
	arguments string
}

func (p *OpenAIProvider) buildRequest(system string, messages []core.Message,
	tools []core.ToolDefinition, stream bool) openai.ChatCompletionRequest {

	req := openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: int(p.maxTokens),
		Messages:  translateToOpenAI(system, messages),
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	if stream {
		req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return req
}

// translateToOpenAI converts provider-neutral messages to chat messages.
// Tool results become separate role "tool" messages keyed by tool_call_id.
func translateToOpenAI(system string, messages []core.Message) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage

	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}

	for _, msg := range messages {
		if !msg.Content.IsBlocks() {
			out = append(out, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content.Text})
			continue
		}

		var textParts []string
		var toolCalls []openai.ToolCall
		var toolResults []openai.ChatCompletionMessage

		for _, block := range msg.Content.Blocks {
			switch block.Type {
			case "text":
				textParts = append(textParts, block.Text)
			case "tool_use":
				inputStr := "{}"
				if block.Input != nil {
					inputStr = string(*block.Input)
				}
				toolCalls = append(toolCalls, openai.ToolCall{
					ID:   block.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      block.Name,
						Arguments: inputStr,
					},
				})
			case "tool_result":
				toolResults = append(toolResults, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    block.Content,
					ToolCallID: block.ToolUseID,
				})
			}
		}

		switch msg.Role {
		case "assistant":
			m := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
			if len(textParts) > 0 {
				m.Content = strings.Join(textParts, "\n")
			}
			m.ToolCalls = toolCalls
			out = append(out, m)
		case "user":
			if len(textParts) > 0 {
				out = append(out, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: strings.Join(textParts, "\n"),
				})
			}
		}

		out = append(out, toolResults...)
	}

	return out
}

func translateStopReason(reason string) string {
	switch reason {
	case "stop":
		return "end_turn"
	case "tool_calls":
		return "tool_use"
	case "length":
		return "max_tokens"
	default:
		return "end_turn"
	}
}

func translateOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return core.ErrRateLimited
		}
		return core.NewLLMErrorf("openai API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return err
}
