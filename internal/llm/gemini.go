package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/moot-ai/moot-backend/internal/core"
)

// GeminiProvider implements the Gemini generateContent API.
type GeminiProvider struct {
	client    *http.Client
	apiKey    string
	model     string
	maxTokens uint32
	baseURL   string
}

func NewGeminiProvider(apiKey, model string, maxTokens uint32, baseURL string) *GeminiProvider {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiProvider{
		client:    &http.Client{},
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

func (p *GeminiProvider) ProviderName() string { return "gemini" }
func (p *GeminiProvider) ModelName() string    { return p.model }

func (p *GeminiProvider) SendMessage(ctx context.Context, system string, messages []core.Message,
	tools []core.ToolDefinition) (*core.CompletionResponse, error) {
	return p.doRequest(ctx, system, messages, tools, false, nil)
}

func (p *GeminiProvider) SendMessageStream(ctx context.Context, system string, messages []core.Message,
	tools []core.ToolDefinition, onDelta func(string)) (*core.CompletionResponse, error) {
	return p.doRequest(ctx, system, messages, tools, true, onDelta)
}

func (p *GeminiProvider) doRequest(ctx context.Context, system string, messages []core.Message,
	tools []core.ToolDefinition, stream bool, onDelta func(string)) (*core.CompletionResponse, error) {

	body := map[string]any{
		"contents": translateToGemini(messages),
		"generationConfig": map[string]any{
			"maxOutputTokens": p.maxTokens,
		},
	}
	if system != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": system}},
		}
	}
	if len(tools) > 0 {
		var decls []map[string]any
		for _, t := range tools {
			decls = append(decls, map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.InputSchema,
			})
		}
		body["tools"] = []map[string]any{{"functionDeclarations": decls}}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	method := "generateContent"
	if stream {
		method = "streamGenerateContent?alt=sse"
	}
	url := fmt.Sprintf("%s/models/%s:%s", p.baseURL, p.model, method)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 429 {
		io.Copy(io.Discard, resp.Body)
		return nil, core.ErrRateLimited
	}
	if resp.StatusCode != 200 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, core.NewLLMErrorf("gemini API error (status %d): %s", resp.StatusCode, string(errBody))
	}

	if stream {
		return p.parseSSE(resp.Body, onDelta)
	}

	var chunk geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	acc := newGeminiAccumulator()
	acc.add(&chunk, nil)
	return acc.response(), nil
}

// parseSSE processes Gemini SSE stream chunks. Each data line carries a
// complete generateContent response fragment; text parts accumulate into one
// text block, functionCall parts become tool_use blocks.
func (p *GeminiProvider) parseSSE(body io.Reader, onDelta func(string)) (*core.CompletionResponse, error) {
	scanner := bufio.NewScanner(body)
	// Allow large lines for tool input JSON.
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	acc := newGeminiAccumulator()

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		acc.add(&chunk, onDelta)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading SSE stream: %w", err)
	}

	return acc.response(), nil
}

// geminiAccumulator folds response chunks into one CompletionResponse.
type geminiAccumulator struct {
	text         strings.Builder
	toolBlocks   []core.ResponseContentBlock
	finishReason string
	usage        *core.Usage
}

func newGeminiAccumulator() *geminiAccumulator {
	return &geminiAccumulator{}
}

func (a *geminiAccumulator) add(chunk *geminiResponse, onDelta func(string)) {
	if chunk.UsageMetadata != nil {
		a.usage = &core.Usage{
			InputTokens:  uint32(chunk.UsageMetadata.PromptTokenCount),
			OutputTokens: uint32(chunk.UsageMetadata.CandidatesTokenCount),
		}
	}
	if len(chunk.Candidates) == 0 {
		return
	}
	cand := chunk.Candidates[0]
	if cand.FinishReason != "" {
		a.finishReason = cand.FinishReason
	}
	for _, part := range cand.Content.Parts {
		if part.Text != "" {
			a.text.WriteString(part.Text)
			if onDelta != nil {
				onDelta(part.Text)
			}
		}
		if part.FunctionCall != nil {
			args := part.FunctionCall.Args
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			// Gemini does not assign call IDs; synthesize one that carries
			// the function name so tool results can be routed back.
			id := fmt.Sprintf("%s-%d", part.FunctionCall.Name, len(a.toolBlocks))
			a.toolBlocks = append(a.toolBlocks, core.ResponseContentBlock{
				Type:  "tool_use",
				ID:    id,
				Name:  part.FunctionCall.Name,
				Input: args,
			})
		}
	}
}

func (a *geminiAccumulator) response() *core.CompletionResponse {
	var blocks []core.ResponseContentBlock
	if a.text.Len() > 0 {
		blocks = append(blocks, core.ResponseContentBlock{Type: "text", Text: a.text.String()})
	}
	blocks = append(blocks, a.toolBlocks...)

	stopReason := "end_turn"
	if len(a.toolBlocks) > 0 {
		stopReason = "tool_use"
	} else if a.finishReason == "MAX_TOKENS" {
		stopReason = "max_tokens"
	}

	return &core.CompletionResponse{
		Content:    blocks,
		StopReason: stopReason,
		Usage:      a.usage,
	}
}

// Gemini wire structures.

type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

// translateToGemini converts provider-neutral messages to Gemini contents.
// Assistant becomes role "model"; tool_result blocks become functionResponse
// parts carried in a user turn. The function name is recovered from the
// synthetic call ID recorded on the matching tool_use block.
func translateToGemini(messages []core.Message) []geminiContent {
	// Map tool_use IDs to function names for functionResponse routing.
	callNames := make(map[string]string)
	for _, msg := range messages {
		if msg.Role != "assistant" || !msg.Content.IsBlocks() {
			continue
		}
		for _, b := range msg.Content.Blocks {
			if b.Type == "tool_use" {
				callNames[b.ID] = b.Name
			}
		}
	}

	var out []geminiContent
	for _, msg := range messages {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}

		var parts []geminiPart
		if !msg.Content.IsBlocks() {
			if msg.Content.Text != "" {
				parts = append(parts, geminiPart{Text: msg.Content.Text})
			}
		} else {
			for _, b := range msg.Content.Blocks {
				switch b.Type {
				case "text":
					if b.Text != "" {
						parts = append(parts, geminiPart{Text: b.Text})
					}
				case "tool_use":
					args := json.RawMessage("{}")
					if b.Input != nil {
						args = *b.Input
					}
					parts = append(parts, geminiPart{FunctionCall: &geminiFunctionCall{
						Name: b.Name,
						Args: args,
					}})
				case "tool_result":
					name := callNames[b.ToolUseID]
					if name == "" {
						name = b.ToolUseID
					}
					parts = append(parts, geminiPart{FunctionResponse: &geminiFunctionResponse{
						Name:     name,
						Response: map[string]any{"result": b.Content},
					}})
				}
			}
		}

		if len(parts) == 0 {
			continue
		}
		out = append(out, geminiContent{Role: role, Parts: parts})
	}
	return out
}
